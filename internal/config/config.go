// Package config loads and saves application settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppName names the per-user config directory.
const AppName = "GameControllerRemap"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Polling  PollingConfig  `mapstructure:"polling"`
	Output   OutputConfig   `mapstructure:"output"`
	Profiles ProfilesConfig `mapstructure:"profiles"`
	Log      LogConfig      `mapstructure:"log"`
	Settings AppSettings    `mapstructure:"settings"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type CatalogConfig struct {
	ScanInterval time.Duration `mapstructure:"scan_interval"`
}

type PollingConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Backoff     time.Duration `mapstructure:"backoff"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type OutputConfig struct {
	// Enabled selects the uinput backend; otherwise targets stay in memory.
	Enabled    bool   `mapstructure:"enabled"`
	DeviceName string `mapstructure:"device_name"`
}

type ProfilesConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// AppSettings are the user preferences the UI edits as one record.
type AppSettings struct {
	StartMinimized            bool   `mapstructure:"start_minimized" json:"startMinimized"`
	MinimizeToTray            bool   `mapstructure:"minimize_to_tray" json:"minimizeToTray"`
	ShowNotifications         bool   `mapstructure:"show_notifications" json:"showNotifications"`
	AutoDetectControllers     bool   `mapstructure:"auto_detect_controllers" json:"autoDetectControllers"`
	EnableAdaptiveTriggers    bool   `mapstructure:"enable_adaptive_triggers" json:"enableAdaptiveTriggers"`
	DefaultVibrationIntensity int    `mapstructure:"default_vibration_intensity" json:"defaultVibrationIntensity"`
	DefaultLEDColor           string `mapstructure:"default_led_color" json:"defaultLedColor"`
	ThemeMode                 string `mapstructure:"theme_mode" json:"themeMode"`
}

// DefaultConfigPath returns the config file under the user config dir.
// Settings changed at runtime are saved there.
func DefaultConfigPath() string {
	return filepath.Join(userDir(), "config.yaml")
}

// DefaultProfilesPath returns the profile file under the user config dir.
func DefaultProfilesPath() string {
	return filepath.Join(userDir(), "profiles.json")
}

func userDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, AppName)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("catalog.scan_interval", "1s")
	v.SetDefault("polling.interval", "8ms")
	v.SetDefault("polling.backoff", "100ms")
	v.SetDefault("polling.read_timeout", "50ms")
	v.SetDefault("output.enabled", true)
	v.SetDefault("output.device_name", "Remapped Xbox 360 Controller")
	v.SetDefault("profiles.path", DefaultProfilesPath())
	v.SetDefault("log.development", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("settings.start_minimized", false)
	v.SetDefault("settings.minimize_to_tray", false)
	v.SetDefault("settings.show_notifications", false)
	v.SetDefault("settings.auto_detect_controllers", true)
	v.SetDefault("settings.enable_adaptive_triggers", true)
	v.SetDefault("settings.default_vibration_intensity", 100)
	v.SetDefault("settings.default_led_color", "#0078D4")
	v.SetDefault("settings.theme_mode", "Dark")
}

// Flags registers the command line overrides on fs.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", DefaultConfigPath(), "path to the YAML config file")
	fs.String("server.addr", ":8080", "HTTP listen address")
	fs.Duration("polling.interval", 8*time.Millisecond, "controller polling cadence")
	fs.Bool("output.enabled", true, "create virtual controllers through uinput")
	fs.String("profiles.path", "", "profile store file")
	fs.Bool("log.development", false, "human readable debug logging")
}

// Load reads defaults, the optional file at path, PADREMAP_* environment
// variables and any flags set on fs, in increasing priority.
// A missing file is not an error.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PADREMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" || bindErr != nil {
				return
			}
			// Unchanged flags must not shadow the file.
			if !f.Changed {
				return
			}
			bindErr = v.BindPFlag(f.Name, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Profiles.Path == "" {
		cfg.Profiles.Path = DefaultProfilesPath()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects non-positive intervals and out of range settings.
func (c *Config) Validate() error {
	durations := map[string]time.Duration{
		"catalog.scan_interval":   c.Catalog.ScanInterval,
		"polling.interval":        c.Polling.Interval,
		"polling.backoff":         c.Polling.Backoff,
		"polling.read_timeout":    c.Polling.ReadTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalid, key, d)
		}
	}
	if v := c.Settings.DefaultVibrationIntensity; v < 0 || v > 100 {
		return fmt.Errorf("%w: settings.default_vibration_intensity %d out of 0-100", ErrInvalid, v)
	}
	return nil
}

// Save writes the whole configuration to path as YAML.
func Save(path string, c *Config) error {
	if err := c.Validate(); err != nil {
		return err
	}

	v := viper.New()
	values := map[string]any{
		"server.addr":             c.Server.Addr,
		"server.shutdown_timeout": c.Server.ShutdownTimeout.String(),
		"catalog.scan_interval":   c.Catalog.ScanInterval.String(),
		"polling.interval":        c.Polling.Interval.String(),
		"polling.backoff":         c.Polling.Backoff.String(),
		"polling.read_timeout":    c.Polling.ReadTimeout.String(),
		"output.enabled":          c.Output.Enabled,
		"output.device_name":      c.Output.DeviceName,
		"profiles.path":           c.Profiles.Path,
		"log.development":         c.Log.Development,
		"log.level":               c.Log.Level,

		"settings.start_minimized":             c.Settings.StartMinimized,
		"settings.minimize_to_tray":            c.Settings.MinimizeToTray,
		"settings.show_notifications":          c.Settings.ShowNotifications,
		"settings.auto_detect_controllers":     c.Settings.AutoDetectControllers,
		"settings.enable_adaptive_triggers":    c.Settings.EnableAdaptiveTriggers,
		"settings.default_vibration_intensity": c.Settings.DefaultVibrationIntensity,
		"settings.default_led_color":           c.Settings.DefaultLEDColor,
		"settings.theme_mode":                  c.Settings.ThemeMode,
	}
	for k, val := range values {
		v.Set(k, val)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	v.SetConfigType("yaml")
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

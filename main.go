package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/soar/GameControllerRemap/internal/app"
	"github.com/soar/GameControllerRemap/internal/config"
	"github.com/soar/GameControllerRemap/internal/console"
	"github.com/soar/GameControllerRemap/internal/device"
	"github.com/soar/GameControllerRemap/internal/gamepad"
	"github.com/soar/GameControllerRemap/internal/hub"
	"github.com/soar/GameControllerRemap/internal/input"
	"github.com/soar/GameControllerRemap/internal/mapping"
	"github.com/soar/GameControllerRemap/internal/output"
	"github.com/soar/GameControllerRemap/internal/poll"
	"github.com/soar/GameControllerRemap/internal/profile"
	"github.com/soar/GameControllerRemap/internal/remap"
	"github.com/soar/GameControllerRemap/internal/server"
	"github.com/soar/GameControllerRemap/internal/tray"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// Cross-platform signal handling: use os.Interrupt on all platforms
// On Windows: os.Interrupt is sent when Ctrl+C is pressed
// On Unix: os.Interrupt is equivalent to syscall.SIGINT
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

const eventBuffer = 256

func main() {
	fs := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	config.Flags(fs)
	fs.Parse(os.Args[1:])
	cfgPath, _ := fs.GetString("config")

	cfg, err := config.Load(cfgPath, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, cfgPath, logger); err != nil {
		logger.Error("GameControllerRemap stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("GameControllerRemap stopped")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}

// newBackend selects the virtual controller backend. A nil result leaves
// the sink unavailable.
func newBackend(cfg config.OutputConfig, logger *zap.Logger) output.Backend {
	if !cfg.Enabled {
		logger.Info("Virtual output disabled, using in-memory targets")
		return output.NewMemoryBackend()
	}
	b, err := output.NewUInputBackend(cfg.DeviceName)
	if err != nil {
		logger.Warn("Virtual controller backend unavailable", zap.Error(err))
		return nil
	}
	return b
}

func run(cfg *config.Config, cfgPath string, logger *zap.Logger) error {
	signalCtx, stopSignals := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stopSignals()
	ctx, cancel := context.WithCancel(signalCtx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	// Go's os.Interrupt may not arrive on Windows once SDL locks its thread.
	reinstallInterrupt := console.InstallInterruptHandler(func() {
		logger.Info("Interrupt received from console")
		cancel()
	})

	// Run the SDL runtime in its own goroutine; it locks its OS thread.
	sdlRuntime := input.NewSDLRuntime(cfg.Polling.Interval, logger)
	g.Go(func() error {
		if err := sdlRuntime.Run(gctx); err != nil {
			logger.Warn("Joystick backends unavailable", zap.Error(err))
		}
		return nil
	})
	go func() {
		select {
		case <-sdlRuntime.Initialized():
			reinstallInterrupt()
		case <-gctx.Done():
		}
	}()

	joysticks := input.NewJoystickReader(sdlRuntime)
	providers := []input.Provider{
		input.NewFixedSlotProvider(sdlRuntime, logger),
		input.NewJoystickProvider(sdlRuntime, logger),
	}
	readers := map[gamepad.InputBackend]input.Reader{
		gamepad.BackendFixedSlot: joysticks,
		gamepad.BackendJoystick:  joysticks,
	}

	var hidReader *input.HIDReader
	bus, err := input.NewHIDBus()
	if err != nil {
		logger.Warn("HID backend unavailable", zap.Error(err))
	} else {
		defer input.CloseHIDBus()
		hidReader = input.NewHIDReader(bus, cfg.Polling.ReadTimeout, logger)
		defer hidReader.Close()
		providers = append(providers, input.NewHIDProvider(bus, logger))
		readers[gamepad.BackendHID] = hidReader
	}

	catalog := device.NewCatalog(providers, cfg.Catalog.ScanInterval, logger)
	supervisor := poll.NewSupervisor(readers, poll.Config{
		Interval: cfg.Polling.Interval,
		Backoff:  cfg.Polling.Backoff,
	}, logger)
	sink := output.NewSink(newBackend(cfg.Output, logger), logger)
	orchestrator := remap.New(supervisor, supervisor.StateChanged(), mapping.NewEngine(logger), sink, logger)

	svc := app.New(gctx, app.Options{
		Catalog:    catalog,
		Poller:     supervisor,
		Remapper:   orchestrator,
		Profiles:   profile.NewStore(cfg.Profiles.Path),
		Effects:    input.NewSideEffects(bus, hidReader, joysticks, logger),
		Config:     cfg,
		ConfigPath: cfgPath,
	}, logger)

	// Subscribe before the first scan so no connect event is missed.
	states, cancelStates := supervisor.StateChanged().Chan(eventBuffer)
	defer cancelStates()
	connected, cancelConnected := catalog.Connected().Chan(eventBuffer)
	defer cancelConnected()
	disconnected, cancelDisconnected := catalog.Disconnected().Chan(eventBuffer)
	defer cancelDisconnected()

	catalog.Initialize(gctx)
	if cfg.Settings.AutoDetectControllers {
		catalog.Start(gctx)
	}

	h := hub.NewHub(logger)
	broadcaster := hub.NewBroadcaster(h, hub.Sources{
		States:       states,
		Connected:    connected,
		Disconnected: disconnected,
	}, logger)
	g.Go(func() error { h.Run(gctx); return nil })
	g.Go(func() error { broadcaster.Run(gctx); return nil })

	srv := server.New(h, broadcaster, svc, cfg.Server.Addr, logger)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	url := localURL(cfg.Server.Addr)
	logger.Info("GameControllerRemap started", zap.String("url", url))

	// Initialize system tray on Windows only
	var t *tray.Tray
	if runtime.GOOS == "windows" {
		if cfg.Settings.StartMinimized && console.Hide() {
			logger.Info("Console window hidden, use the tray icon to exit")
		}
		t = tray.New(url, svc, func() {
			logger.Info("Shutdown requested from tray")
			cancel()
		}, logger)
		go t.Run(tray.GetIcon())
	} else {
		logger.Info("Press Ctrl+C to exit")
	}

	err = g.Wait()
	logger.Info("Shutting down")

	orchestrator.Close()
	supervisor.StopAll()
	catalog.Stop()
	sink.Close()
	if t != nil {
		t.Quit()
	}
	return err
}

func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

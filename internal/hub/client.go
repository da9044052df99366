package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 8192
	sendBufferSize = 256
)

// Commander executes the commands clients send.
type Commander interface {
	Watch(id string) error
	Unwatch(id string)
	StartRemap(id, profile string) error
	StopRemap(id string) error
	SetProfile(id, profile string) error
	SetLED(id, color string) error
	SetVibration(id string, left, right uint8) error
}

// Client represents a connected WebSocket client.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger

	mu       sync.Mutex
	watching string // device id whose state this client receives
}

// NewClient creates a new Client attached to the hub.
func NewClient(hub *Hub, conn *websocket.Conn, logger *zap.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: logger,
	}
}

// Watching returns the device id the client follows, or "".
func (c *Client) Watching() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watching
}

func (c *Client) setWatching(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.watching
	c.watching = id
	return prev
}

// Send queues msg without blocking. It reports false when the buffer is full.
func (c *Client) Send(msg *WSMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.String("type", msg.Type), zap.Error(err))
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// WritePump sends messages from the send channel to the WebSocket connection.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadPump reads commands from the WebSocket until the connection closes.
func (c *Client) ReadPump(cmd Commander, b *Broadcaster) {
	defer func() {
		if id := c.setWatching(""); id != "" {
			cmd.Unwatch(id)
		}
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			break
		}

		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.logger.Debug("Error parsing client message", zap.Error(err))
			continue
		}

		c.Send(dispatch(cmd, c, clientMsg))
		if clientMsg.Type == CmdWatch && c.Watching() == clientMsg.DeviceID {
			b.SendInitialState(c)
		}
	}
}

// dispatch runs one command and returns the reply for the client.
func dispatch(cmd Commander, c *Client, msg ClientMessage) *WSMessage {
	var err error
	switch msg.Type {
	case CmdWatch:
		err = watch(cmd, c, msg.DeviceID)
	case CmdStartRemap:
		err = cmd.StartRemap(msg.DeviceID, msg.Profile)
	case CmdStopRemap:
		err = cmd.StopRemap(msg.DeviceID)
	case CmdSetProfile:
		err = cmd.SetProfile(msg.DeviceID, msg.Profile)
	case CmdSetLED:
		err = cmd.SetLED(msg.DeviceID, msg.Color)
	case CmdSetVibration:
		err = cmd.SetVibration(msg.DeviceID, msg.Left, msg.Right)
	default:
		err = fmt.Errorf("unknown command %q", msg.Type)
	}
	if err != nil {
		c.logger.Debug("Command failed",
			zap.String("command", msg.Type),
			zap.String("device", msg.DeviceID),
			zap.Error(err))
	}
	return NewResultMessage(msg, err)
}

// watch moves the client to a new device. An empty id stops watching.
func watch(cmd Commander, c *Client, id string) error {
	if id == c.Watching() {
		return nil
	}
	if id != "" {
		if err := cmd.Watch(id); err != nil {
			return err
		}
	}
	if prev := c.setWatching(id); prev != "" {
		cmd.Unwatch(prev)
	}
	return nil
}

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/coder/websocket"
)

const (
	dialTimeout  = 15 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	maxBackoff   = time.Minute
)

// ErrNotConnected is returned by Send while the gateway is between
// connections. Callers treat it like any other delivery failure.
var ErrNotConnected = errors.New("gateway not connected")

// Config holds the chat server connection settings.
type Config struct {
	URL   string // wss endpoint
	Token string // bearer token
}

// Handler consumes inbound message events.
type Handler interface {
	HandleEvent(ctx context.Context, ev Event)
}

// Client keeps a persistent websocket session with the chat server,
// reconnecting with capped exponential backoff. Outbound delivery goes
// through Send, which satisfies the Notifier contract of the reminder
// engine and the forwarder.
type Client struct {
	cfg       Config
	directory *Directory
	handler   Handler
	logger    *slog.Logger

	wmu  sync.Mutex // guards conn for writes and replacement
	conn *ws.Conn

	mu     sync.RWMutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewClient(cfg Config, directory *Directory, handler Handler, logger *slog.Logger) *Client {
	return &Client{
		cfg:       cfg,
		directory: directory,
		handler:   handler,
		logger:    logger,
	}
}

// SetHandler wires the inbound event consumer. Must be called before
// Start; the dispatcher needs the client for outbound sends, so the two
// are constructed in sequence.
func (c *Client) SetHandler(h Handler) {
	c.handler = h
}

// Start runs the connect/read loop until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		backoff := time.Second

		for {
			if ctx.Err() != nil {
				return
			}

			err := c.runSession(ctx)
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("gateway session ended", "error", err, "retry_in", backoff)

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}()
}

// Stop closes the session and waits for the loop to exit.
func (c *Client) Stop() {
	c.mu.RLock()
	cancel := c.cancel
	done := c.done
	c.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (c *Client) runSession(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, _, err := ws.Dial(dialCtx, c.cfg.URL, &ws.DialOptions{
		HTTPHeader: http.Header{"Authorization": {"Bearer " + c.cfg.Token}},
	})
	cancel()
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}

	c.wmu.Lock()
	c.conn = conn
	c.wmu.Unlock()
	defer func() {
		c.wmu.Lock()
		c.conn = nil
		c.wmu.Unlock()
		conn.Close(ws.StatusNormalClosure, "")
	}()

	c.logger.Info("gateway connected", "url", c.cfg.URL)

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go c.pingLoop(pingCtx, conn)

	return c.readLoop(ctx, conn)
}

func (c *Client) readLoop(ctx context.Context, conn *ws.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.Warn("bad gateway frame", "error", err)
			continue
		}

		switch ev.Type {
		case eventHello:
			c.logger.Info("gateway hello received")
		case eventDirectory:
			c.directory.Update(ev.Users, ev.Channels)
		case eventMessage:
			// Handlers may hit the database and the chat server; don't
			// stall the read loop on them.
			go c.handler.HandleEvent(ctx, ev)
		default:
			c.logger.Debug("ignoring gateway event", "type", ev.Type)
		}
	}
}

// pingLoop keeps the connection alive and detects stale sessions.
func (c *Client) pingLoop(ctx context.Context, conn *ws.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		}
	}
}

// Send delivers pre-rendered text to a conversation or user. It fails
// fast when disconnected so reminder dedup state is not raised for
// messages that never left the process.
func (c *Client) Send(ctx context.Context, target, text string) error {
	data, err := json.Marshal(postFrame{Type: "post", Channel: target, Text: text})
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.Write(ctx, ws.MessageText, data); err != nil {
		return fmt.Errorf("write post: %w", err)
	}
	return nil
}

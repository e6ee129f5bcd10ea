package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/knet-ai/research-client/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Channel is the persistent, reconnecting websocket connection to the
// research backend. Inbound messages are decoded into typed events and
// delivered on a single stream; outbound commands are fire-and-forget with
// writes serialized by a mutex.
type Channel struct {
	logger   *logger.Logger
	url      string
	attempts int
	delay    time.Duration

	events chan Event

	writeMu sync.Mutex
	connMu  sync.RWMutex
	conn    *websocket.Conn
}

// NewChannel creates a channel for the given websocket URL. attempts bounds
// the dial retries per outage; delay is the fixed backoff between them.
func NewChannel(log *logger.Logger, url string, attempts int, delay time.Duration) *Channel {
	if attempts < 1 {
		attempts = 1
	}
	return &Channel{
		logger:   log,
		url:      url,
		attempts: attempts,
		delay:    delay,
		events:   make(chan Event, 16),
	}
}

// Events returns the inbound event stream. It is closed when Run returns.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Run connects and pumps events until the context is canceled or the retry
// budget for an outage is exhausted. The attempt counter resets after every
// successful connect.
func (c *Channel) Run(ctx context.Context) error {
	defer close(c.events)

	log := c.logger.WithComponent("transport")

	for {
		conn, err := c.dial(ctx)
		if err != nil {
			log.Error("giving up connecting to research server", slog.String("error", err.Error()))
			c.emit(ctx, Disconnected{Err: err})
			return err
		}

		c.setConn(conn)
		metricConnected.Set(1)
		log.Info("connected to research server", slog.String("url", c.url))
		c.emit(ctx, Connected{})

		readErr := c.readLoop(ctx, conn)

		c.setConn(nil)
		metricConnected.Set(0)
		conn.Close()
		c.emit(ctx, Disconnected{Err: readErr})

		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Warn("connection lost, reconnecting", slog.String("error", fmt.Sprint(readErr)))
		metricReconnects.Inc()
	}
}

// dial attempts the websocket handshake with bounded retries and fixed
// backoff.
func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	log := c.logger.WithComponent("transport")

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		log.Warn("dial failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.attempts),
			slog.String("error", err.Error()))

		if attempt == c.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.delay):
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", c.attempts, lastErr)
}

// readLoop decodes inbound messages until the connection breaks or the
// context is canceled. A ping keepalive runs alongside.
func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) error {
	log := c.logger.WithComponent("transport")

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go c.pingLoop(pingCtx, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("error reading from server", slog.String("error", err.Error()))
			}
			return err
		}

		event, err := decodeEvent(data)
		if err != nil {
			log.Warn("dropping undecodable event", slog.String("error", err.Error()))
			continue
		}

		metricEvents.WithLabelValues(eventLabel(event)).Inc()
		c.emit(ctx, event)
	}
}

// pingLoop keeps the connection alive and tears it down on cancellation so
// readLoop unblocks without waiting out the read deadline.
func (c *Channel) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// emit delivers an event unless the context is already canceled.
func (c *Channel) emit(ctx context.Context, event Event) {
	select {
	case c.events <- event:
	case <-ctx.Done():
	}
}

func (c *Channel) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

// StartResearch sends a start_research command with the given options.
func (c *Channel) StartResearch(topic string, maxDepth, numSitesPerQuery int) error {
	return c.send("start_research", startResearchCommand{
		Type:             "start_research",
		Topic:            topic,
		MaxDepth:         maxDepth,
		NumSitesPerQuery: numSitesPerQuery,
	})
}

// AbortResearch sends an abort_research command.
func (c *Channel) AbortResearch() error {
	return c.send("abort_research", abortResearchCommand{Type: "abort_research"})
}

func (c *Channel) send(kind string, command interface{}) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil {
		return fmt.Errorf("not connected to research server")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(command); err != nil {
		return fmt.Errorf("failed to send %s: %w", kind, err)
	}

	metricCommands.WithLabelValues(kind).Inc()
	return nil
}

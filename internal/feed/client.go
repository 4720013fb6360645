package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/guttosm/candlefeed/internal/logger"
)

const (
	defaultReconnectDelay = 2 * time.Second
	maxReconnectDelay     = 60 * time.Second
)

// TickHandler receives every decoded tick notification.
type TickHandler func(u Update)

// Client keeps a websocket subscription to the price stream alive and hands
// each tick to a handler. Dropped connections are redialed with exponential
// backoff until the context passed to Run is cancelled.
type Client struct {
	url     string
	symbols []string
	handler TickHandler
	dialer  *websocket.Dialer
	delay   time.Duration
	now     func() time.Time

	mu        sync.RWMutex
	connected bool
	lastErr   error
}

// Option configures a Client.
type Option func(*Client)

// WithReconnectDelay sets the initial delay between reconnect attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithClock replaces the clock used to stamp ticks that carry no time.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient creates a client for url subscribing to symbols.
func NewClient(url string, symbols []string, handler TickHandler, opts ...Option) *Client {
	c := &Client{
		url:     url,
		symbols: symbols,
		handler: handler,
		dialer:  websocket.DefaultDialer,
		delay:   defaultReconnectDelay,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connected reports whether a session is currently open.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Health returns the error that ended the last session, or nil.
func (c *Client) Health() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Run streams until ctx is cancelled. It always returns nil once ctx is done.
func (c *Client) Run(ctx context.Context) error {
	delay := c.delay
	for {
		established, err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if established {
			delay = c.delay
		}

		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		flog := logger.Component("feed")
		flog.Warn().Err(err).Str("url", c.url).Dur("retry_in", delay).Msg("feed disconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// session runs one connection. established reports whether the dial and
// subscription succeeded, which resets the backoff.
func (c *Client) session(ctx context.Context) (established bool, err error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial feed: %w", err)
	}
	log := logger.Component("feed").With().Str("conn_id", uuid.NewString()).Logger()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()
	defer func() {
		_ = conn.Close()
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for _, symbol := range c.symbols {
		if err := conn.WriteJSON(SubscribeMessage{Type: TypeSubscribeSymbol, Symbol: symbol}); err != nil {
			return false, fmt.Errorf("subscribe %s: %w", symbol, err)
		}
	}

	c.mu.Lock()
	c.connected = true
	c.lastErr = nil
	c.mu.Unlock()
	log.Info().Str("url", c.url).Strs("symbols", c.symbols).Msg("feed connected")

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read feed: %w", err)
		}
		u, err := DecodeMessage(payload, c.now())
		if err != nil {
			if !errors.Is(err, ErrUnsupportedMessage) {
				log.Debug().Err(err).Msg("feed message skipped")
			}
			continue
		}
		if u.Symbol == "" && len(c.symbols) == 1 {
			u.Symbol = c.symbols[0]
		}
		c.handler(u)
	}
}

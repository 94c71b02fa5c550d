package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"straddle-lab/internal/domain"
	"straddle-lab/internal/logger"
	"straddle-lab/internal/observability"
)

// ErrFeedClosed is returned when using a closed FeedClient.
var ErrFeedClosed = errors.New("feed client closed")

// Subscription binds a feed instrument to the metadata stored with its ticks.
type Subscription struct {
	Instrument string               `yaml:"instrument" validate:"required"`
	Underlying string               `yaml:"underlying" validate:"required"`
	Kind       domain.InstrumentKind `yaml:"kind" validate:"oneof=index option"`
}

// FeedConfig configures WebSocket feed behavior.
type FeedConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// BufferSize is the capacity of the tick channel.
	BufferSize int
}

// DefaultFeedConfig returns default feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		BufferSize:        10000,
	}
}

// FeedClient streams LTP ticks from a JSON WebSocket feed.
//
// After dialing it sends {"method":"subscribe","instruments":[...]}; the feed
// answers with text frames holding one tick object or an array of them:
//
//	{"type":"ltp","instrument":"NSE_FO|46923","ltp":"412.35","ts":1710408300000}
//
// ts is Unix milliseconds. Frames of any other type are ignored. On a read
// error the client redials with exponential backoff and subscribes again.
type FeedClient struct {
	endpoint string
	config   FeedConfig
	subs     map[string]Subscription
	metrics  *observability.Metrics
	logger   *logger.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool
	active atomic.Bool

	done chan struct{}
	wg   sync.WaitGroup
}

// Compile-time interface check.
var _ TickSource = (*FeedClient)(nil)

// NewFeedClient creates a feed client. It does not dial until Subscribe.
func NewFeedClient(endpoint string, subs []Subscription, config *FeedConfig, metrics *observability.Metrics, log *logger.Logger) (*FeedClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("feed endpoint is required")
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("at least one subscription is required")
	}
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}
	if log == nil {
		log = logger.NewNop()
	}

	byID := make(map[string]Subscription, len(subs))
	for _, s := range subs {
		byID[s.Instrument] = s
	}

	return &FeedClient{
		endpoint: endpoint,
		config:   cfg,
		subs:     byID,
		metrics:  metrics,
		logger:   log.Named("feed"),
		done:     make(chan struct{}),
	}, nil
}

// Subscribe dials the feed and returns a channel of decoded ticks.
// The channel is closed when ctx is cancelled or Close is called.
func (c *FeedClient) Subscribe(ctx context.Context) (<-chan *domain.Tick, error) {
	if c.closed.Load() {
		return nil, ErrFeedClosed
	}
	if c.active.Swap(true) {
		return nil, fmt.Errorf("feed already subscribed")
	}
	if err := c.connect(ctx); err != nil {
		c.active.Store(false)
		return nil, err
	}

	out := make(chan *domain.Tick, c.config.BufferSize)

	c.wg.Add(1)
	go c.readLoop(ctx, out)

	c.wg.Add(1)
	go c.pingLoop(ctx)

	return out, nil
}

// Close closes the WebSocket connection and waits for the loops to exit.
func (c *FeedClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	return nil
}

// connect dials the endpoint and sends the subscribe request.
func (c *FeedClient) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	instruments := make([]string, 0, len(c.subs))
	for id := range c.subs {
		instruments = append(instruments, id)
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	// Close and pingLoop only close the connection they can see under connMu
	if c.closed.Load() || ctx.Err() != nil {
		conn.Close()
		if c.closed.Load() {
			return ErrFeedClosed
		}
		return ctx.Err()
	}

	_ = conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteJSON(subscribeRequest{Method: "subscribe", Instruments: instruments}); err != nil {
		conn.Close()
		return fmt.Errorf("write subscribe: %w", err)
	}

	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.logger.Info("subscribed", zap.String("endpoint", c.endpoint), zap.Int("instruments", len(instruments)))
	return nil
}

// readLoop reads frames, decodes ticks and reconnects on failure.
func (c *FeedClient) readLoop(ctx context.Context, out chan<- *domain.Tick) {
	defer c.wg.Done()
	defer close(out)

	for {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		_ = conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.stopped(ctx) {
				return
			}
			c.logger.Warn("feed read failed", zap.Error(err))
			c.metrics.RecordIngestionError("read")
			if !c.reconnect(ctx) {
				return
			}
			continue
		}

		c.metrics.RecordFeedMessage(len(message))
		ticks, err := c.decode(message)
		if err != nil {
			c.metrics.RecordIngestionError("decode")
			c.logger.Debug("undecodable frame", zap.Error(err))
			continue
		}
		c.metrics.RecordTicksReceived(len(ticks))

		for _, t := range ticks {
			select {
			case out <- t:
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
		}
	}
}

// reconnect redials with exponential backoff until it succeeds or the
// client stops. It reports whether the connection was restored.
func (c *FeedClient) reconnect(ctx context.Context) bool {
	delay := c.config.ReconnectDelay
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-c.done:
			return false
		case <-time.After(delay):
		}

		dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := c.connect(dialCtx)
		cancel()
		if err == nil {
			c.metrics.RecordReconnect()
			return true
		}
		if c.stopped(ctx) {
			return false
		}
		c.logger.Warn("reconnect failed", zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))

		delay *= 2
		if delay > c.config.MaxReconnectDelay {
			delay = c.config.MaxReconnectDelay
		}
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *FeedClient) pingLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// unblock a pending read so readLoop can observe cancellation
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.Close()
			}
			c.connMu.Unlock()
			return
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// a failed ping surfaces as a read error
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

func (c *FeedClient) stopped(ctx context.Context) bool {
	return c.closed.Load() || ctx.Err() != nil
}

// decode parses a frame into ticks for subscribed instruments.
func (c *FeedClient) decode(message []byte) ([]*domain.Tick, error) {
	message = bytes.TrimSpace(message)
	var frames []feedTick
	if len(message) > 0 && message[0] == '[' {
		if err := json.Unmarshal(message, &frames); err != nil {
			return nil, err
		}
	} else {
		var f feedTick
		if err := json.Unmarshal(message, &f); err != nil {
			return nil, err
		}
		frames = []feedTick{f}
	}

	ticks := make([]*domain.Tick, 0, len(frames))
	for _, f := range frames {
		if f.Type != "ltp" {
			continue
		}
		sub, ok := c.subs[f.Instrument]
		if !ok {
			c.metrics.RecordTicksDropped("unsubscribed", 1)
			continue
		}
		if f.TimestampMs <= 0 {
			return nil, fmt.Errorf("tick for %s has no timestamp", f.Instrument)
		}
		ticks = append(ticks, &domain.Tick{
			InstrumentID: f.Instrument,
			Underlying:   sub.Underlying,
			Kind:         sub.Kind,
			Time:         time.UnixMilli(f.TimestampMs).UTC(),
			Price:        f.LTP,
		})
	}
	return ticks, nil
}

// Feed message types

type subscribeRequest struct {
	Method      string   `json:"method"`
	Instruments []string `json:"instruments"`
}

type feedTick struct {
	Type        string          `json:"type"`
	Instrument  string          `json:"instrument"`
	LTP         decimal.Decimal `json:"ltp"`
	TimestampMs int64           `json:"ts"`
}

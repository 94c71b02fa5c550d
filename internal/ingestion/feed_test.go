package ingestion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"straddle-lab/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var testSubs = []Subscription{
	{Instrument: "NSE_INDEX|Nifty Bank", Underlying: "BANKNIFTY", Kind: domain.InstrumentKindIndex},
	{Instrument: "NSE_FO|46923", Underlying: "BANKNIFTY", Kind: domain.InstrumentKindOption},
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func fastConfig() *FeedConfig {
	cfg := DefaultFeedConfig()
	cfg.ReconnectDelay = 10 * time.Millisecond
	cfg.MaxReconnectDelay = 50 * time.Millisecond
	cfg.ReadTimeout = 2 * time.Second
	return &cfg
}

// feedServer reads the subscribe request, then writes the frames of the nth
// connection (1-based). The connection is then closed if drop reports true
// for it, and kept open otherwise.
func feedServer(t *testing.T, frames func(conn int) []string, drop func(conn int) bool) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()
		n := int(conns.Add(1))

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		var req subscribeRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Method != "subscribe" || len(req.Instruments) != len(testSubs) {
			t.Errorf("unexpected subscribe request: %+v", req)
		}

		for _, f := range frames(n) {
			if err := c.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		if drop != nil && drop(n) {
			return
		}

		// Keep connection open
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	return server, &conns
}

func receive(t *testing.T, ch <-chan *domain.Tick, n int) []*domain.Tick {
	t.Helper()
	var out []*domain.Tick
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case tk, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed after %d ticks", len(out))
			}
			out = append(out, tk)
		case <-timeout:
			t.Fatalf("timed out after %d of %d ticks", len(out), n)
		}
	}
	return out
}

func TestNewFeedClient_Validation(t *testing.T) {
	if _, err := NewFeedClient("", testSubs, nil, nil, nil); err == nil {
		t.Error("expected error for empty endpoint")
	}
	if _, err := NewFeedClient("ws://localhost:1", nil, nil, nil, nil); err == nil {
		t.Error("expected error without subscriptions")
	}
}

func TestFeedClient_DecodesTicks(t *testing.T) {
	server, _ := feedServer(t, func(int) []string {
		return []string{
			`{"type":"ack"}`,
			`{"type":"ltp","instrument":"NSE_INDEX|Nifty Bank","ltp":48040.5,"ts":1710408300000}`,
			`[{"type":"ltp","instrument":"NSE_FO|46923","ltp":"412.35","ts":1710408300000},` +
				`{"type":"ltp","instrument":"NSE_FO|99999","ltp":"1","ts":1710408300000}]`,
			`not json`,
		}
	}, nil)
	defer server.Close()

	client, err := NewFeedClient(wsURL(server), testSubs, fastConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewFeedClient: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := client.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	ticks := receive(t, ch, 2)

	idx := ticks[0]
	if idx.InstrumentID != "NSE_INDEX|Nifty Bank" || idx.Kind != domain.InstrumentKindIndex || idx.Underlying != "BANKNIFTY" {
		t.Errorf("unexpected index tick: %+v", idx)
	}
	if !idx.Price.Equal(decimal.RequireFromString("48040.5")) {
		t.Errorf("index price = %s", idx.Price)
	}
	if !idx.Time.Equal(time.UnixMilli(1710408300000)) {
		t.Errorf("index time = %v", idx.Time)
	}

	opt := ticks[1]
	if opt.InstrumentID != "NSE_FO|46923" || opt.Kind != domain.InstrumentKindOption {
		t.Errorf("unexpected option tick: %+v", opt)
	}
	if !opt.Price.Equal(decimal.RequireFromString("412.35")) {
		t.Errorf("option price = %s", opt.Price)
	}
}

func TestFeedClient_SubscribeTwice(t *testing.T) {
	server, _ := feedServer(t, func(int) []string { return nil }, nil)
	defer server.Close()

	client, err := NewFeedClient(wsURL(server), testSubs, fastConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewFeedClient: %v", err)
	}
	defer client.Close()

	if _, err := client.Subscribe(context.Background()); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := client.Subscribe(context.Background()); err == nil {
		t.Error("second Subscribe should fail")
	}
}

func TestFeedClient_Reconnects(t *testing.T) {
	server, conns := feedServer(t, func(conn int) []string {
		if conn == 1 {
			return []string{`{"type":"ltp","instrument":"NSE_FO|46923","ltp":"100","ts":1710408300000}`}
		}
		return []string{`{"type":"ltp","instrument":"NSE_FO|46923","ltp":"101","ts":1710408360000}`}
	}, func(conn int) bool { return conn == 1 })
	defer server.Close()

	client, err := NewFeedClient(wsURL(server), testSubs, fastConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewFeedClient: %v", err)
	}
	defer client.Close()

	ch, err := client.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	ticks := receive(t, ch, 2)
	if !ticks[1].Price.Equal(decimal.NewFromInt(101)) {
		t.Errorf("second tick should come from the new connection, got %s", ticks[1].Price)
	}
	if conns.Load() < 2 {
		t.Errorf("expected a reconnect, saw %d connections", conns.Load())
	}
}

func TestFeedClient_CloseEndsChannel(t *testing.T) {
	server, _ := feedServer(t, func(int) []string { return nil }, nil)
	defer server.Close()

	client, err := NewFeedClient(wsURL(server), testSubs, fastConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewFeedClient: %v", err)
	}
	ch, err := client.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after Close")
	}

	if _, err := client.Subscribe(context.Background()); err != ErrFeedClosed {
		t.Errorf("Subscribe after Close = %v, want ErrFeedClosed", err)
	}
}

func TestFeedClient_DialError(t *testing.T) {
	client, err := NewFeedClient("ws://127.0.0.1:1", testSubs, fastConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewFeedClient: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Subscribe(ctx); err == nil {
		t.Error("expected dial error")
	}
}

package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient_SubscribesAndDeliversTicks(t *testing.T) {
	subs := make(chan SubscribeMessage, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var sub SubscribeMessage
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subs <- sub
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscription_confirmed"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"price_update","data":{"price":101,"quantity":1,"time":61}}`))
		// Hold the connection open until the client goes away.
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	updates := make(chan Update, 4)
	c := NewClient(wsURL(srv), []string{"BTCUSDT"}, func(u Update) { updates <- u })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case sub := <-subs:
		assert.Equal(t, SubscribeMessage{Type: TypeSubscribeSymbol, Symbol: "BTCUSDT"}, sub)
	case <-time.After(2 * time.Second):
		t.Fatal("no subscription received")
	}

	select {
	case u := <-updates:
		assert.Equal(t, "BTCUSDT", u.Symbol, "single-symbol feeds fill in the symbol")
		assert.NotNil(t, u.Tick.Price)
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered")
	}
	assert.Eventually(t, c.Connected, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, c.Connected())
}

func TestClient_Reconnects(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns.Add(1)
		var sub SubscribeMessage
		_ = conn.ReadJSON(&sub)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"price_data","symbol":"ETHUSDT","price":10,"time":5}`))
		_ = conn.Close()
	}))
	defer srv.Close()

	var delivered atomic.Int32
	c := NewClient(wsURL(srv), []string{"ETHUSDT"}, func(Update) { delivered.Add(1) },
		WithReconnectDelay(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	assert.Eventually(t, func() bool { return conns.Load() >= 3 }, 3*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, delivered.Load(), int32(2))
}

func TestClient_DialFailureIsRetriedUntilCancel(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/feed", []string{"X"}, func(Update) {}, WithReconnectDelay(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, c.Run(ctx))
	assert.Error(t, c.Health())
	assert.False(t, c.Connected())
}

package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/martictl/internal/domain"
	"go.uber.org/zap"
)

func TestWebsocketFeedDispatchesTypedEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		frames := []string{
			`{"event":"asset purchase","data":{"baseAsset":"BTC","quoteAsset":"USDT","amount":50,"quantity":0.001}}`,
			`{"event":"message","data":"strategy started"}`,
		}
		for _, frame := range frames {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	handler := newRecordingHandler()
	feed := NewWebsocketFeed("ws"+strings.TrimPrefix(server.URL, "http"), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx, handler) }()

	handler.waitFor(t, 2)
	cancel()
	require.NoError(t, <-done)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Len(t, handler.purchases, 1)
	assert.Equal(t, domain.TransactionMessage{
		BaseAsset: "BTC", QuoteAsset: "USDT", Amount: 50, Quantity: 0.001,
	}, handler.purchases[0])
	assert.Equal(t, []string{"strategy started"}, handler.messages)
}

func TestEnvelopeText(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		expected string
	}{
		{name: "quoted string", data: `"hello"`, expected: "hello"},
		{name: "raw text", data: `plain text`, expected: "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, envelopeText([]byte(tt.data)))
		})
	}
}

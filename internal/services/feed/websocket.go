package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const wsInitialReconnectInterval = 2 * time.Second

// wsEnvelope is the frame format on the websocket transport: the event name
// plus its raw payload.
type wsEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WebsocketFeed subscribes to the push channel over a websocket connection.
type WebsocketFeed struct {
	url    string
	logger *zap.Logger
}

// NewWebsocketFeed creates a websocket subscriber for the given URL
// (ws:// or wss:// scheme).
func NewWebsocketFeed(url string, logger *zap.Logger) *WebsocketFeed {
	return &WebsocketFeed{url: url, logger: logger}
}

// Run blocks until ctx is cancelled, dispatching every received event to h.
func (f *WebsocketFeed) Run(ctx context.Context, h Handler) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = wsInitialReconnectInterval
	policy.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		if err := f.consume(ctx, h, policy); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			f.logger.Warn("push channel disconnected, reconnecting", zap.Error(err))
			return err
		}
		return backoff.Permanent(nil)
	}, backoff.WithContext(policy, ctx))

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (f *WebsocketFeed) consume(ctx context.Context, h Handler, policy *backoff.ExponentialBackOff) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to dial push channel")
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	f.logger.Info("push channel connected", zap.String("url", f.url))
	policy.Reset()

	// unblock ReadMessage when the session shuts down
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "push channel read failed")
		}

		var envelope wsEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			f.logger.Warn("failed to decode push frame", zap.Error(err))
			continue
		}

		text := envelopeText(envelope.Data)
		dispatch(ctx, h, f.logger, envelope.Event, text, envelope.Data)
	}
}

// envelopeText extracts the payload of a message event: a JSON string when
// the backend quotes it, the raw bytes otherwise.
func envelopeText(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return string(data)
}

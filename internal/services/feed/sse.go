package feed

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const sseInitialReconnectInterval = 2 * time.Second

// SSEFeed subscribes to the push channel over server-sent events.
// Disconnects are silent from the session's point of view: the feed keeps
// reconnecting with exponential backoff until the context is cancelled.
type SSEFeed struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSSEFeed creates an SSE subscriber for the given stream URL.
func NewSSEFeed(url string, logger *zap.Logger) *SSEFeed {
	return &SSEFeed{
		url: url,
		// no client timeout: the stream stays open indefinitely
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled, dispatching every received event to h.
func (f *SSEFeed) Run(ctx context.Context, h Handler) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = sseInitialReconnectInterval
	policy.MaxElapsedTime = 0 // reconnect forever

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

// consume opens the stream and reads frames until the connection drops.
func (f *SSEFeed) consume(ctx context.Context, h Handler, policy *backoff.ExponentialBackOff) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build stream request")
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to connect to push channel")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("push channel returned status %d", resp.StatusCode)
	}

	f.logger.Info("push channel connected", zap.String("url", f.url))
	policy.Reset()

	var (
		eventName string
		data      strings.Builder
	)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case line == "":
			// blank line terminates the frame
			if data.Len() > 0 || eventName != "" {
				payload := data.String()
				name := eventName
				if name == "" {
					name = eventMessage
				}
				dispatch(ctx, h, f.logger, name, payload, []byte(payload))
			}
			eventName = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// heartbeat comment
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "push channel read failed")
	}
	return errors.New("push channel closed by server")
}

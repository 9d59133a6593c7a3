package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/martictl/internal/domain"
	"github.com/vadiminshakov/martictl/pkg/retrier"
)

const defaultBackendTimeout = 15 * time.Second

// BackendError carries the error envelope returned by the panel backend.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// UserMessage returns the backend error string when the error carries one,
// otherwise the given fallback. Every user-visible failure line goes
// through this helper.
func UserMessage(err error, fallback string) string {
	var backendErr *BackendError
	if errors.As(err, &backendErr) && backendErr.Message != "" {
		return backendErr.Message
	}
	return fallback
}

type errorEnvelope struct {
	Error string `json:"error"`
}

type orderRequest struct {
	BaseAsset  string  `json:"baseAsset"`
	QuoteAsset string  `json:"quoteAsset"`
	Quantity   float64 `json:"quantity"`
}

// BackendClient is a typed HTTP client for the private panel backend.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
	retrier    *retrier.Retrier
}

// NewBackendClient creates a client for the backend at baseURL.
func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	if timeout <= 0 {
		timeout = defaultBackendTimeout
	}
	return &BackendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retrier:    retrier.New(),
	}
}

// Balances fetches the account balances. Reads are retried with backoff,
// except on 4xx answers: those will not change on retry.
func (c *BackendClient) Balances(ctx context.Context) ([]domain.Balance, error) {
	return retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) ([]domain.Balance, error) {
		var balances []domain.Balance
		if err := c.do(ctx, http.MethodGet, "/api/balance", nil, &balances); err != nil {
			var backendErr *BackendError
			if errors.As(err, &backendErr) && backendErr.StatusCode < http.StatusInternalServerError {
				return nil, retrier.Unrecoverable(err)
			}
			return nil, err
		}
		return balances, nil
	})
}

// Buy places a market buy order for the pair.
func (c *BackendClient) Buy(ctx context.Context, pair domain.Pair, quantity float64) error {
	return c.do(ctx, http.MethodPost, "/api/buy", orderRequest{
		BaseAsset:  pair.Base,
		QuoteAsset: pair.Quote,
		Quantity:   quantity,
	}, nil)
}

// Sell places a market sell order for the pair.
func (c *BackendClient) Sell(ctx context.Context, pair domain.Pair, quantity float64) error {
	return c.do(ctx, http.MethodPost, "/api/sell", orderRequest{
		BaseAsset:  pair.Base,
		QuoteAsset: pair.Quote,
		Quantity:   quantity,
	}, nil)
}

// SubmitStrategy starts an automated strategy on the backend.
func (c *BackendClient) SubmitStrategy(ctx context.Context, cfg domain.StrategyConfig) error {
	return c.do(ctx, http.MethodPost, "/api/strategy", cfg, nil)
}

// StopStrategy stops the running strategy keyed by base asset.
func (c *BackendClient) StopStrategy(ctx context.Context, baseAsset string) error {
	return c.do(ctx, http.MethodPost, "/api/strategy/stop/"+baseAsset, nil, nil)
}

// do performs one request. Mutating requests are never retried here:
// replaying an accepted order would execute it twice.
func (c *BackendClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "request %s %s failed", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		backendErr := &BackendError{StatusCode: resp.StatusCode}
		var envelope errorEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
			backendErr.Message = envelope.Error
		}
		return backendErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrapf(err, "failed to decode %s %s response", method, path)
		}
	}
	return nil
}

package clients

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/martictl/internal/domain"
)

func TestBackendClientBalances(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/balance", r.URL.Path)
		w.Write([]byte(`[{"asset":"BTC","free":"0.5"},{"asset":"USDT","free":"12345.6789"}]`))
	}))
	defer server.Close()

	client := NewBackendClient(server.URL, time.Second)
	balances, err := client.Balances(context.Background())

	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "BTC", balances[0].Asset)
	assert.True(t, balances[0].Free.Equal(decimal.NewFromFloat(0.5)))
	assert.Equal(t, "USDT", balances[1].Asset)
	assert.True(t, balances[1].Free.Equal(decimal.RequireFromString("12345.6789")))
}

func TestBackendClientBalancesRetriesReads(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewBackendClient(server.URL, time.Second)
	_, err := client.Balances(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestBackendClientBalancesDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"api key expired"}`))
	}))
	defer server.Close()

	client := NewBackendClient(server.URL, time.Second)
	_, err := client.Balances(context.Background())

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "a 4xx answer will not change on retry")
	assert.Equal(t, "api key expired", UserMessage(err, "Error getting balance"))
}

func TestBackendClientBuy(t *testing.T) {
	var gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
	}))
	defer server.Close()

	client := NewBackendClient(server.URL, time.Second)
	err := client.Buy(context.Background(), domain.Pair{Base: "BTC", Quote: "USDT"}, 0.5)

	require.NoError(t, err)
	assert.Equal(t, "/api/buy", gotPath)
	assert.JSONEq(t, `{"baseAsset":"BTC","quoteAsset":"USDT","quantity":0.5}`, gotBody)
}

func TestBackendClientSubmitStrategy(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/strategy", r.URL.Path)
	}))
	defer server.Close()

	cfg := domain.StrategyConfig{
		BaseAsset:  "BTC",
		QuoteAsset: "USDT",
		Quantity:   0.01,
		Indicators: []domain.IndicatorConfig{
			{
				Name:       domain.IndicatorRSI,
				Options:    map[string]float64{"period": 14},
				Thresholds: domain.Thresholds{Upper: 70, Lower: 30},
			},
		},
		HistoricalData: domain.HistoricalData{Timeframe: domain.Timeframe1h, DataPoints: 100},
	}

	client := NewBackendClient(server.URL, time.Second)
	require.NoError(t, client.SubmitStrategy(context.Background(), cfg))

	assert.JSONEq(t, `{
		"baseAsset": "BTC",
		"quoteAsset": "USDT",
		"quantity": 0.01,
		"indicators": [
			{"name": "RSI", "options": {"period": 14}, "thresholds": {"upper": 70, "lower": 30}}
		],
		"historicalData": {"timeframe": "1h", "dataPoints": 100}
	}`, gotBody)
}

func TestBackendClientSubmitStrategyWithClearedFields(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer server.Close()

	cfg := domain.StrategyConfig{
		BaseAsset:  "BTC",
		QuoteAsset: "USDT",
		Quantity:   0.01,
		Indicators: []domain.IndicatorConfig{
			{
				Name:       domain.IndicatorSMA,
				Options:    map[string]float64{"period": math.NaN()},
				Thresholds: domain.Thresholds{Upper: 60, Lower: 40},
			},
		},
		HistoricalData: domain.HistoricalData{Timeframe: domain.Timeframe1h, DataPoints: 100},
	}

	client := NewBackendClient(server.URL, time.Second)
	require.NoError(t, client.SubmitStrategy(context.Background(), cfg),
		"a cleared optional field must not block the request")

	assert.JSONEq(t, `{
		"baseAsset": "BTC",
		"quoteAsset": "USDT",
		"quantity": 0.01,
		"indicators": [
			{"name": "SMA", "options": {"period": null}, "thresholds": {"upper": 60, "lower": 40}}
		],
		"historicalData": {"timeframe": "1h", "dataPoints": 100}
	}`, gotBody)
}

func TestBackendClientStopStrategy(t *testing.T) {
	var gotPath string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		assert.Equal(t, http.MethodPost, r.Method)
	}))
	defer server.Close()

	client := NewBackendClient(server.URL, time.Second)
	require.NoError(t, client.StopStrategy(context.Background(), "BTC"))

	assert.Equal(t, "/api/strategy/stop/BTC", gotPath)
	assert.Empty(t, gotBody)
}

func TestBackendErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"insufficient balance"}`))
	}))
	defer server.Close()

	client := NewBackendClient(server.URL, time.Second)
	err := client.Buy(context.Background(), domain.Pair{Base: "BTC", Quote: "USDT"}, 1)

	require.Error(t, err)
	assert.Equal(t, "insufficient balance", UserMessage(err, "Error buying asset"))
}

func TestUserMessageFallback(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "backend error without message",
			err:      &BackendError{StatusCode: http.StatusBadGateway},
			expected: "Error buying asset",
		},
		{
			name:     "plain error",
			err:      assert.AnError,
			expected: "Error buying asset",
		},
		{
			name:     "backend error with message",
			err:      &BackendError{StatusCode: http.StatusBadRequest, Message: "lot size too small"},
			expected: "lot size too small",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, UserMessage(tt.err, "Error buying asset"))
		})
	}
}

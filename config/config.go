// Package config loads the control panel configuration from a YAML file,
// command-line flags and environment variables.
package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Feed transports.
const (
	FeedTransportSSE       = "sse"
	FeedTransportWebsocket = "websocket"
)

const (
	defaultBackendURL  = "http://localhost:5000"
	defaultHTTPTimeout = 15 * time.Second
	defaultFeedPath    = "/api/events"
)

// Config panel configuration.
type Config struct {
	// BackendURL base URL of the private panel backend.
	BackendURL string
	// ExchangeInfoURL base URL of the public exchange-info endpoint.
	// Empty means the exchange default.
	ExchangeInfoURL string
	// FeedTransport push-channel transport: sse or websocket.
	FeedTransport string
	// FeedURL explicit push-channel URL; derived from BackendURL when empty.
	FeedURL string
	// HTTPTimeout per-request timeout for backend calls.
	HTTPTimeout time.Duration
}

// ConfigTmp mirrors Config for YAML decoding.
type ConfigTmp struct {
	BackendURL      string        `yaml:"backend_url"`
	ExchangeInfoURL string        `yaml:"exchange_info_url"`
	FeedTransport   string        `yaml:"feed_transport,omitempty"`
	FeedURL         string        `yaml:"feed_url,omitempty"`
	HTTPTimeout     time.Duration `yaml:"http_timeout,omitempty"`
}

// Get resolves the configuration. Precedence: YAML file (--config) when
// given, then flags, then the BACKEND_URL and EXCHANGE_INFO_URL environment
// variables, then defaults.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	backend := flag.String("backend", "", "backend base URL")
	exchangeInfo := flag.String("exchange-info", "", "exchange-info base URL")
	transport := flag.String("feed", FeedTransportSSE, "push channel transport: sse or websocket")
	timeout := flag.Duration("timeout", defaultHTTPTimeout, "backend request timeout")
	flag.Parse()

	cfg := Config{
		FeedTransport: *transport,
		HTTPTimeout:   *timeout,
	}

	if *configPath != "" {
		loaded, err := getYaml(*configPath)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	} else {
		cfg.BackendURL = *backend
		cfg.ExchangeInfoURL = *exchangeInfo
	}

	if cfg.BackendURL == "" {
		cfg.BackendURL = os.Getenv("BACKEND_URL")
	}
	if cfg.BackendURL == "" {
		cfg.BackendURL = defaultBackendURL
	}
	if cfg.ExchangeInfoURL == "" {
		cfg.ExchangeInfoURL = os.Getenv("EXCHANGE_INFO_URL")
	}
	if cfg.FeedTransport == "" {
		cfg.FeedTransport = FeedTransportSSE
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}

	return cfg, cfg.validate()
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, fmt.Errorf("failed to parse yaml config: %w", err)
	}

	return Config{
		BackendURL:      tmp.BackendURL,
		ExchangeInfoURL: tmp.ExchangeInfoURL,
		FeedTransport:   tmp.FeedTransport,
		FeedURL:         tmp.FeedURL,
		HTTPTimeout:     tmp.HTTPTimeout,
	}, nil
}

func (c Config) validate() error {
	if _, err := url.Parse(c.BackendURL); err != nil {
		return fmt.Errorf("invalid backend URL %q: %w", c.BackendURL, err)
	}
	switch c.FeedTransport {
	case FeedTransportSSE, FeedTransportWebsocket:
	default:
		return fmt.Errorf("invalid feed transport %q (expected sse or websocket)", c.FeedTransport)
	}
	return nil
}

// ResolveFeedURL returns the push-channel URL: the explicit override when
// set, otherwise the backend events endpoint with the scheme adjusted for
// the chosen transport.
func (c Config) ResolveFeedURL() string {
	if c.FeedURL != "" {
		return c.FeedURL
	}
	feedURL := strings.TrimRight(c.BackendURL, "/") + defaultFeedPath
	if c.FeedTransport == FeedTransportWebsocket {
		feedURL = strings.Replace(feedURL, "https://", "wss://", 1)
		feedURL = strings.Replace(feedURL, "http://", "ws://", 1)
	}
	return feedURL
}

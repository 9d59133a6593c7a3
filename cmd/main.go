// Command martictl runs a terminal control panel for a crypto-exchange
// testnet account. It shows balances, places manual buy/sell orders and
// configures the backend's automated trading strategy.
//
// Usage:
//
//	martictl --config config.yaml
//	martictl (uses CLI arguments and environment)
//
// Environment variables:
//
//	BACKEND_URL        base URL of the private panel backend
//	EXCHANGE_INFO_URL  public exchange-info endpoint; either the base URL
//	                   or the full /api/v3/exchangeInfo URL is accepted
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/vadiminshakov/martictl/config"
	"github.com/vadiminshakov/martictl/internal/clients"
	"github.com/vadiminshakov/martictl/internal/events"
	"github.com/vadiminshakov/martictl/internal/panel"
	"github.com/vadiminshakov/martictl/internal/services/composer"
	"github.com/vadiminshakov/martictl/internal/services/feed"
	"github.com/vadiminshakov/martictl/internal/services/portfolio"
	"github.com/vadiminshakov/martictl/internal/setup"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// a missing .env is fine, env can come from the shell
	_ = godotenv.Load()

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	backend := clients.NewBackendClient(cfg.BackendURL, cfg.HTTPTimeout)
	exchange := clients.NewExchangeClient(cfg.ExchangeInfoURL)

	bus := events.NewBroadcaster(256)
	store := portfolio.NewStore(backend, bus, logger)
	comp := composer.New(backend, logger)
	session := panel.New(exchange, backend, store, comp, bus, logger)

	var transport feed.Transport
	switch cfg.FeedTransport {
	case config.FeedTransportWebsocket:
		transport = feed.NewWebsocketFeed(cfg.ResolveFeedURL(), logger)
	default:
		transport = feed.NewSSEFeed(cfg.ResolveFeedURL(), logger)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	session.Open(ctx)

	// observability tail of the session state: every state-slice change is
	// logged at debug level
	changes := bus.Subscribe()
	defer bus.Unsubscribe(changes)
	go func() {
		for change := range changes {
			logger.Debug("session state changed", zap.String("kind", string(change.Kind)))
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return transport.Run(ctx, session)
	})
	g.Go(func() error {
		defer cancel() // quitting the UI releases the push subscription
		return setup.RunPanel(ctx, session, logger)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("control panel failed", zap.Error(err))
	}
	logger.Info("control panel closed")
}

// Package feed subscribes to the backend push channel and dispatches typed
// transaction events into the session.
package feed

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/martictl/internal/domain"
	"go.uber.org/zap"
)

// Wire event names on the push channel.
const (
	eventAssetPurchase = "asset purchase"
	eventAssetSale     = "asset sale"
	eventMessage       = "message"
)

// Handler receives the typed events of the push channel. The session reducer
// implements it; each transaction event must trigger exactly one portfolio
// refresh there.
type Handler interface {
	OnAssetPurchase(ctx context.Context, m domain.TransactionMessage)
	OnAssetSale(ctx context.Context, m domain.TransactionMessage)
	OnMessage(ctx context.Context, text string)
}

// Transport is a push-channel implementation. Run blocks until ctx is
// cancelled, reconnecting internally; there is at most one live connection
// per session.
type Transport interface {
	Run(ctx context.Context, h Handler) error
}

// dispatch routes one decoded frame to the handler. text carries the payload
// for message events, raw the JSON payload for transaction events. Unknown
// event names are ignored so the backend can grow its vocabulary.
func dispatch(ctx context.Context, h Handler, logger *zap.Logger, name, text string, raw []byte) {
	switch name {
	case eventAssetPurchase:
		m, err := parseTransaction(raw)
		if err != nil {
			logger.Warn("failed to parse asset purchase event", zap.Error(err))
			return
		}
		h.OnAssetPurchase(ctx, m)
	case eventAssetSale:
		m, err := parseTransaction(raw)
		if err != nil {
			logger.Warn("failed to parse asset sale event", zap.Error(err))
			return
		}
		h.OnAssetSale(ctx, m)
	case eventMessage:
		h.OnMessage(ctx, text)
	default:
		logger.Debug("ignoring unknown push event", zap.String("event", name))
	}
}

func parseTransaction(raw []byte) (domain.TransactionMessage, error) {
	var m domain.TransactionMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return domain.TransactionMessage{}, errors.Wrap(err, "invalid transaction payload")
	}
	return m, nil
}

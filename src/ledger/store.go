package ledger

import (
	"context"
	"time"

	"tradejournal/src/model"
)

// TradeQuery selects an owner's trades. From/To bound RecordedAt inclusively.
// Results are ordered by RecordedAt then CreatedAt, ascending unless NewestFirst.
type TradeQuery struct {
	OwnerID     uint
	From        *time.Time
	To          *time.Time
	NewestFirst bool
}

// Store is the persistence the ledger needs. Not-found lookups return (nil, nil).
type Store interface {
	ListTrades(ctx context.Context, q TradeQuery) ([]model.Trade, error)
	FindTrade(ctx context.Context, id string, ownerID uint) (*model.Trade, error)
	CreateTrade(ctx context.Context, t *model.Trade) error
	SaveTrade(ctx context.Context, t *model.Trade) error
	UpdateTradeEquity(ctx context.Context, t *model.Trade) error
	DeleteTrade(ctx context.Context, id string, ownerID uint) (bool, error)

	LatestBaseline(ctx context.Context, ownerID uint) (*model.EquityBaseline, error)
	CreateBaseline(ctx context.Context, b *model.EquityBaseline) error

	// Transaction runs fn against a Store bound to a single transaction.
	Transaction(ctx context.Context, fn func(Store) error) error
}

package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradejournal/src/model"
)

// TradeInput carries the user-supplied fields of a trade.
// A nil RecordedAt means "now" on record and "unchanged" on edit.
type TradeInput struct {
	Direction    model.Direction
	Outcome      model.Outcome
	PositionSize decimal.Decimal
	EntryPrice   decimal.Decimal
	StopLoss     decimal.Decimal
	TakeProfit   decimal.Decimal
	Note         string
	RecordedAt   *time.Time
}

func (in TradeInput) apply(t *model.Trade) {
	t.Direction = in.Direction
	t.Outcome = in.Outcome
	t.PositionSize = in.PositionSize
	t.EntryPrice = in.EntryPrice
	t.StopLoss = in.StopLoss
	t.TakeProfit = in.TakeProfit
	t.Note = strings.TrimSpace(in.Note)
	if in.RecordedAt != nil {
		t.RecordedAt = normalizeTime(*in.RecordedAt)
	}
}

// ListOptions narrows read queries. From/To are inclusive.
type ListOptions struct {
	From        *time.Time
	To          *time.Time
	NewestFirst bool
}

// Ledger keeps every owner's equity chain consistent across trade mutations.
type Ledger struct {
	store Store
	cfg   Config
	locks *ownerLocks
	now   func() time.Time
}

func New(store Store, cfg Config) *Ledger {
	if cfg.PipValue.IsZero() {
		cfg = DefaultConfig()
	}
	return &Ledger{
		store: store,
		cfg:   cfg,
		locks: &ownerLocks{m: make(map[uint]*sync.Mutex)},
		now:   time.Now,
	}
}

// WithClock overrides the time source used for new trades and baselines.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// RecordTrade inserts a trade at its chronological slot and replays every later trade.
func (l *Ledger) RecordTrade(ctx context.Context, ownerID uint, in TradeInput) (*model.Trade, error) {
	if ownerID == 0 {
		return nil, ErrUnauthenticated
	}

	trade := model.Trade{UserID: ownerID}
	in.apply(&trade)
	if trade.RecordedAt.IsZero() {
		trade.RecordedAt = normalizeTime(l.now())
	}

	pnl, err := TradePnl(trade, l.cfg.PipValue)
	if err != nil {
		return nil, err
	}
	trade.PnL = pnl

	unlock := l.locks.lock(ownerID)
	defer unlock()

	err = l.store.Transaction(ctx, func(tx Store) error {
		trades, err := tx.ListTrades(ctx, TradeQuery{OwnerID: ownerID})
		if err != nil {
			return fmt.Errorf("list trades: %w", err)
		}

		idx := sort.Search(len(trades), func(i int) bool {
			return trades[i].RecordedAt.After(trade.RecordedAt)
		})

		var start decimal.Decimal
		if idx > 0 {
			start = trades[idx-1].EquityAfter
		} else {
			start, err = l.anchor(ctx, tx, ownerID, trades)
			if err != nil {
				return err
			}
		}

		trade.EquityBefore = start
		trade.EquityAfter = start.Add(pnl)

		if err := tx.CreateTrade(ctx, &trade); err != nil {
			return fmt.Errorf("create trade: %w", err)
		}

		return l.cascade(ctx, tx, trades[idx:], trade.EquityAfter)
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"component":    "ledger",
		"op":           "RecordTrade",
		"user_id":      ownerID,
		"trade_id":     trade.ID,
		"pnl":          trade.PnL.String(),
		"equity_after": trade.EquityAfter.String(),
	}).Info("Trade recorded")

	return &trade, nil
}

// EditTrade replaces a trade's inputs, keeps its EquityBefore and replays the
// trades after it. Moving the trade in time replays the owner's whole chain.
func (l *Ledger) EditTrade(ctx context.Context, id string, ownerID uint, in TradeInput) (*model.Trade, error) {
	if ownerID == 0 {
		return nil, ErrUnauthenticated
	}

	candidate := model.Trade{}
	in.apply(&candidate)
	if _, err := TradePnl(candidate, l.cfg.PipValue); err != nil {
		return nil, err
	}

	unlock := l.locks.lock(ownerID)
	defer unlock()

	var edited model.Trade
	err := l.store.Transaction(ctx, func(tx Store) error {
		trades, err := tx.ListTrades(ctx, TradeQuery{OwnerID: ownerID})
		if err != nil {
			return fmt.Errorf("list trades: %w", err)
		}

		idx := indexOf(trades, id)
		if idx < 0 {
			return ErrNotFound
		}

		original := trades[idx]
		updated := original
		in.apply(&updated)

		if updated.RecordedAt.Equal(original.RecordedAt) {
			pnl, err := TradePnl(updated, l.cfg.PipValue)
			if err != nil {
				return err
			}
			updated.PnL = pnl
			updated.EquityAfter = updated.EquityBefore.Add(pnl)

			if err := tx.SaveTrade(ctx, &updated); err != nil {
				return fmt.Errorf("save trade: %w", err)
			}
			edited = updated

			return l.cascade(ctx, tx, trades[idx+1:], updated.EquityAfter)
		}

		start, err := l.anchor(ctx, tx, ownerID, trades)
		if err != nil {
			return err
		}

		trades[idx] = updated
		sortTrades(trades)

		changed, _, err := Replay(trades, start, l.cfg.PipValue)
		if err != nil {
			return err
		}
		dirty := make(map[int]bool, len(changed))
		for _, i := range changed {
			dirty[i] = true
		}

		for i := range trades {
			switch {
			case trades[i].ID == id:
				if err := tx.SaveTrade(ctx, &trades[i]); err != nil {
					return fmt.Errorf("save trade: %w", err)
				}
				edited = trades[i]
			case dirty[i]:
				if err := tx.UpdateTradeEquity(ctx, &trades[i]); err != nil {
					return fmt.Errorf("update trade %s: %w", trades[i].ID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"component":    "ledger",
		"op":           "EditTrade",
		"user_id":      ownerID,
		"trade_id":     id,
		"pnl":          edited.PnL.String(),
		"equity_after": edited.EquityAfter.String(),
	}).Info("Trade edited")

	return &edited, nil
}

// DeleteTrade removes a trade and replays the later trades from its EquityBefore.
func (l *Ledger) DeleteTrade(ctx context.Context, id string, ownerID uint) error {
	if ownerID == 0 {
		return ErrUnauthenticated
	}

	unlock := l.locks.lock(ownerID)
	defer unlock()

	err := l.store.Transaction(ctx, func(tx Store) error {
		trades, err := tx.ListTrades(ctx, TradeQuery{OwnerID: ownerID})
		if err != nil {
			return fmt.Errorf("list trades: %w", err)
		}

		idx := indexOf(trades, id)
		if idx < 0 {
			return ErrNotFound
		}

		deleted, err := tx.DeleteTrade(ctx, id, ownerID)
		if err != nil {
			return fmt.Errorf("delete trade: %w", err)
		}
		if !deleted {
			return ErrNotFound
		}

		return l.cascade(ctx, tx, trades[idx+1:], trades[idx].EquityBefore)
	})
	if err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"component": "ledger",
		"op":        "DeleteTrade",
		"user_id":   ownerID,
		"trade_id":  id,
	}).Info("Trade deleted")

	return nil
}

// SetBaseline records a new starting equity and replays the owner's chain from it.
func (l *Ledger) SetBaseline(ctx context.Context, ownerID uint, amount decimal.Decimal) (*model.EquityBaseline, error) {
	if ownerID == 0 {
		return nil, ErrUnauthenticated
	}
	if amount.IsNegative() {
		return nil, invalid("equity", "must not be negative")
	}
	if err := checkScale("equity", amount); err != nil {
		return nil, err
	}

	unlock := l.locks.lock(ownerID)
	defer unlock()

	baseline := model.EquityBaseline{
		UserID:    ownerID,
		Amount:    amount,
		CreatedAt: normalizeTime(l.now()),
	}

	var updated int
	err := l.store.Transaction(ctx, func(tx Store) error {
		if err := tx.CreateBaseline(ctx, &baseline); err != nil {
			return fmt.Errorf("create baseline: %w", err)
		}

		var err error
		updated, err = l.recompute(ctx, tx, ownerID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"component": "ledger",
		"op":        "SetBaseline",
		"user_id":   ownerID,
		"amount":    amount.String(),
		"updated":   updated,
	}).Info("Starting equity set")

	return &baseline, nil
}

// RecomputeAll replays every trade of the owner from startingEquity and
// returns how many trades had their derived fields rewritten.
func (l *Ledger) RecomputeAll(ctx context.Context, ownerID uint, startingEquity decimal.Decimal) (int, error) {
	if ownerID == 0 {
		return 0, ErrUnauthenticated
	}

	unlock := l.locks.lock(ownerID)
	defer unlock()

	var updated int
	err := l.store.Transaction(ctx, func(tx Store) error {
		var err error
		updated, err = l.recompute(ctx, tx, ownerID, startingEquity)
		return err
	})
	return updated, err
}

// Repair replays the owner's chain from its anchor: the latest baseline, or
// the first trade's EquityBefore when no baseline exists.
func (l *Ledger) Repair(ctx context.Context, ownerID uint) (int, error) {
	if ownerID == 0 {
		return 0, ErrUnauthenticated
	}

	unlock := l.locks.lock(ownerID)
	defer unlock()

	var updated int
	err := l.store.Transaction(ctx, func(tx Store) error {
		trades, err := tx.ListTrades(ctx, TradeQuery{OwnerID: ownerID})
		if err != nil {
			return fmt.Errorf("list trades: %w", err)
		}
		if len(trades) == 0 {
			return nil
		}

		start, err := l.anchor(ctx, tx, ownerID, trades)
		if err != nil {
			return err
		}

		updated, err = l.replayAndPersist(ctx, tx, trades, start)
		return err
	})
	return updated, err
}

// Trades lists the owner's trades.
func (l *Ledger) Trades(ctx context.Context, ownerID uint, opts ListOptions) ([]model.Trade, error) {
	if ownerID == 0 {
		return nil, ErrUnauthenticated
	}
	return l.store.ListTrades(ctx, TradeQuery{
		OwnerID:     ownerID,
		From:        opts.From,
		To:          opts.To,
		NewestFirst: opts.NewestFirst,
	})
}

// Trade returns a single trade owned by ownerID, or ErrNotFound.
func (l *Ledger) Trade(ctx context.Context, id string, ownerID uint) (*model.Trade, error) {
	if ownerID == 0 {
		return nil, ErrUnauthenticated
	}
	t, err := l.store.FindTrade(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

// Baseline returns the authoritative baseline, or nil when none was set.
func (l *Ledger) Baseline(ctx context.Context, ownerID uint) (*model.EquityBaseline, error) {
	if ownerID == 0 {
		return nil, ErrUnauthenticated
	}
	return l.store.LatestBaseline(ctx, ownerID)
}

// CurrentEquity is the balance the next trade would start from.
func (l *Ledger) CurrentEquity(ctx context.Context, ownerID uint) (decimal.Decimal, error) {
	if ownerID == 0 {
		return decimal.Zero, ErrUnauthenticated
	}

	trades, err := l.store.ListTrades(ctx, TradeQuery{OwnerID: ownerID, NewestFirst: true})
	if err != nil {
		return decimal.Zero, err
	}
	if len(trades) > 0 {
		return trades[0].EquityAfter, nil
	}

	b, err := l.store.LatestBaseline(ctx, ownerID)
	if err != nil {
		return decimal.Zero, err
	}
	if b == nil {
		return decimal.Zero, ErrNoBaseline
	}
	return b.Amount, nil
}

// Statistics summarises the owner's trades within opts.
func (l *Ledger) Statistics(ctx context.Context, ownerID uint, opts ListOptions) (Statistics, error) {
	opts.NewestFirst = false
	trades, err := l.Trades(ctx, ownerID, opts)
	if err != nil {
		return Statistics{}, err
	}
	return ComputeStatistics(trades), nil
}

func (l *Ledger) recompute(ctx context.Context, tx Store, ownerID uint, start decimal.Decimal) (int, error) {
	trades, err := tx.ListTrades(ctx, TradeQuery{OwnerID: ownerID})
	if err != nil {
		return 0, fmt.Errorf("list trades: %w", err)
	}
	return l.replayAndPersist(ctx, tx, trades, start)
}

func (l *Ledger) cascade(ctx context.Context, tx Store, later []model.Trade, start decimal.Decimal) error {
	_, err := l.replayAndPersist(ctx, tx, later, start)
	return err
}

func (l *Ledger) replayAndPersist(ctx context.Context, tx Store, trades []model.Trade, start decimal.Decimal) (int, error) {
	changed, _, err := Replay(trades, start, l.cfg.PipValue)
	if err != nil {
		return 0, err
	}

	for _, i := range changed {
		if err := tx.UpdateTradeEquity(ctx, &trades[i]); err != nil {
			return 0, fmt.Errorf("update trade %s: %w", trades[i].ID, err)
		}
	}

	if len(changed) > 0 {
		logger.WithFields(map[string]interface{}{
			"component": "ledger",
			"op":        "replay",
			"replayed":  len(trades),
			"updated":   len(changed),
		}).Debug("Equity chain replayed")
	}

	return len(changed), nil
}

func (l *Ledger) anchor(ctx context.Context, tx Store, ownerID uint, trades []model.Trade) (decimal.Decimal, error) {
	b, err := tx.LatestBaseline(ctx, ownerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load baseline: %w", err)
	}
	if b != nil {
		return b.Amount, nil
	}
	if len(trades) > 0 {
		return trades[0].EquityBefore, nil
	}
	return decimal.Zero, ErrNoBaseline
}

func indexOf(trades []model.Trade, id string) int {
	for i := range trades {
		if trades[i].ID == id {
			return i
		}
	}
	return -1
}

func sortTrades(trades []model.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		a, b := trades[i], trades[j]
		if !a.RecordedAt.Equal(b.RecordedAt) {
			return a.RecordedAt.Before(b.RecordedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// normalizeTime drops precision the database would lose anyway.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

type ownerLocks struct {
	mu sync.Mutex
	m  map[uint]*sync.Mutex
}

func (o *ownerLocks) lock(ownerID uint) func() {
	o.mu.Lock()
	l, ok := o.m[ownerID]
	if !ok {
		l = &sync.Mutex{}
		o.m[ownerID] = l
	}
	o.mu.Unlock()

	l.Lock()
	return l.Unlock
}

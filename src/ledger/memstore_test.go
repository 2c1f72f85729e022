package ledger

import (
	"context"
	"fmt"
	"time"

	"tradejournal/src/model"
)

// memStore is an in-memory Store used by the ledger tests.
type memStore struct {
	trades    []model.Trade
	baselines []model.EquityBaseline
	seq       int

	failUpdate error
}

func newMemStore() *memStore {
	return &memStore{}
}

var memEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func (m *memStore) ListTrades(_ context.Context, q TradeQuery) ([]model.Trade, error) {
	var out []model.Trade
	for _, t := range m.trades {
		if t.UserID != q.OwnerID {
			continue
		}
		if q.From != nil && t.RecordedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && t.RecordedAt.After(*q.To) {
			continue
		}
		out = append(out, t)
	}
	sortTrades(out)
	if q.NewestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (m *memStore) FindTrade(_ context.Context, id string, ownerID uint) (*model.Trade, error) {
	for _, t := range m.trades {
		if t.ID == id && t.UserID == ownerID {
			found := t
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateTrade(_ context.Context, t *model.Trade) error {
	m.seq++
	if t.ID == "" {
		t.ID = fmt.Sprintf("trade-%d", m.seq)
	}
	t.CreatedAt = memEpoch.Add(time.Duration(m.seq) * time.Second)
	t.UpdatedAt = t.CreatedAt
	m.trades = append(m.trades, *t)
	return nil
}

func (m *memStore) SaveTrade(_ context.Context, t *model.Trade) error {
	for i := range m.trades {
		if m.trades[i].ID == t.ID && m.trades[i].UserID == t.UserID {
			m.trades[i] = *t
			return nil
		}
	}
	return fmt.Errorf("trade %s missing", t.ID)
}

func (m *memStore) UpdateTradeEquity(_ context.Context, t *model.Trade) error {
	if m.failUpdate != nil {
		return m.failUpdate
	}
	for i := range m.trades {
		if m.trades[i].ID == t.ID && m.trades[i].UserID == t.UserID {
			m.trades[i].PnL = t.PnL
			m.trades[i].EquityBefore = t.EquityBefore
			m.trades[i].EquityAfter = t.EquityAfter
			return nil
		}
	}
	return fmt.Errorf("trade %s missing", t.ID)
}

func (m *memStore) DeleteTrade(_ context.Context, id string, ownerID uint) (bool, error) {
	for i := range m.trades {
		if m.trades[i].ID == id && m.trades[i].UserID == ownerID {
			m.trades = append(m.trades[:i], m.trades[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) LatestBaseline(_ context.Context, ownerID uint) (*model.EquityBaseline, error) {
	var latest *model.EquityBaseline
	for i := range m.baselines {
		if m.baselines[i].UserID == ownerID {
			b := m.baselines[i]
			latest = &b
		}
	}
	return latest, nil
}

func (m *memStore) CreateBaseline(_ context.Context, b *model.EquityBaseline) error {
	b.ID = uint(len(m.baselines) + 1)
	m.baselines = append(m.baselines, *b)
	return nil
}

// Transaction restores the previous contents when fn fails.
func (m *memStore) Transaction(_ context.Context, fn func(Store) error) error {
	trades := append([]model.Trade(nil), m.trades...)
	baselines := append([]model.EquityBaseline(nil), m.baselines...)

	if err := fn(m); err != nil {
		m.trades = trades
		m.baselines = baselines
		return err
	}
	return nil
}

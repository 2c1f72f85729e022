package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"tradejournal/src/auth"
	"tradejournal/src/ledger"
	"tradejournal/src/model"
)

type mockJournal struct {
	trades   []model.Trade
	trade    *model.Trade
	baseline *model.EquityBaseline
	equity   *decimal.Decimal
	stats    ledger.Statistics
	err      error
	readErr  error

	ownerID    uint
	id         string
	input      ledger.TradeInput
	amount     decimal.Decimal
	opts       ledger.ListOptions
	recorded   int
	edited     int
	deleted    int
	baselineIn int
}

func (m *mockJournal) RecordTrade(ctx context.Context, ownerID uint, in ledger.TradeInput) (*model.Trade, error) {
	m.recorded++
	m.ownerID, m.input = ownerID, in
	if m.err != nil {
		return nil, m.err
	}
	return &model.Trade{ID: "new", UserID: ownerID}, nil
}

func (m *mockJournal) EditTrade(ctx context.Context, id string, ownerID uint, in ledger.TradeInput) (*model.Trade, error) {
	m.edited++
	m.id, m.ownerID, m.input = id, ownerID, in
	if m.err != nil {
		return nil, m.err
	}
	return &model.Trade{ID: id, UserID: ownerID}, nil
}

func (m *mockJournal) DeleteTrade(ctx context.Context, id string, ownerID uint) error {
	m.deleted++
	m.id, m.ownerID = id, ownerID
	return m.err
}

func (m *mockJournal) SetBaseline(ctx context.Context, ownerID uint, amount decimal.Decimal) (*model.EquityBaseline, error) {
	m.baselineIn++
	m.ownerID, m.amount = ownerID, amount
	if m.err != nil {
		return nil, m.err
	}
	return &model.EquityBaseline{UserID: ownerID, Amount: amount}, nil
}

func (m *mockJournal) Trades(ctx context.Context, ownerID uint, opts ledger.ListOptions) ([]model.Trade, error) {
	m.ownerID, m.opts = ownerID, opts
	return m.trades, m.readErr
}

func (m *mockJournal) Trade(ctx context.Context, id string, ownerID uint) (*model.Trade, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.trade == nil || m.trade.ID != id {
		return nil, ledger.ErrNotFound
	}
	return m.trade, nil
}

func (m *mockJournal) Baseline(ctx context.Context, ownerID uint) (*model.EquityBaseline, error) {
	return m.baseline, m.readErr
}

func (m *mockJournal) CurrentEquity(ctx context.Context, ownerID uint) (decimal.Decimal, error) {
	if m.readErr != nil {
		return decimal.Zero, m.readErr
	}
	if m.equity == nil {
		return decimal.Zero, ledger.ErrNoBaseline
	}
	return *m.equity, nil
}

func (m *mockJournal) Statistics(ctx context.Context, ownerID uint, opts ledger.ListOptions) (ledger.Statistics, error) {
	m.ownerID, m.opts = ownerID, opts
	return m.stats, m.readErr
}

type mockExceptions struct {
	mu       sync.Mutex
	captured []*model.Exception
}

func (m *mockExceptions) Create(ctx context.Context, exc *model.Exception) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captured = append(m.captured, exc)
	return nil
}

type mockUsers struct {
	users   map[string]*model.User
	err     error
	created *model.User
	updated *model.User
}

func (m *mockUsers) GetUserByUserName(ctx context.Context, userName string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.users[userName], nil
}

func (m *mockUsers) Create(ctx context.Context, u *model.User) error {
	if m.err != nil {
		return m.err
	}
	m.created = u
	return nil
}

func (m *mockUsers) Update(ctx context.Context, u *model.User) error {
	if m.err != nil {
		return m.err
	}
	m.updated = u
	return nil
}

// withUser attaches an authenticated user and optional chi url params.
func withUser(req *http.Request, user *model.User, params map[string]string) *http.Request {
	ctx := auth.WithUser(req.Context(), user)
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

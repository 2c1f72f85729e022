package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradejournal/src/auth"
	"tradejournal/src/export"
	"tradejournal/src/ledger"
	"tradejournal/src/model"
)

type journal interface {
	RecordTrade(ctx context.Context, ownerID uint, in ledger.TradeInput) (*model.Trade, error)
	EditTrade(ctx context.Context, id string, ownerID uint, in ledger.TradeInput) (*model.Trade, error)
	DeleteTrade(ctx context.Context, id string, ownerID uint) error
	SetBaseline(ctx context.Context, ownerID uint, amount decimal.Decimal) (*model.EquityBaseline, error)
	Trades(ctx context.Context, ownerID uint, opts ledger.ListOptions) ([]model.Trade, error)
	Trade(ctx context.Context, id string, ownerID uint) (*model.Trade, error)
	Baseline(ctx context.Context, ownerID uint) (*model.EquityBaseline, error)
	CurrentEquity(ctx context.Context, ownerID uint) (decimal.Decimal, error)
	Statistics(ctx context.Context, ownerID uint, opts ledger.ListOptions) (ledger.Statistics, error)
}

type journalPage struct {
	base
	Trades    []model.Trade
	Stats     ledger.Statistics
	Baseline  *model.EquityBaseline
	Equity    decimal.Decimal
	HasEquity bool
	Form      tradeForm
	Edit      *model.Trade
}

func userFrom(r *http.Request) (*model.User, bool) {
	user, ok := auth.GetUserFromContext(r.Context())
	return user, ok && user != nil
}

// renderJournal fills the listing part of the page and renders it with status.
func renderJournal(w http.ResponseWriter, r *http.Request, j journal, exc exceptionRecorder, status int, page journalPage) {
	user, _ := userFrom(r)
	ctx := r.Context()

	trades, err := j.Trades(ctx, user.ID, ledger.ListOptions{NewestFirst: true})
	if err != nil {
		failPage(w, r, exc, "ListTrades", err)
		return
	}
	stats, err := j.Statistics(ctx, user.ID, ledger.ListOptions{})
	if err != nil {
		failPage(w, r, exc, "Statistics", err)
		return
	}
	baseline, err := j.Baseline(ctx, user.ID)
	if err != nil {
		failPage(w, r, exc, "Baseline", err)
		return
	}
	equity, err := j.CurrentEquity(ctx, user.ID)
	switch {
	case err == nil:
		page.Equity, page.HasEquity = equity, true
	case !errors.Is(err, ledger.ErrNoBaseline):
		failPage(w, r, exc, "CurrentEquity", err)
		return
	}

	page.Title = "Trading Journal"
	page.User = user
	page.Trades = trades
	page.Stats = stats
	page.Baseline = baseline
	render(w, status, pageJournal, page)
}

// JournalHandler serves the journal listing (GET) and records a new trade (POST).
func JournalHandler(j journal, exc exceptionRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFrom(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		if r.Method != http.MethodPost {
			renderJournal(w, r, j, exc, http.StatusOK, journalPage{Form: tradeForm{Direction: "Buy", Outcome: "TP"}})
			return
		}

		form := readTradeForm(r)
		in, err := form.input()
		if err == nil {
			_, err = j.RecordTrade(r.Context(), user.ID, in)
		}
		if err != nil {
			if status := statusFor(err); status != http.StatusInternalServerError {
				logger.WithError(err).WithField("user_id", user.ID).Warn("trade rejected")
				renderJournal(w, r, j, exc, status, journalPage{base: base{Error: messageFor(err)}, Form: form})
				return
			}
			failPage(w, r, exc, "RecordTrade", err)
			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// EditTradeHandler shows a trade in the entry form (GET) and applies the edit (POST).
func EditTradeHandler(j journal, exc exceptionRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFrom(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		id := chi.URLParam(r, "id")

		trade, err := j.Trade(r.Context(), id, user.ID)
		if err != nil {
			failPage(w, r, exc, "Trade", err)
			return
		}

		if r.Method != http.MethodPost {
			renderJournal(w, r, j, exc, http.StatusOK, journalPage{Form: formFromTrade(trade), Edit: trade})
			return
		}

		form := readTradeForm(r)
		in, err := form.input()
		// the form shows minutes only, so an untouched date keeps the stored time
		if err == nil && form.Date == formFromTrade(trade).Date {
			in.RecordedAt = nil
		}
		if err == nil {
			_, err = j.EditTrade(r.Context(), id, user.ID, in)
		}
		if err != nil {
			if status := statusFor(err); status != http.StatusInternalServerError && status != http.StatusNotFound {
				logger.WithError(err).WithField("trade_id", id).Warn("trade edit rejected")
				renderJournal(w, r, j, exc, status, journalPage{base: base{Error: messageFor(err)}, Form: form, Edit: trade})
				return
			}
			failPage(w, r, exc, "EditTrade", err)
			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func DeleteTradeHandler(j journal, exc exceptionRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFrom(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		if err := j.DeleteTrade(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
			failPage(w, r, exc, "DeleteTrade", err)
			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

type setEquityPage struct {
	base
	Baseline *model.EquityBaseline
	Amount   string
}

// SetEquityHandler shows (GET) and replaces (POST) the starting equity.
func SetEquityHandler(j journal, exc exceptionRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFrom(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		baseline, err := j.Baseline(r.Context(), user.ID)
		if err != nil {
			failPage(w, r, exc, "Baseline", err)
			return
		}

		page := setEquityPage{base: base{Title: "Starting Equity", User: user}, Baseline: baseline}
		if baseline != nil {
			page.Amount = baseline.Amount.String()
		}

		if r.Method != http.MethodPost {
			render(w, http.StatusOK, pageSetEquity, page)
			return
		}

		page.Amount = strings.TrimSpace(r.PostFormValue("amount"))
		amount, err := parseDecimal("amount", page.Amount)
		if err == nil {
			_, err = j.SetBaseline(r.Context(), user.ID, amount)
		}
		if err != nil {
			var verr *ledger.ValidationError
			if errors.As(err, &verr) {
				page.Error = messageFor(err)
				render(w, http.StatusBadRequest, pageSetEquity, page)
				return
			}
			failPage(w, r, exc, "SetBaseline", err)
			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// ExportHandler downloads the journal as CSV, newest trade first.
func ExportHandler(j journal, exc exceptionRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFrom(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		trades, err := j.Trades(r.Context(), user.ID, ledger.ListOptions{NewestFirst: true})
		if err != nil {
			failPage(w, r, exc, "ListTrades", err)
			return
		}

		var buf bytes.Buffer
		if err := export.WriteTradesCSV(&buf, trades); err != nil {
			failPage(w, r, exc, "WriteTradesCSV", err)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="trading_journal.csv"`)
		if _, err := buf.WriteTo(w); err != nil {
			logger.WithError(err).Error("failed to write csv export")
		}
	}
}

type chartSeries struct {
	Labels  []string
	Profits []float64
	Colors  []string
}

type dashboardPage struct {
	base
	DateFrom string
	DateTo   string
	Stats    ledger.Statistics
	Chart    chartSeries
}

// DashboardHandler shows statistics and the per-trade profit chart for a date range.
// Without a range it covers the whole history.
func DashboardHandler(j journal, exc exceptionRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFrom(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		page := dashboardPage{
			base:     base{Title: "Dashboard", User: user},
			DateFrom: strings.TrimSpace(r.FormValue("date_from")),
			DateTo:   strings.TrimSpace(r.FormValue("date_to")),
			Chart:    chartSeries{Labels: []string{}, Profits: []float64{}, Colors: []string{}},
		}

		opts, err := parseDateRange(page.DateFrom, page.DateTo)
		if err != nil {
			page.Error = messageFor(err)
			render(w, http.StatusBadRequest, pageDashboard, page)
			return
		}

		trades, err := j.Trades(r.Context(), user.ID, opts)
		if err != nil {
			failPage(w, r, exc, "ListTrades", err)
			return
		}

		page.Stats = ledger.ComputeStatistics(trades)
		for _, t := range trades {
			page.Chart.Labels = append(page.Chart.Labels, t.RecordedAt.UTC().Format(export.DateLayout))
			page.Chart.Profits = append(page.Chart.Profits, t.PnL.InexactFloat64())
			if t.IsWin() {
				page.Chart.Colors = append(page.Chart.Colors, "green")
			} else {
				page.Chart.Colors = append(page.Chart.Colors, "red")
			}
		}

		render(w, http.StatusOK, pageDashboard, page)
	}
}

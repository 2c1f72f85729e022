package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradejournal/src/ledger"
	"tradejournal/src/model"
)

const (
	formDateLayout  = "2006-01-02T15:04"
	queryDateLayout = "2006-01-02"
)

// tradeForm keeps the raw submitted values so a rejected form can be shown again as typed.
type tradeForm struct {
	Date       string
	Direction  string
	Outcome    string
	Lot        string
	OpenPrice  string
	StopLoss   string
	TakeProfit string
	Note       string
}

func readTradeForm(r *http.Request) tradeForm {
	return tradeForm{
		Date:       strings.TrimSpace(r.PostFormValue("date")),
		Direction:  strings.TrimSpace(r.PostFormValue("direction")),
		Outcome:    strings.TrimSpace(r.PostFormValue("result")),
		Lot:        strings.TrimSpace(r.PostFormValue("lot")),
		OpenPrice:  strings.TrimSpace(r.PostFormValue("open_price")),
		StopLoss:   strings.TrimSpace(r.PostFormValue("sl")),
		TakeProfit: strings.TrimSpace(r.PostFormValue("tp")),
		Note:       r.PostFormValue("note"),
	}
}

func formFromTrade(t *model.Trade) tradeForm {
	return tradeForm{
		Date:       t.RecordedAt.UTC().Format(formDateLayout),
		Direction:  string(t.Direction),
		Outcome:    string(t.Outcome),
		Lot:        t.PositionSize.String(),
		OpenPrice:  t.EntryPrice.String(),
		StopLoss:   t.StopLoss.String(),
		TakeProfit: t.TakeProfit.String(),
		Note:       t.Note,
	}
}

// input converts the form into a ledger input. Range checks are left to the ledger.
func (f tradeForm) input() (ledger.TradeInput, error) {
	var in ledger.TradeInput

	direction, err := model.ParseDirection(f.Direction)
	if err != nil {
		return in, &ledger.ValidationError{Field: "direction", Reason: "must be Buy or Sell"}
	}
	outcome, err := model.ParseOutcome(f.Outcome)
	if err != nil {
		return in, &ledger.ValidationError{Field: "result", Reason: "must be TP or SL"}
	}

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"lot", f.Lot, &in.PositionSize},
		{"open_price", f.OpenPrice, &in.EntryPrice},
		{"sl", f.StopLoss, &in.StopLoss},
		{"tp", f.TakeProfit, &in.TakeProfit},
	}
	for _, field := range fields {
		d, err := parseDecimal(field.name, field.raw)
		if err != nil {
			return in, err
		}
		*field.dst = d
	}

	if f.Date != "" {
		at, err := time.ParseInLocation(formDateLayout, f.Date, time.UTC)
		if err != nil {
			return in, &ledger.ValidationError{Field: "date", Reason: "expected YYYY-MM-DDTHH:MM"}
		}
		in.RecordedAt = &at
	}

	in.Direction = direction
	in.Outcome = outcome
	in.Note = f.Note
	return in, nil
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, &ledger.ValidationError{Field: field, Reason: "is required"}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &ledger.ValidationError{Field: field, Reason: "must be a number"}
	}
	return d, nil
}

// parseDateRange reads an inclusive day range. Either bound may be empty.
func parseDateRange(fromRaw, toRaw string) (ledger.ListOptions, error) {
	var opts ledger.ListOptions

	if fromRaw != "" {
		from, err := time.ParseInLocation(queryDateLayout, fromRaw, time.UTC)
		if err != nil {
			return opts, &ledger.ValidationError{Field: "from", Reason: "expected YYYY-MM-DD"}
		}
		opts.From = &from
	}

	if toRaw != "" {
		day, err := time.ParseInLocation(queryDateLayout, toRaw, time.UTC)
		if err != nil {
			return opts, &ledger.ValidationError{Field: "to", Reason: "expected YYYY-MM-DD"}
		}
		to := day.Add(24*time.Hour - time.Microsecond)
		opts.To = &to
	}

	if opts.From != nil && opts.To != nil && opts.To.Before(*opts.From) {
		return opts, &ledger.ValidationError{Field: "to", Reason: "must not be before from"}
	}

	return opts, nil
}

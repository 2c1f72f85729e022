package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"tradejournal/src/model"
)

const DateLayout = "2006-01-02 15:04:05"

var header = []string{"date", "equity", "lot", "open_price", "sl", "tp", "result", "note", "equity_after"}

// WriteTradesCSV writes trades in the order given, one row per trade.
func WriteTradesCSV(w io.Writer, trades []model.Trade) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, t := range trades {
		if err := cw.Write(row(t)); err != nil {
			return fmt.Errorf("write trade %s: %w", t.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func row(t model.Trade) []string {
	return []string{
		t.RecordedAt.UTC().Format(DateLayout),
		t.EquityBefore.String(),
		t.PositionSize.String(),
		t.EntryPrice.String(),
		t.StopLoss.String(),
		t.TakeProfit.String(),
		string(t.Outcome),
		noteColumn(t),
		t.EquityAfter.String(),
	}
}

// noteColumn is the direction label with the free-text note appended.
func noteColumn(t model.Trade) string {
	if t.Note == "" {
		return string(t.Direction)
	}
	return string(t.Direction) + " - " + t.Note
}

package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tradejournal/src/model"
)

// Replay folds trades in order starting from start, rewriting PnL,
// EquityBefore and EquityAfter in place. It returns the indexes whose
// derived fields changed and the final running equity.
func Replay(trades []model.Trade, start, pipValue decimal.Decimal) ([]int, decimal.Decimal, error) {
	running := start
	var changed []int

	for i := range trades {
		t := &trades[i]

		pnl, err := TradePnl(*t, pipValue)
		if err != nil {
			return nil, running, fmt.Errorf("trade %s: %w", t.ID, err)
		}
		after := running.Add(pnl)

		if !t.PnL.Equal(pnl) || !t.EquityBefore.Equal(running) || !t.EquityAfter.Equal(after) {
			t.PnL = pnl
			t.EquityBefore = running
			t.EquityAfter = after
			changed = append(changed, i)
		}

		running = after
	}

	return changed, running, nil
}

package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tradejournal/src/model"
)

// Scale is the number of decimal places kept for prices, sizes and money.
// It matches the numeric columns the journal is stored in.
const Scale = 8

var minusOne = decimal.NewFromInt(-1)

// checkScale rejects values the store could not hold without rounding.
func checkScale(field string, d decimal.Decimal) error {
	if !d.Equal(d.Truncate(Scale)) {
		return invalid(field, fmt.Sprintf("at most %d decimal places", Scale))
	}
	return nil
}

// ComputePnl returns the signed monetary result of a closed trade.
//
//	TP, Buy:  (tp - entry) * size * pip
//	TP, Sell: (entry - tp) * size * pip
//	SL, Buy:  (sl - entry) * size * pip
//	SL, Sell: (entry - sl) * size * pip * -1
//
// The Sell/SL row keeps the sign used by the journals already on record,
// so a stop above entry on a short books a positive amount.
// Inputs may carry at most Scale decimal places and the result is rounded to Scale.
func ComputePnl(
	direction model.Direction,
	entryPrice, stopLoss, takeProfit decimal.Decimal,
	outcome model.Outcome,
	positionSize, pipValue decimal.Decimal,
) (decimal.Decimal, error) {
	if !direction.Valid() {
		return decimal.Zero, invalid("direction", "must be Buy or Sell")
	}
	if !outcome.Valid() {
		return decimal.Zero, invalid("result", "must be TP or SL")
	}
	if !positionSize.IsPositive() {
		return decimal.Zero, invalid("lot", "must be greater than zero")
	}
	if !entryPrice.IsPositive() {
		return decimal.Zero, invalid("open_price", "must be greater than zero")
	}
	if !stopLoss.IsPositive() {
		return decimal.Zero, invalid("sl", "must be greater than zero")
	}
	if !takeProfit.IsPositive() {
		return decimal.Zero, invalid("tp", "must be greater than zero")
	}
	if !pipValue.IsPositive() {
		return decimal.Zero, invalid("pip_value", "must be greater than zero")
	}
	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"lot", positionSize},
		{"open_price", entryPrice},
		{"sl", stopLoss},
		{"tp", takeProfit},
	} {
		if err := checkScale(f.name, f.value); err != nil {
			return decimal.Zero, err
		}
	}

	size := positionSize.Mul(pipValue)

	var pnl decimal.Decimal
	switch outcome {
	case model.OutcomeTakeProfit:
		if direction == model.DirectionBuy {
			pnl = takeProfit.Sub(entryPrice).Mul(size)
		} else {
			pnl = entryPrice.Sub(takeProfit).Mul(size)
		}
	default:
		if direction == model.DirectionBuy {
			pnl = stopLoss.Sub(entryPrice).Mul(size)
		} else {
			pnl = entryPrice.Sub(stopLoss).Mul(size).Mul(minusOne)
		}
	}
	return pnl.Round(Scale), nil
}

// TradePnl evaluates ComputePnl against a stored trade's inputs.
func TradePnl(t model.Trade, pipValue decimal.Decimal) (decimal.Decimal, error) {
	return ComputePnl(t.Direction, t.EntryPrice, t.StopLoss, t.TakeProfit, t.Outcome, t.PositionSize, pipValue)
}

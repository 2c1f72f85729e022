package ledger

import (
	"github.com/shopspring/decimal"

	"tradejournal/src/model"
)

var hundred = decimal.NewFromInt(100)

// Statistics aggregates a run of trades.
type Statistics struct {
	Wins         int             `json:"tp"`
	Losses       int             `json:"sl"`
	Total        int             `json:"total"`
	WinRate      decimal.Decimal `json:"winrate"`
	TotalProfit  decimal.Decimal `json:"profit"`
	StartEquity  decimal.Decimal `json:"start_equity"`
	EndEquity    decimal.Decimal `json:"end_equity"`
	EquityGrowth decimal.Decimal `json:"growth"`
}

// ComputeStatistics expects trades in ascending chronological order.
// WinRate is a percentage rounded to two decimals and is zero for no trades.
func ComputeStatistics(trades []model.Trade) Statistics {
	stats := Statistics{
		Total:        len(trades),
		WinRate:      decimal.Zero,
		TotalProfit:  decimal.Zero,
		StartEquity:  decimal.Zero,
		EndEquity:    decimal.Zero,
		EquityGrowth: decimal.Zero,
	}
	if len(trades) == 0 {
		return stats
	}

	for _, t := range trades {
		if t.IsWin() {
			stats.Wins++
		} else {
			stats.Losses++
		}
		stats.TotalProfit = stats.TotalProfit.Add(t.PnL)
	}

	stats.WinRate = decimal.NewFromInt(int64(stats.Wins)).
		Mul(hundred).
		DivRound(decimal.NewFromInt(int64(stats.Total)), 2)

	stats.StartEquity = trades[0].EquityBefore
	stats.EndEquity = trades[len(trades)-1].EquityAfter
	stats.EquityGrowth = stats.EndEquity.Sub(stats.StartEquity)

	return stats
}

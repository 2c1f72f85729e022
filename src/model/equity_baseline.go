package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquityBaseline is a user-declared starting balance. Only the most recent
// one per user anchors the ledger; older rows are kept as history.
type EquityBaseline struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"not null;index" json:"user_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"amount"`
	CreatedAt time.Time       `gorm:"index" json:"created_at"`
}

func (EquityBaseline) TableName() string {
	return "equity_baselines"
}

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Direction string

const (
	DirectionBuy  Direction = "Buy"
	DirectionSell Direction = "Sell"
)

// ParseDirection accepts "buy"/"sell" in any case, plus the "long"/"short" aliases.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "long":
		return DirectionBuy, nil
	case "sell", "short":
		return DirectionSell, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Outcome records which bound was struck when the trade closed.
type Outcome string

const (
	OutcomeTakeProfit Outcome = "TP"
	OutcomeStopLoss   Outcome = "SL"
)

func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tp", "take_profit", "takeprofit":
		return OutcomeTakeProfit, nil
	case "sl", "stop_loss", "stoploss":
		return OutcomeStopLoss, nil
	}
	return "", fmt.Errorf("unknown outcome %q", s)
}

func (o Outcome) Valid() bool {
	return o == OutcomeTakeProfit || o == OutcomeStopLoss
}

// Trade is one journal entry. PnL, EquityBefore and EquityAfter are derived
// by the ledger and must never be taken from user input.
type Trade struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_trades_user_recorded" json:"user_id"`
	RecordedAt time.Time `gorm:"not null;index:idx_trades_user_recorded" json:"recorded_at"`

	Direction    Direction       `gorm:"size:4;not null" json:"direction"`
	Outcome      Outcome         `gorm:"size:2;not null" json:"outcome"`
	PositionSize decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"lot"`
	EntryPrice   decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"open_price"`
	StopLoss     decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"sl"`
	TakeProfit   decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"tp"`
	Note         string          `gorm:"type:text" json:"note,omitempty"`

	PnL          decimal.Decimal `gorm:"column:pnl;type:numeric(24,8)" json:"pnl"`
	EquityBefore decimal.Decimal `gorm:"type:numeric(24,8)" json:"equity"`
	EquityAfter  decimal.Decimal `gorm:"type:numeric(24,8)" json:"equity_after"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Trade) TableName() string {
	return "trades"
}

// BeforeCreate assigns the opaque trade id.
func (t *Trade) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// IsWin reports whether the take-profit bound was hit.
func (t Trade) IsWin() bool {
	return t.Outcome == OutcomeTakeProfit
}

package model

import "time"

// Exception is a server-side failure persisted for later inspection.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Where the error happened
	Service string `gorm:"size:100;index" json:"service"` // e.g. "tradejournal"
	Module  string `gorm:"size:100;index" json:"module"`  // e.g. "journal_handler"
	Method  string `gorm:"size:100" json:"method"`        // e.g. "RecordTrade"

	RequestPath string `gorm:"size:255" json:"request_path,omitempty"`
	UserID      uint   `gorm:"index" json:"user_id,omitempty"`

	Message string `gorm:"type:text" json:"message"`
	Stack   string `gorm:"type:text" json:"stack"`

	Level string `gorm:"size:20;index" json:"level"` // warn | error | fatal

	// Extra context stored as JSON
	Context string `gorm:"type:text" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Exception) TableName() string {
	return "exceptions"
}

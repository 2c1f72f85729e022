package ledger

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config holds the ledger's pricing convention.
// PipValue is the monetary value of a one-unit price move for one lot.
type Config struct {
	PipValue decimal.Decimal `envconfig:"PIP_VALUE" default:"100"`
}

func DefaultConfig() Config {
	return Config{PipValue: decimal.NewFromInt(100)}
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

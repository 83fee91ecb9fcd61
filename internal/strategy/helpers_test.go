package strategy

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"krw-trader/internal/logging"
)

func decFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func nopLogger() *zap.SugaredLogger {
	return logging.Nop()
}

package trader

import "github.com/shopspring/decimal"

// CorrelationKind tags what a pending request_id's response should be
// applied to, spec.md §3's RequestCorrelation sum type.
type CorrelationKind int

const (
	CorrBalanceKRW CorrelationKind = iota
	CorrBalanceCoin
	CorrBuyOrder
	CorrSellOrder
	CorrOrderStatus
	CorrCancelOrder
)

// Correlation is one entry in Trader's request_id → intent table.
type Correlation struct {
	Kind   CorrelationKind
	Symbol string
	Price  decimal.Decimal
	Volume decimal.Decimal
	// OrderID is set for CorrOrderStatus/CorrCancelOrder, identifying the
	// PendingOrder the response applies to.
	OrderID string
}

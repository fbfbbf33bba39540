/*
Package ledger provides the partner inventory ledger.

PURPOSE:
  This package owns the money and stock rules of the back office: the
  product catalog, the partner directory, the commission tier engine, and
  the batch ledger that tracks what each partner still holds and how much
  of each order is still receivable.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product:      catalog entry with unit price and warehouse stock
  - Partner:      reseller with a commission tier
  - Order:        header carrying the receivable/collected split
  - OrderBatch:   one order line; the unit the FIFO walk consumes
  - ResaleReport: a partner's reported resale to end customers
  - Consumption:  which batch a resale report drew from, and how much

DESIGN PRINCIPLES:
  1. Precision: money is decimal.Decimal, never float64
  2. Snapshots: the discounted unit value and the tier are locked on the batch
  3. Conservation: receivable + collected only moves between the two fields
  4. Traceability: every resale keeps its exact batch consumption breakdown

SEE ALSO:
  - tier.go:    tier engine
  - service.go: the operations that mutate these types
  - store.go:   persistence interfaces
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID string
type PartnerID string
type OrderID string
type BatchID string
type ReportID string

// =============================================================================
// PAYMENT METHOD / STATUS
// =============================================================================

type PaymentMethod string

const (
	PaymentQRIS     PaymentMethod = "QRIS"
	PaymentTransfer PaymentMethod = "Transfer"
	PaymentCredit   PaymentMethod = "Piutang" // partner pays as stock is resold
	PaymentSample   PaymentMethod = "SAMPLE"  // promotional giveaway, zero value
)

// IsImmediate reports whether the full order value is collected at intake.
func (m PaymentMethod) IsImmediate() bool {
	return m == PaymentQRIS || m == PaymentTransfer
}

// IsCredit reports whether the order value starts out receivable.
func (m PaymentMethod) IsCredit() bool { return m == PaymentCredit }

// ValidForOrder reports whether a partner order may use this method.
func (m PaymentMethod) ValidForOrder() bool { return m.IsImmediate() || m.IsCredit() }

type PaymentStatus string

const (
	StatusPaid   PaymentStatus = "Paid"
	StatusUnpaid PaymentStatus = "Unpaid"
)

// PaidTolerance absorbs rounding residue: an order with at most this much
// still receivable counts as paid.
var PaidTolerance = decimal.NewFromInt(1)

// StatusFor derives the payment status from the outstanding receivable.
func StatusFor(receivable decimal.Decimal) PaymentStatus {
	if receivable.LessThanOrEqual(PaidTolerance) {
		return StatusPaid
	}
	return StatusUnpaid
}

// =============================================================================
// CATALOG / DIRECTORY
// =============================================================================

// Product is a catalog entry. InitialStock is the cumulative stock ever
// provisioned; restocks raise it together with StockOnHand.
type Product struct {
	ID           ProductID
	Name         string
	UnitPrice    decimal.Decimal
	StockOnHand  int64
	InitialStock int64
	Active       bool
	CreatedAt    time.Time
}

// UnitsOut is how much of the provisioned stock has left the warehouse.
func (p Product) UnitsOut() int64 { return p.InitialStock - p.StockOnHand }

type Partner struct {
	ID        PartnerID
	FullName  string
	Tier      Tier
	IsVIP     bool
	CreatedAt time.Time
}

// =============================================================================
// LEDGER ENTITIES
// =============================================================================

// Order is the header for one or more batches. Samples have no partner.
type Order struct {
	ID              OrderID
	PartnerID       PartnerID
	TotalReceivable decimal.Decimal
	TotalCollected  decimal.Decimal
	PaymentStatus   PaymentStatus
	PaymentMethod   PaymentMethod
	IsSample        bool
	Description     string
	CreatedAt       time.Time
}

// NetValue is the order's value after tier discount. It is conserved across
// resale shifts and their reversals.
func (o Order) NetValue() decimal.Decimal { return o.TotalReceivable.Add(o.TotalCollected) }

// shift moves up to amount from receivable to collected and returns what moved.
func (o *Order) shift(amount decimal.Decimal) decimal.Decimal {
	moved := decimal.Min(o.TotalReceivable, amount)
	if moved.IsNegative() {
		moved = decimal.Zero
	}
	o.TotalReceivable = o.TotalReceivable.Sub(moved)
	o.TotalCollected = o.TotalCollected.Add(moved)
	o.PaymentStatus = StatusFor(o.TotalReceivable)
	return moved
}

// unshift moves up to amount back from collected to receivable.
func (o *Order) unshift(amount decimal.Decimal) decimal.Decimal {
	moved := decimal.Min(o.TotalCollected, amount)
	if moved.IsNegative() {
		moved = decimal.Zero
	}
	o.TotalCollected = o.TotalCollected.Sub(moved)
	o.TotalReceivable = o.TotalReceivable.Add(moved)
	o.PaymentStatus = StatusFor(o.TotalReceivable)
	return moved
}

// OrderBatch is one order line. Seq is the insertion sequence assigned by the
// store; FIFO consumption walks batches in ascending Seq.
//
// INVARIANT: 0 <= QuantityRemaining <= QuantityOriginal.
type OrderBatch struct {
	ID                BatchID
	Seq               int64
	OrderID           OrderID
	PartnerID         PartnerID
	ProductID         ProductID
	QuantityOriginal  int64
	QuantityRemaining int64 // still held by the partner, unsold
	UnitValueAtTime   decimal.Decimal
	TierAtOrder       Tier
	PaymentMethod     PaymentMethod
	CreatedAt         time.Time
}

// ResaleReport records a partner's resale to end customers.
type ResaleReport struct {
	ID                ReportID
	PartnerID         PartnerID
	ProductID         ProductID
	QuantitySold      int64
	TotalSaleValue    decimal.Decimal
	UnitCostBasis     decimal.Decimal // weighted UnitValueAtTime of consumed batches
	CommissionPerUnit decimal.Decimal
	BasePriceAtTime   decimal.Decimal // catalog price when reported
	CommissionPaid    bool
	CreatedAt         time.Time
}

// SellingPricePerUnit is the average consumer price of the report.
func (r ResaleReport) SellingPricePerUnit() decimal.Decimal {
	if r.QuantitySold == 0 {
		return decimal.Zero
	}
	return r.TotalSaleValue.Div(decimal.NewFromInt(r.QuantitySold))
}

// Consumption is one (batch, quantity) pair drawn by a resale report.
// Shifted is exactly what moved from receivable to collected on the batch's
// order, so reversal can put back the same amount.
type Consumption struct {
	ReportID  ReportID
	Position  int
	BatchID   BatchID
	OrderID   OrderID
	Quantity  int64
	UnitValue decimal.Decimal
	Shifted   decimal.Decimal
}

// CostValue is Quantity x UnitValue.
func (c Consumption) CostValue() decimal.Decimal {
	return c.UnitValue.Mul(decimal.NewFromInt(c.Quantity))
}

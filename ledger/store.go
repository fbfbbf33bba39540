/*
store.go - Persistence interfaces for the ledger

PURPOSE:
  Defines the boundary between the ledger rules and the database. The
  Service never talks to a database directly; it asks the Store for a
  transaction and does all reads and writes of one operation through it.

KEY INTERFACES:
  Reader: point reads and filtered lists
  Tx:     Reader plus writes, valid only inside WithTx
  Store:  hands out read snapshots (View) and write transactions (WithTx)

TRANSACTION CONTRACT:
  WithTx runs fn with exclusive write access. If fn returns an error,
  every write made through the Tx is rolled back; otherwise all of them
  commit together. Writes from different WithTx calls never interleave,
  so a read-check-write sequence inside fn cannot lose an update.

  View runs fn against one consistent point-in-time snapshot. Reports
  use it so their totals are never torn across concurrent writes.

ORDERING:
  - ListBatches:       ascending Seq (insertion order = FIFO order)
  - ListOrders:        ascending CreatedAt, then ID
  - ListResaleReports: ascending CreatedAt, then ID
  - ListConsumptions:  by report, then ascending Position
  - ListProducts:      by name; ListPartners: by full name

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - ledger/store/memory.go: In-memory for testing

SEE ALSO:
  - service.go: the only caller of WithTx
  - report/:    the main caller of View
*/
package ledger

import "context"

// =============================================================================
// FILTERS
// =============================================================================

type OrderKind int

const (
	OrdersAll OrderKind = iota
	OrdersPartner
	OrdersSample
)

type OrderFilter struct {
	PartnerID PartnerID
	Kind      OrderKind
	Period    Period
}

type BatchFilter struct {
	OrderID   OrderID
	PartnerID PartnerID
	ProductID ProductID
	OpenOnly  bool // QuantityRemaining > 0
}

type ReportFilter struct {
	PartnerID PartnerID
	ProductID ProductID
	Period    Period
}

type ConsumptionFilter struct {
	ReportID ReportID
	BatchID  BatchID
	OrderID  OrderID
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// Reader is read access. Point reads return a *NotFoundError for unknown ids.
type Reader interface {
	GetProduct(ctx context.Context, id ProductID) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)

	GetPartner(ctx context.Context, id PartnerID) (Partner, error)
	ListPartners(ctx context.Context) ([]Partner, error)

	GetOrder(ctx context.Context, id OrderID) (Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)

	GetBatch(ctx context.Context, id BatchID) (OrderBatch, error)
	ListBatches(ctx context.Context, filter BatchFilter) ([]OrderBatch, error)

	GetResaleReport(ctx context.Context, id ReportID) (ResaleReport, error)
	ListResaleReports(ctx context.Context, filter ReportFilter) ([]ResaleReport, error)
	ListConsumptions(ctx context.Context, filter ConsumptionFilter) ([]Consumption, error)
}

// Tx is a Reader that can also write. It is only valid inside WithTx.
type Tx interface {
	Reader

	// PutProduct inserts or replaces a product.
	PutProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, id ProductID) error

	// PutPartner inserts or replaces a partner.
	PutPartner(ctx context.Context, p Partner) error
	DeletePartner(ctx context.Context, id PartnerID) error

	InsertOrder(ctx context.Context, o Order) error
	UpdateOrder(ctx context.Context, o Order) error
	// DeleteOrder removes the order and all of its batches.
	DeleteOrder(ctx context.Context, id OrderID) error

	// InsertBatch stores a new batch and returns it with Seq assigned.
	InsertBatch(ctx context.Context, b OrderBatch) (OrderBatch, error)
	UpdateBatch(ctx context.Context, b OrderBatch) error

	// InsertResaleReport stores the report together with its consumptions.
	InsertResaleReport(ctx context.Context, r ResaleReport, consumed []Consumption) error
	UpdateResaleReport(ctx context.Context, r ResaleReport) error
	// DeleteResaleReport removes the report and its consumptions.
	DeleteResaleReport(ctx context.Context, id ReportID) error
}

// Store hands out snapshots and transactions.
type Store interface {
	// View executes fn against a consistent read snapshot.
	View(ctx context.Context, fn func(Reader) error) error

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Tx) error) error
}

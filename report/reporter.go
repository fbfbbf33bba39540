/*
Package report provides read-only projections over the ledger.

PURPOSE:
  Dashboards and exports never mutate anything. Each projection runs
  inside a single Store.View, so its totals come from one point-in-time
  snapshot and are never torn across a concurrent order or resale.

PROJECTIONS:
  Dashboard:        money and stock aggregates for a period
  StockAudit:       per product provisioned / out / on hand, LOW or OK
  PartnerSummaries: per partner volume, cost, collected, sales, inventory
  History:          newest-first feed of order and resale events
  SampleHistory:    promotional samples in a period
  MasterReport:     xlsx workbook of the above (export.go)

CONVENTIONS:
  - Samples never count as revenue; their base-price value is sample cost
  - Gross volume is qty x current catalog price, like the tier engine
  - Order money (collected/receivable) is counted once per order

SEE ALSO:
  - ledger/store.go: the Reader these run against
  - api/handlers.go: HTTP endpoints for each projection
*/
package report

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/partner-ledger/ledger"
)

// DefaultLowStockThreshold marks a product LOW when on hand drops below it.
const DefaultLowStockThreshold = 50

type Reporter struct {
	store    ledger.Store
	lowStock int64
	log      *zap.Logger
}

type Option func(*Reporter)

func WithLowStockThreshold(n int64) Option {
	return func(r *Reporter) { r.lowStock = n }
}

func WithLogger(log *zap.Logger) Option {
	return func(r *Reporter) { r.log = log }
}

func NewReporter(store ledger.Store, opts ...Option) *Reporter {
	r := &Reporter{store: store, lowStock: DefaultLowStockThreshold, log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// =============================================================================
// DASHBOARD
// =============================================================================

type DashboardStats struct {
	Period       ledger.Period
	GrossOut     decimal.Decimal // qty x base price over partner orders in period
	CashIn       decimal.Decimal // collected on partner orders in period
	Receivables  decimal.Decimal // still receivable on partner orders in period
	PartnerSales decimal.Decimal // consumer sales reported in period
	SampleCost   decimal.Decimal // qty x base price over samples in period
	PartnerCount int
	OrderCount   int
	ResaleCount  int
}

func (r *Reporter) Dashboard(ctx context.Context, period ledger.Period) (DashboardStats, error) {
	stats := DashboardStats{
		Period:       period,
		GrossOut:     decimal.Zero,
		CashIn:       decimal.Zero,
		Receivables:  decimal.Zero,
		PartnerSales: decimal.Zero,
		SampleCost:   decimal.Zero,
	}
	err := r.store.View(ctx, func(rd ledger.Reader) error {
		snap, err := load(ctx, rd, period)
		if err != nil {
			return err
		}

		for _, o := range snap.orders {
			lines := snap.batchesByOrder[o.ID]
			if o.IsSample {
				for _, b := range lines {
					stats.SampleCost = stats.SampleCost.Add(snap.baseValue(b))
				}
				continue
			}
			stats.OrderCount++
			stats.CashIn = stats.CashIn.Add(o.TotalCollected)
			stats.Receivables = stats.Receivables.Add(o.TotalReceivable)
			for _, b := range lines {
				stats.GrossOut = stats.GrossOut.Add(snap.baseValue(b))
			}
		}
		for _, rep := range snap.reports {
			stats.PartnerSales = stats.PartnerSales.Add(rep.TotalSaleValue)
		}
		stats.ResaleCount = len(snap.reports)
		stats.PartnerCount = len(snap.partners)
		return nil
	})
	if err != nil {
		return DashboardStats{}, err
	}
	return stats, nil
}

// =============================================================================
// STOCK AUDIT
// =============================================================================

type StockStatus string

const (
	StockLow StockStatus = "LOW"
	StockOK  StockStatus = "OK"
)

type StockLine struct {
	ProductID    ledger.ProductID
	Name         string
	Active       bool
	InitialStock int64
	UnitsOut     int64
	OnHand       int64
	Status       StockStatus
}

func (r *Reporter) StockAudit(ctx context.Context) ([]StockLine, error) {
	var lines []StockLine
	err := r.store.View(ctx, func(rd ledger.Reader) error {
		products, err := rd.ListProducts(ctx)
		if err != nil {
			return err
		}
		lines = r.stockLines(products)
		return nil
	})
	return lines, err
}

func (r *Reporter) stockLines(products []ledger.Product) []StockLine {
	lines := make([]StockLine, 0, len(products))
	for _, p := range products {
		status := StockOK
		if p.StockOnHand < r.lowStock {
			status = StockLow
		}
		lines = append(lines, StockLine{
			ProductID:    p.ID,
			Name:         p.Name,
			Active:       p.Active,
			InitialStock: p.InitialStock,
			UnitsOut:     p.UnitsOut(),
			OnHand:       p.StockOnHand,
			Status:       status,
		})
	}
	return lines
}

// =============================================================================
// SNAPSHOT - Everything a projection needs, read once
// =============================================================================

type snapshot struct {
	products       map[ledger.ProductID]ledger.Product
	productList    []ledger.Product
	partners       map[ledger.PartnerID]ledger.Partner
	partnerList    []ledger.Partner
	orders         []ledger.Order // in period, oldest first
	batchesByOrder map[ledger.OrderID][]ledger.OrderBatch
	reports        []ledger.ResaleReport // in period, oldest first
}

func load(ctx context.Context, rd ledger.Reader, period ledger.Period) (*snapshot, error) {
	s := &snapshot{
		products:       make(map[ledger.ProductID]ledger.Product),
		partners:       make(map[ledger.PartnerID]ledger.Partner),
		batchesByOrder: make(map[ledger.OrderID][]ledger.OrderBatch),
	}
	var err error
	if s.productList, err = rd.ListProducts(ctx); err != nil {
		return nil, err
	}
	for _, p := range s.productList {
		s.products[p.ID] = p
	}
	if s.partnerList, err = rd.ListPartners(ctx); err != nil {
		return nil, err
	}
	for _, p := range s.partnerList {
		s.partners[p.ID] = p
	}
	if s.orders, err = rd.ListOrders(ctx, ledger.OrderFilter{Period: period}); err != nil {
		return nil, err
	}
	batches, err := rd.ListBatches(ctx, ledger.BatchFilter{})
	if err != nil {
		return nil, err
	}
	for _, b := range batches {
		s.batchesByOrder[b.OrderID] = append(s.batchesByOrder[b.OrderID], b)
	}
	if s.reports, err = rd.ListResaleReports(ctx, ledger.ReportFilter{Period: period}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *snapshot) baseValue(b ledger.OrderBatch) decimal.Decimal {
	return s.products[b.ProductID].UnitPrice.Mul(decimal.NewFromInt(b.QuantityOriginal))
}

func (s *snapshot) productName(id ledger.ProductID) string {
	if p, ok := s.products[id]; ok {
		return p.Name
	}
	return string(id)
}

func (s *snapshot) partnerName(id ledger.PartnerID) string {
	if p, ok := s.partners[id]; ok {
		return p.FullName
	}
	return string(id)
}

/*
service.go - Ledger operations

PURPOSE:
  Service is the boundary the UI/API layer calls. Each write operation is
  one logical transaction: all of its reads, checks and writes run inside
  a single Store.WithTx, so either everything lands or nothing does.

OPERATIONS:
  Catalog:   CreateProduct, UpdateProduct, Restock, SetProductActive, DeleteProduct
  Directory: CreatePartner, UpdatePartner, DeletePartner
  Ledger:    PlaceOrder, ReportResale, ReverseOrder, ReverseResaleReport,
             PlaceSample, UpdateSample, MarkCommissionPaid
  Reads:     Product(s), Partner(s), Order, ResaleReport

CONCURRENCY:
  Write serialization comes from the Store: WithTx grants exclusive write
  access for the whole sequence, so two resale reports against the same
  partner/product, or two orders against the same product, cannot both
  read the same quantity and write back independently.

LOGGING:
  Committed writes log at Info, rejected writes at Warn, with the ids and
  quantities involved as structured fields.

SEE ALSO:
  - intake.go:   PlaceOrder
  - resale.go:   ReportResale (FIFO walk)
  - reversal.go: ReverseOrder, ReverseResaleReport
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

type Option func(*Service)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides uuid generation, for tests.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store for read-only projections.
func (s *Service) Store() Store { return s.store }

// stampAt places an event on the given calendar day at the current time of
// day, so several entries on one backdated day keep their entry order.
// A zero date means now.
func (s *Service) stampAt(date time.Time) time.Time {
	now := s.now()
	if date.IsZero() {
		return now
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location())
}

func (s *Service) rejected(op string, err error, fields ...zap.Field) error {
	s.log.Warn(op+" rejected", append(fields, zap.Error(err))...)
	return err
}

// =============================================================================
// READS
// =============================================================================

func (s *Service) Product(ctx context.Context, id ProductID) (Product, error) {
	var p Product
	err := s.store.View(ctx, func(r Reader) error {
		var err error
		p, err = r.GetProduct(ctx, id)
		return err
	})
	return p, err
}

func (s *Service) Products(ctx context.Context) ([]Product, error) {
	var ps []Product
	err := s.store.View(ctx, func(r Reader) error {
		var err error
		ps, err = r.ListProducts(ctx)
		return err
	})
	return ps, err
}

func (s *Service) Partner(ctx context.Context, id PartnerID) (Partner, error) {
	var p Partner
	err := s.store.View(ctx, func(r Reader) error {
		var err error
		p, err = r.GetPartner(ctx, id)
		return err
	})
	return p, err
}

func (s *Service) Partners(ctx context.Context) ([]Partner, error) {
	var ps []Partner
	err := s.store.View(ctx, func(r Reader) error {
		var err error
		ps, err = r.ListPartners(ctx)
		return err
	})
	return ps, err
}

// Order returns an order with its batches.
func (s *Service) Order(ctx context.Context, id OrderID) (Order, []OrderBatch, error) {
	var (
		o  Order
		bs []OrderBatch
	)
	err := s.store.View(ctx, func(r Reader) error {
		var err error
		if o, err = r.GetOrder(ctx, id); err != nil {
			return err
		}
		bs, err = r.ListBatches(ctx, BatchFilter{OrderID: id})
		return err
	})
	return o, bs, err
}

// ResaleReport returns a report with its batch consumption breakdown.
func (s *Service) ResaleReport(ctx context.Context, id ReportID) (ResaleReport, []Consumption, error) {
	var (
		rep ResaleReport
		cs  []Consumption
	)
	err := s.store.View(ctx, func(r Reader) error {
		var err error
		if rep, err = r.GetResaleReport(ctx, id); err != nil {
			return err
		}
		cs, err = r.ListConsumptions(ctx, ConsumptionFilter{ReportID: id})
		return err
	})
	return rep, cs, err
}

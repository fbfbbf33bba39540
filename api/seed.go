/*
seed.go - Demo data loader for development and demonstrations

PURPOSE:
  Populates an empty ledger with a small skincare catalog, four partners
  and a few weeks of activity: credit and immediate orders, resale
  reports that walk batches FIFO, and promotional samples. Every entry
  goes through the ledger service, so the seeded state obeys the same
  rules as real traffic.

USAGE VIA API:
  POST /api/demo/seed                  seed an empty ledger
  POST /api/demo/seed {"reset": true}  wipe the store first

  The route exists only when the router is built with EnableDemo.

SEE ALSO:
  - cmd/server/main.go: -seed flag seeds at startup
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/partner-ledger/ledger"
)

// ErrAlreadySeeded is returned when seeding a ledger that has products.
var ErrAlreadySeeded = errors.New("ledger already has data")

// Resetter is implemented by stores that can drop all their data.
type Resetter interface {
	Reset(ctx context.Context) error
}

type SeedRequest struct {
	Reset bool `json:"reset"`
}

// =============================================================================
// DEMO DATA
// =============================================================================

var demoProducts = []struct {
	name  string
	price string
	stock int64
}{
	{"Brightening Serum", "85000", 500},
	{"Gentle Facial Wash", "45000", 400},
	{"Hydrating Toner", "60000", 300},
	{"Daily Sunscreen SPF 50", "75000", 200},
	{"Night Repair Cream", "95000", 150},
}

var demoPartners = []ledger.PartnerInput{
	{FullName: "Ayu Lestari", IsVIP: true},
	{FullName: "Budi Santoso"},
	{FullName: "Citra Maharani"},
	{FullName: "Dewi Anggraini"},
}

// Activity references products and partners by their index above.
var demoOrders = []struct {
	daysAgo  int
	partner  int
	product  int
	quantity int64
	method   ledger.PaymentMethod
}{
	{20, 0, 0, 120, ledger.PaymentCredit},
	{18, 1, 1, 40, ledger.PaymentQRIS},
	{15, 2, 2, 60, ledger.PaymentCredit},
	{12, 0, 3, 50, ledger.PaymentTransfer},
	{9, 3, 4, 20, ledger.PaymentCredit},
	{6, 1, 0, 30, ledger.PaymentCredit},
	{3, 2, 2, 25, ledger.PaymentQRIS},
}

var demoResales = []struct {
	daysAgo   int
	partner   int
	product   int
	quantity  int64
	unitPrice int64
}{
	{10, 0, 0, 45, 110000},
	{7, 2, 2, 30, 78000},
	{2, 1, 0, 12, 105000},
	{1, 3, 4, 8, 120000},
}

var demoSamples = []struct {
	daysAgo     int
	product     int
	quantity    int64
	description string
}{
	{14, 0, 5, "Beauty fair booth"},
	{4, 3, 3, "Influencer review kit"},
}

// =============================================================================
// LOADER
// =============================================================================

// Seed loads the demo data into an empty ledger, dating activity relative
// to now.
func Seed(ctx context.Context, svc *ledger.Service, now time.Time) (SeedResponse, error) {
	var resp SeedResponse

	existing, err := svc.Products(ctx)
	if err != nil {
		return resp, err
	}
	if len(existing) > 0 {
		return resp, fmt.Errorf("%w: %d products on record", ErrAlreadySeeded, len(existing))
	}

	day := func(daysAgo int) time.Time { return now.AddDate(0, 0, -daysAgo) }

	products := make([]ledger.Product, len(demoProducts))
	for i, p := range demoProducts {
		products[i], err = svc.CreateProduct(ctx, ledger.NewProduct{
			Name:         p.name,
			UnitPrice:    decimal.RequireFromString(p.price),
			InitialStock: p.stock,
		})
		if err != nil {
			return resp, fmt.Errorf("seed product %q: %w", p.name, err)
		}
		resp.Products++
	}

	partners := make([]ledger.Partner, len(demoPartners))
	for i, in := range demoPartners {
		partners[i], err = svc.CreatePartner(ctx, in)
		if err != nil {
			return resp, fmt.Errorf("seed partner %q: %w", in.FullName, err)
		}
		resp.Partners++
	}

	// Orders and resales interleave by date so FIFO sees the same history
	// it would have seen live.
	type step struct {
		daysAgo int
		run     func() error
	}
	var steps []step
	for _, o := range demoOrders {
		steps = append(steps, step{o.daysAgo, func() error {
			_, err := svc.PlaceOrder(ctx, ledger.PlaceOrderInput{
				PartnerID:     partners[o.partner].ID,
				ProductID:     products[o.product].ID,
				Quantity:      o.quantity,
				PaymentMethod: o.method,
				Date:          day(o.daysAgo),
			})
			if err == nil {
				resp.Orders++
			}
			return err
		}})
	}
	for _, s := range demoResales {
		steps = append(steps, step{s.daysAgo, func() error {
			_, err := svc.ReportResale(ctx, ledger.ResaleInput{
				PartnerID:      partners[s.partner].ID,
				ProductID:      products[s.product].ID,
				QuantitySold:   s.quantity,
				TotalSaleValue: decimal.NewFromInt(s.unitPrice * s.quantity),
				Date:           day(s.daysAgo),
			})
			if err == nil {
				resp.Resales++
			}
			return err
		}})
	}
	for _, s := range demoSamples {
		steps = append(steps, step{s.daysAgo, func() error {
			_, err := svc.PlaceSample(ctx, ledger.SampleInput{
				ProductID:   products[s.product].ID,
				Quantity:    s.quantity,
				Description: s.description,
				Date:        day(s.daysAgo),
			})
			if err == nil {
				resp.Samples++
			}
			return err
		}})
	}

	// Oldest first. Steps on the same day keep their listed order.
	for d := maxDaysAgo(); d >= 0; d-- {
		for _, s := range steps {
			if s.daysAgo != d {
				continue
			}
			if err := s.run(); err != nil {
				return resp, fmt.Errorf("seed activity %d days ago: %w", d, err)
			}
		}
	}
	return resp, nil
}

func maxDaysAgo() int {
	n := 0
	for _, o := range demoOrders {
		n = max(n, o.daysAgo)
	}
	for _, s := range demoResales {
		n = max(n, s.daysAgo)
	}
	for _, s := range demoSamples {
		n = max(n, s.daysAgo)
	}
	return n
}

// SeedDemo loads the demo data, optionally wiping the store first.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	var req SeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if req.Reset {
		rs, ok := h.svc.Store().(Resetter)
		if !ok {
			writeError(w, http.StatusBadRequest, "Store does not support reset", nil)
			return
		}
		if err := rs.Reset(ctx); err != nil {
			h.fail(w, r, "Failed to reset store", err)
			return
		}
	}

	resp, err := Seed(ctx, h.svc, h.now())
	if err != nil {
		h.fail(w, r, "Failed to seed demo data", err)
		return
	}
	h.log.Info("demo data seeded")
	writeJSON(w, http.StatusCreated, resp)
}

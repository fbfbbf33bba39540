package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/warp/partner-ledger/ledger"
	"github.com/warp/partner-ledger/ledger/store"
	"github.com/warp/partner-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// stores runs a test against every Store implementation.
func stores(t *testing.T, fn func(t *testing.T, svc *ledger.Service)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, newService(store.NewMemory()))
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := sqlite.New(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		fn(t, newService(s))
	})
}

// newService uses a clock that ticks one second per call and sequential ids,
// so ordering in tests is deterministic.
func newService(s ledger.Store) *ledger.Service {
	var (
		mu  sync.Mutex
		now = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
		n   int
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
	ids := func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%04d", n)
	}
	return ledger.NewService(s, ledger.WithClock(clock), ledger.WithIDGenerator(ids))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustProduct(t *testing.T, svc *ledger.Service, name, price string, stock int64) ledger.Product {
	t.Helper()
	p, err := svc.CreateProduct(context.Background(), ledger.NewProduct{
		Name:         name,
		UnitPrice:    dec(price),
		InitialStock: stock,
	})
	require.NoError(t, err)
	return p
}

func mustPartner(t *testing.T, svc *ledger.Service, name string, vip bool) ledger.Partner {
	t.Helper()
	p, err := svc.CreatePartner(context.Background(), ledger.PartnerInput{FullName: name, IsVIP: vip})
	require.NoError(t, err)
	return p
}

func mustOrder(t *testing.T, svc *ledger.Service, partner ledger.PartnerID, product ledger.ProductID, qty int64, method ledger.PaymentMethod) ledger.OrderResult {
	t.Helper()
	res, err := svc.PlaceOrder(context.Background(), ledger.PlaceOrderInput{
		PartnerID:     partner,
		ProductID:     product,
		Quantity:      qty,
		PaymentMethod: method,
	})
	require.NoError(t, err)
	return res
}

func mustResale(t *testing.T, svc *ledger.Service, partner ledger.PartnerID, product ledger.ProductID, qty int64, sale string) ledger.ResaleResult {
	t.Helper()
	res, err := svc.ReportResale(context.Background(), ledger.ResaleInput{
		PartnerID:      partner,
		ProductID:      product,
		QuantitySold:   qty,
		TotalSaleValue: dec(sale),
	})
	require.NoError(t, err)
	return res
}

func getOrder(t *testing.T, svc *ledger.Service, id ledger.OrderID) (ledger.Order, []ledger.OrderBatch) {
	t.Helper()
	o, batches, err := svc.Order(context.Background(), id)
	require.NoError(t, err)
	return o, batches
}

func getProduct(t *testing.T, svc *ledger.Service, id ledger.ProductID) ledger.Product {
	t.Helper()
	p, err := svc.Product(context.Background(), id)
	require.NoError(t, err)
	return p
}

// decEqual compares decimals by value; "510000" and "510000.00" are equal.
func decEqual(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

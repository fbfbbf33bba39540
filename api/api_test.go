/*
api_test.go - HTTP tests for the ledger API

Tests run the chi router against an in-memory store through httptest:
- Catalog and partner CRUD
- Order -> resale -> reversal flow and its status codes
- Validation and error mapping
- Samples, history paging, reports, xlsx export
- Demo seed
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/partner-ledger/api"
	"github.com/warp/partner-ledger/ledger"
	"github.com/warp/partner-ledger/ledger/store"
	"github.com/warp/partner-ledger/report"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const march = "from=2025-03-01&to=2025-03-31"

func newRouter(t *testing.T, demo bool) http.Handler {
	t.Helper()
	svc := ledger.NewService(store.NewMemory())
	h := api.NewHandler(svc, report.NewReporter(svc.Store()), nil)
	return api.NewRouter(h, api.RouterOptions{EnableDemo: demo})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func decEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func createProduct(t *testing.T, h http.Handler, name, price string, stock int64) api.ProductDTO {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/products", map[string]any{
		"name": name, "unit_price": price, "initial_stock": stock,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[api.ProductDTO](t, rec)
}

func createPartner(t *testing.T, h http.Handler, name string) api.PartnerDTO {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/partners", map[string]any{"full_name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[api.PartnerDTO](t, rec)
}

func placeOrder(t *testing.T, h http.Handler, partner, product string, qty int64, method, date string) api.OrderResponse {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/orders", map[string]any{
		"partner_id": partner, "product_id": product, "quantity": qty,
		"payment_method": method, "date": date,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[api.OrderResponse](t, rec)
}

// =============================================================================
// CATALOG AND PARTNERS
// =============================================================================

func TestProducts_Lifecycle(t *testing.T) {
	h := newRouter(t, false)

	// GIVEN: A product
	p := createProduct(t, h, "Serum", "10000", 100)
	decEqual(t, "10000", p.UnitPrice)
	assert.True(t, p.Active)

	// WHEN: It is restocked and edited
	rec := do(t, h, http.MethodPost, "/api/products/"+p.ID+"/restock", map[string]any{"quantity": 20})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	restocked := decode[api.ProductDTO](t, rec)

	rec = do(t, h, http.MethodPut, "/api/products/"+p.ID, map[string]any{"name": "Serum 30ml", "unit_price": "12000"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: Restock raised both stock counters; the edit kept them
	assert.Equal(t, int64(120), restocked.StockOnHand)
	assert.Equal(t, int64(120), restocked.InitialStock)

	got := decode[api.ProductDTO](t, do(t, h, http.MethodGet, "/api/products/"+p.ID, nil))
	assert.Equal(t, "Serum 30ml", got.Name)
	decEqual(t, "12000", got.UnitPrice)
	assert.Equal(t, int64(120), got.StockOnHand)

	// WHEN: Deactivated and deleted without history
	rec = do(t, h, http.MethodPost, "/api/products/"+p.ID+"/active", map[string]any{"active": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[api.ProductDTO](t, rec).Active)

	rec = do(t, h, http.MethodDelete, "/api/products/"+p.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(ledger.DeletedHard), decode[api.DeleteProductResponse](t, rec).Outcome)

	// THEN: It is gone
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/products/"+p.ID, nil).Code)
}

func TestProducts_DeleteWithHistoryDeactivates(t *testing.T) {
	h := newRouter(t, false)
	p := createProduct(t, h, "Serum", "10000", 100)
	ayu := createPartner(t, h, "Ayu")
	placeOrder(t, h, ayu.ID, p.ID, 5, "QRIS", "2025-03-02")

	rec := do(t, h, http.MethodDelete, "/api/products/"+p.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(ledger.DeletedSoft), decode[api.DeleteProductResponse](t, rec).Outcome)

	// Inactive products can't be ordered.
	rec = do(t, h, http.MethodPost, "/api/orders", map[string]any{
		"partner_id": ayu.ID, "product_id": p.ID, "quantity": 1, "payment_method": "QRIS",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPartners_CRUD(t *testing.T) {
	h := newRouter(t, false)

	rec := do(t, h, http.MethodPost, "/api/partners", map[string]any{"full_name": "Ayu", "is_vip": true})
	require.Equal(t, http.StatusCreated, rec.Code)
	ayu := decode[api.PartnerDTO](t, rec)
	assert.Equal(t, "Reseller", ayu.Tier, "VIP floor")
	decEqual(t, "0.15", ayu.CommissionRate)

	rec = do(t, h, http.MethodPut, "/api/partners/"+ayu.ID, map[string]any{"full_name": "Ayu Lestari", "tier": "Agen"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Agen", decode[api.PartnerDTO](t, rec).Tier)

	list := decode[[]api.PartnerDTO](t, do(t, h, http.MethodGet, "/api/partners", nil))
	require.Len(t, list, 1)
	assert.Equal(t, "Ayu Lestari", list[0].FullName)

	assert.Equal(t, http.StatusBadRequest,
		do(t, h, http.MethodPut, "/api/partners/"+ayu.ID, map[string]any{"full_name": "Ayu", "tier": "Emperor"}).Code)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/partners/"+ayu.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/partners/"+ayu.ID, nil).Code)
}

func TestPartners_DeleteWithOrdersConflicts(t *testing.T) {
	h := newRouter(t, false)
	p := createProduct(t, h, "Serum", "10000", 100)
	ayu := createPartner(t, h, "Ayu")
	placeOrder(t, h, ayu.ID, p.ID, 5, "QRIS", "")

	rec := do(t, h, http.MethodDelete, "/api/partners/"+ayu.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// =============================================================================
// LEDGER FLOW
// =============================================================================

func TestOrderResaleReversalFlow(t *testing.T) {
	h := newRouter(t, false)
	p := createProduct(t, h, "Serum", "10000", 100)
	ayu := createPartner(t, h, "Ayu")

	// GIVEN: A credit order that lifts Ayu to Reseller
	order := placeOrder(t, h, ayu.ID, p.ID, 60, "Piutang", "2025-03-03")
	assert.True(t, order.TierChanged)
	assert.Equal(t, "Reseller", order.Tier)
	decEqual(t, "510000", order.Order.TotalReceivable)
	assert.Equal(t, "Unpaid", order.Order.PaymentStatus)
	require.Len(t, order.Batches, 1)
	decEqual(t, "8500", order.Batches[0].UnitValueAtTime)

	// WHEN: Ayu reports reselling 20 units
	rec := do(t, h, http.MethodPost, "/api/resales", map[string]any{
		"partner_id": ayu.ID, "product_id": p.ID, "quantity_sold": 20,
		"total_sale_value": "200000", "date": "2025-03-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resale := decode[api.ResaleResponse](t, rec)

	// THEN: The cost of the sold units moved from receivable to collected
	require.Len(t, resale.Consumptions, 1)
	assert.Equal(t, int64(20), resale.Consumptions[0].Quantity)
	decEqual(t, "170000", resale.Consumptions[0].Shifted)
	decEqual(t, "1500", resale.Report.CommissionPerUnit)
	decEqual(t, "30000", resale.Report.TotalCommission)

	got := decode[api.OrderResponse](t, do(t, h, http.MethodGet, "/api/orders/"+order.Order.ID, nil))
	decEqual(t, "340000", got.Order.TotalReceivable)
	decEqual(t, "170000", got.Order.TotalCollected)
	assert.Equal(t, int64(40), got.Batches[0].QuantityRemaining)

	// AND: The order can't be reversed while the resale stands
	rec = do(t, h, http.MethodDelete, "/api/orders/"+order.Order.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[api.ErrorResponse](t, rec).Details, resale.Report.ID)

	// WHEN: Commission is settled, then the resale reversed
	rec = do(t, h, http.MethodPost, "/api/resales/"+resale.Report.ID+"/commission-paid", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[api.ResaleDTO](t, rec).CommissionPaid)

	rec = do(t, h, http.MethodDelete, "/api/resales/"+resale.Report.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rev := decode[api.ResaleReversalResponse](t, rec)
	require.Len(t, rev.Orders, 1)
	decEqual(t, "510000", rev.Orders[0].TotalReceivable)
	assert.Equal(t, int64(60), rev.Batches[0].QuantityRemaining)

	// THEN: The order reverses and the stock returns
	rec = do(t, h, http.MethodDelete, "/api/orders/"+order.Order.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	orderRev := decode[api.OrderReversalResponse](t, rec)
	require.Len(t, orderRev.Products, 1)
	assert.Equal(t, int64(100), orderRev.Products[0].StockOnHand)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/orders/"+order.Order.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/resales/"+resale.Report.ID, nil).Code)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	h := newRouter(t, false)
	p := createProduct(t, h, "Serum", "10000", 10)
	ayu := createPartner(t, h, "Ayu")

	rec := do(t, h, http.MethodPost, "/api/orders", map[string]any{
		"partner_id": ayu.ID, "product_id": p.ID, "quantity": 11, "payment_method": "QRIS",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode[api.ErrorResponse](t, rec)
	assert.Equal(t, "Failed to place order", body.Error)
	assert.Contains(t, body.Details, "insufficient stock")
}

func TestReportResale_InsufficientPartnerStock(t *testing.T) {
	h := newRouter(t, false)
	p := createProduct(t, h, "Serum", "10000", 100)
	ayu := createPartner(t, h, "Ayu")
	placeOrder(t, h, ayu.ID, p.ID, 5, "Piutang", "")

	rec := do(t, h, http.MethodPost, "/api/resales", map[string]any{
		"partner_id": ayu.ID, "product_id": p.ID, "quantity_sold": 6, "total_sale_value": 60000,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestValidationErrors(t *testing.T) {
	h := newRouter(t, false)
	p := createProduct(t, h, "Serum", "10000", 100)
	ayu := createPartner(t, h, "Ayu")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown payment method", http.MethodPost, "/api/orders",
			map[string]any{"partner_id": ayu.ID, "product_id": p.ID, "quantity": 1, "payment_method": "Cash"}, http.StatusBadRequest},
		{"zero quantity", http.MethodPost, "/api/orders",
			map[string]any{"partner_id": ayu.ID, "product_id": p.ID, "quantity": 0, "payment_method": "QRIS"}, http.StatusBadRequest},
		{"bad date", http.MethodPost, "/api/orders",
			map[string]any{"partner_id": ayu.ID, "product_id": p.ID, "quantity": 1, "payment_method": "QRIS", "date": "03/05/2025"}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/products",
			map[string]any{"name": "Toner", "unit_price": "1", "colour": "blue"}, http.StatusBadRequest},
		{"negative price", http.MethodPost, "/api/products",
			map[string]any{"name": "Toner", "unit_price": "-1"}, http.StatusBadRequest},
		{"missing name", http.MethodPost, "/api/partners",
			map[string]any{"full_name": ""}, http.StatusBadRequest},
		{"zero sale value", http.MethodPost, "/api/resales",
			map[string]any{"partner_id": ayu.ID, "product_id": p.ID, "quantity_sold": 1, "total_sale_value": "0"}, http.StatusBadRequest},
		{"unknown partner", http.MethodPost, "/api/orders",
			map[string]any{"partner_id": "nobody", "product_id": p.ID, "quantity": 1, "payment_method": "QRIS"}, http.StatusNotFound},
		{"restock zero", http.MethodPost, "/api/products/" + p.ID + "/restock",
			map[string]any{"quantity": 0}, http.StatusBadRequest},
		{"active missing", http.MethodPost, "/api/products/" + p.ID + "/active",
			map[string]any{}, http.StatusBadRequest},
		{"inverted period", http.MethodGet, "/api/reports/dashboard?from=2025-03-31&to=2025-03-01",
			nil, http.StatusBadRequest},
		{"bad page", http.MethodGet, "/api/history?page=0",
			nil, http.StatusBadRequest},
		{"bad status", http.MethodGet, "/api/history?status=Overdue",
			nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[api.ErrorResponse](t, rec).Error)
		})
	}
}

// =============================================================================
// SAMPLES
// =============================================================================

func TestSamples(t *testing.T) {
	h := newRouter(t, false)
	p := createProduct(t, h, "Serum", "10000", 100)
	ayu := createPartner(t, h, "Ayu")
	order := placeOrder(t, h, ayu.ID, p.ID, 5, "QRIS", "2025-03-01")

	// GIVEN: A sample of 5
	rec := do(t, h, http.MethodPost, "/api/samples", map[string]any{
		"product_id": p.ID, "quantity": 5, "description": "Beauty fair", "date": "2025-03-04",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sample := decode[api.OrderResponse](t, rec)
	assert.True(t, sample.Order.IsSample)
	assert.Equal(t, "SAMPLE", sample.Order.PaymentMethod)

	// WHEN: It is raised to 8
	rec = do(t, h, http.MethodPut, "/api/samples/"+sample.Order.ID, map[string]any{
		"product_id": p.ID, "quantity": 8, "description": "Beauty fair", "date": "2025-03-04",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: Stock reflects the new quantity and the history lists it
	got := decode[api.ProductDTO](t, do(t, h, http.MethodGet, "/api/products/"+p.ID, nil))
	assert.Equal(t, int64(87), got.StockOnHand)

	lines := decode[[]api.SampleLineDTO](t, do(t, h, http.MethodGet, "/api/samples?"+march, nil))
	require.Len(t, lines, 1)
	assert.Equal(t, int64(8), lines[0].Quantity)
	decEqual(t, "80000", lines[0].CostValue)

	// AND: Partner orders aren't reachable as samples
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/samples/"+order.Order.ID, nil).Code)

	rec = do(t, h, http.MethodDelete, "/api/samples/"+sample.Order.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got = decode[api.ProductDTO](t, do(t, h, http.MethodGet, "/api/products/"+p.ID, nil))
	assert.Equal(t, int64(95), got.StockOnHand)
}

// =============================================================================
// HISTORY AND REPORTS
// =============================================================================

func TestHistory_Paging(t *testing.T) {
	h := newRouter(t, false)
	p := createProduct(t, h, "Serum", "10000", 1000)
	ayu := createPartner(t, h, "Ayu")
	budi := createPartner(t, h, "Budi")
	for i := 0; i < 12; i++ {
		placeOrder(t, h, ayu.ID, p.ID, 1, "QRIS", "2025-03-05")
	}
	placeOrder(t, h, budi.ID, p.ID, 1, "Piutang", "2025-03-06")

	first := decode[api.HistoryPage](t, do(t, h, http.MethodGet, "/api/history?"+march, nil))
	assert.Equal(t, 13, first.Total)
	assert.Equal(t, 2, first.TotalPages)
	assert.Equal(t, 10, first.PerPage)
	require.Len(t, first.Items, 10)
	assert.Equal(t, "order", first.Items[0].Kind)
	assert.Equal(t, "Budi", first.Items[0].PartnerName)

	second := decode[api.HistoryPage](t, do(t, h, http.MethodGet, "/api/history?page=2&"+march, nil))
	assert.Len(t, second.Items, 3)

	unpaid := decode[api.HistoryPage](t, do(t, h, http.MethodGet, "/api/history?status=Unpaid", nil))
	require.Equal(t, 1, unpaid.Total)
	assert.Equal(t, budi.ID, unpaid.Items[0].PartnerID)

	search := decode[api.HistoryPage](t, do(t, h, http.MethodGet, "/api/history?q=ay&per_page=5", nil))
	assert.Equal(t, 12, search.Total)
	assert.Len(t, search.Items, 5)

	// Pages past the end are empty, however large the number.
	for _, page := range []string{"3", "9223372036854775807"} {
		rec := do(t, h, http.MethodGet, "/api/history?page="+page+"&"+march, nil)
		require.Equal(t, http.StatusOK, rec.Code, page)
		past := decode[api.HistoryPage](t, rec)
		assert.Equal(t, 13, past.Total)
		assert.Empty(t, past.Items)
	}
}

func TestReports(t *testing.T) {
	h := newRouter(t, false)
	p := createProduct(t, h, "Serum", "10000", 100)
	ayu := createPartner(t, h, "Ayu")
	placeOrder(t, h, ayu.ID, p.ID, 60, "Piutang", "2025-03-03")
	rec := do(t, h, http.MethodPost, "/api/resales", map[string]any{
		"partner_id": ayu.ID, "product_id": p.ID, "quantity_sold": 20,
		"total_sale_value": "200000", "date": "2025-03-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	dash := decode[api.DashboardDTO](t, do(t, h, http.MethodGet, "/api/reports/dashboard?"+march, nil))
	assert.Equal(t, "2025-03-01", dash.Period.From)
	assert.Equal(t, "2025-03-31", dash.Period.To)
	decEqual(t, "600000", dash.GrossOut)
	decEqual(t, "170000", dash.CashIn)
	decEqual(t, "340000", dash.Receivables)
	decEqual(t, "200000", dash.PartnerSales)
	assert.Equal(t, 1, dash.OrderCount)

	stock := decode[[]api.StockLineDTO](t, do(t, h, http.MethodGet, "/api/reports/stock", nil))
	require.Len(t, stock, 1)
	assert.Equal(t, int64(40), stock[0].OnHand)
	assert.Equal(t, "LOW", stock[0].Status)

	sums := decode[[]api.PartnerSummaryDTO](t, do(t, h, http.MethodGet, "/api/reports/partners?"+march, nil))
	require.Len(t, sums, 1)
	decEqual(t, "170000", sums[0].NetPaid)
	require.Len(t, sums[0].Inventory, 1)
	assert.Equal(t, int64(40), sums[0].Inventory[0].Remaining)
}

func TestExportMasterReport(t *testing.T) {
	h := newRouter(t, false)
	p := createProduct(t, h, "Serum", "10000", 100)
	ayu := createPartner(t, h, "Ayu")
	placeOrder(t, h, ayu.ID, p.ID, 10, "QRIS", "2025-03-03")

	rec := do(t, h, http.MethodGet, "/api/reports/export?"+march, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "master-report_2025-03-01_2025-03-31.xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Partner - Ayu")
}

// =============================================================================
// DEMO SEED
// =============================================================================

func TestSeedDemo(t *testing.T) {
	h := newRouter(t, true)

	rec := do(t, h, http.MethodPost, "/api/demo/seed", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	seeded := decode[api.SeedResponse](t, rec)
	assert.Equal(t, 5, seeded.Products)
	assert.Equal(t, 4, seeded.Partners)
	assert.Equal(t, 7, seeded.Orders)
	assert.Equal(t, 4, seeded.Resales)
	assert.Equal(t, 2, seeded.Samples)

	// Seeding twice conflicts unless the store is reset first.
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/demo/seed", nil).Code)
	rec = do(t, h, http.MethodPost, "/api/demo/seed", map[string]any{"reset": true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	products := decode[[]api.ProductDTO](t, do(t, h, http.MethodGet, "/api/products", nil))
	assert.Len(t, products, 5)
}

func TestSeedDemo_DisabledByDefault(t *testing.T) {
	h := newRouter(t, false)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/demo/seed", nil).Code)
}

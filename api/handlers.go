/*
handlers.go - HTTP API handlers for the partner ledger

PURPOSE:
  Exposes the ledger service via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the ledger and report packages.

ENDPOINTS:
  Catalog:
    GET    /api/products                   List products
    POST   /api/products                   Create product
    GET    /api/products/{id}              Get product
    PUT    /api/products/{id}              Edit name / price
    POST   /api/products/{id}/restock      Add stock
    POST   /api/products/{id}/active       Toggle availability
    DELETE /api/products/{id}              Delete, or deactivate if it has history

  Partners:
    GET/POST       /api/partners
    GET/PUT/DELETE /api/partners/{id}

  Ledger:
    POST   /api/orders                     Place an order
    GET    /api/orders/{id}                Order with its batches
    DELETE /api/orders/{id}                Reverse an order
    POST   /api/samples                    Place a sample
    PUT    /api/samples/{id}               Edit a sample
    DELETE /api/samples/{id}               Reverse a sample
    POST   /api/resales                    Report a resale (FIFO)
    GET    /api/resales/{id}               Report with its consumptions
    DELETE /api/resales/{id}               Reverse a resale report
    POST   /api/resales/{id}/commission-paid

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (validator tags)
  3. Call the ledger service
  4. Serialize response
  5. Map errors (errors.go)

SEE ALSO:
  - dto.go: Request/response data structures
  - reports.go: Read-only projections
  - server.go: Router setup and middleware
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/partner-ledger/ledger"
	"github.com/warp/partner-ledger/report"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	svc      *ledger.Service
	reports  *report.Reporter
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates a handler over the ledger service and its reporter.
// A nil logger is replaced by a no-op one.
func NewHandler(svc *ledger.Service, reports *report.Reporter, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		svc:      svc,
		reports:  reports,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListProducts returns the catalog sorted by name.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Products(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list products", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Product(r.Context(), ledger.ProductID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// CreateProduct adds a product to the catalog.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid product", err)
		return
	}

	p, err := h.svc.CreateProduct(r.Context(), ledger.NewProduct{
		Name:         req.Name,
		UnitPrice:    req.UnitPrice,
		InitialStock: req.InitialStock,
	})
	if err != nil {
		h.fail(w, r, "Failed to create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

// UpdateProduct edits a product's name and price.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid product", err)
		return
	}

	id := ledger.ProductID(chi.URLParam(r, "id"))
	p, err := h.svc.UpdateProduct(r.Context(), id, req.Name, req.UnitPrice)
	if err != nil {
		h.fail(w, r, "Failed to update product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// RestockProduct adds units to the warehouse.
func (h *Handler) RestockProduct(w http.ResponseWriter, r *http.Request) {
	var req RestockRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid restock", err)
		return
	}

	p, err := h.svc.Restock(r.Context(), ledger.ProductID(chi.URLParam(r, "id")), req.Quantity)
	if err != nil {
		h.fail(w, r, "Failed to restock product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// SetProductActive toggles whether a product can be ordered.
func (h *Handler) SetProductActive(w http.ResponseWriter, r *http.Request) {
	var req SetActiveRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid request", err)
		return
	}

	p, err := h.svc.SetProductActive(r.Context(), ledger.ProductID(chi.URLParam(r, "id")), *req.Active)
	if err != nil {
		h.fail(w, r, "Failed to update product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// DeleteProduct removes a product, or deactivates it when it has history.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	outcome, err := h.svc.DeleteProduct(r.Context(), ledger.ProductID(id))
	if err != nil {
		h.fail(w, r, "Failed to delete product", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteProductResponse{ID: id, Outcome: string(outcome)})
}

// =============================================================================
// PARTNER HANDLERS
// =============================================================================

// ListPartners returns all partners.
func (h *Handler) ListPartners(w http.ResponseWriter, r *http.Request) {
	partners, err := h.svc.Partners(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list partners", err)
		return
	}
	dtos := make([]PartnerDTO, len(partners))
	for i, p := range partners {
		dtos[i] = toPartnerDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPartner returns a single partner.
func (h *Handler) GetPartner(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Partner(r.Context(), ledger.PartnerID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get partner", err)
		return
	}
	writeJSON(w, http.StatusOK, toPartnerDTO(p))
}

// CreatePartner registers a partner.
func (h *Handler) CreatePartner(w http.ResponseWriter, r *http.Request) {
	var req PartnerRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid partner", err)
		return
	}

	p, err := h.svc.CreatePartner(r.Context(), partnerInput(req))
	if err != nil {
		h.fail(w, r, "Failed to create partner", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPartnerDTO(p))
}

// UpdatePartner is the manual edit, the only path that can lower a tier.
func (h *Handler) UpdatePartner(w http.ResponseWriter, r *http.Request) {
	var req PartnerRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid partner", err)
		return
	}

	p, err := h.svc.UpdatePartner(r.Context(), ledger.PartnerID(chi.URLParam(r, "id")), partnerInput(req))
	if err != nil {
		h.fail(w, r, "Failed to update partner", err)
		return
	}
	writeJSON(w, http.StatusOK, toPartnerDTO(p))
}

// DeletePartner removes a partner without order history.
func (h *Handler) DeletePartner(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePartner(r.Context(), ledger.PartnerID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, "Failed to delete partner", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func partnerInput(req PartnerRequest) ledger.PartnerInput {
	return ledger.PartnerInput{
		FullName: req.FullName,
		Tier:     ledger.Tier(req.Tier),
		IsVIP:    req.IsVIP,
	}
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// PlaceOrder hands stock to a partner.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid order", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		h.fail(w, r, "Invalid order", err)
		return
	}

	res, err := h.svc.PlaceOrder(r.Context(), ledger.PlaceOrderInput{
		PartnerID:     ledger.PartnerID(req.PartnerID),
		ProductID:     ledger.ProductID(req.ProductID),
		Quantity:      req.Quantity,
		PaymentMethod: ledger.PaymentMethod(req.PaymentMethod),
		Date:          date,
	})
	if err != nil {
		h.fail(w, r, "Failed to place order", err)
		return
	}

	writeJSON(w, http.StatusCreated, OrderResponse{
		Order:        toOrderDTO(res.Order),
		Batches:      []BatchDTO{toBatchDTO(res.Batch)},
		PreviousTier: string(res.PreviousTier),
		Tier:         string(res.Tier),
		TierChanged:  res.TierChanged(),
	})
}

// GetOrder returns an order with its batches.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, batches, err := h.svc.Order(r.Context(), ledger.OrderID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get order", err)
		return
	}
	writeJSON(w, http.StatusOK, OrderResponse{Order: toOrderDTO(order), Batches: toBatchDTOs(batches)})
}

// ReverseOrder deletes an order and returns its stock to the warehouse.
func (h *Handler) ReverseOrder(w http.ResponseWriter, r *http.Request) {
	rev, err := h.svc.ReverseOrder(r.Context(), ledger.OrderID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to reverse order", err)
		return
	}
	writeJSON(w, http.StatusOK, OrderReversalResponse{
		Order:    toOrderDTO(rev.Order),
		Batches:  toBatchDTOs(rev.Batches),
		Products: toProductDTOs(rev.Products),
	})
}

// =============================================================================
// SAMPLE HANDLERS
// =============================================================================

func (h *Handler) sampleInput(req SampleRequest) (ledger.SampleInput, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return ledger.SampleInput{}, err
	}
	return ledger.SampleInput{
		ProductID:   ledger.ProductID(req.ProductID),
		Quantity:    req.Quantity,
		Description: req.Description,
		Date:        date,
	}, nil
}

// PlaceSample records a promotional giveaway.
func (h *Handler) PlaceSample(w http.ResponseWriter, r *http.Request) {
	var req SampleRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid sample", err)
		return
	}
	in, err := h.sampleInput(req)
	if err != nil {
		h.fail(w, r, "Invalid sample", err)
		return
	}

	res, err := h.svc.PlaceSample(r.Context(), in)
	if err != nil {
		h.fail(w, r, "Failed to place sample", err)
		return
	}
	writeJSON(w, http.StatusCreated, OrderResponse{
		Order:   toOrderDTO(res.Order),
		Batches: []BatchDTO{toBatchDTO(res.Batch)},
	})
}

// UpdateSample swaps a sample's product, quantity, description or date.
func (h *Handler) UpdateSample(w http.ResponseWriter, r *http.Request) {
	var req SampleRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid sample", err)
		return
	}
	in, err := h.sampleInput(req)
	if err != nil {
		h.fail(w, r, "Invalid sample", err)
		return
	}

	res, err := h.svc.UpdateSample(r.Context(), ledger.OrderID(chi.URLParam(r, "id")), in)
	if err != nil {
		h.fail(w, r, "Failed to update sample", err)
		return
	}
	writeJSON(w, http.StatusOK, OrderResponse{
		Order:   toOrderDTO(res.Order),
		Batches: []BatchDTO{toBatchDTO(res.Batch)},
	})
}

// ReverseSample deletes a sample and returns its stock. Partner orders are
// not reachable through this route.
func (h *Handler) ReverseSample(w http.ResponseWriter, r *http.Request) {
	rev, err := h.svc.ReverseSample(r.Context(), ledger.OrderID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to reverse sample", err)
		return
	}
	writeJSON(w, http.StatusOK, OrderReversalResponse{
		Order:    toOrderDTO(rev.Order),
		Batches:  toBatchDTOs(rev.Batches),
		Products: toProductDTOs(rev.Products),
	})
}

// =============================================================================
// RESALE HANDLERS
// =============================================================================

// ReportResale records a partner's resale and walks their batches FIFO.
func (h *Handler) ReportResale(w http.ResponseWriter, r *http.Request) {
	var req ResaleRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, "Invalid resale report", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		h.fail(w, r, "Invalid resale report", err)
		return
	}

	res, err := h.svc.ReportResale(r.Context(), ledger.ResaleInput{
		PartnerID:      ledger.PartnerID(req.PartnerID),
		ProductID:      ledger.ProductID(req.ProductID),
		QuantitySold:   req.QuantitySold,
		TotalSaleValue: req.TotalSaleValue,
		Date:           date,
	})
	if err != nil {
		h.fail(w, r, "Failed to report resale", err)
		return
	}
	writeJSON(w, http.StatusCreated, ResaleResponse{
		Report:       toResaleDTO(res.Report),
		Consumptions: toConsumptionDTOs(res.Consumptions),
		Orders:       toOrderDTOs(res.Orders),
	})
}

// GetResale returns a resale report with its FIFO breakdown.
func (h *Handler) GetResale(w http.ResponseWriter, r *http.Request) {
	rep, consumed, err := h.svc.ResaleReport(r.Context(), ledger.ReportID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get resale report", err)
		return
	}
	writeJSON(w, http.StatusOK, ResaleResponse{
		Report:       toResaleDTO(rep),
		Consumptions: toConsumptionDTOs(consumed),
	})
}

// ReverseResale deletes a resale report and undoes its batch and money moves.
func (h *Handler) ReverseResale(w http.ResponseWriter, r *http.Request) {
	rev, err := h.svc.ReverseResaleReport(r.Context(), ledger.ReportID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to reverse resale report", err)
		return
	}
	writeJSON(w, http.StatusOK, ResaleReversalResponse{
		Report:  toResaleDTO(rev.Report),
		Batches: toBatchDTOs(rev.Batches),
		Orders:  toOrderDTOs(rev.Orders),
	})
}

// MarkCommissionPaid flags a report's commission as settled.
func (h *Handler) MarkCommissionPaid(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.MarkCommissionPaid(r.Context(), ledger.ReportID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to mark commission paid", err)
		return
	}
	writeJSON(w, http.StatusOK, toResaleDTO(rep))
}

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger's domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Money fields are decimal.Decimal, which marshals as a JSON string
  ("85000.00" style) and unmarshals from either a string or a number.
  Floats never appear in the API.

VALIDATION:
  Request types carry go-playground/validator tags for shape checks
  (required fields, positive quantities, enum values). Money rules and
  everything that needs ledger state are checked by the ledger itself.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Domain types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/partner-ledger/ledger"
	"github.com/warp/partner-ledger/report"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// =============================================================================
// CATALOG
// =============================================================================

// ProductDTO represents a product in API responses.
type ProductDTO struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	StockOnHand  int64           `json:"stock_on_hand"`
	InitialStock int64           `json:"initial_stock"`
	UnitsOut     int64           `json:"units_out"`
	Active       bool            `json:"active"`
	CreatedAt    string          `json:"created_at,omitempty"`
}

// CreateProductRequest is the request to add a product to the catalog.
type CreateProductRequest struct {
	Name         string          `json:"name" validate:"required"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	InitialStock int64           `json:"initial_stock" validate:"gte=0"`
}

// UpdateProductRequest edits name and price. Stock has its own endpoints.
type UpdateProductRequest struct {
	Name      string          `json:"name" validate:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type RestockRequest struct {
	Quantity int64 `json:"quantity" validate:"gt=0"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// DeleteProductResponse says whether the product was removed or only deactivated.
type DeleteProductResponse struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"`
}

// =============================================================================
// PARTNERS
// =============================================================================

// PartnerDTO represents a partner in API responses.
type PartnerDTO struct {
	ID             string          `json:"id"`
	FullName       string          `json:"full_name"`
	Tier           string          `json:"tier"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	IsVIP          bool            `json:"is_vip"`
	CreatedAt      string          `json:"created_at,omitempty"`
}

// PartnerRequest creates or edits a partner. An empty tier means Member.
type PartnerRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Tier     string `json:"tier" validate:"omitempty,oneof=Member Reseller Sub-Agen Agen Distributor"`
	IsVIP    bool   `json:"is_vip"`
}

// =============================================================================
// ORDERS AND SAMPLES
// =============================================================================

// PlaceOrderRequest is the request to hand stock to a partner.
type PlaceOrderRequest struct {
	PartnerID     string `json:"partner_id" validate:"required"`
	ProductID     string `json:"product_id" validate:"required"`
	Quantity      int64  `json:"quantity" validate:"gt=0"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=QRIS Transfer Piutang"`
	Date          string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// SampleRequest places or edits a promotional sample.
type SampleRequest struct {
	ProductID   string `json:"product_id" validate:"required"`
	Quantity    int64  `json:"quantity" validate:"gt=0"`
	Description string `json:"description" validate:"required"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// OrderDTO is an order header.
type OrderDTO struct {
	ID              string          `json:"id"`
	PartnerID       string          `json:"partner_id,omitempty"`
	TotalReceivable decimal.Decimal `json:"total_receivable"`
	TotalCollected  decimal.Decimal `json:"total_collected"`
	NetValue        decimal.Decimal `json:"net_value"`
	PaymentStatus   string          `json:"payment_status"`
	PaymentMethod   string          `json:"payment_method"`
	IsSample        bool            `json:"is_sample"`
	Description     string          `json:"description,omitempty"`
	CreatedAt       string          `json:"created_at"`
}

// BatchDTO is one order line and what the partner still holds of it.
type BatchDTO struct {
	ID                string          `json:"id"`
	OrderID           string          `json:"order_id"`
	ProductID         string          `json:"product_id"`
	QuantityOriginal  int64           `json:"quantity_original"`
	QuantityRemaining int64           `json:"quantity_remaining"`
	UnitValueAtTime   decimal.Decimal `json:"unit_value_at_time"`
	Tier              string          `json:"tier,omitempty"`
	CreatedAt         string          `json:"created_at"`
}

// OrderResponse is returned by order placement and lookup.
type OrderResponse struct {
	Order        OrderDTO   `json:"order"`
	Batches      []BatchDTO `json:"batches"`
	PreviousTier string     `json:"previous_tier,omitempty"`
	Tier         string     `json:"tier,omitempty"`
	TierChanged  bool       `json:"tier_changed,omitempty"`
}

// OrderReversalResponse shows the deleted order and the restored stock.
type OrderReversalResponse struct {
	Order    OrderDTO     `json:"order"`
	Batches  []BatchDTO   `json:"batches"`
	Products []ProductDTO `json:"products"`
}

// =============================================================================
// RESALES
// =============================================================================

// ResaleRequest reports units a partner sold to end customers.
type ResaleRequest struct {
	PartnerID      string          `json:"partner_id" validate:"required"`
	ProductID      string          `json:"product_id" validate:"required"`
	QuantitySold   int64           `json:"quantity_sold" validate:"gt=0"`
	TotalSaleValue decimal.Decimal `json:"total_sale_value"`
	Date           string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// ResaleDTO is a resale report with its derived commission.
type ResaleDTO struct {
	ID                  string          `json:"id"`
	PartnerID           string          `json:"partner_id"`
	ProductID           string          `json:"product_id"`
	QuantitySold        int64           `json:"quantity_sold"`
	TotalSaleValue      decimal.Decimal `json:"total_sale_value"`
	SellingPricePerUnit decimal.Decimal `json:"selling_price_per_unit"`
	UnitCostBasis       decimal.Decimal `json:"unit_cost_basis"`
	CommissionPerUnit   decimal.Decimal `json:"commission_per_unit"`
	TotalCommission     decimal.Decimal `json:"total_commission"`
	BasePriceAtTime     decimal.Decimal `json:"base_price_at_time"`
	CommissionPaid      bool            `json:"commission_paid"`
	CreatedAt           string          `json:"created_at"`
}

// ConsumptionDTO is one FIFO step of a resale.
type ConsumptionDTO struct {
	BatchID   string          `json:"batch_id"`
	OrderID   string          `json:"order_id"`
	Quantity  int64           `json:"quantity"`
	UnitValue decimal.Decimal `json:"unit_value"`
	Shifted   decimal.Decimal `json:"shifted"`
}

// ResaleResponse is returned by resale reporting and lookup.
type ResaleResponse struct {
	Report       ResaleDTO        `json:"report"`
	Consumptions []ConsumptionDTO `json:"consumptions"`
	Orders       []OrderDTO       `json:"orders,omitempty"`
}

// ResaleReversalResponse shows the deleted report and what it restored.
type ResaleReversalResponse struct {
	Report  ResaleDTO  `json:"report"`
	Batches []BatchDTO `json:"batches"`
	Orders  []OrderDTO `json:"orders"`
}

// =============================================================================
// HISTORY
// =============================================================================

// EventDTO is one history entry. Kind says which of Order or Resale is set.
type EventDTO struct {
	Kind        string     `json:"kind"`
	ID          string     `json:"id"`
	At          string     `json:"at"`
	PartnerID   string     `json:"partner_id"`
	PartnerName string     `json:"partner_name"`
	Order       *OrderDTO  `json:"order,omitempty"`
	Lines       []LineDTO  `json:"lines,omitempty"`
	Resale      *ResaleDTO `json:"resale,omitempty"`
	ProductName string     `json:"product_name,omitempty"`
}

type LineDTO struct {
	BatchID     string          `json:"batch_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	Remaining   int64           `json:"remaining"`
	UnitValue   decimal.Decimal `json:"unit_value"`
	Tier        string          `json:"tier,omitempty"`
}

// HistoryPage is one page of the history feed.
type HistoryPage struct {
	Items      []EventDTO `json:"items"`
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`
}

// =============================================================================
// REPORTS
// =============================================================================

type PeriodDTO struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type DashboardDTO struct {
	Period       PeriodDTO       `json:"period"`
	GrossOut     decimal.Decimal `json:"gross_out"`
	CashIn       decimal.Decimal `json:"cash_in"`
	Receivables  decimal.Decimal `json:"receivables"`
	PartnerSales decimal.Decimal `json:"partner_sales"`
	SampleCost   decimal.Decimal `json:"sample_cost"`
	PartnerCount int             `json:"partner_count"`
	OrderCount   int             `json:"order_count"`
	ResaleCount  int             `json:"resale_count"`
}

type StockLineDTO struct {
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	Active       bool   `json:"active"`
	InitialStock int64  `json:"initial_stock"`
	UnitsOut     int64  `json:"units_out"`
	OnHand       int64  `json:"on_hand"`
	Status       string `json:"status"`
}

type PartnerSummaryDTO struct {
	Partner       PartnerDTO         `json:"partner"`
	GrossVolume   decimal.Decimal    `json:"gross_volume"`
	ValueAtCost   decimal.Decimal    `json:"value_at_cost"`
	NetPaid       decimal.Decimal    `json:"net_paid"`
	Receivable    decimal.Decimal    `json:"receivable"`
	ConsumerSales decimal.Decimal    `json:"consumer_sales"`
	Inventory     []InventoryLineDTO `json:"inventory"`
}

type InventoryLineDTO struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Taken       int64  `json:"taken"`
	Remaining   int64  `json:"remaining"`
}

type SampleLineDTO struct {
	OrderID     string          `json:"order_id"`
	Date        string          `json:"date"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	Description string          `json:"description"`
	CostValue   decimal.Decimal `json:"cost_value"`
}

// SeedResponse summarizes what the demo seed created.
type SeedResponse struct {
	Products int `json:"products"`
	Partners int `json:"partners"`
	Orders   int `json:"orders"`
	Resales  int `json:"resales"`
	Samples  int `json:"samples"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func toProductDTO(p ledger.Product) ProductDTO {
	return ProductDTO{
		ID:           string(p.ID),
		Name:         p.Name,
		UnitPrice:    p.UnitPrice,
		StockOnHand:  p.StockOnHand,
		InitialStock: p.InitialStock,
		UnitsOut:     p.UnitsOut(),
		Active:       p.Active,
		CreatedAt:    formatTime(p.CreatedAt),
	}
}

func toProductDTOs(products []ledger.Product) []ProductDTO {
	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	return dtos
}

func toPartnerDTO(p ledger.Partner) PartnerDTO {
	return PartnerDTO{
		ID:             string(p.ID),
		FullName:       p.FullName,
		Tier:           string(p.Tier),
		CommissionRate: ledger.TierDiscountRate(p.Tier),
		IsVIP:          p.IsVIP,
		CreatedAt:      formatTime(p.CreatedAt),
	}
}

func toOrderDTO(o ledger.Order) OrderDTO {
	return OrderDTO{
		ID:              string(o.ID),
		PartnerID:       string(o.PartnerID),
		TotalReceivable: o.TotalReceivable,
		TotalCollected:  o.TotalCollected,
		NetValue:        o.NetValue(),
		PaymentStatus:   string(o.PaymentStatus),
		PaymentMethod:   string(o.PaymentMethod),
		IsSample:        o.IsSample,
		Description:     o.Description,
		CreatedAt:       formatTime(o.CreatedAt),
	}
}

func toOrderDTOs(orders []ledger.Order) []OrderDTO {
	dtos := make([]OrderDTO, len(orders))
	for i, o := range orders {
		dtos[i] = toOrderDTO(o)
	}
	return dtos
}

func toBatchDTO(b ledger.OrderBatch) BatchDTO {
	return BatchDTO{
		ID:                string(b.ID),
		OrderID:           string(b.OrderID),
		ProductID:         string(b.ProductID),
		QuantityOriginal:  b.QuantityOriginal,
		QuantityRemaining: b.QuantityRemaining,
		UnitValueAtTime:   b.UnitValueAtTime,
		Tier:              string(b.TierAtOrder),
		CreatedAt:         formatTime(b.CreatedAt),
	}
}

func toBatchDTOs(batches []ledger.OrderBatch) []BatchDTO {
	dtos := make([]BatchDTO, len(batches))
	for i, b := range batches {
		dtos[i] = toBatchDTO(b)
	}
	return dtos
}

func toResaleDTO(r ledger.ResaleReport) ResaleDTO {
	return ResaleDTO{
		ID:                  string(r.ID),
		PartnerID:           string(r.PartnerID),
		ProductID:           string(r.ProductID),
		QuantitySold:        r.QuantitySold,
		TotalSaleValue:      r.TotalSaleValue,
		SellingPricePerUnit: r.SellingPricePerUnit(),
		UnitCostBasis:       r.UnitCostBasis,
		CommissionPerUnit:   r.CommissionPerUnit,
		TotalCommission:     r.CommissionPerUnit.Mul(decimal.NewFromInt(r.QuantitySold)),
		BasePriceAtTime:     r.BasePriceAtTime,
		CommissionPaid:      r.CommissionPaid,
		CreatedAt:           formatTime(r.CreatedAt),
	}
}

func toConsumptionDTOs(cs []ledger.Consumption) []ConsumptionDTO {
	dtos := make([]ConsumptionDTO, len(cs))
	for i, c := range cs {
		dtos[i] = ConsumptionDTO{
			BatchID:   string(c.BatchID),
			OrderID:   string(c.OrderID),
			Quantity:  c.Quantity,
			UnitValue: c.UnitValue,
			Shifted:   c.Shifted,
		}
	}
	return dtos
}

func toEventDTO(e report.Event) EventDTO {
	dto := EventDTO{
		Kind:      string(e.Kind()),
		ID:        e.ID(),
		At:        formatTime(e.At()),
		PartnerID: string(e.Partner()),
	}
	switch ev := e.(type) {
	case *report.OrderEvent:
		order := toOrderDTO(ev.Order)
		dto.Order = &order
		dto.PartnerName = ev.PartnerName
		for _, l := range ev.Lines {
			dto.Lines = append(dto.Lines, LineDTO{
				BatchID:     string(l.BatchID),
				ProductID:   string(l.ProductID),
				ProductName: l.ProductName,
				Quantity:    l.Quantity,
				Remaining:   l.Remaining,
				UnitValue:   l.UnitValue,
				Tier:        string(l.Tier),
			})
		}
	case *report.ResaleEvent:
		resale := toResaleDTO(ev.Report)
		dto.Resale = &resale
		dto.PartnerName = ev.PartnerName
		dto.ProductName = ev.ProductName
	}
	return dto
}

func toPeriodDTO(p ledger.Period) PeriodDTO {
	return PeriodDTO{From: p.Start.Format(dateLayout), To: p.End.Format(dateLayout)}
}

func toDashboardDTO(s report.DashboardStats) DashboardDTO {
	return DashboardDTO{
		Period:       toPeriodDTO(s.Period),
		GrossOut:     s.GrossOut,
		CashIn:       s.CashIn,
		Receivables:  s.Receivables,
		PartnerSales: s.PartnerSales,
		SampleCost:   s.SampleCost,
		PartnerCount: s.PartnerCount,
		OrderCount:   s.OrderCount,
		ResaleCount:  s.ResaleCount,
	}
}

func toStockLineDTOs(lines []report.StockLine) []StockLineDTO {
	dtos := make([]StockLineDTO, len(lines))
	for i, l := range lines {
		dtos[i] = StockLineDTO{
			ProductID:    string(l.ProductID),
			Name:         l.Name,
			Active:       l.Active,
			InitialStock: l.InitialStock,
			UnitsOut:     l.UnitsOut,
			OnHand:       l.OnHand,
			Status:       string(l.Status),
		}
	}
	return dtos
}

func toPartnerSummaryDTOs(sums []report.PartnerSummary) []PartnerSummaryDTO {
	dtos := make([]PartnerSummaryDTO, len(sums))
	for i, s := range sums {
		inv := make([]InventoryLineDTO, len(s.Inventory))
		for j, l := range s.Inventory {
			inv[j] = InventoryLineDTO{
				ProductID:   string(l.ProductID),
				ProductName: l.ProductName,
				Taken:       l.Taken,
				Remaining:   l.Remaining,
			}
		}
		dtos[i] = PartnerSummaryDTO{
			Partner:       toPartnerDTO(s.Partner),
			GrossVolume:   s.GrossVolume,
			ValueAtCost:   s.ValueAtCost,
			NetPaid:       s.NetPaid,
			Receivable:    s.Receivable,
			ConsumerSales: s.ConsumerSales,
			Inventory:     inv,
		}
	}
	return dtos
}

func toSampleLineDTOs(lines []report.SampleLine) []SampleLineDTO {
	dtos := make([]SampleLineDTO, len(lines))
	for i, l := range lines {
		dtos[i] = SampleLineDTO{
			OrderID:     string(l.OrderID),
			Date:        l.Date.Format(dateLayout),
			ProductID:   string(l.ProductID),
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			Description: l.Description,
			CostValue:   l.CostValue,
		}
	}
	return dtos
}

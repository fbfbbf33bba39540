/*
resale.go - Resale reporting (FIFO consumption)

PURPOSE:
  When a partner reports selling units to end customers, the ledger has to
  decide which of the partner's open batches those units came from. Each
  batch carries its own locked unit value and payment method, so the
  choice decides both the cost basis and which receivables get collected.

ALGORITHM (one transaction):
  1. Open batches for (partner, product), oldest first by Seq.
  2. Fail with InsufficientPartnerStock if they hold fewer than qty sold.
  3. Walk them taking min(remaining, still needed) from each:
     - batch.remaining -= take
     - cost += take x unit value
     - credit order only: shift min(receivable, take x unit value) from
       receivable to collected; status follows the receivable
     - immediate orders were collected at intake; nothing moves
  4. Unit cost basis = cost / qty; commission/unit = sale/qty - basis.
  5. Insert the report with its consumption breakdown.

  Warehouse stock is not touched; it left at intake.

EXAMPLE:
  B1 (qty 10 @ 100), B2 (qty 5 @ 120), resale of 12:
    take 10 from B1, 2 from B2, basis = (1000 + 240) / 12 = 103.33
*/
package ledger

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ResaleInput struct {
	PartnerID      PartnerID
	ProductID      ProductID
	QuantitySold   int64
	TotalSaleValue decimal.Decimal
	Date           time.Time
}

type ResaleResult struct {
	Report       ResaleReport
	Consumptions []Consumption
	Orders       []Order // credit orders whose receivable moved, in walk order
}

func (s *Service) ReportResale(ctx context.Context, in ResaleInput) (ResaleResult, error) {
	fields := []zap.Field{
		zap.String("partner_id", string(in.PartnerID)),
		zap.String("product_id", string(in.ProductID)),
		zap.Int64("quantity", in.QuantitySold),
	}
	if in.QuantitySold < 1 {
		return ResaleResult{}, s.rejected("resale", fmt.Errorf("%w: resale of %d", ErrInvalidQuantity, in.QuantitySold), fields...)
	}
	if !in.TotalSaleValue.IsPositive() {
		return ResaleResult{}, s.rejected("resale", fmt.Errorf("%w: sale value %s", ErrInvalidAmount, in.TotalSaleValue), fields...)
	}

	var res ResaleResult
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetPartner(ctx, in.PartnerID); err != nil {
			return err
		}
		product, err := tx.GetProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}

		// 1-2. Open batches, oldest first, and enough of them.
		batches, err := tx.ListBatches(ctx, BatchFilter{
			PartnerID: in.PartnerID,
			ProductID: in.ProductID,
			OpenOnly:  true,
		})
		if err != nil {
			return err
		}
		var available int64
		for _, b := range batches {
			available += b.QuantityRemaining
		}
		if available < in.QuantitySold {
			return &InsufficientPartnerStockError{
				PartnerID: in.PartnerID,
				ProductID: in.ProductID,
				Requested: in.QuantitySold,
				Available: available,
			}
		}

		report := ResaleReport{
			ID:              ReportID(s.newID()),
			PartnerID:       in.PartnerID,
			ProductID:       in.ProductID,
			QuantitySold:    in.QuantitySold,
			TotalSaleValue:  in.TotalSaleValue,
			BasePriceAtTime: product.UnitPrice,
			CreatedAt:       s.stampAt(in.Date),
		}

		// 3. FIFO walk.
		orders := make(map[OrderID]*Order)
		var touched []OrderID
		cost := decimal.Zero
		needed := in.QuantitySold
		for _, b := range batches {
			if needed == 0 {
				break
			}
			take := min(b.QuantityRemaining, needed)
			b.QuantityRemaining -= take
			if err := tx.UpdateBatch(ctx, b); err != nil {
				return err
			}

			c := Consumption{
				ReportID:  report.ID,
				Position:  len(res.Consumptions),
				BatchID:   b.ID,
				OrderID:   b.OrderID,
				Quantity:  take,
				UnitValue: b.UnitValueAtTime,
				Shifted:   decimal.Zero,
			}
			cost = cost.Add(c.CostValue())

			order, ok := orders[b.OrderID]
			if !ok {
				o, err := tx.GetOrder(ctx, b.OrderID)
				if err != nil {
					return err
				}
				order = &o
				orders[b.OrderID] = order
			}
			if order.PaymentMethod.IsCredit() {
				c.Shifted = order.shift(c.CostValue())
				if c.Shifted.IsPositive() && !slices.Contains(touched, order.ID) {
					touched = append(touched, order.ID)
				}
			}

			res.Consumptions = append(res.Consumptions, c)
			needed -= take
		}

		// 4. Cost basis and commission.
		qty := decimal.NewFromInt(in.QuantitySold)
		report.UnitCostBasis = cost.Div(qty)
		report.CommissionPerUnit = in.TotalSaleValue.Div(qty).Sub(report.UnitCostBasis)

		// 5. Persist.
		for _, id := range touched {
			if err := tx.UpdateOrder(ctx, *orders[id]); err != nil {
				return err
			}
			res.Orders = append(res.Orders, *orders[id])
		}
		if err := tx.InsertResaleReport(ctx, report, res.Consumptions); err != nil {
			return err
		}
		res.Report = report
		return nil
	})
	if err != nil {
		return ResaleResult{}, s.rejected("resale", err, fields...)
	}

	s.log.Info("resale reported", append(fields,
		zap.String("report_id", string(res.Report.ID)),
		zap.Int("batches", len(res.Consumptions)),
		zap.Int("orders_shifted", len(res.Orders)),
		zap.String("unit_cost_basis", res.Report.UnitCostBasis.StringFixed(2)),
	)...)
	return res, nil
}

// MarkCommissionPaid flags a report's commission as settled with the partner.
func (s *Service) MarkCommissionPaid(ctx context.Context, id ReportID) (ResaleReport, error) {
	var r ResaleReport
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		if r, err = tx.GetResaleReport(ctx, id); err != nil {
			return err
		}
		r.CommissionPaid = true
		return tx.UpdateResaleReport(ctx, r)
	})
	return r, err
}

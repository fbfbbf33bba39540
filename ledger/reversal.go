/*
reversal.go - Undo of orders and resale reports

REVERSE ORDER:
  Returns every batch's original quantity to the warehouse and deletes the
  order with its batches. The partner's tier is not rolled back.
  Refused with OrderConsumed while any resale report still draws on the
  order's batches: those units left the partner, so returning them to the
  warehouse would count them twice. Reverse the reports first.

REVERSE RESALE REPORT:
  Replays the report's persisted consumption breakdown backwards: each
  (batch, quantity) pair goes back onto its batch, and on credit orders
  the exact amount that was shifted moves from collected back to
  receivable. This is an exact inverse of ReportResale, provided nothing
  else has moved collected on that order in between; the unshift is
  clamped so collected never goes negative.
*/
package ledger

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

type OrderReversal struct {
	Order    Order
	Batches  []OrderBatch
	Products []Product // stock after the return
}

func (s *Service) ReverseOrder(ctx context.Context, id OrderID) (OrderReversal, error) {
	return s.reverseOrder(ctx, "reverse order", id, false)
}

// ReverseSample is ReverseOrder restricted to samples. A partner order id
// is reported as a missing sample.
func (s *Service) ReverseSample(ctx context.Context, id OrderID) (OrderReversal, error) {
	return s.reverseOrder(ctx, "reverse sample", id, true)
}

func (s *Service) reverseOrder(ctx context.Context, op string, id OrderID, sampleOnly bool) (OrderReversal, error) {
	var rev OrderReversal
	err := s.store.WithTx(ctx, func(tx Tx) error {
		order, err := tx.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if sampleOnly && !order.IsSample {
			return notFound("sample", string(id))
		}
		consumed, err := tx.ListConsumptions(ctx, ConsumptionFilter{OrderID: id})
		if err != nil {
			return err
		}
		if len(consumed) > 0 {
			e := &OrderConsumedError{OrderID: id}
			for _, c := range consumed {
				if !slices.Contains(e.ReportIDs, c.ReportID) {
					e.ReportIDs = append(e.ReportIDs, c.ReportID)
				}
			}
			return e
		}

		batches, err := tx.ListBatches(ctx, BatchFilter{OrderID: id})
		if err != nil {
			return err
		}
		products := make(map[ProductID]*Product)
		var touchedProducts []ProductID
		for _, b := range batches {
			p, ok := products[b.ProductID]
			if !ok {
				loaded, err := tx.GetProduct(ctx, b.ProductID)
				if err != nil {
					return err
				}
				p = &loaded
				products[b.ProductID] = p
				touchedProducts = append(touchedProducts, b.ProductID)
			}
			p.StockOnHand += b.QuantityOriginal
		}
		for _, pid := range touchedProducts {
			if err := tx.PutProduct(ctx, *products[pid]); err != nil {
				return err
			}
			rev.Products = append(rev.Products, *products[pid])
		}
		if err := tx.DeleteOrder(ctx, id); err != nil {
			return err
		}
		rev.Order = order
		rev.Batches = batches
		return nil
	})
	if err != nil {
		return OrderReversal{}, s.rejected(op, err, zap.String("order_id", string(id)))
	}
	s.log.Info("order reversed",
		zap.String("order_id", string(id)),
		zap.Bool("sample", rev.Order.IsSample),
		zap.Int("batches", len(rev.Batches)))
	return rev, nil
}

type ResaleReversal struct {
	Report  ResaleReport
	Batches []OrderBatch // batches after the restore
	Orders  []Order      // credit orders whose receivable moved back
}

func (s *Service) ReverseResaleReport(ctx context.Context, id ReportID) (ResaleReversal, error) {
	var rev ResaleReversal
	err := s.store.WithTx(ctx, func(tx Tx) error {
		report, err := tx.GetResaleReport(ctx, id)
		if err != nil {
			return err
		}
		consumed, err := tx.ListConsumptions(ctx, ConsumptionFilter{ReportID: id})
		if err != nil {
			return err
		}

		orders := make(map[OrderID]*Order)
		var touched []OrderID
		for i := len(consumed) - 1; i >= 0; i-- {
			c := consumed[i]

			b, err := tx.GetBatch(ctx, c.BatchID)
			if err != nil {
				return err
			}
			if b.QuantityRemaining+c.Quantity > b.QuantityOriginal {
				return fmt.Errorf("%w: restoring %d to batch %s would exceed its original %d",
					ErrValidation, c.Quantity, b.ID, b.QuantityOriginal)
			}
			b.QuantityRemaining += c.Quantity
			if err := tx.UpdateBatch(ctx, b); err != nil {
				return err
			}
			rev.Batches = append(rev.Batches, b)

			if !c.Shifted.IsPositive() {
				continue
			}
			o, ok := orders[c.OrderID]
			if !ok {
				loaded, err := tx.GetOrder(ctx, c.OrderID)
				if err != nil {
					return err
				}
				o = &loaded
				orders[c.OrderID] = o
				touched = append(touched, c.OrderID)
			}
			o.unshift(c.Shifted)
		}
		for _, oid := range touched {
			if err := tx.UpdateOrder(ctx, *orders[oid]); err != nil {
				return err
			}
			rev.Orders = append(rev.Orders, *orders[oid])
		}
		if err := tx.DeleteResaleReport(ctx, id); err != nil {
			return err
		}
		rev.Report = report
		return nil
	})
	if err != nil {
		return ResaleReversal{}, s.rejected("reverse resale", err, zap.String("report_id", string(id)))
	}
	s.log.Info("resale reversed",
		zap.String("report_id", string(id)),
		zap.String("partner_id", string(rev.Report.PartnerID)),
		zap.Int64("quantity", rev.Report.QuantitySold))
	return rev, nil
}

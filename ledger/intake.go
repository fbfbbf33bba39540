/*
intake.go - Order intake

PURPOSE:
  PlaceOrder takes stock out of the warehouse and hands it to a partner.
  It re-rates the partner's tier on the new cumulative volume, prices the
  order at that tier's discount, and splits the value into collected or
  receivable depending on how the partner paid.

STEPS (one transaction):
  1. Validate quantity, payment method, partner, product, stock.
  2. Volume = sum of qty x base price over the partner's batches, plus this order.
  3. Tier = AdvanceTier(current, ComputeTier(volume, vip)).
  4. Unit value = price x (1 - discount(tier)); net = round(qty x unit value).
  5. QRIS/Transfer: collected = net. Piutang: receivable = net.
  6. Insert order + batch (tier and unit value locked on the batch).
  7. Stock on hand -= qty.

EXAMPLE:
  Price 10,000, stock 100, new partner orders 60 on credit:
    volume 600,000 -> Reseller (15%) -> unit value 8,500 -> net 510,000
    receivable 510,000, collected 0, Unpaid, stock 40
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PlaceOrderInput struct {
	PartnerID     PartnerID
	ProductID     ProductID
	Quantity      int64
	PaymentMethod PaymentMethod
	Date          time.Time // calendar day of the order; zero means now
}

type OrderResult struct {
	Order        Order
	Batch        OrderBatch
	PreviousTier Tier
	Tier         Tier
}

// TierChanged reports whether the order advanced the partner's tier.
func (r OrderResult) TierChanged() bool { return r.Tier != r.PreviousTier }

func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (OrderResult, error) {
	fields := []zap.Field{
		zap.String("partner_id", string(in.PartnerID)),
		zap.String("product_id", string(in.ProductID)),
		zap.Int64("quantity", in.Quantity),
		zap.String("payment_method", string(in.PaymentMethod)),
	}
	if in.Quantity < 1 {
		return OrderResult{}, s.rejected("order", fmt.Errorf("%w: order of %d", ErrInvalidQuantity, in.Quantity), fields...)
	}
	if !in.PaymentMethod.ValidForOrder() {
		return OrderResult{}, s.rejected("order", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, in.PaymentMethod), fields...)
	}

	var res OrderResult
	err := s.store.WithTx(ctx, func(tx Tx) error {
		partner, err := tx.GetPartner(ctx, in.PartnerID)
		if err != nil {
			return err
		}
		product, err := tx.GetProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if !product.Active {
			return &ProductInactiveError{ProductID: product.ID}
		}
		if product.StockOnHand < in.Quantity {
			return &InsufficientStockError{
				ProductID: product.ID,
				Requested: in.Quantity,
				Available: product.StockOnHand,
			}
		}

		// 1. Re-rate the partner on cumulative gross volume including this order.
		volume, err := partnerVolume(ctx, tx, partner.ID)
		if err != nil {
			return err
		}
		volume = volume.Add(product.UnitPrice.Mul(decimal.NewFromInt(in.Quantity)))
		res.PreviousTier = partner.Tier
		res.Tier = AdvanceTier(partner.Tier, ComputeTier(volume, partner.IsVIP))
		if res.Tier != partner.Tier {
			partner.Tier = res.Tier
			if err := tx.PutPartner(ctx, partner); err != nil {
				return err
			}
		}

		// 2-4. Price at the final tier and split by payment method.
		unitValue := DiscountedUnitValue(product.UnitPrice, res.Tier)
		net := unitValue.Mul(decimal.NewFromInt(in.Quantity)).Round(0)
		at := s.stampAt(in.Date)

		order := Order{
			ID:              OrderID(s.newID()),
			PartnerID:       partner.ID,
			TotalReceivable: decimal.Zero,
			TotalCollected:  decimal.Zero,
			PaymentMethod:   in.PaymentMethod,
			CreatedAt:       at,
		}
		if in.PaymentMethod.IsImmediate() {
			order.TotalCollected = net
		} else {
			order.TotalReceivable = net
		}
		order.PaymentStatus = StatusFor(order.TotalReceivable)
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		// 5. One batch per order line.
		batch, err := tx.InsertBatch(ctx, OrderBatch{
			ID:                BatchID(s.newID()),
			OrderID:           order.ID,
			PartnerID:         partner.ID,
			ProductID:         product.ID,
			QuantityOriginal:  in.Quantity,
			QuantityRemaining: in.Quantity,
			UnitValueAtTime:   unitValue,
			TierAtOrder:       res.Tier,
			PaymentMethod:     in.PaymentMethod,
			CreatedAt:         at,
		})
		if err != nil {
			return err
		}

		// 6. Stock leaves the warehouse.
		product.StockOnHand -= in.Quantity
		if err := tx.PutProduct(ctx, product); err != nil {
			return err
		}

		res.Order = order
		res.Batch = batch
		return nil
	})
	if err != nil {
		return OrderResult{}, s.rejected("order", err, fields...)
	}

	s.log.Info("order placed", append(fields,
		zap.String("order_id", string(res.Order.ID)),
		zap.String("tier", string(res.Tier)),
		zap.Bool("tier_changed", res.TierChanged()),
		zap.String("net_value", res.Order.NetValue().String()),
	)...)
	return res, nil
}

// partnerVolume sums quantity x current base price over every batch the
// partner has ever ordered.
func partnerVolume(ctx context.Context, r Reader, id PartnerID) (decimal.Decimal, error) {
	batches, err := r.ListBatches(ctx, BatchFilter{PartnerID: id})
	if err != nil {
		return decimal.Zero, err
	}
	prices := make(map[ProductID]decimal.Decimal)
	volume := decimal.Zero
	for _, b := range batches {
		price, ok := prices[b.ProductID]
		if !ok {
			p, err := r.GetProduct(ctx, b.ProductID)
			if err != nil {
				return decimal.Zero, err
			}
			price = p.UnitPrice
			prices[b.ProductID] = price
		}
		volume = volume.Add(price.Mul(decimal.NewFromInt(b.QuantityOriginal)))
	}
	return volume, nil
}

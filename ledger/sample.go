package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// SAMPLES - Zero-value stock movements for promotional giveaways
// =============================================================================
// A sample is recorded as an order without a partner: payment method SAMPLE,
// nothing receivable or collected, and a single batch with nothing left at a
// partner. It takes warehouse stock like an order does and is reversed with
// ReverseSample. Inactive products cannot be sampled. Samples never count toward tier volume or revenue.

type SampleInput struct {
	ProductID   ProductID
	Quantity    int64
	Description string
	Date        time.Time
}

type SampleResult struct {
	Order Order
	Batch OrderBatch
}

func (in SampleInput) validate() error {
	if in.Quantity < 1 {
		return fmt.Errorf("%w: sample of %d", ErrInvalidQuantity, in.Quantity)
	}
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: sample description is required", ErrValidation)
	}
	return nil
}

func (s *Service) PlaceSample(ctx context.Context, in SampleInput) (SampleResult, error) {
	fields := []zap.Field{
		zap.String("product_id", string(in.ProductID)),
		zap.Int64("quantity", in.Quantity),
	}
	if err := in.validate(); err != nil {
		return SampleResult{}, s.rejected("sample", err, fields...)
	}
	var res SampleResult
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		res, err = s.insertSample(ctx, tx, OrderID(s.newID()), in)
		return err
	})
	if err != nil {
		return SampleResult{}, s.rejected("sample", err, fields...)
	}
	s.log.Info("sample recorded", append(fields, zap.String("order_id", string(res.Order.ID)))...)
	return res, nil
}

// UpdateSample rewrites a sample in place: the old quantity goes back to
// stock, then the new quantity is taken, all in one transaction. The order
// id is kept.
func (s *Service) UpdateSample(ctx context.Context, id OrderID, in SampleInput) (SampleResult, error) {
	fields := []zap.Field{
		zap.String("order_id", string(id)),
		zap.String("product_id", string(in.ProductID)),
		zap.Int64("quantity", in.Quantity),
	}
	if err := in.validate(); err != nil {
		return SampleResult{}, s.rejected("update sample", err, fields...)
	}
	var res SampleResult
	err := s.store.WithTx(ctx, func(tx Tx) error {
		old, err := tx.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if !old.IsSample {
			return notFound("sample", string(id))
		}
		batches, err := tx.ListBatches(ctx, BatchFilter{OrderID: id})
		if err != nil {
			return err
		}
		for _, b := range batches {
			p, err := tx.GetProduct(ctx, b.ProductID)
			if err != nil {
				return err
			}
			p.StockOnHand += b.QuantityOriginal
			if err := tx.PutProduct(ctx, p); err != nil {
				return err
			}
		}
		if err := tx.DeleteOrder(ctx, id); err != nil {
			return err
		}
		res, err = s.insertSample(ctx, tx, id, in)
		return err
	})
	if err != nil {
		return SampleResult{}, s.rejected("update sample", err, fields...)
	}
	s.log.Info("sample updated", fields...)
	return res, nil
}

func (s *Service) insertSample(ctx context.Context, tx Tx, id OrderID, in SampleInput) (SampleResult, error) {
	product, err := tx.GetProduct(ctx, in.ProductID)
	if err != nil {
		return SampleResult{}, err
	}
	if !product.Active {
		return SampleResult{}, &ProductInactiveError{ProductID: product.ID}
	}
	if product.StockOnHand < in.Quantity {
		return SampleResult{}, &InsufficientStockError{
			ProductID: product.ID,
			Requested: in.Quantity,
			Available: product.StockOnHand,
		}
	}

	at := s.stampAt(in.Date)
	order := Order{
		ID:              id,
		TotalReceivable: decimal.Zero,
		TotalCollected:  decimal.Zero,
		PaymentStatus:   StatusPaid,
		PaymentMethod:   PaymentSample,
		IsSample:        true,
		Description:     strings.TrimSpace(in.Description),
		CreatedAt:       at,
	}
	if err := tx.InsertOrder(ctx, order); err != nil {
		return SampleResult{}, err
	}
	batch, err := tx.InsertBatch(ctx, OrderBatch{
		ID:                BatchID(s.newID()),
		OrderID:           id,
		ProductID:         product.ID,
		QuantityOriginal:  in.Quantity,
		QuantityRemaining: 0,
		UnitValueAtTime:   decimal.Zero,
		PaymentMethod:     PaymentSample,
		CreatedAt:         at,
	})
	if err != nil {
		return SampleResult{}, err
	}
	product.StockOnHand -= in.Quantity
	if err := tx.PutProduct(ctx, product); err != nil {
		return SampleResult{}, err
	}
	return SampleResult{Order: order, Batch: batch}, nil
}

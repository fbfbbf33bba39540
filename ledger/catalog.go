package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// PRODUCT CATALOG
// =============================================================================

type NewProduct struct {
	Name         string
	UnitPrice    decimal.Decimal
	InitialStock int64
}

func (s *Service) CreateProduct(ctx context.Context, in NewProduct) (Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Product{}, fmt.Errorf("%w: product name is required", ErrValidation)
	}
	if in.UnitPrice.IsNegative() {
		return Product{}, fmt.Errorf("%w: unit price %s", ErrInvalidAmount, in.UnitPrice)
	}
	if in.InitialStock < 0 {
		return Product{}, fmt.Errorf("%w: initial stock %d", ErrInvalidQuantity, in.InitialStock)
	}

	p := Product{
		ID:           ProductID(s.newID()),
		Name:         name,
		UnitPrice:    in.UnitPrice,
		StockOnHand:  in.InitialStock,
		InitialStock: in.InitialStock,
		Active:       true,
		CreatedAt:    s.now(),
	}
	if err := s.store.WithTx(ctx, func(tx Tx) error {
		return tx.PutProduct(ctx, p)
	}); err != nil {
		return Product{}, err
	}
	s.log.Info("product created", zap.String("product_id", string(p.ID)), zap.Int64("stock", p.StockOnHand))
	return p, nil
}

// UpdateProduct edits name and price. Stock only moves through restock,
// order intake and reversal.
func (s *Service) UpdateProduct(ctx context.Context, id ProductID, name string, price decimal.Decimal) (Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Product{}, fmt.Errorf("%w: product name is required", ErrValidation)
	}
	if price.IsNegative() {
		return Product{}, fmt.Errorf("%w: unit price %s", ErrInvalidAmount, price)
	}

	var p Product
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		if p, err = tx.GetProduct(ctx, id); err != nil {
			return err
		}
		p.Name = name
		p.UnitPrice = price
		return tx.PutProduct(ctx, p)
	})
	return p, err
}

// Restock adds units to the warehouse. Both StockOnHand and InitialStock
// rise, since InitialStock is the cumulative stock ever provisioned.
func (s *Service) Restock(ctx context.Context, id ProductID, addQty int64) (Product, error) {
	if addQty < 1 {
		return Product{}, s.rejected("restock", fmt.Errorf("%w: restock of %d", ErrInvalidQuantity, addQty),
			zap.String("product_id", string(id)))
	}

	var p Product
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		if p, err = tx.GetProduct(ctx, id); err != nil {
			return err
		}
		p.StockOnHand += addQty
		p.InitialStock += addQty
		return tx.PutProduct(ctx, p)
	})
	if err != nil {
		return Product{}, err
	}
	s.log.Info("product restocked",
		zap.String("product_id", string(id)),
		zap.Int64("quantity", addQty),
		zap.Int64("stock", p.StockOnHand))
	return p, nil
}

func (s *Service) SetProductActive(ctx context.Context, id ProductID, active bool) (Product, error) {
	var p Product
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		if p, err = tx.GetProduct(ctx, id); err != nil {
			return err
		}
		p.Active = active
		return tx.PutProduct(ctx, p)
	})
	return p, err
}

type DeleteOutcome string

const (
	DeletedHard DeleteOutcome = "deleted"
	DeletedSoft DeleteOutcome = "deactivated"
)

// DeleteProduct removes a product without order history. A product that
// appears on any batch is deactivated instead, so history stays readable.
func (s *Service) DeleteProduct(ctx context.Context, id ProductID) (DeleteOutcome, error) {
	var outcome DeleteOutcome
	err := s.store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		batches, err := tx.ListBatches(ctx, BatchFilter{ProductID: id})
		if err != nil {
			return err
		}
		reports, err := tx.ListResaleReports(ctx, ReportFilter{ProductID: id})
		if err != nil {
			return err
		}
		if len(batches) == 0 && len(reports) == 0 {
			outcome = DeletedHard
			return tx.DeleteProduct(ctx, id)
		}
		outcome = DeletedSoft
		p.Active = false
		return tx.PutProduct(ctx, p)
	})
	if err != nil {
		return "", err
	}
	s.log.Info("product removed", zap.String("product_id", string(id)), zap.String("outcome", string(outcome)))
	return outcome, nil
}

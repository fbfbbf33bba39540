package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/partner-ledger/ledger"
)

// SampleLine is one product line of a sample order.
type SampleLine struct {
	OrderID     ledger.OrderID
	Date        time.Time
	ProductID   ledger.ProductID
	ProductName string
	Quantity    int64
	Description string
	CostValue   decimal.Decimal // qty x current base price
}

// SampleHistory lists samples in the period, newest first.
func (r *Reporter) SampleHistory(ctx context.Context, period ledger.Period) ([]SampleLine, error) {
	var lines []SampleLine
	err := r.store.View(ctx, func(rd ledger.Reader) error {
		snap, err := load(ctx, rd, period)
		if err != nil {
			return err
		}
		lines = snap.sampleLines()
		return nil
	})
	return lines, err
}

func (s *snapshot) sampleLines() []SampleLine {
	var lines []SampleLine
	for i := len(s.orders) - 1; i >= 0; i-- {
		o := s.orders[i]
		if !o.IsSample {
			continue
		}
		for _, b := range s.batchesByOrder[o.ID] {
			lines = append(lines, SampleLine{
				OrderID:     o.ID,
				Date:        o.CreatedAt,
				ProductID:   b.ProductID,
				ProductName: s.productName(b.ProductID),
				Quantity:    b.QuantityOriginal,
				Description: o.Description,
				CostValue:   s.baseValue(b),
			})
		}
	}
	return lines
}

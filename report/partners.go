package report

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/partner-ledger/ledger"
)

// =============================================================================
// PARTNER SUMMARIES
// =============================================================================
// Stock and money a partner holds accumulate over time, so every order up to
// the end of the period counts. Consumer sales are the period's only.

type PartnerSummary struct {
	Partner       ledger.Partner
	GrossVolume   decimal.Decimal // qty x current base price
	ValueAtCost   decimal.Decimal // qty x unit value at order time
	NetPaid       decimal.Decimal // collected across the partner's orders
	Receivable    decimal.Decimal
	ConsumerSales decimal.Decimal // resale value reported in period
	Inventory     []InventoryLine
}

// InventoryLine is what a partner took of one product and still holds.
type InventoryLine struct {
	ProductID   ledger.ProductID
	ProductName string
	Taken       int64
	Remaining   int64
}

func (r *Reporter) PartnerSummaries(ctx context.Context, period ledger.Period) ([]PartnerSummary, error) {
	var out []PartnerSummary
	err := r.store.View(ctx, func(rd ledger.Reader) error {
		upToEnd := ledger.Period{End: period.End}
		snap, err := load(ctx, rd, upToEnd)
		if err != nil {
			return err
		}
		sales, err := rd.ListResaleReports(ctx, ledger.ReportFilter{Period: period})
		if err != nil {
			return err
		}

		byPartner := make(map[ledger.PartnerID]*PartnerSummary, len(snap.partnerList))
		for _, p := range snap.partnerList {
			out = append(out, PartnerSummary{
				Partner:       p,
				GrossVolume:   decimal.Zero,
				ValueAtCost:   decimal.Zero,
				NetPaid:       decimal.Zero,
				Receivable:    decimal.Zero,
				ConsumerSales: decimal.Zero,
			})
		}
		for i := range out {
			byPartner[out[i].Partner.ID] = &out[i]
		}

		for _, o := range snap.orders {
			sum, ok := byPartner[o.PartnerID]
			if o.IsSample || !ok {
				continue
			}
			sum.NetPaid = sum.NetPaid.Add(o.TotalCollected)
			sum.Receivable = sum.Receivable.Add(o.TotalReceivable)
			for _, b := range snap.batchesByOrder[o.ID] {
				qty := decimal.NewFromInt(b.QuantityOriginal)
				sum.GrossVolume = sum.GrossVolume.Add(snap.baseValue(b))
				sum.ValueAtCost = sum.ValueAtCost.Add(b.UnitValueAtTime.Mul(qty))
				sum.addInventory(b, snap.productName(b.ProductID))
			}
		}
		for _, rep := range sales {
			if sum, ok := byPartner[rep.PartnerID]; ok {
				sum.ConsumerSales = sum.ConsumerSales.Add(rep.TotalSaleValue)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PartnerSummary) addInventory(b ledger.OrderBatch, name string) {
	for i := range s.Inventory {
		if s.Inventory[i].ProductID == b.ProductID {
			s.Inventory[i].Taken += b.QuantityOriginal
			s.Inventory[i].Remaining += b.QuantityRemaining
			return
		}
	}
	s.Inventory = append(s.Inventory, InventoryLine{
		ProductID:   b.ProductID,
		ProductName: name,
		Taken:       b.QuantityOriginal,
		Remaining:   b.QuantityRemaining,
	})
}

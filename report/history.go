package report

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/partner-ledger/ledger"
)

// =============================================================================
// HISTORY - Combined order / resale feed
// =============================================================================

type EventKind string

const (
	EventOrder  EventKind = "order"
	EventResale EventKind = "resale"
)

// Event is one entry of the history feed: an *OrderEvent or a *ResaleEvent.
type Event interface {
	Kind() EventKind
	At() time.Time
	ID() string
	Partner() ledger.PartnerID
	isEvent()
}

type OrderEvent struct {
	Order       ledger.Order
	PartnerName string
	Lines       []OrderLine
}

type OrderLine struct {
	BatchID     ledger.BatchID
	ProductID   ledger.ProductID
	ProductName string
	Quantity    int64
	Remaining   int64
	UnitValue   decimal.Decimal
	Tier        ledger.Tier
}

type ResaleEvent struct {
	Report      ledger.ResaleReport
	PartnerName string
	ProductName string
}

func (e *OrderEvent) Kind() EventKind { return EventOrder }
func (e *OrderEvent) At() time.Time { return e.Order.CreatedAt }
func (e *OrderEvent) ID() string { return string(e.Order.ID) }
func (e *OrderEvent) Partner() ledger.PartnerID { return e.Order.PartnerID }
func (*OrderEvent) isEvent() {}

func (e *ResaleEvent) Kind() EventKind { return EventResale }
func (e *ResaleEvent) At() time.Time { return e.Report.CreatedAt }
func (e *ResaleEvent) ID() string { return string(e.Report.ID) }
func (e *ResaleEvent) Partner() ledger.PartnerID { return e.Report.PartnerID }
func (*ResaleEvent) isEvent() {}

// HistoryFilter narrows the feed. Zero fields don't filter. A Status keeps
// only orders with that payment status, since resales carry none.
type HistoryFilter struct {
	PartnerID ledger.PartnerID
	Status    ledger.PaymentStatus
	Search    string // case-insensitive substring of the partner name
	Period    ledger.Period
}

// History returns partner orders and resale reports, newest first.
// Samples are listed by SampleHistory instead.
func (r *Reporter) History(ctx context.Context, f HistoryFilter) ([]Event, error) {
	var events []Event
	err := r.store.View(ctx, func(rd ledger.Reader) error {
		snap, err := load(ctx, rd, f.Period)
		if err != nil {
			return err
		}
		search := strings.ToLower(strings.TrimSpace(f.Search))
		keep := func(id ledger.PartnerID) bool {
			if f.PartnerID != "" && id != f.PartnerID {
				return false
			}
			return search == "" || strings.Contains(strings.ToLower(snap.partnerName(id)), search)
		}

		for _, o := range snap.orders {
			if o.IsSample || !keep(o.PartnerID) {
				continue
			}
			if f.Status != "" && o.PaymentStatus != f.Status {
				continue
			}
			ev := &OrderEvent{Order: o, PartnerName: snap.partnerName(o.PartnerID)}
			for _, b := range snap.batchesByOrder[o.ID] {
				ev.Lines = append(ev.Lines, OrderLine{
					BatchID:     b.ID,
					ProductID:   b.ProductID,
					ProductName: snap.productName(b.ProductID),
					Quantity:    b.QuantityOriginal,
					Remaining:   b.QuantityRemaining,
					UnitValue:   b.UnitValueAtTime,
					Tier:        b.TierAtOrder,
				})
			}
			events = append(events, ev)
		}
		if f.Status == "" {
			for _, rep := range snap.reports {
				if !keep(rep.PartnerID) {
					continue
				}
				events = append(events, &ResaleEvent{
					Report:      rep,
					PartnerName: snap.partnerName(rep.PartnerID),
					ProductName: snap.productName(rep.ProductID),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(events, func(a, b Event) int {
		return cmp.Or(b.At().Compare(a.At()), strings.Compare(b.ID(), a.ID()))
	})
	return events, nil
}

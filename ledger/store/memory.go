// Package store provides an in-memory ledger.Store.
package store

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/warp/partner-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	state state
}

type state struct {
	products     map[ledger.ProductID]ledger.Product
	partners     map[ledger.PartnerID]ledger.Partner
	orders       map[ledger.OrderID]ledger.Order
	batches      map[ledger.BatchID]ledger.OrderBatch
	reports      map[ledger.ReportID]ledger.ResaleReport
	consumptions map[ledger.ReportID][]ledger.Consumption
	seq          int64
}

func NewMemory() *Memory {
	return &Memory{state: newState()}
}

func newState() state {
	return state{
		products:     make(map[ledger.ProductID]ledger.Product),
		partners:     make(map[ledger.PartnerID]ledger.Partner),
		orders:       make(map[ledger.OrderID]ledger.Order),
		batches:      make(map[ledger.BatchID]ledger.OrderBatch),
		reports:      make(map[ledger.ReportID]ledger.ResaleReport),
		consumptions: make(map[ledger.ReportID][]ledger.Consumption),
	}
}

// Reset drops all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = newState()
	return nil
}

// View runs fn under a read lock, so it sees no partial transaction.
func (m *Memory) View(_ context.Context, fn func(ledger.Reader) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&view{s: &m.state})
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&view{s: &m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (s *state) clone() state {
	c := state{
		products:     maps.Clone(s.products),
		partners:     maps.Clone(s.partners),
		orders:       maps.Clone(s.orders),
		batches:      maps.Clone(s.batches),
		reports:      maps.Clone(s.reports),
		consumptions: make(map[ledger.ReportID][]ledger.Consumption, len(s.consumptions)),
		seq:          s.seq,
	}
	for k, v := range s.consumptions {
		c.consumptions[k] = slices.Clone(v)
	}
	return c
}

// =============================================================================
// READS
// =============================================================================

type view struct {
	s *state
}

func missing(kind, id string) error { return &ledger.NotFoundError{Kind: kind, ID: id} }

func (v *view) GetProduct(_ context.Context, id ledger.ProductID) (ledger.Product, error) {
	p, ok := v.s.products[id]
	if !ok {
		return ledger.Product{}, missing("product", string(id))
	}
	return p, nil
}

func (v *view) ListProducts(_ context.Context) ([]ledger.Product, error) {
	out := slices.Collect(maps.Values(v.s.products))
	slices.SortFunc(out, func(a, b ledger.Product) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(string(a.ID), string(b.ID)))
	})
	return out, nil
}

func (v *view) GetPartner(_ context.Context, id ledger.PartnerID) (ledger.Partner, error) {
	p, ok := v.s.partners[id]
	if !ok {
		return ledger.Partner{}, missing("partner", string(id))
	}
	return p, nil
}

func (v *view) ListPartners(_ context.Context) ([]ledger.Partner, error) {
	out := slices.Collect(maps.Values(v.s.partners))
	slices.SortFunc(out, func(a, b ledger.Partner) int {
		return cmp.Or(strings.Compare(a.FullName, b.FullName), strings.Compare(string(a.ID), string(b.ID)))
	})
	return out, nil
}

func (v *view) GetOrder(_ context.Context, id ledger.OrderID) (ledger.Order, error) {
	o, ok := v.s.orders[id]
	if !ok {
		return ledger.Order{}, missing("order", string(id))
	}
	return o, nil
}

func (v *view) ListOrders(_ context.Context, f ledger.OrderFilter) ([]ledger.Order, error) {
	var out []ledger.Order
	for _, o := range v.s.orders {
		if f.PartnerID != "" && o.PartnerID != f.PartnerID {
			continue
		}
		if f.Kind == ledger.OrdersPartner && o.IsSample || f.Kind == ledger.OrdersSample && !o.IsSample {
			continue
		}
		if !f.Period.Contains(o.CreatedAt) {
			continue
		}
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b ledger.Order) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(string(a.ID), string(b.ID)))
	})
	return out, nil
}

func (v *view) GetBatch(_ context.Context, id ledger.BatchID) (ledger.OrderBatch, error) {
	b, ok := v.s.batches[id]
	if !ok {
		return ledger.OrderBatch{}, missing("batch", string(id))
	}
	return b, nil
}

func (v *view) ListBatches(_ context.Context, f ledger.BatchFilter) ([]ledger.OrderBatch, error) {
	var out []ledger.OrderBatch
	for _, b := range v.s.batches {
		switch {
		case f.OrderID != "" && b.OrderID != f.OrderID,
			f.PartnerID != "" && b.PartnerID != f.PartnerID,
			f.ProductID != "" && b.ProductID != f.ProductID,
			f.OpenOnly && b.QuantityRemaining <= 0:
			continue
		}
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b ledger.OrderBatch) int { return cmp.Compare(a.Seq, b.Seq) })
	return out, nil
}

func (v *view) GetResaleReport(_ context.Context, id ledger.ReportID) (ledger.ResaleReport, error) {
	r, ok := v.s.reports[id]
	if !ok {
		return ledger.ResaleReport{}, missing("resale report", string(id))
	}
	return r, nil
}

func (v *view) ListResaleReports(_ context.Context, f ledger.ReportFilter) ([]ledger.ResaleReport, error) {
	var out []ledger.ResaleReport
	for _, r := range v.s.reports {
		switch {
		case f.PartnerID != "" && r.PartnerID != f.PartnerID,
			f.ProductID != "" && r.ProductID != f.ProductID,
			!f.Period.Contains(r.CreatedAt):
			continue
		}
		out = append(out, r)
	}
	sortReports(out)
	return out, nil
}

func sortReports(rs []ledger.ResaleReport) {
	slices.SortFunc(rs, func(a, b ledger.ResaleReport) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(string(a.ID), string(b.ID)))
	})
}

func (v *view) ListConsumptions(_ context.Context, f ledger.ConsumptionFilter) ([]ledger.Consumption, error) {
	// Walk reports in their list order so the result is stable.
	reports := slices.Collect(maps.Values(v.s.reports))
	sortReports(reports)

	var out []ledger.Consumption
	for _, r := range reports {
		if f.ReportID != "" && r.ID != f.ReportID {
			continue
		}
		for _, c := range v.s.consumptions[r.ID] {
			if f.BatchID != "" && c.BatchID != f.BatchID || f.OrderID != "" && c.OrderID != f.OrderID {
				continue
			}
			out = append(out, c)
		}
	}
	return out, nil
}

// =============================================================================
// WRITES
// =============================================================================

func (v *view) PutProduct(_ context.Context, p ledger.Product) error {
	v.s.products[p.ID] = p
	return nil
}

func (v *view) DeleteProduct(_ context.Context, id ledger.ProductID) error {
	if _, ok := v.s.products[id]; !ok {
		return missing("product", string(id))
	}
	delete(v.s.products, id)
	return nil
}

func (v *view) PutPartner(_ context.Context, p ledger.Partner) error {
	v.s.partners[p.ID] = p
	return nil
}

func (v *view) DeletePartner(_ context.Context, id ledger.PartnerID) error {
	if _, ok := v.s.partners[id]; !ok {
		return missing("partner", string(id))
	}
	delete(v.s.partners, id)
	return nil
}

func (v *view) InsertOrder(_ context.Context, o ledger.Order) error {
	if _, ok := v.s.orders[o.ID]; ok {
		return fmt.Errorf("%w: order %s already exists", ledger.ErrValidation, o.ID)
	}
	v.s.orders[o.ID] = o
	return nil
}

func (v *view) UpdateOrder(_ context.Context, o ledger.Order) error {
	if _, ok := v.s.orders[o.ID]; !ok {
		return missing("order", string(o.ID))
	}
	v.s.orders[o.ID] = o
	return nil
}

func (v *view) DeleteOrder(_ context.Context, id ledger.OrderID) error {
	if _, ok := v.s.orders[id]; !ok {
		return missing("order", string(id))
	}
	for bid, b := range v.s.batches {
		if b.OrderID == id {
			delete(v.s.batches, bid)
		}
	}
	delete(v.s.orders, id)
	return nil
}

func (v *view) InsertBatch(_ context.Context, b ledger.OrderBatch) (ledger.OrderBatch, error) {
	if _, ok := v.s.orders[b.OrderID]; !ok {
		return ledger.OrderBatch{}, missing("order", string(b.OrderID))
	}
	if _, ok := v.s.batches[b.ID]; ok {
		return ledger.OrderBatch{}, fmt.Errorf("%w: batch %s already exists", ledger.ErrValidation, b.ID)
	}
	v.s.seq++
	b.Seq = v.s.seq
	v.s.batches[b.ID] = b
	return b, nil
}

func (v *view) UpdateBatch(_ context.Context, b ledger.OrderBatch) error {
	old, ok := v.s.batches[b.ID]
	if !ok {
		return missing("batch", string(b.ID))
	}
	if b.QuantityRemaining < 0 || b.QuantityRemaining > b.QuantityOriginal {
		return fmt.Errorf("%w: batch %s remaining %d outside [0, %d]",
			ledger.ErrValidation, b.ID, b.QuantityRemaining, b.QuantityOriginal)
	}
	b.Seq = old.Seq
	v.s.batches[b.ID] = b
	return nil
}

func (v *view) InsertResaleReport(_ context.Context, r ledger.ResaleReport, consumed []ledger.Consumption) error {
	if _, ok := v.s.reports[r.ID]; ok {
		return fmt.Errorf("%w: resale report %s already exists", ledger.ErrValidation, r.ID)
	}
	v.s.reports[r.ID] = r
	v.s.consumptions[r.ID] = slices.Clone(consumed)
	return nil
}

func (v *view) UpdateResaleReport(_ context.Context, r ledger.ResaleReport) error {
	if _, ok := v.s.reports[r.ID]; !ok {
		return missing("resale report", string(r.ID))
	}
	v.s.reports[r.ID] = r
	return nil
}

func (v *view) DeleteResaleReport(_ context.Context, id ledger.ReportID) error {
	if _, ok := v.s.reports[id]; !ok {
		return missing("resale report", string(id))
	}
	delete(v.s.reports, id)
	delete(v.s.consumptions, id)
	return nil
}

/*
export.go - Master report workbook (xlsx)

SHEETS (in order):
  Cash Summary       one row per partner order in the period, plus a total
  Partner Roster     partners active in the period with tier and commission
  Partner - <name>   one per active partner: batch rows with attributed sales
  Stock Audit        current warehouse position per product
  Sample History     samples in the period with their base-price cost

ATTRIBUTION:
  A batch's sales value comes from the persisted consumptions of the
  period's resale reports: consumed qty x the report's selling price per
  unit. Order money (collected / receivable) is shown on the first row of
  each order only, so sheet totals never double count.

SHEET NAMES:
  Excel caps names at 31 characters and forbids : \ / ? * [ ]. Partner
  names are cleaned and truncated; clashes get a numeric suffix.
*/
package report

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/warp/partner-ledger/ledger"
)

const (
	SheetCashSummary   = "Cash Summary"
	SheetPartnerRoster = "Partner Roster"
	SheetStockAudit    = "Stock Audit"
	SheetSampleHistory = "Sample History"
	partnerSheetPrefix = "Partner - "
	maxSheetName       = 31
)

type exportData struct {
	snap       *snapshot
	batchSales map[ledger.BatchID]decimal.Decimal
	stock      []StockLine
	samples    []SampleLine
	active     []ledger.PartnerID // partners with orders in period, by first order
}

// MasterReport builds the workbook for a period. The caller closes it.
func (r *Reporter) MasterReport(ctx context.Context, period ledger.Period) (*excelize.File, error) {
	var data exportData
	err := r.store.View(ctx, func(rd ledger.Reader) error {
		snap, err := load(ctx, rd, period)
		if err != nil {
			return err
		}
		consumed, err := rd.ListConsumptions(ctx, ledger.ConsumptionFilter{})
		if err != nil {
			return err
		}
		data = exportData{
			snap:       snap,
			batchSales: attributeSales(snap.reports, consumed),
			stock:      r.stockLines(snap.productList),
			samples:    snap.sampleLines(),
		}
		for _, o := range snap.orders {
			if o.IsSample || slices.Contains(data.active, o.PartnerID) {
				continue
			}
			data.active = append(data.active, o.PartnerID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	f, err := buildWorkbook(&data)
	if err != nil {
		return nil, fmt.Errorf("failed to build master report: %w", err)
	}
	r.log.Debug("master report built",
		zap.Int("orders", len(data.snap.orders)),
		zap.Int("partners", len(data.active)))
	return f, nil
}

// WriteMasterReport streams the workbook as xlsx.
func (r *Reporter) WriteMasterReport(ctx context.Context, period ledger.Period, w io.Writer) error {
	f, err := r.MasterReport(ctx, period)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func attributeSales(reports []ledger.ResaleReport, consumed []ledger.Consumption) map[ledger.BatchID]decimal.Decimal {
	price := make(map[ledger.ReportID]decimal.Decimal, len(reports))
	for _, rep := range reports {
		price[rep.ID] = rep.SellingPricePerUnit()
	}
	sales := make(map[ledger.BatchID]decimal.Decimal)
	for _, c := range consumed {
		p, ok := price[c.ReportID]
		if !ok {
			continue
		}
		sales[c.BatchID] = sales[c.BatchID].Add(p.Mul(decimal.NewFromInt(c.Quantity)))
	}
	return sales
}

// =============================================================================
// WORKBOOK
// =============================================================================

type styles struct {
	header int
	money  int
	total  int
}

func buildWorkbook(d *exportData) (*excelize.File, error) {
	f := excelize.NewFile()
	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetSheetName("Sheet1", SheetCashSummary); err != nil {
		f.Close()
		return nil, err
	}

	used := map[string]bool{sheetKey(SheetCashSummary): true}
	steps := []func() error{
		func() error { return cashSummary(f, st, d) },
		func() error { return partnerRoster(f, st, d, used) },
		func() error { return partnerSheets(f, st, d, used) },
		func() error { return stockAudit(f, st, d, used) },
		func() error { return sampleHistory(f, st, d, used) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func newStyles(f *excelize.File) (styles, error) {
	var (
		st  styles
		err error
	)
	if st.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"14532D"}},
	}); err != nil {
		return st, err
	}
	if st.money, err = f.NewStyle(&excelize.Style{NumFmt: 3}); err != nil {
		return st, err
	}
	st.total, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 3})
	return st, err
}

// sheet appends rows and remembers the first error, so builders can write
// row after row and check once.
type sheet struct {
	f    *excelize.File
	st   styles
	name string
	row  int
	err  error
}

func newSheet(f *excelize.File, st styles, name string, used map[string]bool) *sheet {
	used[sheetKey(name)] = true
	s := &sheet{f: f, st: st, name: name}
	_, s.err = f.NewSheet(name)
	return s
}

func (s *sheet) header(cols ...string) {
	values := make([]any, len(cols))
	for i, c := range cols {
		values[i] = c
	}
	s.put(values, s.st.header, s.st.header)
	if s.err == nil {
		last, _ := excelize.ColumnNumberToName(len(cols))
		s.err = s.f.SetColWidth(s.name, "A", last, 18)
	}
}

func (s *sheet) line(values ...any)  { s.put(values, 0, s.st.money) }
func (s *sheet) total(values ...any) { s.put(values, s.st.total, s.st.total) }

// put writes one row. Decimals become numbers with moneyStyle; other cells
// get plainStyle when it is set.
func (s *sheet) put(values []any, plainStyle, moneyStyle int) {
	if s.err != nil {
		return
	}
	s.row++
	cells := make([]any, len(values))
	for i, v := range values {
		if d, ok := v.(decimal.Decimal); ok {
			cells[i] = d.Round(2).InexactFloat64()
		} else {
			cells[i] = v
		}
	}
	start, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		s.err = err
		return
	}
	if s.err = s.f.SetSheetRow(s.name, start, &cells); s.err != nil {
		return
	}
	for i, v := range values {
		style := plainStyle
		if _, ok := v.(decimal.Decimal); ok {
			style = moneyStyle
		}
		if style == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, s.row)
		if s.err = s.f.SetCellStyle(s.name, cell, cell, style); s.err != nil {
			return
		}
	}
}

const dateLayout = "2006-01-02"

func cashSummary(f *excelize.File, st styles, d *exportData) error {
	s := &sheet{f: f, st: st, name: SheetCashSummary}
	s.header("No", "Date", "Partner", "Method", "Status", "Collected", "Receivable")
	collected, receivable := decimal.Zero, decimal.Zero
	n := 0
	for _, o := range d.snap.orders {
		if o.IsSample {
			continue
		}
		n++
		s.line(n, o.CreatedAt.Format(dateLayout), d.snap.partnerName(o.PartnerID),
			string(o.PaymentMethod), string(o.PaymentStatus), o.TotalCollected, o.TotalReceivable)
		collected = collected.Add(o.TotalCollected)
		receivable = receivable.Add(o.TotalReceivable)
	}
	s.total("", "", "TOTAL", "", "", collected, receivable)
	return s.err
}

func partnerRoster(f *excelize.File, st styles, d *exportData, used map[string]bool) error {
	s := newSheet(f, st, SheetPartnerRoster, used)
	s.header("No", "Partner", "Tier", "Commission Rate", "VIP")
	for i, id := range d.active {
		p := d.snap.partners[id]
		vip := "No"
		if p.IsVIP {
			vip = "Yes"
		}
		rate := ledger.TierDiscountRate(p.Tier).Shift(2).String() + "%"
		s.line(i+1, p.FullName, string(p.Tier), rate, vip)
	}
	return s.err
}

func partnerSheets(f *excelize.File, st styles, d *exportData, used map[string]bool) error {
	for _, id := range d.active {
		name := uniqueSheetName(partnerSheetPrefix+d.snap.partnerName(id), used)
		s := newSheet(f, st, name, used)
		s.header("No", "Date", "Product", "Qty Taken", "On Hand", "Sales Value", "Collected", "Receivable")

		sales, collected, receivable := decimal.Zero, decimal.Zero, decimal.Zero
		n := 0
		for _, o := range d.snap.orders {
			if o.IsSample || o.PartnerID != id {
				continue
			}
			for i, b := range d.snap.batchesByOrder[o.ID] {
				orderCollected, orderReceivable := decimal.Zero, decimal.Zero
				if i == 0 {
					orderCollected, orderReceivable = o.TotalCollected, o.TotalReceivable
				}
				sold := d.batchSales[b.ID]
				n++
				s.line(n, o.CreatedAt.Format(dateLayout), d.snap.productName(b.ProductID),
					b.QuantityOriginal, b.QuantityRemaining, sold, orderCollected, orderReceivable)
				sales = sales.Add(sold)
				collected = collected.Add(orderCollected)
				receivable = receivable.Add(orderReceivable)
			}
		}
		s.total("", "TOTAL", "", "", "", sales, collected, receivable)
		if s.err != nil {
			return s.err
		}
	}
	return nil
}

func stockAudit(f *excelize.File, st styles, d *exportData, used map[string]bool) error {
	s := newSheet(f, st, SheetStockAudit, used)
	s.header("Product", "Initial Stock", "Units Out", "On Hand", "Status")
	for _, l := range d.stock {
		s.line(l.Name, l.InitialStock, l.UnitsOut, l.OnHand, string(l.Status))
	}
	return s.err
}

func sampleHistory(f *excelize.File, st styles, d *exportData, used map[string]bool) error {
	s := newSheet(f, st, SheetSampleHistory, used)
	s.header("No", "Date", "Product", "Qty", "Description", "Cost Value")
	cost := decimal.Zero
	for i, l := range d.samples {
		s.line(i+1, l.Date.Format(dateLayout), l.ProductName, l.Quantity, l.Description, l.CostValue)
		cost = cost.Add(l.CostValue)
	}
	s.total("", "TOTAL", "", "", "", cost)
	return s.err
}

// sheetKey is the key a sheet name occupies in used. Excel compares sheet
// names case-insensitively.
func sheetKey(name string) string { return strings.ToLower(name) }

// uniqueSheetName cleans name into a valid sheet name not yet in used.
func uniqueSheetName(name string, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '-'
		}
		return r
	}, name)
	name = strings.Trim(truncateRunes(name, maxSheetName), "'")
	if !used[sheetKey(name)] {
		return name
	}
	for i := 2; ; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		candidate := truncateRunes(name, maxSheetName-len(suffix)) + suffix
		if !used[sheetKey(candidate)] {
			return candidate
		}
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

package api

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/warp/partner-ledger/ledger"
	"github.com/warp/partner-ledger/report"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
	xlsxType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// =============================================================================
// HISTORY
// =============================================================================

// History returns one page of the order / resale feed, newest first.
//
// Query: partner_id, status (Paid|Unpaid), q (partner name), from, to,
// page (1-based), per_page (default 10, max 100). Without from/to the
// feed covers all time.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := report.HistoryFilter{
		PartnerID: ledger.PartnerID(q.Get("partner_id")),
		Search:    q.Get("q"),
	}
	switch status := ledger.PaymentStatus(q.Get("status")); status {
	case "", ledger.StatusPaid, ledger.StatusUnpaid:
		filter.Status = status
	default:
		h.fail(w, r, "Invalid history filter", fmt.Errorf("%w: unknown status %q", errBadRequest, status))
		return
	}
	if q.Get("from") != "" || q.Get("to") != "" {
		p, err := h.period(r)
		if err != nil {
			h.fail(w, r, "Invalid history filter", err)
			return
		}
		filter.Period = p
	}
	page, err := intParam(r, "page", 1, 0)
	if err != nil {
		h.fail(w, r, "Invalid history filter", err)
		return
	}
	perPage, err := intParam(r, "per_page", defaultPerPage, maxPerPage)
	if err != nil {
		h.fail(w, r, "Invalid history filter", err)
		return
	}

	events, err := h.reports.History(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to load history", err)
		return
	}

	resp := HistoryPage{
		Items:      []EventDTO{},
		Page:       page,
		PerPage:    perPage,
		Total:      len(events),
		TotalPages: (len(events) + perPage - 1) / perPage,
	}
	// Pages past the end are empty. Comparing page numbers first keeps
	// the offset from overflowing.
	if page <= resp.TotalPages {
		start := (page - 1) * perPage
		for i := start; i < len(events) && i < start+perPage; i++ {
			resp.Items = append(resp.Items, toEventDTO(events[i]))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// REPORTS
// =============================================================================

// Dashboard returns money and activity totals for a period.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	period, err := h.period(r)
	if err != nil {
		h.fail(w, r, "Invalid period", err)
		return
	}
	stats, err := h.reports.Dashboard(r.Context(), period)
	if err != nil {
		h.fail(w, r, "Failed to compute dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(stats))
}

// StockAudit returns the warehouse position of every product.
func (h *Handler) StockAudit(w http.ResponseWriter, r *http.Request) {
	lines, err := h.reports.StockAudit(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to compute stock audit", err)
		return
	}
	writeJSON(w, http.StatusOK, toStockLineDTOs(lines))
}

// PartnerSummaries returns per-partner volume, money and inventory.
func (h *Handler) PartnerSummaries(w http.ResponseWriter, r *http.Request) {
	period, err := h.period(r)
	if err != nil {
		h.fail(w, r, "Invalid period", err)
		return
	}
	sums, err := h.reports.PartnerSummaries(r.Context(), period)
	if err != nil {
		h.fail(w, r, "Failed to compute partner summaries", err)
		return
	}
	writeJSON(w, http.StatusOK, toPartnerSummaryDTOs(sums))
}

// ListSamples returns the period's samples, newest first.
func (h *Handler) ListSamples(w http.ResponseWriter, r *http.Request) {
	period, err := h.period(r)
	if err != nil {
		h.fail(w, r, "Invalid period", err)
		return
	}
	lines, err := h.reports.SampleHistory(r.Context(), period)
	if err != nil {
		h.fail(w, r, "Failed to list samples", err)
		return
	}
	writeJSON(w, http.StatusOK, toSampleLineDTOs(lines))
}

// ExportMasterReport streams the period's master workbook as xlsx.
func (h *Handler) ExportMasterReport(w http.ResponseWriter, r *http.Request) {
	period, err := h.period(r)
	if err != nil {
		h.fail(w, r, "Invalid period", err)
		return
	}

	// Build before writing headers so failures still get a JSON error.
	f, err := h.reports.MasterReport(r.Context(), period)
	if err != nil {
		h.fail(w, r, "Failed to build master report", err)
		return
	}
	defer f.Close()

	name := fmt.Sprintf("master-report_%s_%s.xlsx",
		period.Start.Format(dateLayout), period.End.Format(dateLayout))
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		h.log.Error("master report write failed", zap.Error(err))
	}
}

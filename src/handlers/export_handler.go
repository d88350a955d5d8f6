package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/username/tradeledger/backend/src/logger"
	"github.com/username/tradeledger/backend/src/models"
	"github.com/username/tradeledger/backend/src/reports"
	"github.com/username/tradeledger/backend/src/services"
	"github.com/username/tradeledger/backend/src/utils"
)

type ExportHandler struct {
	ledgerService services.LedgerService
	now           func() time.Time
}

func NewExportHandler(service services.LedgerService) *ExportHandler {
	return &ExportHandler{ledgerService: service, now: time.Now}
}

// HandleExportOperationsCSV streams the whole ledger, or the from/to window, as CSV.
func (h *ExportHandler) HandleExportOperationsCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := operationFilterFromQuery(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ops, err := h.ledgerService.Operations(r.Context(), filter)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := reports.WriteOperationsCSV(&buf, ops); err != nil {
		sendServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="operations.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.FromContext(r.Context()).Error("Failed to write CSV export", "error", err)
	}
}

// HandleOperationsReportPDF renders the summary, operations and tax pages for the period.
func (h *ExportHandler) HandleOperationsReportPDF(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	filter, err := operationFilterFromQuery(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := reports.ReportData{GeneratedAt: h.now()}
	if filter.From != nil {
		data.PeriodFrom = filter.From.Format(models.DateFormat)
	}
	if filter.To != nil {
		data.PeriodTo = filter.To.Format(models.DateFormat)
	}
	if data.Summary, err = h.ledgerService.Summary(r.Context()); err != nil {
		sendServiceError(w, r, err)
		return
	}
	if data.Operations, err = h.ledgerService.Operations(r.Context(), filter); err != nil {
		sendServiceError(w, r, err)
		return
	}
	if data.Tax, err = h.ledgerService.TaxSummary(r.Context(), filter); err != nil {
		sendServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := reports.RenderPDF(&buf, data); err != nil {
		sendServiceError(w, r, err)
		return
	}

	filename := fmt.Sprintf("report-%s.pdf", data.GeneratedAt.Format("20060102"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Error("Failed to write PDF report", "error", err)
		return
	}
	log.Info("PDF report generated", "operations", len(data.Operations), "bytes", buf.Len())
}

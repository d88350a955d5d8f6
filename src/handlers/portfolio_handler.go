package handlers

import (
	"net/http"

	"github.com/username/tradeledger/backend/src/logger"
	"github.com/username/tradeledger/backend/src/models"
	"github.com/username/tradeledger/backend/src/services"
	"github.com/username/tradeledger/backend/src/utils"
)

type PortfolioHandler struct {
	ledgerService services.LedgerService
}

func NewPortfolioHandler(service services.LedgerService) *PortfolioHandler {
	return &PortfolioHandler{ledgerService: service}
}

func (h *PortfolioHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ledgerService.Summary(r.Context())
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.WriteWithETag(w, r, summary)
}

type taxSummaryResponse struct {
	Summary models.TaxSummary            `json:"summary"`
	Monthly map[string]models.TaxSummary `json:"monthly,omitempty"`
}

// HandleGetTaxSummary applies the swing-trade rule over the selected period.
// monthly=true adds the per-month breakdown keyed by YYYY-MM.
func (h *PortfolioHandler) HandleGetTaxSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := operationFilterFromQuery(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var resp taxSummaryResponse
	resp.Summary, err = h.ledgerService.TaxSummary(r.Context(), filter)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	if boolQuery(r, "monthly") {
		resp.Monthly, err = h.ledgerService.MonthlyTaxSummary(r.Context(), filter)
		if err != nil {
			sendServiceError(w, r, err)
			return
		}
	}
	utils.WriteWithETag(w, r, resp)
}

func (h *PortfolioHandler) HandleGetStockSales(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledgerService.StockSales(r.Context())
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	if len(result.Unmatched) > 0 {
		logger.FromContext(r.Context()).Warn("Sales without matching purchases", "count", len(result.Unmatched))
	}
	utils.WriteWithETag(w, r, result)
}

// HandleGetAssetSummary groups the operations of the from/to window by asset.
func (h *PortfolioHandler) HandleGetAssetSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := operationFilterFromQuery(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	summaries, err := h.ledgerService.AssetSummary(r.Context(), filter)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.WriteWithETag(w, r, summaries)
}

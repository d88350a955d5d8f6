package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/username/tradeledger/backend/src/logger"
	"github.com/username/tradeledger/backend/src/models"
	"github.com/username/tradeledger/backend/src/security/validation"
	"github.com/username/tradeledger/backend/src/services"
	"github.com/username/tradeledger/backend/src/utils"
)

type TransactionHandler struct {
	ledgerService services.LedgerService
}

func NewTransactionHandler(service services.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledgerService: service}
}

// manualOperationRequest is the body of POST /api/operations.
type manualOperationRequest struct {
	AssetCode  string          `json:"asset_code"`
	Kind       string          `json:"kind"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Date       string          `json:"date"`
	Fee        decimal.Decimal `json:"fee"`
	Value      decimal.Decimal `json:"value"`
	SellPrice  decimal.Decimal `json:"sell_price"`
	BuyPrice   decimal.Decimal `json:"buy_price"`
	Broker     string          `json:"broker"`
	NoteNumber string          `json:"note_number"`
}

func (req manualOperationRequest) toOperation() (models.Operation, error) {
	kind, err := models.ParseOperationKind(req.Kind)
	if err != nil {
		return models.Operation{}, err
	}
	date, err := validation.ValidateDateString(req.Date, "date")
	if err != nil {
		return models.Operation{}, err
	}
	code := validation.SanitizeAssetCode(req.AssetCode)
	if err := validation.ValidateAssetCode(code); err != nil {
		return models.Operation{}, err
	}
	return models.Operation{
		AssetCode:  code,
		Kind:       kind,
		Quantity:   req.Quantity,
		Price:      req.Price,
		Date:       date,
		Fee:        req.Fee,
		Value:      req.Value,
		SellPrice:  req.SellPrice,
		BuyPrice:   req.BuyPrice,
		Broker:     validation.SanitizeText(req.Broker),
		NoteNumber: validation.SanitizeText(req.NoteNumber),
	}, nil
}

// HandleListOperations returns the ledger, optionally bounded by from/to and newest first.
func (h *TransactionHandler) HandleListOperations(w http.ResponseWriter, r *http.Request) {
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

	views := make([]models.OperationView, 0, len(ops))
	for _, op := range ops {
		views = append(views, op.View())
	}
	logger.FromContext(r.Context()).Debug("Listing operations", "count", len(views), "newestFirst", filter.NewestFirst)
	utils.WriteWithETag(w, r, views)
}

// HandleRegisterOperation records one manually entered operation.
func (h *TransactionHandler) HandleRegisterOperation(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req manualOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("Invalid operation payload", "error", err)
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	op, err := req.toOperation()
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.ledgerService.RegisterOperation(r.Context(), op); err != nil {
		sendServiceError(w, r, err)
		return
	}

	log.Info("Manual operation registered", "asset", op.AssetCode, "kind", op.Kind, "quantity", op.Quantity)
	utils.SendJSON(w, op.View(), http.StatusCreated)
}

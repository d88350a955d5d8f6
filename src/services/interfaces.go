package services

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/tradeledger/backend/src/models"
)

// RegistrationResult reports the outcome of registering one extracted operation.
type RegistrationResult struct {
	Index      int                  `json:"index"`
	AssetCode  string               `json:"asset_code"`
	Kind       models.OperationKind `json:"kind"`
	Quantity   int                  `json:"quantity"`
	Registered bool                 `json:"registered"`
	Error      string               `json:"error,omitempty"`
}

// NoteUploadResult is returned for one uploaded note.
type NoteUploadResult struct {
	Broker     models.Broker          `json:"broker"`
	NoteNumber string                 `json:"note_number,omitempty"`
	TradeDate  string                 `json:"trade_date,omitempty"`
	Operations []models.OperationView `json:"operations"`
	Fees       []models.FeeDetail     `json:"fees"`
	TotalFees  decimal.Decimal        `json:"total_fees"`
	Atomic     bool                   `json:"atomic"`
	Results    []RegistrationResult   `json:"results"`
	Registered int                    `json:"registered"`
	Failed     int                    `json:"failed"`
}

// OperationFilter selects operations by trade date. Nil bounds are open.
type OperationFilter struct {
	From        *time.Time
	To          *time.Time
	NewestFirst bool
}

// CacheInvalidator drops cached aggregates after the ledger changes.
type CacheInvalidator interface {
	InvalidateCache()
}

// NoteService runs the note pipeline: broker check, text extraction, rule dispatch, persistence.
type NoteService interface {
	ProcessNote(ctx context.Context, pdf io.Reader, broker string) (*models.Note, error)
	SaveNote(ctx context.Context, note *models.Note) error
	RegisterNote(ctx context.Context, note *models.Note) []RegistrationResult
	UploadNote(ctx context.Context, pdf io.Reader, broker string, atomic bool) (*NoteUploadResult, error)
}

// LedgerService exposes the ledger queries and cached aggregates to handlers.
type LedgerService interface {
	RegisterOperation(ctx context.Context, op models.Operation) error
	Operations(ctx context.Context, filter OperationFilter) ([]models.Operation, error)
	Summary(ctx context.Context) (models.LedgerSummary, error)
	TaxSummary(ctx context.Context, filter OperationFilter) (models.TaxSummary, error)
	MonthlyTaxSummary(ctx context.Context, filter OperationFilter) (map[string]models.TaxSummary, error)
	StockSales(ctx context.Context) (models.LotMatchResult, error)
	AssetSummary(ctx context.Context, filter OperationFilter) ([]models.AssetSummary, error)
	CacheInvalidator
}

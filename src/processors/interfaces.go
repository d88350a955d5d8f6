package processors

import (
	"context"

	"github.com/username/tradeledger/backend/src/models"
)

// TaxProcessor applies the swing-trade tax rule.
type TaxProcessor interface {
	Calculate(operations []models.Operation) models.TaxSummary
	// CalculateMonthly applies the rule per calendar month, keyed YYYY-MM.
	CalculateMonthly(operations []models.Operation) map[string]models.TaxSummary
}

// StockProcessor matches sells against earlier buys of the same asset.
type StockProcessor interface {
	Process(ctx context.Context, operations []models.Operation) models.LotMatchResult
}

// FeeProcessor flattens the fee table of a note.
type FeeProcessor interface {
	Process(note *models.Note) []models.FeeDetail
}

// AssetProcessor builds the per-asset summary of a set of operations.
type AssetProcessor interface {
	Summarize(operations []models.Operation) []models.AssetSummary
}

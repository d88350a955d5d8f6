package processors

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/username/tradeledger/backend/src/models"
)

type assetProcessorImpl struct{}

func NewAssetProcessor() AssetProcessor {
	return &assetProcessorImpl{}
}

// Summarize groups operations by asset code. Buys and sells are added alike, so quantity and
// value are gross movement, not position.
func (p *assetProcessorImpl) Summarize(operations []models.Operation) []models.AssetSummary {
	byCode := make(map[string]*models.AssetSummary)
	priceSums := make(map[string]decimal.Decimal)

	for _, op := range operations {
		s, ok := byCode[op.AssetCode]
		if !ok {
			s = &models.AssetSummary{AssetCode: op.AssetCode, TotalValue: decimal.Zero}
			byCode[op.AssetCode] = s
		}
		s.Operations++
		s.TotalQuantity += op.Quantity
		s.TotalValue = s.TotalValue.Add(op.Value)
		priceSums[op.AssetCode] = priceSums[op.AssetCode].Add(op.Price)
	}

	summaries := make([]models.AssetSummary, 0, len(byCode))
	for code, s := range byCode {
		s.AveragePrice = priceSums[code].Div(decimal.NewFromInt(int64(s.Operations)))
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].AssetCode < summaries[j].AssetCode })
	return summaries
}

package processors

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/username/tradeledger/backend/src/logger"
	"github.com/username/tradeledger/backend/src/models"
)

type stockProcessorImpl struct{}

func NewStockProcessor() StockProcessor {
	return &stockProcessorImpl{}
}

type openLot struct {
	date     string
	quantity int
	price    decimal.Decimal
}

// Process matches sells to buys first-in first-out per asset code. Operations on the same
// date keep their ledger order.
func (p *stockProcessorImpl) Process(ctx context.Context, operations []models.Operation) models.LotMatchResult {
	result := models.LotMatchResult{
		Sales:     []models.SaleDetail{},
		Holdings:  make(map[string][]models.PurchaseLot),
		Unmatched: []models.UnmatchedSale{},
	}

	byCode, codes := groupByAsset(operations)
	for _, code := range codes {
		ops := byCode[code]
		sort.SliceStable(ops, func(i, j int) bool { return ops[i].Date.Before(ops[j].Date) })

		var lots []*openLot
		for _, op := range ops {
			switch op.Kind {
			case models.Buy:
				lots = append(lots, &openLot{date: op.DateString(), quantity: op.Quantity, price: op.Price})
			case models.Sell:
				remaining := op.Quantity
				for remaining > 0 && len(lots) > 0 {
					lot := lots[0]
					matched := min(remaining, lot.quantity)
					qty := decimal.NewFromInt(int64(matched))

					result.Sales = append(result.Sales, models.SaleDetail{
						AssetCode: code,
						SaleDate:  op.DateString(),
						BuyDate:   lot.date,
						Quantity:  matched,
						SalePrice: op.Price,
						BuyPrice:  lot.price,
						SaleFee:   op.Fee.Mul(qty).Div(decimal.NewFromInt(int64(op.Quantity))),
						Delta:     op.Price.Sub(lot.price).Mul(qty),
					})

					remaining -= matched
					lot.quantity -= matched
					if lot.quantity == 0 {
						lots = lots[1:]
					}
				}
				if remaining > 0 {
					logger.FromContext(ctx).Warn("Sell exceeds open position", "asset", code, "date", op.DateString(), "unmatched", remaining)
					result.Unmatched = append(result.Unmatched, models.UnmatchedSale{
						AssetCode: code,
						SaleDate:  op.DateString(),
						Quantity:  remaining,
					})
				}
			}
		}

		for _, lot := range lots {
			result.Holdings[code] = append(result.Holdings[code], models.PurchaseLot{
				AssetCode: code,
				BuyDate:   lot.date,
				Quantity:  lot.quantity,
				BuyPrice:  lot.price,
			})
		}
	}
	return result
}

// groupByAsset keeps first-seen order of codes so results are deterministic.
func groupByAsset(operations []models.Operation) (map[string][]models.Operation, []string) {
	grouped := make(map[string][]models.Operation)
	var codes []string
	for _, op := range operations {
		if op.AssetCode == "" {
			continue
		}
		if _, seen := grouped[op.AssetCode]; !seen {
			codes = append(codes, op.AssetCode)
		}
		grouped[op.AssetCode] = append(grouped[op.AssetCode], op)
	}
	return grouped, codes
}

package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/tradeledger/backend/src/config"
	"github.com/username/tradeledger/backend/src/models"
)

type taxProcessorImpl struct {
	cfg config.TaxConfig
}

func NewTaxProcessor(cfg config.TaxConfig) TaxProcessor {
	return &taxProcessorImpl{cfg: cfg}
}

// Calculate sums gross values by side. Tax is owed on the net result only when total sells
// exceed the exemption threshold; a loss yields a negative amount, which is kept as is.
func (p *taxProcessorImpl) Calculate(operations []models.Operation) models.TaxSummary {
	sells, buys := decimal.Zero, decimal.Zero
	for _, op := range operations {
		switch op.Kind {
		case models.Sell:
			sells = sells.Add(op.Value)
		case models.Buy:
			buys = buys.Add(op.Value)
		}
	}

	net := sells.Sub(buys)
	summary := models.TaxSummary{
		TotalSells: sells,
		TotalBuys:  buys,
		NetResult:  net,
		TaxOwed:    decimal.Zero,
		Exempt:     sells.LessThanOrEqual(p.cfg.SwingTradeExemption),
	}
	if !summary.Exempt {
		summary.TaxOwed = net.Mul(p.cfg.SwingTradeRate)
	}
	return summary
}

func (p *taxProcessorImpl) CalculateMonthly(operations []models.Operation) map[string]models.TaxSummary {
	byMonth := make(map[string][]models.Operation)
	for _, op := range operations {
		month := op.Date.Format("2006-01")
		byMonth[month] = append(byMonth[month], op)
	}

	result := make(map[string]models.TaxSummary, len(byMonth))
	for month, ops := range byMonth {
		result[month] = p.Calculate(ops)
	}
	return result
}

package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/tradeledger/backend/src/ledger"
	"github.com/username/tradeledger/backend/src/logger"
	"github.com/username/tradeledger/backend/src/models"
	"github.com/username/tradeledger/backend/src/processors"
)

const (
	ckLedgerSummary        = "agg_ledger_summary"
	ckTaxSummary           = "agg_tax_summary_%s_%s"
	ckMonthlyTaxSummary    = "agg_monthly_tax_summary_%s_%s"
	ckStockSales           = "res_stock_sales"
	ckAssetSummary         = "agg_asset_summary_%s_%s"
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

var (
	minDate = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	maxDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

type ledgerServiceImpl struct {
	ledger         *ledger.Ledger
	taxProcessor   processors.TaxProcessor
	stockProcessor processors.StockProcessor
	assetProcessor processors.AssetProcessor
	reportCache    *cache.Cache
	expiration     time.Duration
}

func NewLedgerService(
	l *ledger.Ledger,
	taxProcessor processors.TaxProcessor,
	stockProcessor processors.StockProcessor,
	assetProcessor processors.AssetProcessor,
	reportCache *cache.Cache,
	expiration time.Duration,
) LedgerService {
	if expiration <= 0 {
		expiration = DefaultCacheExpiration
	}
	return &ledgerServiceImpl{
		ledger:         l,
		taxProcessor:   taxProcessor,
		stockProcessor: stockProcessor,
		assetProcessor: assetProcessor,
		reportCache:    reportCache,
		expiration:     expiration,
	}
}

func (s *ledgerServiceImpl) RegisterOperation(ctx context.Context, op models.Operation) error {
	if err := s.ledger.Register(ctx, op); err != nil {
		return err
	}
	s.InvalidateCache()
	return nil
}

func (s *ledgerServiceImpl) Operations(ctx context.Context, filter OperationFilter) ([]models.Operation, error) {
	if filter.From != nil || filter.To != nil {
		from, to := filter.bounds()
		ops, err := s.ledger.ListOperations(ctx, from, to)
		if err != nil || !filter.NewestFirst {
			return ops, err
		}
		// reverse first so equal dates end up newest insert first, as in the unfiltered listing
		desc := make([]models.Operation, 0, len(ops))
		for i := len(ops) - 1; i >= 0; i-- {
			desc = append(desc, ops[i])
		}
		sort.SliceStable(desc, func(i, j int) bool { return desc[i].Date.After(desc[j].Date) })
		return desc, nil
	}
	if filter.NewestFirst {
		return s.ledger.ListOperationsByDateDesc(ctx)
	}
	return s.ledger.ListAllOperations(ctx)
}

func (s *ledgerServiceImpl) Summary(ctx context.Context) (models.LedgerSummary, error) {
	if cached, found := s.reportCache.Get(ckLedgerSummary); found {
		return cached.(models.LedgerSummary), nil
	}

	balance, err := s.ledger.TotalBalance(ctx)
	if err != nil {
		return models.LedgerSummary{}, err
	}
	pl, err := s.ledger.RealizedProfitLoss(ctx)
	if err != nil {
		return models.LedgerSummary{}, err
	}

	summary := models.LedgerSummary{TotalBalance: balance, RealizedProfitLoss: pl}
	s.reportCache.Set(ckLedgerSummary, summary, s.expiration)
	return summary, nil
}

func (s *ledgerServiceImpl) TaxSummary(ctx context.Context, filter OperationFilter) (models.TaxSummary, error) {
	cacheKey := filter.cacheKey(ckTaxSummary)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.(models.TaxSummary), nil
	}

	ops, err := s.Operations(ctx, OperationFilter{From: filter.From, To: filter.To})
	if err != nil {
		return models.TaxSummary{}, err
	}
	summary := s.taxProcessor.Calculate(ops)
	s.reportCache.Set(cacheKey, summary, s.expiration)
	return summary, nil
}

func (s *ledgerServiceImpl) MonthlyTaxSummary(ctx context.Context, filter OperationFilter) (map[string]models.TaxSummary, error) {
	cacheKey := filter.cacheKey(ckMonthlyTaxSummary)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.(map[string]models.TaxSummary), nil
	}

	ops, err := s.Operations(ctx, OperationFilter{From: filter.From, To: filter.To})
	if err != nil {
		return nil, err
	}
	months := s.taxProcessor.CalculateMonthly(ops)
	s.reportCache.Set(cacheKey, months, s.expiration)
	return months, nil
}

func (s *ledgerServiceImpl) StockSales(ctx context.Context) (models.LotMatchResult, error) {
	if cached, found := s.reportCache.Get(ckStockSales); found {
		return cached.(models.LotMatchResult), nil
	}

	ops, err := s.ledger.ListAllOperations(ctx)
	if err != nil {
		return models.LotMatchResult{}, err
	}
	result := s.stockProcessor.Process(ctx, ops)
	s.reportCache.Set(ckStockSales, result, s.expiration)
	return result, nil
}

// AssetSummary groups the operations of the period by asset.
func (s *ledgerServiceImpl) AssetSummary(ctx context.Context, filter OperationFilter) ([]models.AssetSummary, error) {
	cacheKey := filter.cacheKey(ckAssetSummary)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.([]models.AssetSummary), nil
	}

	ops, err := s.Operations(ctx, OperationFilter{From: filter.From, To: filter.To})
	if err != nil {
		return nil, err
	}
	summaries := s.assetProcessor.Summarize(ops)
	s.reportCache.Set(cacheKey, summaries, s.expiration)
	return summaries, nil
}

func (s *ledgerServiceImpl) InvalidateCache() {
	s.reportCache.Flush()
	logger.L.Debug("Report cache invalidated")
}

func (f OperationFilter) bounds() (time.Time, time.Time) {
	from, to := minDate, maxDate
	if f.From != nil {
		from = *f.From
	}
	if f.To != nil {
		to = *f.To
	}
	return from, to
}

func (f OperationFilter) cacheKey(format string) string {
	from, to := f.bounds()
	return fmt.Sprintf(format, from.Format(models.DateFormat), to.Format(models.DateFormat))
}

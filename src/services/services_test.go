package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tradeledger/backend/src/apperrors"
	"github.com/username/tradeledger/backend/src/config"
	"github.com/username/tradeledger/backend/src/database"
	"github.com/username/tradeledger/backend/src/ledger"
	"github.com/username/tradeledger/backend/src/models"
	"github.com/username/tradeledger/backend/src/processors"
)

const xpNoteText = "Nr. nota: 123456 Data pregão: 15/03/2024 PETR4 C 100 28,45 VALE3 V 50 1.234,56 Emolumentos 0,40"

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) Extract(ctx context.Context, r io.Reader) (string, error) {
	f.calls++
	return f.text, f.err
}

type fixture struct {
	ledger    *ledger.Ledger
	extractor *fakeExtractor
	notes     NoteService
	ledgerSvc LedgerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	l := ledger.New(db)
	ext := &fakeExtractor{text: xpNoteText}
	ledgerSvc := NewLedgerService(l,
		processors.NewTaxProcessor(config.Default().Tax()),
		processors.NewStockProcessor(),
		processors.NewAssetProcessor(),
		cache.New(DefaultCacheExpiration, CacheCleanupInterval),
		time.Minute,
	)
	return &fixture{
		ledger:    l,
		extractor: ext,
		notes:     NewNoteService(db, l, ext, processors.NewFeeProcessor(), ledgerSvc, config.Default().SupportedBrokers),
		ledgerSvc: ledgerSvc,
	}
}

func day(s string) time.Time {
	d, _ := time.Parse(models.DateFormat, s)
	return d
}

func TestProcessNoteRejectsBrokerBeforeExtraction(t *testing.T) {
	f := newFixture(t)

	for _, broker := range []string{"BTG", "NUINVEST", ""} {
		_, err := f.notes.ProcessNote(context.Background(), strings.NewReader("%PDF-1.4"), broker)
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedBroker, broker)
	}
	assert.Zero(t, f.extractor.calls)
}

func TestProcessNoteParsesExtractedText(t *testing.T) {
	f := newFixture(t)

	note, err := f.notes.ProcessNote(context.Background(), strings.NewReader("%PDF-1.4"), "xp")
	require.NoError(t, err)
	assert.Equal(t, 1, f.extractor.calls)
	assert.Equal(t, models.BrokerXP, note.Broker)
	require.Len(t, note.Operations, 2)

	ops, err := f.ledger.ListAllOperations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ops, "processing alone must not persist")
}

func TestProcessNoteErrors(t *testing.T) {
	f := newFixture(t)

	f.extractor.err = fmt.Errorf("%w: bad xref", apperrors.ErrDocumentUnreadable)
	_, err := f.notes.ProcessNote(context.Background(), strings.NewReader(""), "RICO")
	assert.ErrorIs(t, err, apperrors.ErrDocumentUnreadable)

	f.extractor.err = nil
	_, err = f.notes.ProcessNote(context.Background(), strings.NewReader(""), "CLEAR")
	assert.ErrorIs(t, err, apperrors.ErrBrokerNotImplemented)
}

func noteWith(ops ...models.Operation) *models.Note {
	return &models.Note{Broker: models.BrokerRico, Operations: ops, Fees: map[string]decimal.Decimal{}}
}

func buy(code string, qty int, date string) models.Operation {
	return models.Operation{
		AssetCode: code, Kind: models.Buy, Quantity: qty,
		Price: decimal.NewFromInt(10), Value: decimal.NewFromInt(int64(10 * qty)), Date: day(date),
	}
}

func TestSaveNoteIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.notes.SaveNote(ctx, noteWith(buy("PETR4", 10, "2024-01-02"), buy("VALE3", 0, "2024-01-02")))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))

	ops, err := f.ledger.ListAllOperations(ctx)
	require.NoError(t, err)
	assert.Empty(t, ops)
	n, err := f.ledger.CountAssets(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, f.notes.SaveNote(ctx, noteWith(buy("PETR4", 10, "2024-01-02"), buy("VALE3", 5, "2024-01-02"))))
	ops, err = f.ledger.ListAllOperations(ctx)
	require.NoError(t, err)
	assert.Len(t, ops, 2)
}

func TestRegisterNoteReportsEachOperation(t *testing.T) {
	f := newFixture(t)

	results := f.notes.RegisterNote(context.Background(), noteWith(buy("PETR4", 10, "2024-01-02"), buy("VALE3", 0, "2024-01-02")))
	require.Len(t, results, 2)
	assert.True(t, results[0].Registered)
	assert.False(t, results[1].Registered)
	assert.NotEmpty(t, results[1].Error)

	ops, err := f.ledger.ListAllOperations(context.Background())
	require.NoError(t, err)
	assert.Len(t, ops, 1)
}

func TestUploadNote(t *testing.T) {
	f := newFixture(t)

	res, err := f.notes.UploadNote(context.Background(), strings.NewReader("%PDF-1.4"), "XP", false)
	require.NoError(t, err)
	assert.Equal(t, "123456", res.NoteNumber)
	assert.Equal(t, "2024-03-15", res.TradeDate)
	assert.Equal(t, 2, res.Registered)
	assert.Zero(t, res.Failed)
	require.Len(t, res.Fees, 1)
	assert.Equal(t, models.FeeExchange, res.Fees[0].Name)
	assert.Equal(t, "2845", res.Operations[0].ValueTotal.String())

	res, err = f.notes.UploadNote(context.Background(), strings.NewReader("%PDF-1.4"), "XP", true)
	require.NoError(t, err)
	assert.True(t, res.Atomic)
	assert.Equal(t, 2, res.Registered)

	n, err := f.ledger.CountAssets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSummaryIsCachedUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.ledgerSvc.Summary(ctx)
	require.NoError(t, err)
	assert.True(t, s.TotalBalance.IsZero())

	// bypass the service so the cache is not flushed
	require.NoError(t, f.ledger.Register(ctx, buy("PETR4", 10, "2024-01-02")))
	s, err = f.ledgerSvc.Summary(ctx)
	require.NoError(t, err)
	assert.True(t, s.TotalBalance.IsZero())

	f.ledgerSvc.InvalidateCache()
	s, err = f.ledgerSvc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100", s.TotalBalance.String())

	require.NoError(t, f.ledgerSvc.RegisterOperation(ctx, buy("VALE3", 1, "2024-01-03")))
	s, err = f.ledgerSvc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "110", s.TotalBalance.String())
}

func TestOperationsFilterAndTaxSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sell := models.Operation{
		AssetCode: "PETR4", Kind: models.Sell, Quantity: 100, Price: decimal.NewFromInt(250),
		Value: decimal.NewFromInt(25000), Date: day("2024-02-10"),
	}
	require.NoError(t, f.ledgerSvc.RegisterOperation(ctx, buy("PETR4", 1000, "2024-01-10")))
	require.NoError(t, f.ledgerSvc.RegisterOperation(ctx, sell))
	require.NoError(t, f.ledgerSvc.RegisterOperation(ctx, buy("VALE3", 1, "2024-02-20")))

	from, to := day("2024-02-01"), day("2024-02-28")
	ops, err := f.ledgerSvc.Operations(ctx, OperationFilter{From: &from, To: &to, NewestFirst: true})
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "VALE3", ops[0].AssetCode)

	all, err := f.ledgerSvc.Operations(ctx, OperationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	tax, err := f.ledgerSvc.TaxSummary(ctx, OperationFilter{})
	require.NoError(t, err)
	assert.True(t, tax.NetResult.Equal(decimal.NewFromInt(14990)), tax.NetResult.String())
	assert.True(t, tax.TaxOwed.Equal(decimal.RequireFromString("2248.5")), tax.TaxOwed.String())

	months, err := f.ledgerSvc.MonthlyTaxSummary(ctx, OperationFilter{})
	require.NoError(t, err)
	assert.True(t, months["2024-01"].Exempt)
	assert.True(t, months["2024-02"].TaxOwed.Equal(decimal.RequireFromString("3748.5")))

	sales, err := f.ledgerSvc.StockSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales.Sales, 1)
	assert.Equal(t, 900, sales.Holdings["PETR4"][0].Quantity)
}

func TestAssetSummaryIsCachedPerPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ledgerSvc.RegisterOperation(ctx, buy("PETR4", 10, "2024-01-10")))
	require.NoError(t, f.ledgerSvc.RegisterOperation(ctx, buy("PETR4", 5, "2024-02-10")))
	require.NoError(t, f.ledgerSvc.RegisterOperation(ctx, buy("VALE3", 1, "2024-02-11")))

	all, err := f.ledgerSvc.AssetSummary(ctx, OperationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "PETR4", all[0].AssetCode)
	assert.Equal(t, 15, all[0].TotalQuantity)
	assert.Equal(t, "150", all[0].TotalValue.String())
	assert.Equal(t, "10", all[0].AveragePrice.String())

	from := day("2024-02-01")
	feb, err := f.ledgerSvc.AssetSummary(ctx, OperationFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, feb, 2)
	assert.Equal(t, 5, feb[0].TotalQuantity)

	// bypass the service so the cache is not flushed
	require.NoError(t, f.ledger.Register(ctx, buy("ITSA4", 1, "2024-02-12")))
	cached, err := f.ledgerSvc.AssetSummary(ctx, OperationFilter{})
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	f.ledgerSvc.InvalidateCache()
	fresh, err := f.ledgerSvc.AssetSummary(ctx, OperationFilter{})
	require.NoError(t, err)
	assert.Len(t, fresh, 3)
}

func TestProcessNoteRejectsDisabledBroker(t *testing.T) {
	f := newFixture(t)
	svc := NewNoteService(nil, f.ledger, f.extractor, processors.NewFeeProcessor(), f.ledgerSvc, []string{"XP"})

	_, err := svc.ProcessNote(context.Background(), strings.NewReader("%PDF-1.4"), "RICO")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedBroker)
	assert.Zero(t, f.extractor.calls)

	_, err = svc.ProcessNote(context.Background(), strings.NewReader("%PDF-1.4"), "XP")
	assert.NoError(t, err)
}

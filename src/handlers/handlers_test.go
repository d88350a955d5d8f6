package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tradeledger/backend/src/apperrors"
	"github.com/username/tradeledger/backend/src/config"
	"github.com/username/tradeledger/backend/src/database"
	"github.com/username/tradeledger/backend/src/ledger"
	"github.com/username/tradeledger/backend/src/processors"
	"github.com/username/tradeledger/backend/src/services"
	"golang.org/x/time/rate"
)

const xpNoteText = "Nr. nota: 123456 Data pregão: 15/03/2024 PETR4 C 100 28,45 VALE3 V 50 1.234,56 Emolumentos 0,40"

type stubExtractor struct {
	text string
	err  error
}

func (s *stubExtractor) Extract(ctx context.Context, r io.Reader) (string, error) {
	return s.text, s.err
}

type testServer struct {
	handler   http.Handler
	extractor *stubExtractor
}

func newTestServer(t *testing.T, limiter *rate.Limiter) *testServer {
	t.Helper()
	return newTestServerWithConfig(t, limiter, config.Default())
}

func newTestServerWithConfig(t *testing.T, limiter *rate.Limiter, cfg *config.AppConfig) *testServer {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	l := ledger.New(db)
	ext := &stubExtractor{text: xpNoteText}
	ledgerSvc := services.NewLedgerService(l,
		processors.NewTaxProcessor(cfg.Tax()),
		processors.NewStockProcessor(),
		processors.NewAssetProcessor(),
		cache.New(time.Minute, time.Minute),
		time.Minute,
	)
	noteSvc := services.NewNoteService(db, l, ext, processors.NewFeeProcessor(), ledgerSvc, cfg.SupportedBrokers)

	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &testServer{
		handler: NewRouter(Dependencies{
			Config:        cfg,
			NoteService:   noteSvc,
			LedgerService: ledgerSvc,
			Limiter:       limiter,
		}),
		extractor: ext,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, broker string, content []byte, mode string) *http.Request {
	t.Helper()
	return multiUploadRequest(t, broker, mode, content)
}

func multiUploadRequest(t *testing.T, broker, mode string, contents ...[]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if broker != "" {
		require.NoError(t, mw.WriteField("broker", broker))
	}
	if mode != "" {
		require.NoError(t, mw.WriteField("mode", mode))
	}
	for i, content := range contents {
		fw, err := mw.CreateFormFile("file", fmt.Sprintf("note-%d.pdf", i+1))
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/notes", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func postOperation(t *testing.T, s *testServer, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/operations", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

var pdfBytes = []byte("%PDF-1.4\n% note\n")

func TestUploadNote(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(uploadRequest(t, "xp", pdfBytes, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result services.NoteUploadResult
	decode(t, rec, &result)
	assert.Equal(t, "XP", string(result.Broker))
	assert.Equal(t, "123456", result.NoteNumber)
	assert.Equal(t, "2024-03-15", result.TradeDate)
	assert.False(t, result.Atomic)
	assert.Equal(t, 2, result.Registered)
	assert.Zero(t, result.Failed)
	require.Len(t, result.Operations, 2)
	assert.Equal(t, "PETR4", result.Operations[0].AssetCode)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/operations", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var ops []map[string]any
	decode(t, rec, &ops)
	require.Len(t, ops, 2)
	assert.Equal(t, "PETR4", ops[0]["asset_code"])
	assert.Equal(t, "2024-03-15", ops[0]["date"])
}

func TestUploadNoteAtomic(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(uploadRequest(t, "XP", pdfBytes, "atomic"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result services.NoteUploadResult
	decode(t, rec, &result)
	assert.True(t, result.Atomic)
	assert.Equal(t, 2, result.Registered)
	assert.Len(t, result.Results, 2)
}

func TestUploadNoteErrors(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(uploadRequest(t, "BTG", pdfBytes, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(uploadRequest(t, "NUINVEST", pdfBytes, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(uploadRequest(t, "", pdfBytes, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(uploadRequest(t, "XP", []byte("just some text"), ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(uploadRequest(t, "CLEAR", pdfBytes, ""))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	s.extractor.err = fmt.Errorf("%w: broken xref", apperrors.ErrDocumentUnreadable)
	rec = s.do(uploadRequest(t, "RICO", pdfBytes, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/operations", nil))
	var ops []map[string]any
	decode(t, rec, &ops)
	assert.Empty(t, ops)
}

func TestUploadSeveralNotes(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(multiUploadRequest(t, "XP", "", pdfBytes, []byte("not a pdf"), pdfBytes))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Files []struct {
			Filename string                     `json:"filename"`
			Status   int                        `json:"status"`
			Error    string                     `json:"error"`
			Result   *services.NoteUploadResult `json:"result"`
		} `json:"files"`
		Processed int `json:"processed"`
		Failed    int `json:"failed"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, 2, resp.Processed)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Files, 3)

	assert.Equal(t, "note-1.pdf", resp.Files[0].Filename)
	assert.Equal(t, http.StatusOK, resp.Files[0].Status)
	require.NotNil(t, resp.Files[0].Result)
	assert.Equal(t, 2, resp.Files[0].Result.Registered)

	assert.Equal(t, http.StatusBadRequest, resp.Files[1].Status)
	assert.NotEmpty(t, resp.Files[1].Error)
	assert.Nil(t, resp.Files[1].Result)

	assert.Equal(t, http.StatusOK, resp.Files[2].Status)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/operations", nil))
	var ops []map[string]any
	decode(t, rec, &ops)
	assert.Len(t, ops, 4)
}

func TestUploadHonoursSupportedBrokers(t *testing.T) {
	cfg := config.Default()
	cfg.SupportedBrokers = []string{"XP"}
	s := newTestServerWithConfig(t, nil, cfg)

	rec := s.do(uploadRequest(t, "RICO", pdfBytes, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(uploadRequest(t, "XP", pdfBytes, ""))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/config", nil))
	var got map[string]any
	decode(t, rec, &got)
	assert.Equal(t, []any{"XP"}, got["brokers"])
	assert.Equal(t, []any{"XP"}, got["supported_brokers"])
}

func TestRegisterOperation(t *testing.T) {
	s := newTestServer(t, nil)

	rec := postOperation(t, s, `{"asset_code":"petr4","kind":"Buy","quantity":100,"price":"28.45","date":"2024-03-15","value":"2845"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created map[string]any
	decode(t, rec, &created)
	assert.Equal(t, "PETR4", created["asset_code"])
	assert.Equal(t, "2845", created["value_total"])

	for name, payload := range map[string]string{
		"bad json":      `{"asset_code":`,
		"bad kind":      `{"asset_code":"PETR4","kind":"Hold","quantity":1,"price":"1","date":"2024-03-15"}`,
		"bad date":      `{"asset_code":"PETR4","kind":"Buy","quantity":1,"price":"1","date":"15/03/2024"}`,
		"zero quantity": `{"asset_code":"PETR4","kind":"Buy","quantity":0,"price":"1","date":"2024-03-15"}`,
		"bad code":      `{"asset_code":"PE-TR4","kind":"Buy","quantity":1,"price":"1","date":"2024-03-15"}`,
	} {
		rec := postOperation(t, s, payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func seedTrades(t *testing.T, s *testServer) {
	t.Helper()
	for _, payload := range []string{
		`{"asset_code":"PETR4","kind":"Buy","quantity":100,"price":"28.45","date":"2024-03-15","value":"2845"}`,
		`{"asset_code":"PETR4","kind":"Sell","quantity":50,"price":"30","date":"2024-04-10","value":"1500","sell_price":"30","buy_price":"28"}`,
	} {
		rec := postOperation(t, s, payload)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

func TestListOperationsFilterAndETag(t *testing.T) {
	s := newTestServer(t, nil)
	seedTrades(t, s)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/operations?order=date_desc", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var ops []map[string]any
	decode(t, rec, &ops)
	require.Len(t, ops, 2)
	assert.Equal(t, "2024-04-10", ops[0]["date"])

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/operations?from=2024-04-01&to=2024-04-30", nil))
	decode(t, rec, &ops)
	require.Len(t, ops, 1)
	assert.Equal(t, "Sell", ops[0]["kind"])

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	req := httptest.NewRequest(http.MethodGet, "/api/operations?from=2024-04-01&to=2024-04-30", nil)
	req.Header.Set("If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, s.do(req).Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/operations?from=April", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummaryAndTaxSummary(t *testing.T) {
	s := newTestServer(t, nil)
	seedTrades(t, s)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var summary map[string]string
	decode(t, rec, &summary)
	assert.Equal(t, "4345", summary["total_balance"])
	assert.Equal(t, "100", summary["realized_profit_loss"])

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/tax-summary?monthly=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var tax struct {
		Summary map[string]any            `json:"summary"`
		Monthly map[string]map[string]any `json:"monthly"`
	}
	decode(t, rec, &tax)
	assert.Equal(t, "1500", tax.Summary["total_sells"])
	assert.Equal(t, "-1345", tax.Summary["net_result"])
	assert.Equal(t, true, tax.Summary["exempt"])
	assert.Equal(t, "0", tax.Summary["tax_owed"])
	assert.Contains(t, tax.Monthly, "2024-03")
	assert.Contains(t, tax.Monthly, "2024-04")

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/tax-summary", nil))
	var plain map[string]any
	decode(t, rec, &plain)
	assert.NotContains(t, plain, "monthly")
}

func TestStockSales(t *testing.T) {
	s := newTestServer(t, nil)
	seedTrades(t, s)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/stock-sales", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Sales    []map[string]any            `json:"sales"`
		Holdings map[string][]map[string]any `json:"holdings"`
	}
	decode(t, rec, &result)
	require.Len(t, result.Sales, 1)
	assert.Equal(t, float64(50), result.Sales[0]["quantity"])
	require.Len(t, result.Holdings["PETR4"], 1)
	assert.Equal(t, float64(50), result.Holdings["PETR4"][0]["quantity"])
}

func TestAssetSummary(t *testing.T) {
	s := newTestServer(t, nil)
	seedTrades(t, s)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/asset-summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("ETag"))
	var all []map[string]any
	decode(t, rec, &all)
	require.Len(t, all, 1)
	assert.Equal(t, "PETR4", all[0]["asset_code"])
	assert.Equal(t, float64(150), all[0]["total_quantity"])
	assert.Equal(t, "29.225", all[0]["average_price"])
	assert.Equal(t, "4345", all[0]["total_value"])

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/asset-summary?from=2024-04-01&to=2024-04-30", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var april []map[string]any
	decode(t, rec, &april)
	require.Len(t, april, 1)
	assert.Equal(t, float64(50), april[0]["total_quantity"])
	assert.Equal(t, "30", april[0]["average_price"])

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/asset-summary?to=soon", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExports(t *testing.T) {
	s := newTestServer(t, nil)
	seedTrades(t, s)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/export/operations.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "operations.csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "code,kind,quantity,price,date,fee,value_total", lines[0])

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/reports/operations.pdf?from=2024-01-01&to=2024-12-31", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestConfigEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg map[string]any
	decode(t, rec, &cfg)
	assert.Len(t, cfg["brokers"], 5)
	assert.ElementsMatch(t, []any{"XP", "RICO", "AGORA"}, cfg["supported_brokers"])
	assert.Equal(t, "20000", cfg["swing_trade_exemption"])
}

func TestMiddleware(t *testing.T) {
	s := newTestServer(t, rate.NewLimiter(0, 1))

	req := httptest.NewRequest(http.MethodOptions, "/api/operations", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := s.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/username/tradeledger/backend/src/config"
	"github.com/username/tradeledger/backend/src/services"
	"github.com/username/tradeledger/backend/src/utils"
	"golang.org/x/time/rate"
)

// Dependencies are the services the HTTP layer is built from.
type Dependencies struct {
	Config        *config.AppConfig
	NoteService   services.NoteService
	LedgerService services.LedgerService
	Limiter       *rate.Limiter
}

func NewRouter(deps Dependencies) http.Handler {
	limiter := deps.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)
	}

	uploadHandler := NewUploadHandler(deps.NoteService, deps.Config.MaxUploadSizeBytes, deps.Config.SupportedBrokers)
	transactionHandler := NewTransactionHandler(deps.LedgerService)
	portfolioHandler := NewPortfolioHandler(deps.LedgerService)
	exportHandler := NewExportHandler(deps.LedgerService)
	configHandler := NewConfigHandler(deps.Config)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(ContextualLoggerMiddleware)
	r.Use(CORSMiddleware(deps.Config.AllowedOrigins))
	r.Use(RateLimitMiddleware(limiter))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		utils.SendJSON(w, map[string]string{"status": "ok", "service": "tradeledger"}, http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", configHandler.HandleGetConfig)

		r.Post("/notes", uploadHandler.HandleUploadNote)

		r.Get("/operations", transactionHandler.HandleListOperations)
		r.Post("/operations", transactionHandler.HandleRegisterOperation)

		r.Get("/summary", portfolioHandler.HandleGetSummary)
		r.Get("/tax-summary", portfolioHandler.HandleGetTaxSummary)
		r.Get("/stock-sales", portfolioHandler.HandleGetStockSales)
		r.Get("/asset-summary", portfolioHandler.HandleGetAssetSummary)

		r.Get("/export/operations.csv", exportHandler.HandleExportOperationsCSV)
		r.Get("/reports/operations.pdf", exportHandler.HandleOperationsReportPDF)
	})

	return r
}

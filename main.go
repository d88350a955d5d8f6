package main

import (
	"context"
	"crypto/tls"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/tradeledger/backend/src/config"
	"github.com/username/tradeledger/backend/src/database"
	"github.com/username/tradeledger/backend/src/handlers"
	"github.com/username/tradeledger/backend/src/ledger"
	"github.com/username/tradeledger/backend/src/logger"
	"github.com/username/tradeledger/backend/src/pdftext"
	"github.com/username/tradeledger/backend/src/processors"
	"github.com/username/tradeledger/backend/src/services"
)

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Trade ledger backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations()
	defer database.DB.Close()

	reportCache := cache.New(config.Cfg.ReportCacheExpiry, services.CacheCleanupInterval)

	operationLedger := ledger.New(database.DB)

	taxProcessor := processors.NewTaxProcessor(config.Cfg.Tax())
	stockProcessor := processors.NewStockProcessor()
	assetProcessor := processors.NewAssetProcessor()
	feeProcessor := processors.NewFeeProcessor()

	ledgerService := services.NewLedgerService(
		operationLedger,
		taxProcessor,
		stockProcessor,
		assetProcessor,
		reportCache,
		config.Cfg.ReportCacheExpiry,
	)
	noteService := services.NewNoteService(
		database.DB,
		operationLedger,
		pdftext.NewExtractor(),
		feeProcessor,
		ledgerService,
		config.Cfg.SupportedBrokers,
	)

	router := handlers.NewRouter(handlers.Dependencies{
		Config:        config.Cfg,
		NoteService:   noteService,
		LedgerService: ledgerService,
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      proxyHeadersMiddleware(router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.L.Info("Server starting", "address", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stdlog.Fatalf("Failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.L.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.L.Error("Graceful shutdown failed", "error", err)
	}
}

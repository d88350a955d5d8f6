package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/username/tradeledger/backend/src/config"
	"github.com/username/tradeledger/backend/src/models"
	"github.com/username/tradeledger/backend/src/parsers"
	"github.com/username/tradeledger/backend/src/utils"
)

type ConfigHandler struct {
	cfg *config.AppConfig
}

func NewConfigHandler(cfg *config.AppConfig) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

type configResponse struct {
	Brokers             []string        `json:"brokers"`
	SupportedBrokers    []models.Broker `json:"supported_brokers"`
	OperationKinds      []string        `json:"operation_kinds"`
	CorporateEventKinds []string        `json:"corporate_event_kinds"`
	DayTradeRate        decimal.Decimal `json:"day_trade_rate"`
	SwingTradeRate      decimal.Decimal `json:"swing_trade_rate"`
	SwingTradeExemption decimal.Decimal `json:"swing_trade_exemption"`
	MaxUploadSizeBytes  int64           `json:"max_upload_size_bytes"`
}

// HandleGetConfig exposes the broker lists and tax constants the UI needs.
func (h *ConfigHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	utils.WriteWithETag(w, r, configResponse{
		Brokers:             h.cfg.SupportedBrokers,
		SupportedBrokers:    parsers.EnabledBrokers(h.cfg.SupportedBrokers),
		OperationKinds:      h.cfg.OperationKinds,
		CorporateEventKinds: h.cfg.CorporateEventKinds,
		DayTradeRate:        h.cfg.DayTradeRate,
		SwingTradeRate:      h.cfg.SwingTradeRate,
		SwingTradeExemption: h.cfg.SwingTradeExemption,
		MaxUploadSizeBytes:  h.cfg.MaxUploadSizeBytes,
	})
}

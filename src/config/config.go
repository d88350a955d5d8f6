package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// TaxConfig groups the constants of the swing-trade tax rule.
type TaxConfig struct {
	DayTradeRate        decimal.Decimal // declared, not applied
	SwingTradeRate      decimal.Decimal
	SwingTradeExemption decimal.Decimal // sells at or below this owe nothing
}

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Upload & HTTP
	MaxUploadSizeBytes int64
	AllowedOrigins     []string
	ReportCacheExpiry  time.Duration

	// Domain lists
	SupportedBrokers    []string
	OperationKinds      []string
	CorporateEventKinds []string

	// Tax rule
	DayTradeRate        decimal.Decimal
	SwingTradeRate      decimal.Decimal
	SwingTradeExemption decimal.Decimal
}

// Tax returns the tax constants as one value.
func (c *AppConfig) Tax() TaxConfig {
	return TaxConfig{
		DayTradeRate:        c.DayTradeRate,
		SwingTradeRate:      c.SwingTradeRate,
		SwingTradeExemption: c.SwingTradeExemption,
	}
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

var (
	defaultBrokers        = []string{"CLEAR", "XP", "RICO", "NUINVEST", "AGORA"}
	defaultOperationKinds = []string{"Buy", "Sell"}
	corporateEventKinds   = []string{"DIVIDENDO", "JCP", "DESDOBRAMENTO", "GRUPAMENTO"}
)

// Default returns the configuration used when no environment is set.
func Default() *AppConfig {
	return &AppConfig{
		Port:                "8080",
		DatabasePath:        "./investimentos.db",
		LogLevel:            "info",
		MaxUploadSizeBytes:  10 * 1024 * 1024,
		AllowedOrigins:      []string{"http://localhost:3000"},
		ReportCacheExpiry:   15 * time.Minute,
		SupportedBrokers:    append([]string(nil), defaultBrokers...),
		OperationKinds:      append([]string(nil), defaultOperationKinds...),
		CorporateEventKinds: append([]string(nil), corporateEventKinds...),
		DayTradeRate:        decimal.RequireFromString("0.20"),
		SwingTradeRate:      decimal.RequireFromString("0.15"),
		SwingTradeExemption: decimal.NewFromInt(20000),
	}
}

// LoadConfig loads configuration from environment variables or a .env file.
func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables.")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	def := Default()
	Cfg = &AppConfig{
		Port:         getEnv("PORT", def.Port),
		DatabasePath: getEnv("DATABASE_PATH", def.DatabasePath),
		LogLevel:     getEnv("LOG_LEVEL", def.LogLevel),

		MaxUploadSizeBytes: getEnvAsInt64("MAX_UPLOAD_SIZE_BYTES", def.MaxUploadSizeBytes),
		AllowedOrigins:     getEnvAsList("ALLOWED_ORIGINS", def.AllowedOrigins),
		ReportCacheExpiry:  getEnvAsDuration("REPORT_CACHE_EXPIRY", def.ReportCacheExpiry),

		SupportedBrokers:    getEnvAsList("SUPPORTED_BROKERS", def.SupportedBrokers),
		OperationKinds:      def.OperationKinds,
		CorporateEventKinds: def.CorporateEventKinds,

		DayTradeRate:        getEnvAsDecimal("DAY_TRADE_RATE", def.DayTradeRate),
		SwingTradeRate:      getEnvAsDecimal("SWING_TRADE_RATE", def.SwingTradeRate),
		SwingTradeExemption: getEnvAsDecimal("SWING_TRADE_EXEMPTION", def.SwingTradeExemption),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, Brokers=%v",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.SupportedBrokers)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

// getEnvAsInt64 retrieves an environment variable as an int64 or returns a fallback.
func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

func getEnvAsDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := decimal.NewFromString(strings.TrimSpace(valueStr)); err == nil {
		return value
	}
	log.Printf("Invalid decimal value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

// getEnvAsList parses a comma-separated variable, dropping blank items.
func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

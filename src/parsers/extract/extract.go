// Package extract holds the text-matching pieces shared by the broker note parsers.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/tradeledger/backend/src/apperrors"
	"github.com/username/tradeledger/backend/src/logger"
	"github.com/username/tradeledger/backend/src/models"
	"github.com/username/tradeledger/backend/src/security/validation"
)

const noteDateLayout = "02/01/2006"

var (
	tradeDateRegex  = regexp.MustCompile(`Data pregão:\s*(\d{2}/\d{2}/\d{4})`)
	noteNumberRegex = regexp.MustCompile(`Nr\. nota:\s*(\d+)`)

	// seq, seq, side, market, code, quantity, price, value
	marketLayoutRegex = regexp.MustCompile(`(\d+)\s+(\d+)\s+([CV])\s+(VISTA|FRACIONARIO)\s+(\w+)\s+(\d+)\s+([\d.,]+)\s+([\d.,]+)`)
)

type feeRule struct {
	name    string
	pattern *regexp.Regexp
}

var feeRules = []feeRule{
	{models.FeeLiquidation, regexp.MustCompile(`Taxa de liquidação\s+([\d.,]+)`)},
	{models.FeeRegistration, regexp.MustCompile(`Taxa de Registro\s+([\d.,]+)`)},
	{models.FeeExchange, regexp.MustCompile(`Emolumentos\s+([\d.,]+)`)},
	{models.FeeOperational, regexp.MustCompile(`Taxa Operacional\s+([\d.,]+)`)},
	{models.FeeExecution, regexp.MustCompile(`Execução\s+([\d.,]+)`)},
	{models.FeeCustody, regexp.MustCompile(`Taxa de Custódia\s+([\d.,]+)`)},
	{models.FeeTaxes, regexp.MustCompile(`Impostos\s+([\d.,]+)`)},
	{models.FeeWithholdingIR, regexp.MustCompile(`I.R.R.F. s/ operações\s+([\d.,]+)`)},
	{models.FeeOther, regexp.MustCompile(`Outros\s+([\d.,]+)`)},
}

// LocaleDecimal converts a pt-BR formatted number: "1.234,56" becomes 1234.56.
func LocaleDecimal(s string) (decimal.Decimal, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid locale number %q: %w", s, err)
	}
	return d, nil
}

// TradeDate finds the "Data pregão" field. It returns nil when absent or malformed.
func TradeDate(ctx context.Context, text string) *time.Time {
	m := tradeDateRegex.FindStringSubmatch(text)
	if m == nil {
		logger.FromContext(ctx).Debug("Trade date not found on note")
		return nil
	}
	t, err := time.Parse(noteDateLayout, m[1])
	if err != nil {
		logger.FromContext(ctx).Warn("Trade date on note is not a calendar date", "raw", m[1], "error", err)
		return nil
	}
	return &t
}

// NoteNumber finds the "Nr. nota" field. It returns nil when absent.
func NoteNumber(ctx context.Context, text string) *string {
	m := noteNumberRegex.FindStringSubmatch(text)
	if m == nil {
		logger.FromContext(ctx).Debug("Note number not found on note")
		return nil
	}
	n := m[1]
	return &n
}

// Fees returns every fee label found in text. Missing labels are simply absent.
func Fees(ctx context.Context, text string) map[string]decimal.Decimal {
	fees := make(map[string]decimal.Decimal)
	for _, rule := range feeRules {
		m := rule.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		amount, err := LocaleDecimal(m[1])
		if err != nil {
			logger.FromContext(ctx).Warn("Skipping unparsable fee", "fee", rule.name, "raw", m[1], "error", err)
			continue
		}
		fees[rule.name] = amount
	}
	return fees
}

// MarketLayoutOperations matches the sequenced table used by RICO and AGORA notes.
func MarketLayoutOperations(ctx context.Context, text string) []models.Operation {
	var ops []models.Operation
	for _, m := range marketLayoutRegex.FindAllStringSubmatch(text, -1) {
		kind, _ := models.KindFromSide(m[3])
		quantity, err := strconv.Atoi(m[6])
		if err != nil {
			logger.FromContext(ctx).Warn("Skipping operation with invalid quantity", "match", m[0], "error", err)
			continue
		}
		price, err := LocaleDecimal(m[7])
		if err != nil {
			logger.FromContext(ctx).Warn("Skipping operation with invalid price", "match", m[0], "error", err)
			continue
		}
		value, err := LocaleDecimal(m[8])
		if err != nil {
			logger.FromContext(ctx).Warn("Skipping operation with invalid value", "match", m[0], "error", err)
			continue
		}
		ops = append(ops, models.Operation{
			AssetCode: validation.SanitizeAssetCode(m[5]),
			Kind:      kind,
			Quantity:  quantity,
			Price:     price,
			Value:     value,
			Market:    models.Market(m[4]),
		})
	}
	return ops
}

// NewNote completes a note from the operations a rule extracted: it reads the header fields
// and fees and stamps each operation with the trade date, broker and note number.
func NewNote(ctx context.Context, broker models.Broker, text string, ops []models.Operation) *models.Note {
	note := &models.Note{
		Broker:     broker,
		Operations: ops,
		Fees:       Fees(ctx, text),
		TradeDate:  TradeDate(ctx, text),
		NoteNumber: NoteNumber(ctx, text),
	}
	if note.Operations == nil {
		note.Operations = []models.Operation{}
	}

	for i := range note.Operations {
		note.Operations[i].Broker = string(broker)
		if note.TradeDate != nil {
			note.Operations[i].Date = *note.TradeDate
		}
		if note.NoteNumber != nil {
			note.Operations[i].NoteNumber = *note.NoteNumber
		}
	}

	if len(note.Operations) == 0 {
		logger.FromContext(ctx).Info("Note produced no operations", "broker", broker, "reason", apperrors.ErrExtractionEmpty)
	}
	return note
}

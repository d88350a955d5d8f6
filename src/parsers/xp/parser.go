package xp

import (
	"context"
	"regexp"
	"strconv"

	"github.com/username/tradeledger/backend/src/logger"
	"github.com/username/tradeledger/backend/src/models"
	"github.com/username/tradeledger/backend/src/parsers/extract"
	"github.com/username/tradeledger/backend/src/security/validation"
)

// code, side, quantity, price. The XP layout prints no gross value column.
var operationRegex = regexp.MustCompile(`([A-Z0-9]+)\s+([CV])\s+(\d+)\s+([\d.,]+)`)

// XPParser implements the parsers.Parser interface for XP notes.
type XPParser struct{}

func NewParser() *XPParser {
	return &XPParser{}
}

func (p *XPParser) Parse(ctx context.Context, text string) (*models.Note, error) {
	var ops []models.Operation
	for _, m := range operationRegex.FindAllStringSubmatch(text, -1) {
		kind, _ := models.KindFromSide(m[2])
		quantity, err := strconv.Atoi(m[3])
		if err != nil {
			logger.FromContext(ctx).Warn("xp parser: skipping operation with invalid quantity", "match", m[0], "error", err)
			continue
		}
		price, err := extract.LocaleDecimal(m[4])
		if err != nil {
			logger.FromContext(ctx).Warn("xp parser: skipping operation with invalid price", "match", m[0], "error", err)
			continue
		}
		ops = append(ops, models.Operation{
			AssetCode: validation.SanitizeAssetCode(m[1]),
			Kind:      kind,
			Quantity:  quantity,
			Price:     price,
		})
	}
	logger.FromContext(ctx).Debug("xp parser: operations matched", "count", len(ops))
	return extract.NewNote(ctx, models.BrokerXP, text, ops), nil
}

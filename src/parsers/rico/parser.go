package rico

import (
	"context"

	"github.com/username/tradeledger/backend/src/models"
	"github.com/username/tradeledger/backend/src/parsers/extract"
)

// RicoParser implements the parsers.Parser interface for RICO notes.
type RicoParser struct{}

func NewParser() *RicoParser {
	return &RicoParser{}
}

func (p *RicoParser) Parse(ctx context.Context, text string) (*models.Note, error) {
	ops := extract.MarketLayoutOperations(ctx, text)
	return extract.NewNote(ctx, models.BrokerRico, text, ops), nil
}

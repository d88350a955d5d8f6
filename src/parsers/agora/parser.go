package agora

import (
	"context"

	"github.com/username/tradeledger/backend/src/models"
	"github.com/username/tradeledger/backend/src/parsers/extract"
)

// AgoraParser reads AGORA notes, which share the RICO table layout.
type AgoraParser struct{}

func NewParser() *AgoraParser {
	return &AgoraParser{}
}

func (p *AgoraParser) Parse(ctx context.Context, text string) (*models.Note, error) {
	ops := extract.MarketLayoutOperations(ctx, text)
	return extract.NewNote(ctx, models.BrokerAgora, text, ops), nil
}

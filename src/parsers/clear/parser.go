package clear

import (
	"context"
	"fmt"

	"github.com/username/tradeledger/backend/src/apperrors"
	"github.com/username/tradeledger/backend/src/logger"
	"github.com/username/tradeledger/backend/src/models"
)

// ClearParser is registered so CLEAR is recognised, but its note layout has no rule yet.
// TODO: add the CLEAR operation table once sample notes are available.
type ClearParser struct{}

func NewParser() *ClearParser {
	return &ClearParser{}
}

func (p *ClearParser) Parse(ctx context.Context, text string) (*models.Note, error) {
	logger.FromContext(ctx).Warn("CLEAR note received but extraction is not implemented", "textLength", len(text))
	return nil, fmt.Errorf("%w: %s", apperrors.ErrBrokerNotImplemented, models.BrokerClear)
}

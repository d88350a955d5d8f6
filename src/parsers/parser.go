package parsers

import (
	"context"
	"fmt"
	"strings"

	"github.com/username/tradeledger/backend/src/apperrors"
	"github.com/username/tradeledger/backend/src/models"
	"github.com/username/tradeledger/backend/src/parsers/agora"
	clearparser "github.com/username/tradeledger/backend/src/parsers/clear"
	"github.com/username/tradeledger/backend/src/parsers/rico"
	"github.com/username/tradeledger/backend/src/parsers/xp"
)

// Parser turns the plain text of one settlement note into a Note.
type Parser interface {
	Parse(ctx context.Context, text string) (*models.Note, error)
}

// GetParser returns the extraction rule for broker.
func GetParser(broker models.Broker) (Parser, error) {
	switch broker {
	case models.BrokerXP:
		return xp.NewParser(), nil
	case models.BrokerRico:
		return rico.NewParser(), nil
	case models.BrokerAgora:
		return agora.NewParser(), nil
	case models.BrokerClear:
		return clearparser.NewParser(), nil
	default:
		return nil, fmt.Errorf("%w: no extraction rule for %q", apperrors.ErrUnsupportedBroker, broker)
	}
}

// Resolve validates a raw broker identifier against the enabled brokers and returns its rule.
// An empty enabled list accepts every known broker.
func Resolve(raw string, enabled []string) (models.Broker, Parser, error) {
	broker, err := models.ParseBroker(raw)
	if err != nil {
		return "", nil, err
	}
	if !isEnabled(broker, enabled) {
		return "", nil, fmt.Errorf("%w: %q is not enabled", apperrors.ErrUnsupportedBroker, broker)
	}
	p, err := GetParser(broker)
	if err != nil {
		return "", nil, err
	}
	return broker, p, nil
}

// SupportedBrokers lists the brokers that have a working extraction rule.
func SupportedBrokers() []models.Broker {
	return []models.Broker{models.BrokerXP, models.BrokerRico, models.BrokerAgora}
}

// EnabledBrokers narrows SupportedBrokers to the enabled list.
func EnabledBrokers(enabled []string) []models.Broker {
	out := []models.Broker{}
	for _, b := range SupportedBrokers() {
		if isEnabled(b, enabled) {
			out = append(out, b)
		}
	}
	return out
}

func isEnabled(broker models.Broker, enabled []string) bool {
	if len(enabled) == 0 {
		return true
	}
	for _, e := range enabled {
		if strings.EqualFold(strings.TrimSpace(e), string(broker)) {
			return true
		}
	}
	return false
}

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/tradeledger/backend/src/apperrors"
)

// Broker identifies the issuer of a settlement note.
type Broker string

const (
	BrokerClear    Broker = "CLEAR"
	BrokerXP       Broker = "XP"
	BrokerRico     Broker = "RICO"
	BrokerNuinvest Broker = "NUINVEST"
	BrokerAgora    Broker = "AGORA"
)

// KnownBrokers lists every broker identifier the application accepts as input.
var KnownBrokers = []Broker{BrokerClear, BrokerXP, BrokerRico, BrokerNuinvest, BrokerAgora}

// ParseBroker normalises an identifier. It does not tell whether an extraction rule exists.
func ParseBroker(s string) (Broker, error) {
	b := Broker(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range KnownBrokers {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnsupportedBroker, s)
}

// Fee names used as keys of Note.Fees.
const (
	FeeLiquidation   = "liquidation"
	FeeRegistration  = "registration"
	FeeExchange      = "exchange_fees"
	FeeOperational   = "operational"
	FeeExecution     = "execution"
	FeeCustody       = "custody"
	FeeTaxes         = "taxes"
	FeeWithholdingIR = "withholding_tax"
	FeeOther         = "other"
)

// Note is the structured content of one settlement note.
type Note struct {
	Broker     Broker                     `json:"broker"`
	Operations []Operation                `json:"operations"`
	Fees       map[string]decimal.Decimal `json:"fees"`
	TradeDate  *time.Time                 `json:"-"`
	NoteNumber *string                    `json:"note_number"`
}

// TotalFees sums every fee found on the note.
func (n *Note) TotalFees() decimal.Decimal {
	total := decimal.Zero
	for _, v := range n.Fees {
		total = total.Add(v)
	}
	return total
}

// FeeDetail is one fee line of a note.
type FeeDetail struct {
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Broker     Broker          `json:"broker"`
	NoteNumber string          `json:"note_number,omitempty"`
	Date       string          `json:"date,omitempty"`
}

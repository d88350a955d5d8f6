package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/tradeledger/backend/src/apperrors"
)

// DateFormat is the storage and API layout of trade dates.
const DateFormat = "2006-01-02"

// OperationKind is the side of a trade.
type OperationKind string

const (
	Buy  OperationKind = "Buy"
	Sell OperationKind = "Sell"
)

func (k OperationKind) Valid() bool {
	return k == Buy || k == Sell
}

// KindFromSide maps the C/V side letter printed on notes.
func KindFromSide(side string) (OperationKind, bool) {
	switch side {
	case "C":
		return Buy, true
	case "V":
		return Sell, true
	default:
		return "", false
	}
}

// ParseOperationKind accepts "Buy"/"Sell" in any case as well as the side letters.
func ParseOperationKind(s string) (OperationKind, error) {
	trimmed := strings.TrimSpace(s)
	if k, ok := KindFromSide(strings.ToUpper(trimmed)); ok {
		return k, nil
	}
	switch strings.ToLower(trimmed) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	}
	return "", apperrors.NewValidationError("kind", fmt.Sprintf("must be Buy or Sell, got %q", s))
}

// Market is the market segment column of the RICO/AGORA layout.
type Market string

const (
	MarketVista       Market = "VISTA"
	MarketFracionario Market = "FRACIONARIO"
)

// Asset is a ticker symbol known to the ledger.
type Asset struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}

// Operation is one trade fill.
type Operation struct {
	ID         int64           `json:"id,omitempty"`
	AssetCode  string          `json:"asset_code"`
	Kind       OperationKind   `json:"kind"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Date       time.Time       `json:"-"`
	Fee        decimal.Decimal `json:"fee"`
	Value      decimal.Decimal `json:"value"`
	SellPrice  decimal.Decimal `json:"sell_price"`
	BuyPrice   decimal.Decimal `json:"buy_price"`
	Broker     string          `json:"broker,omitempty"`
	NoteNumber string          `json:"note_number,omitempty"`
	Market     Market          `json:"market,omitempty"`
}

// DateString returns the trade date as YYYY-MM-DD.
func (o Operation) DateString() string {
	return o.Date.Format(DateFormat)
}

// Total is quantity times unit price.
func (o Operation) Total() decimal.Decimal {
	return o.Price.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// OperationView is the JSON shape of an operation in listings.
type OperationView struct {
	Operation
	Date       string          `json:"date"`
	ValueTotal decimal.Decimal `json:"value_total"`
}

func (o Operation) View() OperationView {
	return OperationView{Operation: o, Date: o.DateString(), ValueTotal: o.Total()}
}

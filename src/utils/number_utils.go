package utils

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatMoney renders d with two decimals and comma thousands separators, e.g. 1,234.50.
func FormatMoney(d decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}

// DecimalFromDB converts a REAL column value back into a decimal.
func DecimalFromDB(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

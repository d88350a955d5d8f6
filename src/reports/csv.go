// Package reports renders the ledger as downloadable files.
package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/username/tradeledger/backend/src/models"
	"github.com/username/tradeledger/backend/src/security/validation"
)

var csvHeader = []string{"code", "kind", "quantity", "price", "date", "fee", "value_total"}

// WriteOperationsCSV writes one row per operation in the given order.
func WriteOperationsCSV(w io.Writer, operations []models.Operation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, op := range operations {
		record := []string{
			validation.SanitizeForFormulaInjection(op.AssetCode),
			string(op.Kind),
			strconv.Itoa(op.Quantity),
			op.Price.StringFixed(2),
			op.DateString(),
			op.Fee.StringFixed(2),
			op.Total().StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", op.AssetCode, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

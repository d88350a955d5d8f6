package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/username/tradeledger/backend/src/models"
	"github.com/username/tradeledger/backend/src/utils"
)

// ReportData is everything the three report pages show.
type ReportData struct {
	PeriodFrom  string
	PeriodTo    string
	Summary     models.LedgerSummary
	Operations  []models.Operation
	Tax         models.TaxSummary
	GeneratedAt time.Time
}

const (
	lineHeight = 7.0
	labelWidth = 70.0
)

// RenderPDF writes a three page report: summary, operations list and tax summary.
func RenderPDF(w io.Writer, data ReportData) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Investment report", true)
	pdf.SetCreationDate(data.GeneratedAt)

	period := "all operations"
	if data.PeriodFrom != "" || data.PeriodTo != "" {
		period = fmt.Sprintf("%s to %s", orDash(data.PeriodFrom), orDash(data.PeriodTo))
	}

	heading := func(title string) {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 16)
		pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr("Period: "+period), "", 1, "L", false, 0, "")
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 12)
	}
	row := func(label, value string) {
		pdf.CellFormat(labelWidth, lineHeight, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, lineHeight, tr(value), "", 1, "L", false, 0, "")
	}

	heading("Summary")
	row("Total balance:", "R$ "+utils.FormatMoney(data.Summary.TotalBalance))
	row("Realized profit/loss:", "R$ "+utils.FormatMoney(data.Summary.RealizedProfitLoss))
	row("Operations:", fmt.Sprintf("%d", len(data.Operations)))

	heading("Operations")
	if len(data.Operations) == 0 {
		pdf.CellFormat(0, lineHeight, "No operations in this period.", "", 1, "L", false, 0, "")
	}
	for _, op := range data.Operations {
		line := fmt.Sprintf("%s - %s %d %s @ R$ %s",
			op.DateString(), op.Kind, op.Quantity, op.AssetCode, utils.FormatMoney(op.Price))
		pdf.CellFormat(0, lineHeight, tr(line), "", 1, "L", false, 0, "")
	}

	heading("Taxes")
	row("Total sells:", "R$ "+utils.FormatMoney(data.Tax.TotalSells))
	row("Total buys:", "R$ "+utils.FormatMoney(data.Tax.TotalBuys))
	row("Net result:", "R$ "+utils.FormatMoney(data.Tax.NetResult))
	row("Tax owed:", "R$ "+utils.FormatMoney(data.Tax.TaxOwed))

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("building report pdf: %w", err)
	}
	return pdf.Output(w)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

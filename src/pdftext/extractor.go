// Package pdftext pulls the plain text out of settlement note PDFs.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/username/tradeledger/backend/src/apperrors"
	"github.com/username/tradeledger/backend/src/logger"
)

// Extractor returns the text of every page of a document, concatenated in page order.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader) (string, error)
}

type ledongthucExtractor struct{}

func NewExtractor() Extractor {
	return &ledongthucExtractor{}
}

func (e *ledongthucExtractor) Extract(ctx context.Context, r io.Reader) (text string, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: reading document: %v", apperrors.ErrDocumentUnreadable, err)
	}

	// the pdf package panics on some malformed cross-reference tables
	defer func() {
		if rec := recover(); rec != nil {
			logger.FromContext(ctx).Warn("PDF reader panicked", "panic", rec)
			text, err = "", fmt.Errorf("%w: %v", apperrors.ErrDocumentUnreadable, rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrDocumentUnreadable, err)
	}

	var sb strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", apperrors.ErrDocumentUnreadable, i, err)
		}
		sb.WriteString(pageText)
	}

	logger.FromContext(ctx).Debug("PDF text extracted", "pages", pages, "chars", sb.Len())
	return sb.String(), nil
}

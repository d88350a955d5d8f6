package validation

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/username/tradeledger/backend/src/logger"
)

// AllowedClientContentTypes is a map for quick lookup of allowed client-declared MIME types.
var AllowedClientContentTypes = map[string]bool{
	"application/pdf":          true,
	"application/x-pdf":        true,
	"application/octet-stream": true, // some browsers send this for PDFs picked from disk
	"text/csv":                 false,
	"text/plain":               false,
}

var pdfMagic = []byte("%PDF-")

// ValidateClientContentType checks the Content-Type header provided by the client.
func ValidateClientContentType(contentType string) error {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if allowed, exists := AllowedClientContentTypes[mediaType]; !exists || !allowed {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("%w: client-declared file type '%s' is not allowed for note upload", ErrValidationFailed, contentType)
	}
	return nil
}

// ValidateFileContentByMagicBytes checks that the content starts with the PDF signature
// and rewinds the reader so the extractor can read the whole file.
func ValidateFileContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("%w: file is nil", ErrValidationFailed)
	}

	buffer := make([]byte, 1024)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}

	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}

	if n == 0 {
		return "", fmt.Errorf("%w: file is empty", ErrValidationFailed)
	}

	// Some generators emit a few bytes of junk before the header; readers accept it within the first KB.
	if !bytes.Contains(buffer[:n], pdfMagic) {
		logger.L.Warn("File rejected: PDF signature not found")
		return "application/octet-stream", fmt.Errorf("%w: file is not a PDF document", ErrValidationFailed)
	}

	logger.L.Debug("File content type validated", "detectedContentType", "application/pdf")
	return "application/pdf", nil
}

package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/username/tradeledger/backend/src/apperrors"
	"github.com/username/tradeledger/backend/src/models"
)

var ErrValidationFailed = apperrors.ErrValidationFailed

const (
	MaxAssetCodeLength  = 12
	MaxNoteNumberLength = 32
)

var assetCodeRegex = regexp.MustCompile(`^[A-Z0-9]+$`)

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return apperrors.NewValidationError(fieldName, "cannot be empty")
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return apperrors.NewValidationError(fieldName, fmt.Sprintf("exceeds maximum length of %d characters", maxLength))
	}
	return nil
}

// ValidateDateString parses a YYYY-MM-DD date.
func ValidateDateString(s, fieldName string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, fieldName); err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(models.DateFormat, trimmed)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(fieldName, fmt.Sprintf("('%s') is not a valid date (expected YYYY-MM-DD)", s))
	}
	return t, nil
}

// ValidateAssetCode checks a ticker typed by a user: upper-case letters and digits only.
func ValidateAssetCode(code string) error {
	if err := ValidateStringNotEmpty(code, "asset_code"); err != nil {
		return err
	}
	if err := ValidateStringMaxLength(code, MaxAssetCodeLength, "asset_code"); err != nil {
		return err
	}
	if !assetCodeRegex.MatchString(code) {
		return apperrors.NewValidationError("asset_code", fmt.Sprintf("('%s') must contain only upper-case letters and digits", code))
	}
	return nil
}

// ValidateOperation enforces the ledger invariants of an operation.
func ValidateOperation(op models.Operation) error {
	if err := ValidateStringNotEmpty(op.AssetCode, "asset_code"); err != nil {
		return err
	}
	if !op.Kind.Valid() {
		return apperrors.NewValidationError("kind", fmt.Sprintf("must be Buy or Sell, got %q", op.Kind))
	}
	if op.Quantity <= 0 {
		return apperrors.NewValidationError("quantity", fmt.Sprintf("must be positive, got %d", op.Quantity))
	}
	if op.Price.IsNegative() {
		return apperrors.NewValidationError("price", "cannot be negative")
	}
	if op.Fee.IsNegative() {
		return apperrors.NewValidationError("fee", "cannot be negative")
	}
	if op.Date.IsZero() {
		return apperrors.NewValidationError("date", "is required")
	}
	return ValidateStringMaxLength(op.NoteNumber, MaxNoteNumberLength, "note_number")
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/username/tradeledger/backend/src/apperrors"
	"github.com/username/tradeledger/backend/src/logger"
	"github.com/username/tradeledger/backend/src/utils"
)

// errorStatus maps the application error taxonomy onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrUnsupportedBroker),
		errors.Is(err, apperrors.ErrDocumentUnreadable),
		errors.Is(err, apperrors.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrBrokerNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, apperrors.ErrAssetNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage hides internal failures from the response body.
func clientMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

func sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("Request failed", "path", r.URL.Path, "error", err)
	}
	utils.SendJSONError(w, clientMessage(err, status), status)
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/username/tradeledger/backend/src/security/validation"
	"github.com/username/tradeledger/backend/src/services"
)

// operationFilterFromQuery reads the optional from/to (YYYY-MM-DD) and order parameters.
func operationFilterFromQuery(r *http.Request) (services.OperationFilter, error) {
	q := r.URL.Query()
	var filter services.OperationFilter

	if raw := q.Get("from"); raw != "" {
		from, err := validation.ValidateDateString(raw, "from")
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := validation.ValidateDateString(raw, "to")
		if err != nil {
			return filter, err
		}
		filter.To = &to
	}
	filter.NewestFirst = q.Get("order") == "date_desc"
	return filter, nil
}

func boolQuery(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}

package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"swapmesh/engineerr"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("gateway: encode response failed", "error", err)
	}
}

// writeError maps the engine's closed error taxonomy onto HTTP status
// codes. Any error that isn't an *engineerr.Error is a programming bug,
// not a caller-facing failure, so it collapses to 500 without detail.
func writeError(w http.ResponseWriter, err error) {
	var ee *engineerr.Error
	if !errors.As(err, &ee) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"code":    "INTERNAL",
			"message": "internal error",
		})
		return
	}
	status := http.StatusInternalServerError
	switch ee.Code {
	case engineerr.Unauthorized:
		status = http.StatusUnauthorized
	case engineerr.Forbidden, engineerr.InsufficientScope:
		status = http.StatusForbidden
	case engineerr.NotFound:
		status = http.StatusNotFound
	case engineerr.SchemaInvalid:
		status = http.StatusBadRequest
	case engineerr.ConstraintViolation:
		status = http.StatusUnprocessableEntity
	case engineerr.Conflict, engineerr.IdempotencyKeyReusePayloadMismatch:
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]interface{}{
		"code":    ee.Code,
		"message": ee.Message,
		"reason":  ee.Reason,
		"details": ee.Details,
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return engineerr.SchemaInvalidf("invalid request body: %v", err)
	}
	return nil
}

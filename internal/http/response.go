package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const msgServerError = "Server Error"

type messageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// The status line is already out; an encode failure can only be a
	// broken connection.
	_ = json.NewEncoder(w).Encode(v)
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, messageResponse{Message: msg})
}

// respondError maps a service error to a status code. Client mistakes echo
// their cause; everything else is logged and reported as a generic failure.
func respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch core.KindOf(err) {
	case core.KindValidation, core.KindInvalidArgument:
		respondMessage(w, http.StatusBadRequest, causeOf(err))
	case core.KindNotFound:
		respondMessage(w, http.StatusNotFound, causeOf(err))
	default:
		log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).ErrorContext(r.Context(),
			"Request failed",
			log.FieldOperation, op,
			log.FieldError, err)
		respondMessage(w, http.StatusInternalServerError, msgServerError)
	}
}

// causeOf strips the operation prefix of a domain error.
func causeOf(err error) string {
	var e *core.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}

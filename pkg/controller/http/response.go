package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/usecase"
	"github.com/secmon-lab/actiontrail/pkg/utils/errutil"
	"github.com/secmon-lab/actiontrail/pkg/utils/logging"
	"github.com/secmon-lab/actiontrail/pkg/utils/safe"
)

// envelope is the body shape of every API response
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		errutil.Log(r.Context(), goerr.Wrap(err, "failed to marshal response"), "failed to marshal response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		safe.Write(r.Context(), w, []byte(`{"success":false,"message":"Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(r.Context(), w, data)
}

func respondOK(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	writeJSON(w, r, status, envelope{Success: true, Message: message, Data: data})
}

func respondMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, envelope{Success: status < 400, Message: message})
}

// statusOf maps the use case error taxonomy onto HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, usecase.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error envelope. Client errors carry their reason;
// server errors are reported and answered with a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)

	if status >= 500 {
		errutil.Log(r.Context(), err, "request failed")
		msg := "Internal server error"
		if status == http.StatusServiceUnavailable {
			msg = "Service temporarily unavailable"
		}
		respondMessage(w, r, status, msg)
		return
	}

	msg := usecase.Reason(err)
	if msg == "" {
		msg = http.StatusText(status)
	}
	logging.From(r.Context()).Info("request rejected", "status", status, "reason", msg, "error", err.Error())
	respondMessage(w, r, status, msg)
}

// decodeJSON reads a JSON body bounded by the body limit middleware
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return usecase.Invalid("Request body too large", goerr.V("limit", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			return usecase.Invalid("Request body is required")
		default:
			return usecase.Invalid("Invalid JSON body", goerr.V("cause", err.Error()))
		}
	}
	return nil
}

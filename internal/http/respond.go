package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"receiptbook/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidCredentials):
		writeErrorMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, core.ErrDuplicateUsername):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrStoreUnavailable):
		writeErrorMessage(w, http.StatusServiceUnavailable, "ledger store is unavailable")
	case errors.Is(err, core.ErrExtractionFailed):
		writeErrorMessage(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, core.ErrPartialPurge):
		writeErrorMessage(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidQuantity),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyOwner),
		errors.Is(err, core.ErrNothingToSave):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("Unhandled request error", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

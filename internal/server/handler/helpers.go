package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"duoleg/internal/application/service"
	"duoleg/internal/domain/model"
)

// writeJSON marshals v and writes it with the given status. A marshal
// failure falls back to a plain 500 body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a bounded JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// statusFor maps service and domain errors onto HTTP status codes. Venue
// failures surface as 502 so callers can tell them from local faults.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrTradeNotFound), errors.Is(err, model.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidSymbol),
		errors.Is(err, model.ErrInvalidTarget),
		errors.Is(err, service.ErrMinQuoteNotMet),
		errors.Is(err, service.ErrNoDepth):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrStaleBook):
		return http.StatusConflict
	}
	var ve *model.VenueError
	if errors.As(err, &ve) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes bounds request bodies; sources are limited to 1 MiB, so this
// leaves room for JSON escaping.
const maxBodyBytes = 4 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure writes the 500 body used when a handler cannot complete.
func writeFailure(w http.ResponseWriter, err, msg string) {
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   err,
		"message": msg,
	})
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// zero so that field validation reports what is missing.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("invalid JSON: %w", err)
}

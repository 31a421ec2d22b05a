package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RequireMethod validates that the request uses the specified method.
// Returns false after writing the error response when it does not.
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes the standard error envelope
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// DecodeAndValidate parses a JSON request body into dst and runs
// struct validation on it.
func DecodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// PathSuffix returns the path segment after prefix, without any
// trailing slash. Empty when the request hits the bare prefix.
func PathSuffix(r *http.Request, prefix string) string {
	suffix := strings.TrimPrefix(r.URL.Path, prefix)
	return strings.Trim(suffix, "/")
}

// Package handlers provides HTTP handlers for the adherence API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pillmind/go-adherence/internal/errs"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// writeDomainError maps the error taxonomy onto HTTP status codes. Transient
// and configuration failures surface as 500 with a generic body so internals
// never leak to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errs.KindNotFound:
		jsonError(w, err.Error(), http.StatusNotFound)
	case errs.KindConflict:
		jsonError(w, err.Error(), http.StatusConflict)
	default:
		jsonError(w, "internal server error", http.StatusInternalServerError)
	}
}

package jellyfin

import (
	"encoding/json"
	"net/http"
)

// apiError is the error envelope Jellyfin clients expect.
type apiError struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
}

func serveError(w http.ResponseWriter, status int, title string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiError{Title: title, Status: status})
}

func notFound(w http.ResponseWriter)     { serveError(w, http.StatusNotFound, "not found") }
func unauthorized(w http.ResponseWriter) { serveError(w, http.StatusUnauthorized, "unauthorized") }
func badRequest(w http.ResponseWriter, title string) {
	serveError(w, http.StatusBadRequest, title)
}
func internalError(w http.ResponseWriter) {
	serveError(w, http.StatusInternalServerError, "internal error")
}

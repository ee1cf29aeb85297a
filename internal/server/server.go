package server

import (
	"context"
	"encoding/json"
	"net/http"
)

// Middleware wraps an http.Handler with request-scoped behavior such as logging or credential checks.
type Middleware func(http.Handler) http.Handler

// Handler serves a fixed set of mux patterns, such as the sandbox library.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router registers handlers behind a shared middleware stack.
type Router interface {
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// envelope mirrors the service's response wrapper so clients decode sandbox errors the same way.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WriteError answers with status and the service's failure envelope.
func WriteError(w http.ResponseWriter, status int, msg string) {
	writeEnvelope(w, status, envelope{Error: msg})
}

func writeEnvelope(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Health answers 200 while ctx is live and 503 once it is done.
func Health(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := ctx.Err(); err != nil {
			WriteError(w, http.StatusServiceUnavailable, "shutting down")
			return
		}
		writeEnvelope(w, http.StatusOK, envelope{Success: true, Data: map[string]string{"status": "ok"}})
	})
}

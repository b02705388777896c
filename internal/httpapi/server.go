// Package httpapi exposes the dispatcher and batch coordinator over HTTP.
//
// The layer is deliberately thin: it resolves the bearer credential,
// validates the body, hands off to the dispatch package, and translates the
// outcome to a status code. Unknown-agent and handler failures are not
// transport failures; they come back as 200 responses carrying the error
// inside the outcome envelope so batch callers can see which sub-tasks
// failed.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vk/maprgate/internal/ctxlog"
	"github.com/vk/maprgate/internal/dispatch"
	"github.com/vk/maprgate/internal/task"
)

// Authenticator is the slice of the identity store the transport needs.
type Authenticator interface {
	Login(username, password string) (string, error)
	Resolve(token string) (task.Identity, error)
}

// Server wires the gateway's endpoints onto an http.Handler.
type Server struct {
	logger      *slog.Logger
	auth        Authenticator
	dispatcher  *dispatch.Dispatcher
	coordinator *dispatch.Coordinator
}

// NewServer creates the transport layer over an already-populated dispatch
// path.
func NewServer(logger *slog.Logger, auth Authenticator, d *dispatch.Dispatcher, c *dispatch.Coordinator) *Server {
	return &Server{
		logger:      logger,
		auth:        auth,
		dispatcher:  d,
		coordinator: c,
	}
}

// Handler returns the http.Handler serving all gateway routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /dispatch", s.handleDispatch)
	mux.HandleFunc("POST /coordinate", s.handleCoordinate)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// requestContext prepares the per-request context: the app logger travels
// with the request so everything below the transport logs consistently.
func (s *Server) requestContext(r *http.Request) context.Context {
	return ctxlog.WithLogger(r.Context(), s.logger)
}

// bearerToken extracts the credential from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// writeJSON encodes v as the response body with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response body.", "error", err)
	}
}

// errorBody is the uniform shape of every non-2xx response.
type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK\n")); err != nil {
		s.logger.Error("Failed to write health response.", "error", err)
	}
}

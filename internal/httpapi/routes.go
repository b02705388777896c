package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vk/maprgate/internal/task"
)

// handleLogin exchanges a username/password for an opaque bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "BadRequest", Reason: "request body is not valid JSON"})
		return
	}

	token, err := s.auth.Login(creds.Username, creds.Password)
	if err != nil {
		s.logger.Debug("Login rejected.", "username", creds.Username)
		s.writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthenticated"})
		return
	}

	s.logger.Info("Session issued.", "username", creds.Username)
	s.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// authenticate resolves the request's bearer credential. On failure it has
// already written the 401 response and returns ok=false; no handler is ever
// invoked for an unauthenticated request.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (task.Identity, bool) {
	id, err := s.auth.Resolve(bearerToken(r))
	if err != nil {
		s.writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthenticated"})
		return task.Identity{}, false
	}
	return id, true
}

// handleDispatch serves the single-task path: resolve identity, validate,
// dispatch, return the outcome envelope.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "BadRequest", Reason: "failed to read request body"})
		return
	}

	t, err := task.ParseTask(body)
	if err != nil {
		s.writeValidationError(w, err)
		return
	}

	outcome := s.dispatcher.Dispatch(s.requestContext(r), t.WithCaller(id))
	s.writeJSON(w, http.StatusOK, outcome)
}

// handleCoordinate serves the batch path. The caller authenticates once and
// that identity is bound to every task in the batch; tasks are not
// individually authenticated.
func (s *Server) handleCoordinate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "BadRequest", Reason: "failed to read request body"})
		return
	}

	tasks, err := task.ParseBatch(body)
	if err != nil {
		s.writeValidationError(w, err)
		return
	}
	for i := range tasks {
		tasks[i] = tasks[i].WithCaller(id)
	}

	results := s.coordinator.Run(s.requestContext(r), tasks)
	s.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// writeValidationError maps a validator failure onto a 400 with its kind as
// the error code.
func (s *Server) writeValidationError(w http.ResponseWriter, err error) {
	var verr *task.ValidationError
	if errors.As(err, &verr) {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Kind, Reason: verr.Message})
		return
	}
	s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "BadRequest", Reason: err.Error()})
}

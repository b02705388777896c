package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/maprgate/internal/agent"
	"github.com/vk/maprgate/internal/dispatch"
	"github.com/vk/maprgate/internal/identity"
	"github.com/vk/maprgate/internal/registry"
	"github.com/vk/maprgate/internal/task"
)

// spyHandler records every task that reaches it.
type spyHandler struct {
	mu    sync.Mutex
	tasks []task.Task
}

func (s *spyHandler) Name() string { return "spy" }

func (s *spyHandler) Handle(_ context.Context, t task.Task) (any, error) {
	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
	return "spied", nil
}

func (s *spyHandler) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

type fixture struct {
	server *httptest.Server
	ids    *identity.Store
	spy    *spyHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hash, err := identity.HashPassword("secret")
	require.NoError(t, err)
	ids := identity.NewStore([]identity.Credential{
		{Username: "alice", DisplayName: "Alice Example", PasswordHash: hash},
	})

	spy := &spyHandler{}
	reg := registry.New()
	reg.RegisterHandler(spy)
	reg.RegisterHandler(agent.NewFunc("echo", func(_ context.Context, tk task.Task) (any, error) {
		return map[string]any{"echoed": tk.Payload}, nil
	}))

	dispatcher := dispatch.New(reg, 0)
	coordinator := dispatch.NewCoordinator(dispatcher, 4)

	logger := slog.New(slog.DiscardHandler)
	srv := httptest.NewServer(NewServer(logger, ids, dispatcher, coordinator).Handler())
	t.Cleanup(srv.Close)

	return &fixture{server: srv, ids: ids, spy: spy}
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()
	resp := f.post(t, "/login", "", `{"username": "alice", "password": "secret"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func (f *fixture) post(t *testing.T, path, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.server.URL+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	t.Run("valid credentials", func(t *testing.T) {
		f.login(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := f.post(t, "/login", "", `{"username": "alice", "password": "wrong"}`)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := f.post(t, "/login", "", `{{`)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDispatch_Success(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	resp := f.post(t, "/dispatch", token, `{"taskType": "echo", "payload": {"n": 1}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var outcome map[string]any
	decodeBody(t, resp, &outcome)
	assert.Equal(t, "echo", outcome["agent"])
	assert.Equal(t, map[string]any{"echoed": map[string]any{"n": float64(1)}}, outcome["result"])
	assert.NotContains(t, outcome, "error")
	assert.NotContains(t, outcome, "reason")
}

func TestDispatch_UnknownAgent(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	resp := f.post(t, "/dispatch", token, `{"taskType": "ghost", "payload": {}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, "unknown agent is an outcome, not a transport error")

	var outcome map[string]any
	decodeBody(t, resp, &outcome)
	assert.Equal(t, "ghost", outcome["agent"])
	assert.Equal(t, "UnknownAgent", outcome["error"])
	assert.NotContains(t, outcome, "result")
}

func TestDispatch_ValidationErrors(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	cases := []struct {
		name     string
		body     string
		wantKind string
	}{
		{"missing taskType", `{"payload": {}}`, "MissingTaskType"},
		{"empty taskType", `{"taskType": "", "payload": {}}`, "MissingTaskType"},
		{"missing payload", `{"taskType": "echo"}`, "MissingPayload"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := f.post(t, "/dispatch", token, tc.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body errorBody
			decodeBody(t, resp, &body)
			assert.Equal(t, tc.wantKind, body.Error)
		})
	}
}

func TestDispatch_RequiresAuth(t *testing.T) {
	f := newFixture(t)

	t.Run("no token", func(t *testing.T) {
		resp := f.post(t, "/dispatch", "", `{"taskType": "spy", "payload": {}}`)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("bogus token", func(t *testing.T) {
		resp := f.post(t, "/dispatch", "bogus", `{"taskType": "spy", "payload": {}}`)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	assert.Zero(t, f.spy.calls(), "no handler may run for an unauthenticated request")
}

func TestDispatch_CallerIdentityBound(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	resp := f.post(t, "/dispatch", token, `{"taskType": "spy", "payload": {}}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, 1, f.spy.calls())
	caller := f.spy.tasks[0].Caller
	require.NotNil(t, caller)
	assert.Equal(t, "alice", caller.ID)
	assert.Equal(t, "Alice Example", caller.DisplayName)
}

func TestCoordinate_OrderAndPartialFailure(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	body := `{"tasks": [
		{"taskType": "echo", "payload": "one"},
		{"taskType": "ghost", "payload": "two"},
		{"taskType": "echo", "payload": "three"}
	]}`
	resp := f.post(t, "/coordinate", token, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Results []map[string]any `json:"results"`
	}
	decodeBody(t, resp, &envelope)
	require.Len(t, envelope.Results, 3)

	assert.Equal(t, map[string]any{"echoed": "one"}, envelope.Results[0]["result"])
	assert.Equal(t, "UnknownAgent", envelope.Results[1]["error"])
	assert.Equal(t, "ghost", envelope.Results[1]["agent"])
	assert.Equal(t, map[string]any{"echoed": "three"}, envelope.Results[2]["result"])
}

func TestCoordinate_RequiresAuth(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/coordinate", "", `{"tasks": [{"taskType": "spy", "payload": {}}]}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, f.spy.calls())
}

func TestCoordinate_NotAnArray(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	resp := f.post(t, "/coordinate", token, `{"tasks": {"taskType": "echo"}}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorBody
	decodeBody(t, resp, &body)
	assert.Equal(t, "NotAnArray", body.Error)
}

func TestCoordinate_EmptyBatch(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	resp := f.post(t, "/coordinate", token, `{"tasks": []}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Results []map[string]any `json:"results"`
	}
	decodeBody(t, resp, &envelope)
	assert.Empty(t, envelope.Results)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp, err := f.server.Client().Get(f.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuamtm/compas-navigator/internal/engine"
	"github.com/joshuamtm/compas-navigator/internal/provider"
	"github.com/joshuamtm/compas-navigator/pkg/session"
	"github.com/joshuamtm/compas-navigator/pkg/stage"
)

type fixedCompleter struct {
	content string
	err     error
}

func (f *fixedCompleter) Complete(_ context.Context, _ provider.CompletionRequest) (*provider.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &provider.CompletionResponse{Content: f.content, FinishReason: "stop"}, nil
}

func (f *fixedCompleter) Name() string { return "fixed" }

func newTestServer(t *testing.T, completer provider.Completer) *Server {
	t.Helper()
	store := session.NewMemoryStore(session.MemoryConfig{})
	t.Cleanup(func() { store.Close() })
	eng := engine.New(store, completer, engine.NewKeywordPolicy())
	return New(eng, ":0")
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	return rec
}

func createTestSession(t *testing.T, srv *Server) string {
	t.Helper()
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func TestCreateSession(t *testing.T) {
	srv := newTestServer(t, &fixedCompleter{content: "Hello!"})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, stage.ContextDiscovery, resp.Stage)
	assert.Zero(t, resp.HistoryLength)
}

func TestChat(t *testing.T) {
	srv := newTestServer(t, &fixedCompleter{content: "Tell me about your situation."})
	id := createTestSession(t, srv)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions/"+id+"/chat",
		`{"message": "Our volunteer program is struggling."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result engine.TurnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Tell me about your situation.", result.AssistantMessage)
	assert.Equal(t, stage.ContextDiscovery, result.Stage)

	get := doRequest(t, srv, http.MethodGet, "/api/v1/sessions/"+id, "")
	require.Equal(t, http.StatusOK, get.Code)
	var snap SessionResponse
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &snap))
	assert.Equal(t, 2, snap.HistoryLength)
}

func TestChat_EmptyMessage(t *testing.T) {
	srv := newTestServer(t, &fixedCompleter{content: "hi"})
	id := createTestSession(t, srv)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions/"+id+"/chat", `{"message": "   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_UnknownSession(t *testing.T) {
	srv := newTestServer(t, &fixedCompleter{content: "hi"})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions/nope/chat", `{"message": "hello"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChat_CompleterDown(t *testing.T) {
	srv := newTestServer(t, &fixedCompleter{
		err: provider.NewUnavailable("fixed", provider.ErrorCodeServerError, "down"),
	})
	id := createTestSession(t, srv)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions/"+id+"/chat", `{"message": "hello"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// The user message survives the failed turn.
	get := doRequest(t, srv, http.MethodGet, "/api/v1/sessions/"+id, "")
	var snap SessionResponse
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.HistoryLength)
}

func TestDeleteSession(t *testing.T) {
	srv := newTestServer(t, &fixedCompleter{content: "hi"})
	id := createTestSession(t, srv)

	rec := doRequest(t, srv, http.MethodDelete, "/api/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	get := doRequest(t, srv, http.MethodGet, "/api/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, get.Code)
}

func TestListSessions(t *testing.T) {
	srv := newTestServer(t, &fixedCompleter{content: "hi"})
	first := createTestSession(t, srv)
	second := createTestSession(t, srv)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.ElementsMatch(t, []string{first, second}, resp["sessions"])
}

func TestGetReport(t *testing.T) {
	srv := newTestServer(t, &fixedCompleter{content: "hi"})
	id := createTestSession(t, srv)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/sessions/"+id+"/report", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["report"], "# Workflow Coaching Report")
	assert.Contains(t, resp["report"], "_not yet provided_")

	raw := doRequest(t, srv, http.MethodGet, "/api/v1/sessions/"+id+"/report?format=markdown", "")
	require.Equal(t, http.StatusOK, raw.Code)
	assert.Contains(t, raw.Header().Get("Content-Type"), "text/markdown")
}

func TestAddArtifact(t *testing.T) {
	srv := newTestServer(t, &fixedCompleter{content: "hi"})
	id := createTestSession(t, srv)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions/"+id+"/artifacts",
		`{"filename": "budget.xlsx", "sensitivity": "internal", "size": 2048}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["artifactId"])

	get := doRequest(t, srv, http.MethodGet, "/api/v1/sessions/"+id, "")
	var snap SessionResponse
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &snap))
	require.Len(t, snap.Artifacts, 1)
	assert.Equal(t, "budget.xlsx", snap.Artifacts[0].Filename)
}

func TestAddArtifact_MissingFilename(t *testing.T) {
	srv := newTestServer(t, &fixedCompleter{content: "hi"})
	id := createTestSession(t, srv)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions/"+id+"/artifacts", `{"size": 10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

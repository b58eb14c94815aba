package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locas/locas-backend/internal/dispatcher"
	"github.com/locas/locas-backend/internal/location"
	"github.com/locas/locas-backend/internal/providers"
	"github.com/locas/locas-backend/internal/session"
	"github.com/locas/locas-backend/internal/tools"
)

type cannedProvider struct {
	reply string
}

func (p *cannedProvider) Name() string { return "canned" }

func (p *cannedProvider) Complete(context.Context, providers.CompletionRequest) (*providers.CompletionResponse, error) {
	return &providers.CompletionResponse{
		Choices: []providers.Choice{{
			Message:      providers.Message{Role: "assistant", Content: p.reply},
			FinishReason: "stop",
		}},
	}, nil
}

func newTestApp(t *testing.T) (*fiber.App, session.Store) {
	t.Helper()

	store := session.NewMemoryStore(time.Hour)
	disp := dispatcher.New(store, location.NewParser(nil, nil), dispatcher.NewClassifier(),
		tools.NewRegistry(), &cannedProvider{reply: "There are two parks nearby."},
		nil, dispatcher.Config{Model: "test-model"}, nil)

	app := fiber.New()
	SetupRoutes(app, disp)
	return app, store
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestProcessQueryEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postJSON(t, app, "/api/process-query", map[string]string{
		"query": "What parks are nearby 23.8103, 90.4125?",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "There are two parks nearby.", body["result"])
	assert.NotEmpty(t, body["session_id"])
}

func TestProcessQueryReusesSessionID(t *testing.T) {
	app, _ := newTestApp(t)

	first := decodeBody(t, postJSON(t, app, "/api/process-query", map[string]string{
		"query": "What parks are nearby?",
	}))
	sessionID, ok := first["session_id"].(string)
	require.True(t, ok)

	second := decodeBody(t, postJSON(t, app, "/api/process-query", map[string]string{
		"query":      "And hospitals?",
		"session_id": sessionID,
	}))
	assert.Equal(t, sessionID, second["session_id"])
}

func TestProcessQueryRejectsEmptyQuery(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postJSON(t, app, "/api/process-query", map[string]string{"query": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Query is required", body["message"])
}

func TestProcessQueryRejectsMalformedBody(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/process-query", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetHistoryEndpoint(t *testing.T) {
	app, store := newTestApp(t)

	sess := session.New("known-session")
	sess.Append(session.RoleUser, "What parks are nearby?")
	sess.Append(session.RoleAssistant, "There are two parks nearby.")
	require.NoError(t, store.Save(context.Background(), sess))

	req := httptest.NewRequest(http.MethodGet, "/api/get-history?session_id=known-session", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "known-session", body["session_id"])

	history, ok := body["chat_history"].([]interface{})
	require.True(t, ok)
	require.Len(t, history, 2)

	first, ok := history[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "What parks are nearby?", first["content"])
}

func TestGetHistoryRequiresSessionID(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/get-history", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetHistoryUnknownSession(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/get-history?session_id=nope", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "error", body["status"])
}

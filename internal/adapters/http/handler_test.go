package httpadapter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/PabloGalante/arcana/internal/adapters/http"
	"github.com/PabloGalante/arcana/internal/adapters/llm"
	"github.com/PabloGalante/arcana/internal/adapters/storage/memory"
	"github.com/PabloGalante/arcana/internal/app/dialogue"
	"github.com/PabloGalante/arcana/internal/deck"
	"github.com/PabloGalante/arcana/internal/domain"
	"github.com/PabloGalante/arcana/internal/observability"
	"github.com/PabloGalante/arcana/internal/session"
)

type response struct {
	Actions []struct {
		Type             string   `json:"type"`
		Text             string   `json:"text"`
		Title            string   `json:"title"`
		CardImages       []string `json:"card_images"`
		ClearAffordances bool     `json:"clear_affordances"`
		Options          []struct {
			Label   string `json:"label"`
			Control string `json:"control"`
		} `json:"options"`
	} `json:"actions"`
	Outcome string `json:"outcome"`
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	d, err := deck.Embedded("major")
	require.NoError(t, err)
	store := session.NewStore(memory.NewSessionStore(), d)
	ctrl, err := dialogue.NewController(store, llm.NewMockLLM(), nil)
	require.NoError(t, err)

	return httpadapter.NewServer(ctrl, time.Minute)
}

func post(t *testing.T, srv http.Handler, path, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var resp response
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestReadingOverWebhook(t *testing.T) {
	srv := newTestServer(t)

	w, resp := post(t, srv, "/v1/events/messages", `{"guild_id":"g","author_id":"u1","text":"?tarot"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp.Outcome)
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, "send_choice_prompt", resp.Actions[0].Type)
	require.Len(t, resp.Actions[0].Options, 2)
	assert.Equal(t, "spread:1", resp.Actions[0].Options[0].Control)

	_, resp = post(t, srv, "/v1/events/buttons", `{"guild_id":"g","actor_id":"u1","original_requester_id":"u1","control":"spread:3"}`)
	assert.Equal(t, "ok", resp.Outcome)
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, "show_question_form", resp.Actions[0].Type)
	assert.NotEmpty(t, resp.Actions[0].Title)

	_, resp = post(t, srv, "/v1/events/modals", `{"guild_id":"g","actor_id":"u1","original_requester_id":"u1","control":"question","fields":{"question":"What now?"}}`)
	assert.Equal(t, "ok", resp.Outcome)
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, "send_reading", resp.Actions[0].Type)
	assert.Contains(t, resp.Actions[0].Text, "Your cards:")
	assert.Len(t, resp.Actions[0].Options, 2)

	_, resp = post(t, srv, "/v1/events/buttons", `{"guild_id":"g","actor_id":"u1","original_requester_id":"u1","control":"end"}`)
	assert.Equal(t, "ok", resp.Outcome)
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, "edit_message", resp.Actions[0].Type)
	assert.True(t, resp.Actions[0].ClearAffordances)
}

func TestOutcomeClassification(t *testing.T) {
	srv := newTestServer(t)
	post(t, srv, "/v1/events/messages", `{"guild_id":"g","author_id":"u1","text":"?tarot"}`)

	_, resp := post(t, srv, "/v1/events/buttons", `{"guild_id":"g","actor_id":"u2","original_requester_id":"u1","control":"spread:1"}`)
	assert.Equal(t, "unauthorized", resp.Outcome)
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, "send_ephemeral_notice", resp.Actions[0].Type)

	_, resp = post(t, srv, "/v1/events/buttons", `{"guild_id":"g","actor_id":"u1","original_requester_id":"u1","control":"follow_up"}`)
	assert.Equal(t, "stale", resp.Outcome)

	w, resp := post(t, srv, "/v1/events/messages", `{"guild_id":"g","author_id":"u1","text":"no prefix"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp.Outcome)
	assert.Empty(t, resp.Actions)
}

func TestBadRequests(t *testing.T) {
	srv := newTestServer(t)

	for name, tc := range map[string]struct{ path, body string }{
		"malformed json":    {"/v1/events/messages", `{"guild_id":`},
		"missing author":    {"/v1/events/messages", `{"guild_id":"g","text":"?tarot"}`},
		"missing requester": {"/v1/events/buttons", `{"guild_id":"g","actor_id":"u1","control":"end"}`},
		"unknown control":   {"/v1/events/buttons", `{"guild_id":"g","actor_id":"u1","original_requester_id":"u1","control":"spread:7"}`},
		"missing actor":     {"/v1/events/modals", `{"guild_id":"g","original_requester_id":"u1","control":"question"}`},
	} {
		t.Run(name, func(t *testing.T) {
			w, _ := post(t, srv, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestDirectMessageReading(t *testing.T) {
	srv := newTestServer(t)

	w, resp := post(t, srv, "/v1/events/messages", `{"author_id":"u1","text":"?tarot"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, "send_choice_prompt", resp.Actions[0].Type)

	w, resp = post(t, srv, "/v1/events/buttons", `{"guild_id":"","actor_id":"u1","original_requester_id":"u1","control":"spread:1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ok", resp.Outcome)

	_, resp = post(t, srv, "/v1/events/modals", `{"actor_id":"u1","original_requester_id":"u1","control":"question","fields":{"question":"Which way?"}}`)
	assert.Equal(t, "ok", resp.Outcome)
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, "send_reading", resp.Actions[0].Type)

	// the guild session of the same user is separate
	_, resp = post(t, srv, "/v1/events/buttons", `{"guild_id":"g","actor_id":"u1","original_requester_id":"u1","control":"follow_up"}`)
	assert.Equal(t, "stale", resp.Outcome)
}

type capture struct {
	ctx context.Context
	out dialogue.Outcome
}

func (c *capture) Handle(ctx context.Context, _ domain.Event) dialogue.Outcome {
	c.ctx = ctx
	return c.out
}

func TestHandlerContextCarriesDeadlineAndRequestID(t *testing.T) {
	events := &capture{out: dialogue.Outcome{Err: domain.ErrCollaboratorFailure}}
	srv := httpadapter.NewServer(events, time.Minute)

	req := httptest.NewRequest(http.MethodPost, "/v1/events/messages", bytes.NewBufferString(`{"guild_id":"g","author_id":"u1","text":"?x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "rid-1")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"actions":[],"outcome":"failed"}`, w.Body.String())

	require.NotNil(t, events.ctx)
	_, ok := events.ctx.Deadline()
	assert.True(t, ok)
	assert.Equal(t, "rid-1", observability.RequestID(events.ctx))
}

// ABOUTME: Tests for the JSON routes: chat submission, history, and escalations
// ABOUTME: Uses the in-memory store and a recording turn submitter

package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursly/coursly-gateway/internal/store"
)

type recordingSubmitter struct {
	calls [][2]string
}

func (s *recordingSubmitter) Submit(sessionKey, content string) {
	s.calls = append(s.calls, [2]string{sessionKey, content})
}

func newTestAPI(t *testing.T) (*http.ServeMux, *store.MockStore, *recordingSubmitter) {
	t.Helper()
	mock := store.NewMockStore()
	submitter := &recordingSubmitter{}
	api := New(mock, submitter, nil, nil, nil)
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	return mux, mock, submitter
}

func doJSON(t *testing.T, mux *http.ServeMux, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestChatCreateAcknowledgesAndSubmits(t *testing.T) {
	mux, _, submitter := newTestAPI(t)

	rec, env := doJSON(t, mux, http.MethodPost, "/api/v1/chat",
		`{"sessionKey":"s1","content":"Hello"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Chat processed successfully", env.Message)
	require.Len(t, submitter.calls, 1)
	assert.Equal(t, [2]string{"s1", "Hello"}, submitter.calls[0])
}

func TestChatCreateRejectsMissingFields(t *testing.T) {
	mux, _, submitter := newTestAPI(t)

	cases := []string{
		`{}`,
		`{"sessionKey":"s1"}`,
		`{"content":"Hello"}`,
		`{"sessionKey":"  ","content":"Hello"}`,
		`{"sessionKey":"s1","content":"   "}`,
	}
	for _, body := range cases {
		rec, _ := doJSON(t, mux, http.MethodPost, "/api/v1/chat", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
	assert.Empty(t, submitter.calls)
}

func TestChatCreateRejectsMalformedJSON(t *testing.T) {
	mux, _, _ := newTestAPI(t)

	rec, _ := doJSON(t, mux, http.MethodPost, "/api/v1/chat", `{"sessionKey": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHistoryUnknownSession(t *testing.T) {
	mux, _, _ := newTestAPI(t)

	rec, env := doJSON(t, mux, http.MethodGet, "/api/v1/chat/never-seen", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No chat session found for this session", env.Message)
}

func TestChatHistoryReturnsOrderedTurns(t *testing.T) {
	mux, mock, _ := newTestAPI(t)
	ctx := context.Background()
	_, err := mock.GetOrCreateSession(ctx, "s1")
	require.NoError(t, err)
	_, err = mock.AppendTurn(ctx, "s1", store.RoleUser, "Hello")
	require.NoError(t, err)
	_, err = mock.AppendTurn(ctx, "s1", store.RoleAssistant, "Hi! How can I help?")
	require.NoError(t, err)

	rec, env := doJSON(t, mux, http.MethodGet, "/api/v1/chat/s1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var session sessionJSON
	require.NoError(t, json.Unmarshal(raw, &session))

	assert.Equal(t, "s1", session.SessionKey)
	require.Len(t, session.Turns, 2)
	assert.Equal(t, store.RoleUser, session.Turns[0].Role)
	assert.Equal(t, "Hello", session.Turns[0].Content)
	assert.Equal(t, store.RoleAssistant, session.Turns[1].Role)
}

func TestEscalationCreate(t *testing.T) {
	mux, mock, _ := newTestAPI(t)

	rec, env := doJSON(t, mux, http.MethodPost, "/api/v1/escalation",
		`{"sessionKey":"s1","name":"Ada","email":"ada@example.com","message":"Call me"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "successfully escalated the chat", env.Message)

	esc, err := mock.GetEscalationBySession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", esc.Name)
	assert.Equal(t, store.EscalationStatusOpen, esc.Status)
}

func TestEscalationCreateDuplicate(t *testing.T) {
	mux, _, _ := newTestAPI(t)
	body := `{"sessionKey":"s1","name":"Ada","email":"ada@example.com","message":"Call me"}`

	rec, _ := doJSON(t, mux, http.MethodPost, "/api/v1/escalation", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := doJSON(t, mux, http.MethodPost, "/api/v1/escalation", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "An escalation for this session already exists", env.Message)
}

func TestEscalationCreateRejectsInvalidEmail(t *testing.T) {
	mux, mock, _ := newTestAPI(t)

	rec, _ := doJSON(t, mux, http.MethodPost, "/api/v1/escalation",
		`{"sessionKey":"s1","name":"Ada","email":"not-an-email","message":"Call me"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, err := mock.GetEscalationBySession(context.Background(), "s1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEscalationListEmpty(t *testing.T) {
	mux, _, _ := newTestAPI(t)

	rec, env := doJSON(t, mux, http.MethodGet, "/api/v1/escalation", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No data found", env.Message)

	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var page pagedEscalations
	require.NoError(t, json.Unmarshal(raw, &page))
	assert.Empty(t, page.Results)
	assert.Zero(t, page.Pagination.TotalItems)
}

func TestEscalationListPagination(t *testing.T) {
	mux, mock, _ := newTestAPI(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, mock.CreateEscalation(context.Background(), &store.Escalation{
			SessionKey: fmt.Sprintf("s%d", i),
			Name:       "User",
			Email:      "user@example.com",
			Message:    "help",
		}))
	}

	rec, env := doJSON(t, mux, http.MethodGet, "/api/v1/escalation?page=2&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Data retrieved successfully", env.Message)

	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var page pagedEscalations
	require.NoError(t, json.Unmarshal(raw, &page))

	assert.Len(t, page.Results, 1)
	assert.Equal(t, 3, page.Pagination.TotalItems)
	assert.Equal(t, 2, page.Pagination.CurrentPage)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.Equal(t, 2, page.Pagination.PageSize)
}

func TestEscalationListRejectsBadPage(t *testing.T) {
	mux, _, _ := newTestAPI(t)

	rec, env := doJSON(t, mux, http.MethodGet, "/api/v1/escalation?page=0", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Page number cannot be less than 1", env.Message)
}

func TestEscalationBySessionNotFound(t *testing.T) {
	mux, _, _ := newTestAPI(t)

	rec, env := doJSON(t, mux, http.MethodGet, "/api/v1/escalation/never-seen", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No escalation found for this session", env.Message)
}

func TestEscalationBySessionIncludesTranscript(t *testing.T) {
	mux, mock, _ := newTestAPI(t)
	ctx := context.Background()
	_, err := mock.GetOrCreateSession(ctx, "s1")
	require.NoError(t, err)
	_, err = mock.AppendTurn(ctx, "s1", store.RoleUser, "I need a human")
	require.NoError(t, err)
	require.NoError(t, mock.CreateEscalation(ctx, &store.Escalation{
		SessionKey: "s1",
		Name:       "Ada",
		Email:      "ada@example.com",
		Message:    "Call me",
	}))

	rec, env := doJSON(t, mux, http.MethodGet, "/api/v1/escalation/s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Escalation found", env.Message)

	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var data escalationWithSession
	require.NoError(t, json.Unmarshal(raw, &data))

	require.NotNil(t, data.Escalation)
	assert.Equal(t, "Ada", data.Escalation.Name)
	require.NotNil(t, data.Session)
	require.Len(t, data.Session.Turns, 1)
	assert.Equal(t, "I need a human", data.Session.Turns[0].Content)
}

func TestEscalationBySessionWithoutTranscript(t *testing.T) {
	mux, mock, _ := newTestAPI(t)
	require.NoError(t, mock.CreateEscalation(context.Background(), &store.Escalation{
		SessionKey: "s1",
		Name:       "Ada",
		Email:      "ada@example.com",
		Message:    "Call me",
	}))

	rec, env := doJSON(t, mux, http.MethodGet, "/api/v1/escalation/s1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var data escalationWithSession
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Nil(t, data.Session)
}

func TestHealthz(t *testing.T) {
	mux, _, _ := newTestAPI(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

// ABOUTME: Versioned HTTP API for chat turns, history, and escalations
// ABOUTME: Every response uses the {code, message, data} envelope

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/coursly/coursly-gateway/internal/store"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// TurnSubmitter enqueues a chat turn for asynchronous processing.
type TurnSubmitter interface {
	Submit(sessionKey, content string)
}

// EscalationNotifier is told about escalations created through the API.
type EscalationNotifier interface {
	NotifyEscalation(ctx context.Context, esc *store.Escalation) error
}

// API serves the versioned JSON routes and the realtime endpoint.
type API struct {
	store    store.Store
	turns    TurnSubmitter
	ws       http.Handler
	notifier EscalationNotifier
	logger   *slog.Logger
}

// New creates the API. ws and notifier may be nil.
func New(st store.Store, turns TurnSubmitter, ws http.Handler, notifier EscalationNotifier, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		store:    st,
		turns:    turns,
		ws:       ws,
		notifier: notifier,
		logger:   logger.With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/chat", a.handleChatCreate)
	mux.HandleFunc("GET /api/v1/chat/{sessionKey}", a.handleChatHistory)

	mux.HandleFunc("POST /api/v1/escalation", a.handleEscalationCreate)
	mux.HandleFunc("GET /api/v1/escalation", a.handleEscalationList)
	mux.HandleFunc("GET /api/v1/escalation/{sessionKey}", a.handleEscalationBySession)

	if a.ws != nil {
		mux.Handle("GET /ws", a.ws)
	}

	mux.HandleFunc("GET /healthz", a.handleHealth)
}

// envelope is the uniform response body.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (a *API) respond(w http.ResponseWriter, code int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(envelope{Code: code, Message: message, Data: data}); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

type chatCreateRequest struct {
	SessionKey string `json:"sessionKey"`
	Content    string `json:"content"`
}

func (a *API) handleChatCreate(w http.ResponseWriter, r *http.Request) {
	var req chatCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respond(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	req.SessionKey = strings.TrimSpace(req.SessionKey)
	if req.SessionKey == "" {
		a.respond(w, http.StatusBadRequest, "Session key is required", nil)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		a.respond(w, http.StatusBadRequest, "Content is required", nil)
		return
	}

	a.turns.Submit(req.SessionKey, req.Content)
	a.respond(w, http.StatusOK, "Chat processed successfully", nil)
}

func (a *API) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("sessionKey")

	session, err := a.store.GetSession(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.respond(w, http.StatusNotFound, "No chat session found for this session", nil)
			return
		}
		a.logger.Error("failed to load session", "session_key", key, "error", err)
		a.respond(w, http.StatusInternalServerError, "An error occurred while fetching data", nil)
		return
	}

	a.respond(w, http.StatusOK, "Chat history retrieved successfully", sessionToJSON(session))
}

type escalationCreateRequest struct {
	SessionKey string `json:"sessionKey"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Message    string `json:"message"`
}

func (a *API) handleEscalationCreate(w http.ResponseWriter, r *http.Request) {
	var req escalationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respond(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	req.SessionKey = strings.TrimSpace(req.SessionKey)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)

	switch {
	case req.SessionKey == "":
		a.respond(w, http.StatusBadRequest, "Session key is required", nil)
		return
	case req.Name == "":
		a.respond(w, http.StatusBadRequest, "Name is required", nil)
		return
	case req.Message == "":
		a.respond(w, http.StatusBadRequest, "Message is required", nil)
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		a.respond(w, http.StatusBadRequest, "A valid email is required", nil)
		return
	}

	esc := &store.Escalation{
		SessionKey: req.SessionKey,
		Name:       req.Name,
		Email:      req.Email,
		Message:    req.Message,
	}
	if err := a.store.CreateEscalation(r.Context(), esc); err != nil {
		if errors.Is(err, store.ErrDuplicateEscalation) {
			a.respond(w, http.StatusBadRequest, "An escalation for this session already exists", nil)
			return
		}
		a.logger.Error("failed to create escalation", "session_key", req.SessionKey, "error", err)
		a.respond(w, http.StatusInternalServerError, "An error occurred while creating the escalation", nil)
		return
	}

	if a.notifier != nil {
		if err := a.notifier.NotifyEscalation(r.Context(), esc); err != nil {
			a.logger.Warn("escalation notification failed", "session_key", req.SessionKey, "error", err)
		}
	}

	a.respond(w, http.StatusOK, "successfully escalated the chat", nil)
}

func (a *API) handleEscalationList(w http.ResponseWriter, r *http.Request) {
	page := parseQueryInt(r, "page", 1)
	limit := parseQueryInt(r, "limit", defaultPageSize)

	if page < 1 {
		a.respond(w, http.StatusNotFound, "Page number cannot be less than 1", nil)
		return
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	escalations, total, err := a.store.ListEscalations(r.Context(), page, limit)
	if err != nil {
		a.logger.Error("failed to list escalations", "error", err)
		a.respond(w, http.StatusInternalServerError, "An error occurred while fetching data", nil)
		return
	}

	if len(escalations) == 0 {
		a.respond(w, http.StatusOK, "No data found", pagedEscalations{
			Results:    []*escalationJSON{},
			Pagination: pagination{},
		})
		return
	}

	results := make([]*escalationJSON, 0, len(escalations))
	for _, esc := range escalations {
		results = append(results, escalationToJSON(esc))
	}

	totalPages := (total + limit - 1) / limit
	a.respond(w, http.StatusOK, "Data retrieved successfully", pagedEscalations{
		Results: results,
		Pagination: pagination{
			TotalItems:  total,
			CurrentPage: page,
			TotalPages:  totalPages,
			PageSize:    limit,
		},
	})
}

func (a *API) handleEscalationBySession(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("sessionKey")

	esc, err := a.store.GetEscalationBySession(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.respond(w, http.StatusNotFound, "No escalation found for this session", nil)
			return
		}
		a.logger.Error("failed to load escalation", "session_key", key, "error", err)
		a.respond(w, http.StatusInternalServerError, "An error occurred while fetching data", nil)
		return
	}

	// The transcript is attached when it exists; an escalation created
	// directly through the API may precede any chat turns.
	var sessionData *sessionJSON
	if session, err := a.store.GetSession(r.Context(), key); err == nil {
		sessionData = sessionToJSON(session)
	} else if !errors.Is(err, store.ErrNotFound) {
		a.logger.Error("failed to load session for escalation", "session_key", key, "error", err)
	}

	a.respond(w, http.StatusOK, "Escalation found", escalationWithSession{
		Escalation: escalationToJSON(esc),
		Session:    sessionData,
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func parseQueryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

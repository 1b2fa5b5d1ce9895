// ABOUTME: Wire representations of sessions, turns, and escalations
// ABOUTME: Keeps JSON field names stable independent of the storage structs

package httpapi

import (
	"time"

	"github.com/coursly/coursly-gateway/internal/store"
)

type turnJSON struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type sessionJSON struct {
	SessionKey string      `json:"sessionKey"`
	Turns      []*turnJSON `json:"messages"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

type escalationJSON struct {
	ID         string    `json:"id"`
	SessionKey string    `json:"sessionKey"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Message    string    `json:"message"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type pagination struct {
	TotalItems  int `json:"totalItems"`
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	PageSize    int `json:"pageSize"`
}

type pagedEscalations struct {
	Results    []*escalationJSON `json:"results"`
	Pagination pagination        `json:"pagination"`
}

type escalationWithSession struct {
	Escalation *escalationJSON `json:"escalation"`
	Session    *sessionJSON    `json:"session"`
}

func sessionToJSON(s *store.Session) *sessionJSON {
	turns := make([]*turnJSON, 0, len(s.Turns))
	for _, t := range s.Turns {
		turns = append(turns, &turnJSON{
			ID:        t.ID,
			Role:      t.Role,
			Content:   t.Content,
			CreatedAt: t.CreatedAt,
		})
	}
	return &sessionJSON{
		SessionKey: s.SessionKey,
		Turns:      turns,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

func escalationToJSON(e *store.Escalation) *escalationJSON {
	return &escalationJSON{
		ID:         e.ID,
		SessionKey: e.SessionKey,
		Name:       e.Name,
		Email:      e.Email,
		Message:    e.Message,
		Status:     e.Status,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

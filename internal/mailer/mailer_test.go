// ABOUTME: Tests for mailer configuration gating and notification content
// ABOUTME: Sending is not exercised against a live SMTP server

package mailer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursly/coursly-gateway/internal/store"
)

func TestEnabledRequiresHostFromAndTo(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{Host: "smtp.example.com"}.Enabled())
	assert.False(t, Config{Host: "smtp.example.com", From: "bot@example.com"}.Enabled())
	assert.True(t, Config{
		Host: "smtp.example.com",
		From: "bot@example.com",
		To:   "support@example.com",
	}.Enabled())
}

func TestDisabledMailerSkipsSending(t *testing.T) {
	m := New(Config{}, nil)

	err := m.NotifyEscalation(context.Background(), &store.Escalation{
		SessionKey: "s1",
		Name:       "Ada",
		Email:      "ada@example.com",
		Message:    "help",
	})
	require.NoError(t, err)
}

func TestDefaultPort(t *testing.T) {
	m := New(Config{Host: "smtp.example.com"}, nil)
	assert.Equal(t, 587, m.cfg.Port)
}

func TestEscalationMessageContent(t *testing.T) {
	esc := &store.Escalation{
		SessionKey: "s1",
		Name:       "Ada",
		Email:      "ada@example.com",
		Message:    "Please call me about the Agile program",
		CreatedAt:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}

	subject := escalationSubject(esc)
	assert.Contains(t, subject, "Ada")
	assert.Contains(t, subject, "s1")

	body := escalationBody(esc)
	assert.Contains(t, body, "ada@example.com")
	assert.Contains(t, body, "Please call me about the Agile program")
	assert.Contains(t, body, "2026-08-30T12:00:00Z")
}

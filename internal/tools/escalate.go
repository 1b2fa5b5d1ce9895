// ABOUTME: Side-effecting escalation tool that hands a session to a human advisor
// ABOUTME: Creates the unique escalation record and fires the best-effort notification

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/coursly/coursly-gateway/internal/store"
)

// escalateArgs are the model-supplied arguments for escalateToHuman.
type escalateArgs struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// escalate creates the escalation record for the session. Missing details
// produce a soft reply asking for them without touching the store; store
// failures become retry replies so the user is never left hanging.
func (c *Catalog) escalate(ctx context.Context, args json.RawMessage, argsValid bool, sessionKey string) json.RawMessage {
	var parsed escalateArgs
	if argsValid {
		if err := json.Unmarshal(args, &parsed); err != nil {
			argsValid = false
		}
	}

	parsed.Name = strings.TrimSpace(parsed.Name)
	parsed.Email = strings.TrimSpace(parsed.Email)
	parsed.Message = strings.TrimSpace(parsed.Message)

	if !argsValid || parsed.Name == "" || parsed.Email == "" || parsed.Message == "" || sessionKey == "" {
		return mustMarshal(Reply{
			Reply:           "To connect you with a human advisor I need your name, email, and a short message for them. Could you share those?",
			NeedsEscalation: false,
		})
	}

	esc := &store.Escalation{
		SessionKey: sessionKey,
		Name:       parsed.Name,
		Email:      parsed.Email,
		Message:    parsed.Message,
	}

	if err := c.escalations.CreateEscalation(ctx, esc); err != nil {
		if errors.Is(err, store.ErrDuplicateEscalation) {
			c.logger.Info("escalation already exists for session", "session_key", sessionKey)
			return mustMarshal(Reply{
				Reply:           "This conversation has already been escalated. The support team has your request and will get back to you as soon as possible.",
				NeedsEscalation: true,
			})
		}
		c.logger.Error("failed to create escalation", "session_key", sessionKey, "error", err)
		return mustMarshal(Reply{
			Reply:           "I couldn't reach a human advisor just now. Please try again in a moment.",
			NeedsEscalation: true,
		})
	}

	c.logger.Info("escalation created", "session_key", sessionKey, "escalation_id", esc.ID)

	if c.notifier != nil {
		if err := c.notifier.NotifyEscalation(ctx, esc); err != nil {
			c.logger.Warn("escalation notification failed", "session_key", sessionKey, "error", err)
		}
	}

	return mustMarshal(Reply{
		Reply:           "You requested to speak to a human advisor. Escalating this conversation now. The team will reach out to you at " + parsed.Email + ".",
		NeedsEscalation: true,
	})
}

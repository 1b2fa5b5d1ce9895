// ABOUTME: Tests that MockStore honors the same contract as SQLiteStore
// ABOUTME: Keeps the mock trustworthy for orchestrator and httpapi tests

package store

import (
	"context"
	"testing"
	"time"
)

func TestMockStore_SessionLifecycle(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	if _, err := m.GetSession(ctx, "s1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := m.GetOrCreateSession(ctx, "s1"); err != nil {
		t.Fatalf("GetOrCreateSession failed: %v", err)
	}

	if _, err := m.AppendTurn(ctx, "s1", RoleUser, "hello"); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}
	if _, err := m.AppendTurn(ctx, "s1", RoleAssistant, "hi there"); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}

	sess, err := m.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(sess.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(sess.Turns))
	}
	if sess.Turns[0].Role != RoleUser || sess.Turns[1].Role != RoleAssistant {
		t.Errorf("turn roles out of order: %q, %q", sess.Turns[0].Role, sess.Turns[1].Role)
	}
}

func TestMockStore_SnapshotIsolation(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	if _, err := m.GetOrCreateSession(ctx, "s1"); err != nil {
		t.Fatalf("GetOrCreateSession failed: %v", err)
	}
	if _, err := m.AppendTurn(ctx, "s1", RoleUser, "hello"); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}

	sess, _ := m.GetSession(ctx, "s1")
	sess.Turns[0].Content = "tampered"

	again, _ := m.GetSession(ctx, "s1")
	if again.Turns[0].Content != "hello" {
		t.Error("mutating a returned session leaked into the store")
	}
}

func TestMockStore_EscalationUniqueness(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	esc := &Escalation{SessionKey: "s1", Name: "Ada", Email: "ada@example.com", Message: "help"}
	if err := m.CreateEscalation(ctx, esc); err != nil {
		t.Fatalf("CreateEscalation failed: %v", err)
	}
	if err := m.CreateEscalation(ctx, &Escalation{SessionKey: "s1", Name: "B", Email: "b@example.com", Message: "again"}); err != ErrDuplicateEscalation {
		t.Errorf("expected ErrDuplicateEscalation, got %v", err)
	}
}

func TestMockStore_ListEscalationsNewestFirst(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, key := range []string{"a", "b", "c"} {
		esc := &Escalation{
			SessionKey: key,
			Name:       key,
			Email:      key + "@example.com",
			Message:    "help",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := m.CreateEscalation(ctx, esc); err != nil {
			t.Fatalf("CreateEscalation failed: %v", err)
		}
	}

	got, total, err := m.ListEscalations(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListEscalations failed: %v", err)
	}
	if total != 3 || len(got) != 3 {
		t.Fatalf("expected 3 results, got %d (total %d)", len(got), total)
	}
	if got[0].SessionKey != "c" || got[2].SessionKey != "a" {
		t.Errorf("ordering wrong: %q ... %q", got[0].SessionKey, got[2].SessionKey)
	}
}

// Package store provides persistent storage for the gateway using SQLite.
//
// # Data Models
//
//   - Session: A conversation identified by a client-supplied session key,
//     holding an append-only ordered sequence of turns
//   - Turn: A single message with a role ("user" or "assistant"), text
//     content, and creation timestamp
//   - Escalation: A request to hand a session over to a human advisor,
//     at most one per session key
//
// # Interfaces
//
//   - ConversationStore: session lookup/creation and turn appends
//   - EscalationStore: escalation creation, lookup, and paginated listing
//   - Store: the union, implemented by SQLiteStore
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// The at-most-one-escalation-per-session invariant is enforced by a UNIQUE
// constraint on escalations.session_key; callers may perform an advisory
// existence check first, but the constraint is the source of truth under
// concurrent creation attempts.
//
// # Error Handling
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrDuplicateEscalation: The session already has an escalation
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests; it implements Store entirely in memory
// and honors the same contract, including escalation uniqueness.
package store

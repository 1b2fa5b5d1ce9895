// ABOUTME: Turn-processing state machine driving the two-round-trip tool-calling protocol
// ABOUTME: Serializes turns per session key and always terminates with a delivered reply

package orchestrator

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coursly/coursly-gateway/internal/llm"
	"github.com/coursly/coursly-gateway/internal/realtime"
	"github.com/coursly/coursly-gateway/internal/store"
)

const (
	defaultTurnTimeout = 60 * time.Second

	genericFailureReply   = "Sorry, something went wrong."
	toolParseFailureReply = "Error parsing tool call."
)

// systemPrompt anchors every completion. The model is instructed to answer
// only in {reply, needsEscalation} JSON and to flip needsEscalation whenever
// the user asks for a human.
const systemPrompt = `You are Coursly, a warm, friendly, empathetic support assistant for Business Analysis School.

All of your responses must be valid JSON objects with exactly two fields:
- "reply": string
- "needsEscalation": boolean

If the user intends to speak with a human advisor, agent, or representative (regardless of how they phrase it), always set "needsEscalation": true. Craft the "reply" naturally to ask the user for their name, email, and message for the human advisor. You can vary the wording every time, but the meaning should be clear.

For other questions, answer using only the data available through the tools.

Never output anything that is not a valid JSON object.

If in the same conversation the user still requests to speak to a representative, human assistant, or the support team, keep "needsEscalation" true; if they have already filled the escalation form, tell them the support team has received their message and will get back to them as soon as possible.`

// ToolResolver is the catalog surface the orchestrator needs: the schemas
// advertised to the model, and local resolution of a requested call.
type ToolResolver interface {
	Definitions() []llm.ToolDefinition
	Resolve(ctx context.Context, name string, args json.RawMessage, sessionKey string) json.RawMessage
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTurnTimeout bounds how long one turn may spend on model round trips
// and tool resolution before it is terminated with the generic failure reply.
func WithTurnTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.turnTimeout = d
		}
	}
}

// Orchestrator runs the turn-processing protocol: persist the user turn,
// one completion with free tool choice, resolve at most one requested tool,
// a follow-up completion forced onto the finishing function, persist and
// deliver the final reply.
//
// Turns for the same session key run strictly one at a time, in submission
// order. Turns for different keys run concurrently.
type Orchestrator struct {
	conversations store.ConversationStore
	model         llm.Client
	catalog       ToolResolver
	publisher     realtime.Publisher
	logger        *slog.Logger
	turnTimeout   time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending map[string][]string // session key -> queued turn contents; key present == worker running
	closed  bool
}

// New creates an orchestrator. Work submitted through Submit runs until
// Close is called.
func New(conversations store.ConversationStore, model llm.Client, catalog ToolResolver, publisher realtime.Publisher, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		conversations: conversations,
		model:         model,
		catalog:       catalog,
		publisher:     publisher,
		logger:        logger.With("component", "orchestrator"),
		turnTimeout:   defaultTurnTimeout,
		baseCtx:       ctx,
		cancel:        cancel,
		pending:       make(map[string][]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Submit enqueues one turn for asynchronous processing and returns
// immediately. The reply is delivered through the publisher, never to the
// caller. Submissions after Close are dropped.
func (o *Orchestrator) Submit(sessionKey, content string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		o.logger.Warn("turn submitted after shutdown, dropping", "session_key", sessionKey)
		return
	}

	_, running := o.pending[sessionKey]
	o.pending[sessionKey] = append(o.pending[sessionKey], content)
	if !running {
		o.wg.Add(1)
		go o.drain(sessionKey)
	}
}

// drain processes the queue for one session key until it is empty, then
// removes the key and exits. At most one drain goroutine exists per key.
func (o *Orchestrator) drain(sessionKey string) {
	defer o.wg.Done()
	for {
		o.mu.Lock()
		queue := o.pending[sessionKey]
		if len(queue) == 0 {
			delete(o.pending, sessionKey)
			o.mu.Unlock()
			return
		}
		content := queue[0]
		o.pending[sessionKey] = queue[1:]
		o.mu.Unlock()

		o.processTurn(sessionKey, content)
	}
}

// Close stops accepting new turns, cancels in-flight model calls, and waits
// for all workers to exit.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
}

// processTurn runs one turn end to end. The user turn is persisted before
// the composing signal goes out, and the delivery sequence is exactly one
// isTyping=true, then isTyping=false, then the reply. Turns that die before
// the user turn is durable skip the composing bracket and deliver only the
// failure reply.
func (o *Orchestrator) processTurn(sessionKey, content string) {
	ctx, cancel := context.WithTimeout(o.baseCtx, o.turnTimeout)
	defer cancel()

	started := time.Now()

	session, err := o.conversations.GetOrCreateSession(ctx, sessionKey)
	if err != nil {
		o.logger.Error("failed to load session", "session_key", sessionKey, "error", err)
		o.publisher.PublishReply(sessionKey, genericFailure())
		return
	}
	if _, err := o.conversations.AppendTurn(ctx, sessionKey, store.RoleUser, content); err != nil {
		o.logger.Error("failed to persist user turn", "session_key", sessionKey, "error", err)
		o.publisher.PublishReply(sessionKey, genericFailure())
		return
	}

	o.publisher.PublishTyping(sessionKey, true)
	payload := o.runTurn(ctx, sessionKey, session, content)
	o.publisher.PublishTyping(sessionKey, false)
	o.publisher.PublishReply(sessionKey, payload)

	o.logger.Info("turn processed",
		"session_key", sessionKey,
		"needs_escalation", payload.NeedsEscalation,
		"duration", time.Since(started).Round(time.Millisecond).String())
}

// runTurn is the protocol proper, starting from a loaded session whose user
// turn is already persisted. It always returns a payload; failures at any
// step collapse into the generic failure reply rather than silence.
func (o *Orchestrator) runTurn(ctx context.Context, sessionKey string, session *store.Session, content string) realtime.ReplyPayload {
	messages := make([]llm.Message, 0, len(session.Turns)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, turn := range session.Turns {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: content})

	definitions := o.catalog.Definitions()

	// First round trip: free tool choice.
	completion, err := o.model.Complete(ctx, llm.CompletionRequest{
		Messages: messages,
		Tools:    definitions,
	})
	if err != nil {
		o.logger.Error("first completion failed", "session_key", sessionKey, "error", err)
		return o.persistReply(ctx, sessionKey, genericFailure())
	}

	// Only the first requested call is honored; any extras are discarded.
	if len(completion.ToolCalls) > 0 {
		call := completion.ToolCalls[0]
		o.logger.Debug("model requested tool", "session_key", sessionKey, "tool", call.Name)

		result := o.catalog.Resolve(ctx, call.Name, json.RawMessage(call.Arguments), sessionKey)
		// The tool result must be paired with the assistant message that
		// requested the call, or the API rejects the transcript.
		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{call},
		})
		messages = append(messages, llm.Message{
			Role:       llm.RoleTool,
			Content:    string(result),
			ToolCallID: call.ID,
			Name:       call.Name,
		})

		// Follow-up round trip: forced onto the finishing function with a
		// JSON object response so the terminal payload is machine parseable.
		completion, err = o.model.Complete(ctx, llm.CompletionRequest{
			Messages:   messages,
			Tools:      definitions,
			ForceTool:  "support_reply",
			JSONObject: true,
		})
		if err != nil {
			o.logger.Error("follow-up completion failed", "session_key", sessionKey, "error", err)
			return o.persistReply(ctx, sessionKey, genericFailure())
		}
	}

	return o.persistReply(ctx, sessionKey, parseReply(completion))
}

// persistReply appends the assistant turn and hands the payload back for
// delivery. Persistence failure is logged but never blocks delivery.
func (o *Orchestrator) persistReply(ctx context.Context, sessionKey string, payload realtime.ReplyPayload) realtime.ReplyPayload {
	if _, err := o.conversations.AppendTurn(ctx, sessionKey, store.RoleAssistant, payload.Reply); err != nil {
		o.logger.Error("failed to persist assistant turn", "session_key", sessionKey, "error", err)
	}
	return payload
}

// parseReply extracts the {reply, needsEscalation} payload from the final
// completion. The ladder: content as JSON; content as raw text; forced tool
// call arguments as JSON; synthetic failures for everything else.
func parseReply(completion *llm.Completion) realtime.ReplyPayload {
	if completion == nil {
		return genericFailure()
	}

	if completion.Content != "" {
		var payload realtime.ReplyPayload
		if err := json.Unmarshal([]byte(completion.Content), &payload); err == nil {
			return payload
		}
		return realtime.ReplyPayload{Reply: completion.Content, NeedsEscalation: false}
	}

	if len(completion.ToolCalls) > 0 && completion.ToolCalls[0].Arguments != "" {
		var payload realtime.ReplyPayload
		if err := json.Unmarshal([]byte(completion.ToolCalls[0].Arguments), &payload); err == nil {
			return payload
		}
		return realtime.ReplyPayload{Reply: toolParseFailureReply, NeedsEscalation: true}
	}

	return genericFailure()
}

func genericFailure() realtime.ReplyPayload {
	return realtime.ReplyPayload{Reply: genericFailureReply, NeedsEscalation: true}
}

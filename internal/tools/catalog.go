// ABOUTME: Tool Catalog advertised to the model and resolved locally on request
// ABOUTME: Closed identifier set with typed dispatch and schema-checked arguments

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/coursly/coursly-gateway/internal/llm"
	"github.com/coursly/coursly-gateway/internal/store"
)

// ID identifies a tool in the catalog. The set is closed: dispatch is an
// exhaustive switch, and unknown names coming off the wire are converted to
// the Unknown sentinel at the JSON boundary, never dispatched.
type ID string

const (
	IDGetPrograms        ID = "getPrograms"
	IDGetPaymentOptions  ID = "getPaymentOptions"
	IDGetCareerOutcomes  ID = "getCareerOutcomes"
	IDGetEnrollmentSteps ID = "getEnrollmentSteps"
	IDAskUserName        ID = "askUserName"
	IDEscalateToHuman    ID = "escalateToHuman"

	// IDSupportReply is the designated finishing function. It is advertised
	// so the follow-up completion can be forced onto it, but it is resolved
	// by the orchestrator's reply parser, never dispatched here.
	IDSupportReply ID = "support_reply"
)

// Reply is the user-facing payload a tool produces when it answers directly.
type Reply struct {
	Reply           string `json:"reply"`
	NeedsEscalation bool   `json:"needsEscalation"`
}

// unknownToolSentinel is fed back to the model for tool names outside the
// catalog. Matches the raw payload shape the model is prompted around.
var unknownToolSentinel = json.RawMessage(`{"error":"Unknown tool"}`)

// EscalationNotifier is notified after an escalation record is created.
// Delivery is best effort; failures are logged and never surfaced.
type EscalationNotifier interface {
	NotifyEscalation(ctx context.Context, esc *store.Escalation) error
}

// definition pairs a tool ID with its model-facing schema.
type definition struct {
	id          ID
	description string
	parameters  string // JSON schema for the arguments object
}

var definitions = []definition{
	{
		id:          IDGetPrograms,
		description: "Returns all available Business Analysis programs with their descriptions and durations",
		parameters:  `{"type":"object","properties":{}}`,
	},
	{
		id:          IDGetPaymentOptions,
		description: "Returns the list of all payment methods",
		parameters:  `{"type":"object","properties":{}}`,
	},
	{
		id:          IDGetCareerOutcomes,
		description: "Returns all possible career outcomes and salary ranges",
		parameters:  `{"type":"object","properties":{}}`,
	},
	{
		id:          IDGetEnrollmentSteps,
		description: "Returns the official enrollment steps",
		parameters:  `{"type":"object","properties":{}}`,
	},
	{
		id:          IDAskUserName,
		description: "Prompts the user for their name to personalize the conversation",
		parameters:  `{"type":"object","properties":{}}`,
	},
	{
		id:          IDEscalateToHuman,
		description: "Escalates the conversation to a human advisor when the user explicitly requests it. Requires the user's name, email, and message.",
		parameters:  `{"type":"object","properties":{"name":{"type":"string"},"email":{"type":"string"},"message":{"type":"string"}},"required":["name","email","message"]}`,
	},
	{
		id:          IDSupportReply,
		description: "Reply to the user with text and escalation status",
		parameters:  `{"type":"object","properties":{"reply":{"type":"string"},"needsEscalation":{"type":"boolean"}},"required":["reply","needsEscalation"]}`,
	},
}

// Catalog resolves tool calls requested by the model. Pure lookup tools
// return static structured data; escalateToHuman creates an escalation
// record through the store.
type Catalog struct {
	escalations store.EscalationStore
	notifier    EscalationNotifier
	schemas     map[ID]*gojsonschema.Schema
	logger      *slog.Logger
}

// NewCatalog creates a catalog backed by the given escalation store.
// notifier may be nil. Compiles every tool's parameter schema up front.
func NewCatalog(escalations store.EscalationStore, notifier EscalationNotifier, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	schemas := make(map[ID]*gojsonschema.Schema, len(definitions))
	for _, def := range definitions {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(def.parameters))
		if err != nil {
			return nil, fmt.Errorf("compiling schema for %s: %w", def.id, err)
		}
		schemas[def.id] = schema
	}

	return &Catalog{
		escalations: escalations,
		notifier:    notifier,
		schemas:     schemas,
		logger:      logger.With("component", "tools"),
	}, nil
}

// Definitions returns the full tool schema list advertised to the model.
func (c *Catalog) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(definitions))
	for _, def := range definitions {
		defs = append(defs, llm.ToolDefinition{
			Name:        string(def.id),
			Description: def.description,
			Parameters:  json.RawMessage(def.parameters),
		})
	}
	return defs
}

// Resolve runs the named tool and returns its result payload as JSON, ready
// to be appended to the conversation as a tool result. Unknown names yield
// the sentinel payload; tool-level failures yield soft-failure replies.
// Resolve never returns an error to the caller.
func (c *Catalog) Resolve(ctx context.Context, name string, args json.RawMessage, sessionKey string) json.RawMessage {
	id, ok := parseID(name)
	if !ok {
		c.logger.Warn("model requested unknown tool", "tool", name)
		return unknownToolSentinel
	}

	if len(args) == 0 || !json.Valid(args) {
		args = json.RawMessage(`{}`)
	}
	argsValid := c.validateArgs(id, args)

	switch id {
	case IDGetPrograms:
		return mustMarshal(programs)
	case IDGetPaymentOptions:
		return mustMarshal(paymentOptions)
	case IDGetCareerOutcomes:
		return mustMarshal(careerOutcomes)
	case IDGetEnrollmentSteps:
		return mustMarshal(enrollmentSteps)
	case IDAskUserName:
		return mustMarshal(Reply{
			Reply:           "Hi there! Before we get started, may I know your name?",
			NeedsEscalation: false,
		})
	case IDEscalateToHuman:
		return c.escalate(ctx, args, argsValid, sessionKey)
	case IDSupportReply:
		// The finishing function carries the final answer in its arguments;
		// echo them back unchanged.
		return args
	}

	// Unreachable: parseID only returns catalog members
	return unknownToolSentinel
}

// parseID converts a wire tool name into a catalog ID.
func parseID(name string) (ID, bool) {
	switch ID(name) {
	case IDGetPrograms, IDGetPaymentOptions, IDGetCareerOutcomes,
		IDGetEnrollmentSteps, IDAskUserName, IDEscalateToHuman, IDSupportReply:
		return ID(name), true
	}
	return "", false
}

// validateArgs checks the arguments object against the tool's declared schema.
func (c *Catalog) validateArgs(id ID, args json.RawMessage) bool {
	schema, ok := c.schemas[id]
	if !ok {
		return false
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		c.logger.Debug("tool argument validation errored", "tool", id, "error", err)
		return false
	}
	if !result.Valid() {
		c.logger.Debug("tool arguments rejected by schema", "tool", id, "errors", fmt.Sprint(result.Errors()))
		return false
	}
	return true
}

// mustMarshal serializes static tool data. The datasets are compile-time
// constants, so marshaling cannot fail at runtime.
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshaling tool data: %v", err))
	}
	return data
}

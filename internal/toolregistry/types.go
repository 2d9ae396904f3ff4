// Package toolregistry holds the in-memory set of tool definitions shared by
// a plugin bridge's MCP and v1 REST surfaces, and computes the stable
// fingerprint a poller uses to detect changes in O(1).
package toolregistry

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// Source tags where a ToolDefinition came from.
type Source string

const (
	SourceBuiltin Source = "builtin"
	SourceScript  Source = "script"
)

// ContentItem is one element of a tool call result. Kind distinguishes the
// typed MCP content variants; unrecognised kinds are serialised to "text"
// carrying the JSON form of Value by the executor.
type ContentItem struct {
	Kind  string // "text", "image", or any opaque tag
	Text  string
	Value interface{} // used when Kind is not "text"/"image"
}

// Text builds a text content item.
func Text(s string) ContentItem {
	return ContentItem{Kind: "text", Text: s}
}

// CallResult is the host-neutral result of a tool invocation, mirroring the
// shape a handler returns before it is translated to the MCP wire format.
type CallResult struct {
	Content []ContentItem
	IsError bool
}

// ErrorResult builds a CallResult carrying a single text error message.
func ErrorResult(message string) *CallResult {
	return &CallResult{Content: []ContentItem{Text(message)}, IsError: true}
}

// HostContext is the explicit context passed to every tool handler in place
// of ambient globals. SessionID lets a handler consult or mutate per-session
// precondition state through the executor that invokes it.
type HostContext struct {
	SessionID string
	UserID    string
}

// Handler executes one tool invocation given its arguments and the calling
// host context.
type Handler func(ctx context.Context, args map[string]interface{}, host *HostContext) (*CallResult, error)

// ToolDefinition is an immutable tool registration: a unique name, a human
// description, an object-typed JSON Schema for its arguments, and the
// handler that executes it. Definitions are never mutated after
// registration; changing a tool means unregistering and re-registering it.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Handler     Handler
}

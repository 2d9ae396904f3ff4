package toolexec

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/daichi-629/obsiscripta-mcp/internal/toolregistry"
	"github.com/daichi-629/obsiscripta-mcp/pkg/logging"
)

const editNoteName = "edit_note"
const readNoteName = "read_note"

// Executor dispatches tool calls against a toolregistry.Registry, enforcing
// the one precondition the specification mandates: edit_note requires a
// prior successful read_note in the same session.
type Executor struct {
	registry *toolregistry.Registry
}

// New creates an Executor bound to the given registry.
func New(registry *toolregistry.Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute looks up name, enforces preconditions against state, invokes the
// handler, and normalises its result. It never returns a transport-level
// error for a failed tool call: an unknown tool name is reported exactly
// like a failed handler, in-band via CallResult.IsError, so every caller
// answers it with a 200 and a JSON-RPC success envelope rather than a 4xx.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]interface{}, host *toolregistry.HostContext, state PreconditionState) (*toolregistry.CallResult, error) {
	def, ok := e.registry.Get(name)
	if !ok {
		return toolregistry.ErrorResult(fmt.Sprintf("Error: Tool '%s' not found", name)), nil
	}

	if name == editNoteName && state != nil && !state.HasReadNote() {
		return toolregistry.ErrorResult("read_note must be called before edit_note"), nil
	}

	result, err := e.invoke(ctx, def, args, host)
	if err != nil {
		logging.Error("ToolExecutor", err, "tool %q failed for session %s", name, logging.TruncateSessionID(host.SessionID))
		return toolregistry.ErrorResult(fmt.Sprintf("Error: %v", err)), nil
	}

	if name == readNoteName && !result.IsError && state != nil {
		state.MarkReadNote()
	}

	return normalize(result), nil
}

// invoke runs the handler, converting a panic into an error so a single
// misbehaving tool can never take down the serving goroutine.
func (e *Executor) invoke(ctx context.Context, def *toolregistry.ToolDefinition, args map[string]interface{}, host *toolregistry.HostContext) (result *toolregistry.CallResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return def.Handler(ctx, args, host)
}

// normalize ensures every content item carries a well-formed Kind: "text"
// items pass through, "image" items pass through, and anything else is
// reduced to a "text" item carrying the JSON form of Value.
func normalize(result *toolregistry.CallResult) *toolregistry.CallResult {
	if result == nil {
		return &toolregistry.CallResult{}
	}

	out := make([]toolregistry.ContentItem, len(result.Content))
	for i, item := range result.Content {
		switch item.Kind {
		case "text", "image":
			out[i] = item
		default:
			b, marshalErr := json.Marshal(item.Value)
			if marshalErr != nil {
				out[i] = toolregistry.Text(fmt.Sprintf("%v", item.Value))
				continue
			}
			out[i] = toolregistry.Text(string(b))
		}
	}

	return &toolregistry.CallResult{Content: out, IsError: result.IsError}
}

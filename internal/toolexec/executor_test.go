package toolexec

import (
	"context"
	"errors"
	"testing"

	"github.com/daichi-629/obsiscripta-mcp/internal/toolregistry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeState struct {
	read bool
}

func (f *fakeState) HasReadNote() bool { return f.read }
func (f *fakeState) MarkReadNote()     { f.read = true }

func newRegistryWithHandler(t *testing.T, name string, h toolregistry.Handler) *toolregistry.Registry {
	t.Helper()
	r := toolregistry.New()
	require.NoError(t, r.Register(&toolregistry.ToolDefinition{Name: name, Handler: h}, toolregistry.SourceBuiltin))
	return r
}

func TestExecute_ToolNotFound(t *testing.T) {
	r := toolregistry.New()
	e := New(r)

	result, err := e.Execute(context.Background(), "missing", nil, &toolregistry.HostContext{}, nil)
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Equal(t, "Error: Tool 'missing' not found", result.Content[0].Text)
}

func TestExecute_EditNoteBlockedWithoutReadNote(t *testing.T) {
	r := newRegistryWithHandler(t, "edit_note", func(ctx context.Context, args map[string]interface{}, host *toolregistry.HostContext) (*toolregistry.CallResult, error) {
		return &toolregistry.CallResult{Content: []toolregistry.ContentItem{toolregistry.Text("edited")}}, nil
	})
	e := New(r)
	state := &fakeState{}

	result, err := e.Execute(context.Background(), "edit_note", nil, &toolregistry.HostContext{}, state)
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "read_note must be called before edit_note")
}

func TestExecute_EditNoteAllowedAfterReadNote(t *testing.T) {
	r := newRegistryWithHandler(t, "edit_note", func(ctx context.Context, args map[string]interface{}, host *toolregistry.HostContext) (*toolregistry.CallResult, error) {
		return &toolregistry.CallResult{Content: []toolregistry.ContentItem{toolregistry.Text("edited")}}, nil
	})
	e := New(r)
	state := &fakeState{read: true}

	result, err := e.Execute(context.Background(), "edit_note", nil, &toolregistry.HostContext{}, state)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "edited", result.Content[0].Text)
}

func TestExecute_ReadNoteMarksPrecondition(t *testing.T) {
	r := newRegistryWithHandler(t, "read_note", func(ctx context.Context, args map[string]interface{}, host *toolregistry.HostContext) (*toolregistry.CallResult, error) {
		return &toolregistry.CallResult{Content: []toolregistry.ContentItem{toolregistry.Text("contents")}}, nil
	})
	e := New(r)
	state := &fakeState{}

	_, err := e.Execute(context.Background(), "read_note", nil, &toolregistry.HostContext{}, state)
	require.NoError(t, err)
	assert.True(t, state.HasReadNote())
}

func TestExecute_FailedReadNoteDoesNotMarkPrecondition(t *testing.T) {
	r := newRegistryWithHandler(t, "read_note", func(ctx context.Context, args map[string]interface{}, host *toolregistry.HostContext) (*toolregistry.CallResult, error) {
		return toolregistry.ErrorResult("note not found"), nil
	})
	e := New(r)
	state := &fakeState{}

	result, err := e.Execute(context.Background(), "read_note", nil, &toolregistry.HostContext{}, state)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.False(t, state.HasReadNote())
}

func TestExecute_HandlerErrorBecomesInBandResult(t *testing.T) {
	r := newRegistryWithHandler(t, "boom", func(ctx context.Context, args map[string]interface{}, host *toolregistry.HostContext) (*toolregistry.CallResult, error) {
		return nil, errors.New("disk on fire")
	})
	e := New(r)

	result, err := e.Execute(context.Background(), "boom", nil, &toolregistry.HostContext{}, nil)
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "disk on fire")
}

func TestExecute_HandlerPanicBecomesInBandResult(t *testing.T) {
	r := newRegistryWithHandler(t, "panics", func(ctx context.Context, args map[string]interface{}, host *toolregistry.HostContext) (*toolregistry.CallResult, error) {
		panic("unexpected nil pointer")
	})
	e := New(r)

	result, err := e.Execute(context.Background(), "panics", nil, &toolregistry.HostContext{}, nil)
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "panic")
}

func TestExecute_NormalizesOpaqueContent(t *testing.T) {
	r := newRegistryWithHandler(t, "structured", func(ctx context.Context, args map[string]interface{}, host *toolregistry.HostContext) (*toolregistry.CallResult, error) {
		return &toolregistry.CallResult{Content: []toolregistry.ContentItem{{Kind: "struct", Value: map[string]int{"count": 3}}}}, nil
	})
	e := New(r)

	result, err := e.Execute(context.Background(), "structured", nil, &toolregistry.HostContext{}, nil)
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Kind)
	assert.JSONEq(t, `{"count":3}`, result.Content[0].Text)
}

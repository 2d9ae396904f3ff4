package main

import (
	"context"
	"fmt"

	"github.com/daichi-629/obsiscripta-mcp/internal/toolregistry"
	"github.com/google/jsonschema-go/jsonschema"
)

// registerDemoTools seeds the registry with read_note and edit_note so a
// freshly started bridge has something to exercise the registry, executor,
// and precondition wiring end to end. Real note CRUD and the scripting
// system that would normally populate the registry at runtime are both out
// of scope here; these two handlers operate on an in-memory map rather than
// an actual vault.
func registerDemoTools(registry *toolregistry.Registry) error {
	notes := newDemoNoteStore()

	readNote := &toolregistry.ToolDefinition{
		Name:        "read_note",
		Description: "Read the contents of a note by path.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {Type: "string"},
			},
			Required: []string{"path"},
		},
		Handler: notes.read,
	}
	editNote := &toolregistry.ToolDefinition{
		Name:        "edit_note",
		Description: "Replace the contents of a previously read note.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path":    {Type: "string"},
				"content": {Type: "string"},
			},
			Required: []string{"path", "content"},
		},
		Handler: notes.edit,
	}

	if err := registry.Register(readNote, toolregistry.SourceBuiltin); err != nil {
		return err
	}
	return registry.Register(editNote, toolregistry.SourceBuiltin)
}

// demoNoteStore is a tiny in-memory stand-in for a note vault, enough to
// give read_note/edit_note something to do.
type demoNoteStore struct {
	notes map[string]string
}

func newDemoNoteStore() *demoNoteStore {
	return &demoNoteStore{notes: map[string]string{
		"welcome.md": "# Welcome\n\nThis vault is a placeholder for demonstration purposes.",
	}}
}

func (s *demoNoteStore) read(ctx context.Context, args map[string]interface{}, host *toolregistry.HostContext) (*toolregistry.CallResult, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return toolregistry.ErrorResult("path is required"), nil
	}

	content, ok := s.notes[path]
	if !ok {
		return toolregistry.ErrorResult(fmt.Sprintf("note %q not found", path)), nil
	}
	return &toolregistry.CallResult{Content: []toolregistry.ContentItem{toolregistry.Text(content)}}, nil
}

func (s *demoNoteStore) edit(ctx context.Context, args map[string]interface{}, host *toolregistry.HostContext) (*toolregistry.CallResult, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	if path == "" {
		return toolregistry.ErrorResult("path is required"), nil
	}

	s.notes[path] = content
	return &toolregistry.CallResult{Content: []toolregistry.ContentItem{toolregistry.Text(fmt.Sprintf("wrote %d bytes to %s", len(content), path))}}, nil
}

package toolregistry

import (
	"sort"
	"sync"

	"github.com/daichi-629/obsiscripta-mcp/pkg/logging"
)

// entry pairs a tool definition with the source it was registered under.
type entry struct {
	def    *ToolDefinition
	source Source
}

// Registry is the thread-safe, in-memory mapping from tool name to
// (ToolDefinition, source). Names are unique across sources: registering a
// name that is already taken, regardless of source, fails.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates an empty tool registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds a tool under the given source tag. Returns a
// *DuplicateToolError if the name is already registered, or an
// *InvalidToolError if the definition itself is malformed.
func (r *Registry) Register(def *ToolDefinition, source Source) error {
	if def.Name == "" {
		return &InvalidToolError{Reason: "name must not be empty"}
	}
	if def.Handler == nil {
		return &InvalidToolError{Reason: "handler must not be nil"}
	}
	if def.InputSchema != nil && def.InputSchema.Type != "" && def.InputSchema.Type != "object" {
		return &InvalidToolError{Reason: "input schema root must be object-typed"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[def.Name]; exists {
		return &DuplicateToolError{Name: def.Name}
	}

	r.entries[def.Name] = &entry{def: def, source: source}
	logging.Debug("ToolRegistry", "Registered tool %q (source=%s, total=%d)", def.Name, source, len(r.entries))
	return nil
}

// Unregister removes a tool by name. Removing an absent name is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; !exists {
		return
	}
	delete(r.entries, name)
	logging.Debug("ToolRegistry", "Unregistered tool %q (total=%d)", name, len(r.entries))
}

// Get returns the definition registered under name, or false if absent.
func (r *Registry) Get(name string) (*ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[name]
	if !exists {
		return nil, false
	}
	return e.def, true
}

// List returns the current tools in stable name-sorted order together with
// the fingerprint of that exact set.
func (r *Registry) List() ([]*ToolDefinition, string, error) {
	r.mu.RLock()
	defs := make([]*ToolDefinition, 0, len(r.entries))
	for _, e := range r.entries {
		defs = append(defs, e.def)
	}
	r.mu.RUnlock()

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })

	fp, err := Fingerprint(defs)
	if err != nil {
		return nil, "", err
	}
	return defs, fp, nil
}

// Fingerprint returns only the current fingerprint, without materialising
// the tool list, for cheap change-detection polling.
func (r *Registry) Fingerprint() (string, error) {
	r.mu.RLock()
	defs := make([]*ToolDefinition, 0, len(r.entries))
	for _, e := range r.entries {
		defs = append(defs, e.def)
	}
	r.mu.RUnlock()
	return Fingerprint(defs)
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

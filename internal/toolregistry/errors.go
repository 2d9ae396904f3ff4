package toolregistry

// DuplicateToolError is returned when Register is called with a name that
// already exists in the registry, regardless of source.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return "tool already registered: " + e.Name
}

// InvalidToolError is returned when a ToolDefinition fails validation on
// registration (empty name, nil handler, non-object input schema).
type InvalidToolError struct {
	Reason string
}

func (e *InvalidToolError) Error() string {
	return "invalid tool definition: " + e.Reason
}

package toolregistry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// canonicalTool is the wire shape each tool is reduced to before hashing:
// {name, description, inputSchema}. It is marshalled through an
// interface{} round-trip so that encoding/json's built-in behaviour of
// emitting map keys in sorted order applies recursively to every nested
// object in inputSchema, not just the top level.
type canonicalTool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema interface{} `json:"inputSchema"`
}

// Fingerprint computes the SHA-256 hex digest of the canonical JSON form of
// the given tool list. Tools are hashed in name-sorted order regardless of
// the order they are passed in, so registration order never affects the
// result. Identical tool sets always produce identical fingerprints.
func Fingerprint(tools []*ToolDefinition) (string, error) {
	sorted := make([]*ToolDefinition, len(tools))
	copy(sorted, tools)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	h := sha256.New()
	for _, t := range sorted {
		canon, err := canonicalize(t)
		if err != nil {
			return "", err
		}
		h.Write(canon)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func canonicalize(t *ToolDefinition) ([]byte, error) {
	schemaBytes, err := json.Marshal(t.InputSchema)
	if err != nil {
		return nil, err
	}

	var generic interface{}
	if err := json.Unmarshal(schemaBytes, &generic); err != nil {
		return nil, err
	}

	return json.Marshal(canonicalTool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: generic,
	})
}

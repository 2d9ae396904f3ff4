package pluginbridge

import (
	"encoding/json"

	"github.com/daichi-629/obsiscripta-mcp/internal/toolregistry"
	"github.com/mark3labs/mcp-go/mcp"
)

// toMCPResult converts an executor CallResult (already content-normalised
// to text/image/opaque) into mcp-go's wire result type.
func toMCPResult(result *toolregistry.CallResult) *mcp.CallToolResult {
	content := make([]mcp.Content, len(result.Content))
	for i, item := range result.Content {
		switch item.Kind {
		case "text":
			content[i] = mcp.NewTextContent(item.Text)
		default:
			b, err := json.Marshal(item.Value)
			if err != nil {
				content[i] = mcp.NewTextContent(item.Text)
				continue
			}
			content[i] = mcp.NewTextContent(string(b))
		}
	}

	return &mcp.CallToolResult{Content: content, IsError: result.IsError}
}

package gateway

import "encoding/json"

// rpcEnvelope is the minimal JSON-RPC 2.0 shape the router needs to read:
// enough to dispatch on method and echo the request id in synthesized
// responses. Everything else rides through as opaque bytes.
type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func parseEnvelope(body []byte) (*rpcEnvelope, error) {
	var env rpcEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// rpcError builds a JSON-RPC 2.0 error response body.
func rpcError(id json.RawMessage, code int, message string) []byte {
	out, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
	return out
}

// rpcResult builds a JSON-RPC 2.0 success response body.
func rpcResult(id json.RawMessage, result interface{}) []byte {
	out, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"result":  result,
	})
	return out
}

// toolCallErrorResult builds a tools/call success envelope whose payload is
// an in-band CallToolResult error, mirroring how the executor reports a
// failed precondition: a protocol-level success carrying a tool-level
// failure, not a transport error.
func toolCallErrorResult(id json.RawMessage, message string) []byte {
	return rpcResult(id, map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": message},
		},
		"isError": true,
	})
}

const (
	methodToolsCall  = "tools/call"
	methodToolsList  = "tools/list"
	methodInitialize = "initialize"
)

// toolsListChangedNotification builds the JSON-RPC notification tier B
// pushes over SSE when a bound plugin's tool fingerprint changes.
// Notifications carry no id field.
func toolsListChangedNotification() []byte {
	out, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  "notifications/tools/list_changed",
	})
	return out
}

// initializeResult builds the local initialize response tier B answers
// with directly, without ever reaching the UpstreamRouter: the client's
// handshake is with the gateway itself, not with whatever plugin its user
// happens to be bound to.
func initializeResult(id json.RawMessage) []byte {
	return rpcResult(id, map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{"listChanged": true},
		},
		"serverInfo": map[string]interface{}{
			"name":    "obsiscripta-gateway",
			"version": "1.0.0",
		},
	})
}

package pluginbridge

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/daichi-629/obsiscripta-mcp/internal/toolregistry"
)

// maxV1BodyBytes bounds a v1 call body to 1 MiB per the bridge contract.
const maxV1BodyBytes = 1 << 20

// v1SessionID is the single shared precondition session for the v1 REST
// surface, which carries no per-caller session header.
const v1SessionID = "bridge-v1"

var v1Validate = validator.New()

type callBody struct {
	Arguments map[string]interface{} `json:"arguments" validate:"required"`
}

type toolSummary struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema interface{} `json:"inputSchema"`
}

type toolsListResponse struct {
	Tools       []toolSummary `json:"tools"`
	Fingerprint string        `json:"hash"`
}

type callResponse struct {
	Success bool                       `json:"success"`
	IsError bool                       `json:"isError"`
	Content []toolregistry.ContentItem `json:"content"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// v1Health handles GET /bridge/v1/health.
func v1Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// v1Tools handles GET /bridge/v1/tools, publishing the current fingerprint
// on every response so a poller can cheaply detect changes.
func (b *Bridge) v1Tools(w http.ResponseWriter, r *http.Request) {
	defs, fp, err := b.registry.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	tools := make([]toolSummary, len(defs))
	for i, def := range defs {
		tools[i] = toolSummary{Name: def.Name, Description: def.Description, InputSchema: def.InputSchema}
	}
	writeJSON(w, http.StatusOK, toolsListResponse{Tools: tools, Fingerprint: fp})
}

// v1Call handles POST /bridge/v1/tools/{name}/call.
func (b *Bridge) v1Call(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "only POST is supported")
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxV1BodyBytes+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", "failed to read request body")
			return
		}
		if len(body) > maxV1BodyBytes {
			writeError(w, http.StatusBadRequest, "body_too_large", "request body exceeds 1 MiB")
			return
		}

		var call callBody
		if err := json.Unmarshal(body, &call); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
		if err := v1Validate.Struct(call); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_arguments", err.Error())
			return
		}

		// The v1 surface carries no session header; all callers share one
		// precondition session, matching its stateless-REST contract.
		host := &toolregistry.HostContext{SessionID: v1SessionID}
		session, err := b.sessions.GetOrCreate(host.SessionID, "")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "session_error", err.Error())
			return
		}

		result, err := b.executor.Execute(r.Context(), name, call.Arguments, host, session)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, callResponse{Success: !result.IsError, IsError: result.IsError, Content: result.Content})
	}
}

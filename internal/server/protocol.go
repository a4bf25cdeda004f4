// Package server exposes the gateway over HTTP and stdio transports. Both
// transports funnel every tool call through the same dispatcher; the
// transport layer only parses requests and shapes responses.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/opsgate/opsgate/internal/dispatch"
	"github.com/opsgate/opsgate/internal/tools"
)

const (
	protocolVersion = "2024-11-05"
	serverName      = "opsgate"

	// credentialArgument lets stdio clients pass their API key inside tool
	// arguments. It is stripped before validation and never reaches handlers
	// or the audit trail.
	credentialArgument = "_api_key"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

// envelope is the uniform response wrapper both transports emit.
type envelope struct {
	Status    string         `json:"status"`
	Result    map[string]any `json:"result,omitempty"`
	ErrorKind string         `json:"errorKind,omitempty"`
	Message   string         `json:"message,omitempty"`
}

func okEnvelope(result map[string]any) envelope {
	return envelope{Status: statusOK, Result: result}
}

func errorEnvelope(err *dispatch.Error) envelope {
	return envelope{
		Status:    statusError,
		ErrorKind: string(err.Kind),
		Message:   err.Message,
	}
}

// httpStatusForKind maps dispatcher error kinds onto HTTP status codes.
func httpStatusForKind(kind dispatch.Kind) int {
	switch kind {
	case dispatch.KindUnauthenticated:
		return http.StatusUnauthorized
	case dispatch.KindUnauthorized:
		return http.StatusForbidden
	case dispatch.KindInvalidInput, dispatch.KindUnsafeQuery:
		return http.StatusBadRequest
	case dispatch.KindTimeout:
		return http.StatusGatewayTimeout
	case dispatch.KindAuditUnavailable:
		return http.StatusServiceUnavailable
	case dispatch.KindExecutionFailure:
		return http.StatusBadGateway
	case dispatch.KindInvalidOutput:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

type initializeResult struct {
	ProtocolVersion string `json:"protocolVersion"`
	ServerInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
	Capabilities struct {
		Tools struct {
			ListChanged bool `json:"listChanged"`
		} `json:"tools"`
		Prompts struct {
			ListChanged bool `json:"listChanged"`
		} `json:"prompts"`
	} `json:"capabilities"`
}

func newInitializeResult(version string) initializeResult {
	result := initializeResult{ProtocolVersion: protocolVersion}
	result.ServerInfo.Name = serverName
	result.ServerInfo.Version = version
	return result
}

type listToolsResult struct {
	Tools []toolDescriptor `json:"tools"`
}

type toolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

func describeTools(registry *tools.Registry) listToolsResult {
	items := make([]toolDescriptor, 0, len(registry.List()))
	for _, tool := range registry.List() {
		items = append(items, toolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	return listToolsResult{Tools: items}
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// extractCredential pulls the caller credential out of tool arguments,
// returning the remaining arguments. A header credential wins when both are
// present.
func extractCredential(headerCredential string, arguments map[string]any) (string, map[string]any) {
	if arguments == nil {
		return headerCredential, map[string]any{}
	}
	embedded, _ := arguments[credentialArgument].(string)
	remaining := make(map[string]any, len(arguments))
	for key, value := range arguments {
		if key == credentialArgument {
			continue
		}
		remaining[key] = value
	}
	if headerCredential != "" {
		return headerCredential, remaining
	}
	return embedded, remaining
}

type callToolResult struct {
	Content           []contentBlock `json:"content"`
	IsError           bool           `json:"isError"`
	StructuredContent map[string]any `json:"structuredContent,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// callResultFromEnvelope renders an envelope into MCP tool-call content.
func callResultFromEnvelope(env envelope) callToolResult {
	encoded, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		encoded = []byte(`{"status":"error","errorKind":"execution_failure","message":"unserializable result"}`)
	}
	structured := map[string]any{"status": env.Status}
	if env.Status == statusError {
		structured["errorKind"] = env.ErrorKind
	}
	return callToolResult{
		Content:           []contentBlock{{Type: "text", Text: string(encoded)}},
		IsError:           env.Status == statusError,
		StructuredContent: structured,
	}
}

package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/opsgate/opsgate/internal/dispatch"
	"github.com/opsgate/opsgate/internal/tools"
)

const (
	rpcCodeInvalidRequest = -32600
	rpcCodeMethodNotFound = -32601
	rpcCodeInvalidParams  = -32602
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// StdioServer handles gateway requests over stdin/stdout using line-delimited
// JSON-RPC messages.
type StdioServer struct {
	registry   *tools.Registry
	dispatcher *dispatch.Dispatcher
	version    string
	logger     zerolog.Logger
}

// NewStdioServer creates a stdio transport server.
func NewStdioServer(registry *tools.Registry, dispatcher *dispatch.Dispatcher, version string, logger zerolog.Logger) *StdioServer {
	return &StdioServer{
		registry:   registry,
		dispatcher: dispatcher,
		version:    version,
		logger:     logger,
	}
}

// Run reads requests from in until EOF or context cancellation.
func (s *StdioServer) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	// Allow larger requests in stdio mode (up to 4 MiB per message).
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	writer := bufio.NewWriter(out)
	defer writer.Flush()

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			if writeErr := writeRPC(writer, rpcResponse{
				JSONRPC: "2.0",
				Error: &rpcError{
					Code:    rpcCodeInvalidRequest,
					Message: fmt.Sprintf("invalid json-rpc payload: %v", err),
				},
			}); writeErr != nil {
				return writeErr
			}
			continue
		}

		if err := writeRPC(writer, s.handle(ctx, req)); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stdio request: %w", err)
	}
	return nil
}

func writeRPC(w *bufio.Writer, resp rpcResponse) error {
	encoded, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding rpc response: %w", err)
	}
	if _, err := w.Write(encoded); err != nil {
		return fmt.Errorf("writing rpc response: %w", err)
	}
	if err := w.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing rpc newline: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing rpc response: %w", err)
	}
	return nil
}

func (s *StdioServer) handle(ctx context.Context, req rpcRequest) rpcResponse {
	response := rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
	}

	if strings.TrimSpace(req.JSONRPC) != "2.0" {
		response.Error = &rpcError{
			Code:    rpcCodeInvalidRequest,
			Message: "jsonrpc must be 2.0",
		}
		return response
	}

	switch strings.TrimSpace(req.Method) {
	case "initialize":
		response.Result = newInitializeResult(s.version)
		return response

	case "tools/list":
		response.Result = describeTools(s.registry)
		return response

	case "tools/call":
		var params callToolParams
		if len(req.Params) == 0 {
			response.Error = &rpcError{
				Code:    rpcCodeInvalidParams,
				Message: "missing params",
			}
			return response
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			response.Error = &rpcError{
				Code:    rpcCodeInvalidParams,
				Message: fmt.Sprintf("invalid tools/call params: %v", err),
			}
			return response
		}

		toolName := strings.TrimSpace(params.Name)
		s.logger.Info().Str("transport", "stdio").Str("tool", toolName).Msg("received tool call")

		credential, arguments := extractCredential("", params.Arguments)
		result, dispatchErr := s.dispatcher.Dispatch(ctx, credential, toolName, arguments)
		if dispatchErr != nil {
			response.Result = callResultFromEnvelope(errorEnvelope(dispatchErr))
			return response
		}
		response.Result = callResultFromEnvelope(okEnvelope(result))
		return response

	case "prompts/list":
		response.Result = listPrompts()
		return response

	case "prompts/get":
		var params struct {
			Name      string            `json:"name"`
			Arguments map[string]string `json:"arguments,omitempty"`
		}
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				response.Error = &rpcError{
					Code:    rpcCodeInvalidParams,
					Message: fmt.Sprintf("invalid prompts/get params: %v", err),
				}
				return response
			}
		}
		result, err := getPrompt(strings.TrimSpace(params.Name), params.Arguments)
		if err != nil {
			response.Error = &rpcError{
				Code:    rpcCodeInvalidParams,
				Message: err.Error(),
			}
			return response
		}
		response.Result = result
		return response

	default:
		response.Error = &rpcError{
			Code:    rpcCodeMethodNotFound,
			Message: fmt.Sprintf("unknown method: %s", strings.TrimSpace(req.Method)),
		}
		return response
	}
}

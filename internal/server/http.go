package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

func (s *HTTPServer) handleInitialize(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, newInitializeResult(s.version))
}

func (s *HTTPServer) handleListTools(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, describeTools(s.registry))
}

func (s *HTTPServer) handleCallTool(w http.ResponseWriter, r *http.Request) {
	var params callToolParams
	if err := decodeJSONStrict(r, &params); err != nil {
		respondJSON(w, http.StatusBadRequest, envelope{
			Status:    statusError,
			ErrorKind: "invalid_input",
			Message:   fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}

	credential, arguments := extractCredential(bearerCredential(r), params.Arguments)
	result, dispatchErr := s.dispatcher.Dispatch(r.Context(), credential, strings.TrimSpace(params.Name), arguments)
	if dispatchErr != nil {
		respondJSON(w, httpStatusForKind(dispatchErr.Kind), errorEnvelope(dispatchErr))
		return
	}
	respondJSON(w, http.StatusOK, okEnvelope(result))
}

func (s *HTTPServer) handleCallToolSSE(w http.ResponseWriter, r *http.Request) {
	var params callToolParams
	if err := decodeJSONStrict(r, &params); err != nil {
		respondJSON(w, http.StatusBadRequest, envelope{
			Status:    statusError,
			ErrorKind: "invalid_input",
			Message:   fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}

	controller := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	toolName := strings.TrimSpace(params.Name)
	if err := writeSSEEvent(w, "accepted", map[string]any{
		"tool":      toolName,
		"status":    "accepted",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return
	}
	_ = controller.Flush()

	credential, arguments := extractCredential(bearerCredential(r), params.Arguments)
	result, dispatchErr := s.dispatcher.Dispatch(r.Context(), credential, toolName, arguments)

	var env envelope
	if dispatchErr != nil {
		env = errorEnvelope(dispatchErr)
	} else {
		env = okEnvelope(result)
	}
	if err := writeSSEEvent(w, "result", env); err != nil {
		return
	}
	_ = controller.Flush()
	_ = writeSSEEvent(w, "done", map[string]any{"status": "done"})
	_ = controller.Flush()
}

func (s *HTTPServer) handleListPrompts(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, listPrompts())
}

func (s *HTTPServer) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	var params struct {
		Name      string            `json:"name"`
		Arguments map[string]string `json:"arguments,omitempty"`
	}
	if err := decodeJSONStrict(r, &params); err != nil {
		respondJSON(w, http.StatusBadRequest, envelope{
			Status:    statusError,
			ErrorKind: "invalid_input",
			Message:   fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}

	result, err := getPrompt(strings.TrimSpace(params.Name), params.Arguments)
	if err != nil {
		respondJSON(w, http.StatusNotFound, envelope{
			Status:    statusError,
			ErrorKind: "invalid_input",
			Message:   err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// bearerCredential extracts the Authorization bearer token, empty if absent.
func bearerCredential(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSONStrict(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if decoder.More() {
		return fmt.Errorf("request must contain exactly one JSON object")
	}
	return nil
}

func writeSSEEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", strings.TrimSpace(event)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}

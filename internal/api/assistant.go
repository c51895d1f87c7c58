package api

import (
	"errors"
	"log"
	"net/http"

	"tasktalk/internal/assistant"
)

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}

	res, err := s.assistant.Handle(r.Context(), userID(r), req.Message)
	switch {
	case err == nil:
		writeJSON(w, 200, res)
	case errors.Is(err, assistant.ErrEmptyMessage):
		writeError(w, 400, "message is required")
	case errors.Is(err, assistant.ErrAuth):
		writeError(w, 401, "unauthorized")
	case errors.Is(err, assistant.ErrTranslation):
		// the body still carries the generic reply and an empty list
		writeJSON(w, 502, res)
	default:
		log.Printf("api: assistant: %v", err)
		writeError(w, 500, "internal error")
	}
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if s.suggester == nil {
		writeError(w, 503, "suggestions are not configured")
		return
	}
	var req struct {
		Prompt string `json:"prompt"`
		Count  int    `json:"count"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.Count < 0 {
		writeError(w, 400, "count must not be negative")
		return
	}

	titles, err := s.suggester.Suggest(r.Context(), userID(r), req.Prompt, req.Count)
	switch {
	case err == nil:
		writeJSON(w, 200, map[string]any{"suggestions": titles})
	case errors.Is(err, assistant.ErrEmptyMessage):
		writeError(w, 400, "prompt is required")
	case errors.Is(err, assistant.ErrAuth):
		writeError(w, 401, "unauthorized")
	case errors.Is(err, assistant.ErrTranslation):
		writeError(w, 502, "could not generate suggestions")
	default:
		log.Printf("api: suggest: %v", err)
		writeError(w, 500, "internal error")
	}
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"tasktalk/pkg/audit"
)

// streamKeepAlive is how often an idle event stream sends a comment line.
const streamKeepAlive = 15 * time.Second

func (s *Server) handleEventList(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeJSON(w, 200, []audit.Event{})
		return
	}
	limit := queryInt(r, "limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	events, err := s.events.ByUser(r.Context(), userID(r), limit)
	if err != nil {
		log.Printf("api: list events: %v", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, events)
}

func (s *Server) handleEventGet(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, 404, "event not found")
		return
	}
	e, err := s.events.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, audit.ErrNotFound) || (err == nil && e.UserID != userID(r)) {
		writeError(w, 404, "event not found")
		return
	}
	if err != nil {
		log.Printf("api: get event: %v", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, e)
}

// handleEventStream sends the caller's new audit events as server-sent events.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, 503, "event stream unavailable")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, 500, "streaming not supported")
		return
	}

	ch := s.events.Subscribe(userID(r))
	defer s.events.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(200)
	flusher.Flush()

	ctx := r.Context()
	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case e := <-ch:
			data, err := json.Marshal(e)
			if err != nil {
				log.Printf("api: marshal event %s: %v", e.ID, err)
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Type, data)
			flusher.Flush()
		}
	}
}

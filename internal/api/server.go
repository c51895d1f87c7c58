package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"tasktalk/internal/assistant"
	"tasktalk/internal/auth"
	"tasktalk/internal/cache"
	"tasktalk/pkg/audit"
	"tasktalk/pkg/task"
)

// Assistant handles one natural-language message for a user.
type Assistant interface {
	Handle(ctx context.Context, userID, message string) (*assistant.Result, error)
}

// Suggester proposes task titles without writing anything.
type Suggester interface {
	Suggest(ctx context.Context, userID, prompt string, count int) ([]string, error)
}

// Options are the Server's collaborators. Suggester, Events and Cache may be nil.
type Options struct {
	Tasks        task.Store
	Accounts     *auth.Accounts
	Tokens       *auth.Issuer
	Assistant    Assistant
	Suggester    Suggester
	Events       *audit.Bus
	Cache        *cache.TaskCache
	SecureCookie bool
	ModelName    string
}

// Server is the HTTP API server.
type Server struct {
	tasks        task.Store
	accounts     *auth.Accounts
	tokens       *auth.Issuer
	assistant    Assistant
	suggester    Suggester
	events       *audit.Bus
	cache        *cache.TaskCache
	secureCookie bool
	modelName    string
	mux          *http.ServeMux
}

// New creates a new Server.
func New(opts Options) *Server {
	s := &Server{
		tasks:        opts.Tasks,
		accounts:     opts.Accounts,
		tokens:       opts.Tokens,
		assistant:    opts.Assistant,
		suggester:    opts.Suggester,
		events:       opts.Events,
		cache:        opts.Cache,
		secureCookie: opts.SecureCookie,
		modelName:    opts.ModelName,
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// Auth
	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	s.mux.HandleFunc("GET /api/auth/me", s.requireUser(s.handleMe))

	// Todos
	s.mux.HandleFunc("GET /api/todos", s.requireUser(s.handleTodoList))
	s.mux.HandleFunc("POST /api/todos", s.requireUser(s.handleTodoCreate))
	s.mux.HandleFunc("GET /api/todos/{id}", s.requireUser(s.handleTodoGet))
	s.mux.HandleFunc("PATCH /api/todos/{id}", s.requireUser(s.handleTodoUpdate))
	s.mux.HandleFunc("DELETE /api/todos/{id}", s.requireUser(s.handleTodoDelete))
	s.mux.HandleFunc("PATCH /api/todos/{id}/toggle", s.requireUser(s.handleTodoToggle))

	// Assistant
	s.mux.HandleFunc("POST /api/assistant", s.requireUser(s.handleAssistant))
	s.mux.HandleFunc("POST /api/assistant/suggest", s.requireUser(s.handleSuggest))

	// Events
	s.mux.HandleFunc("GET /api/events", s.requireUser(s.handleEventList))
	s.mux.HandleFunc("GET /api/events/stream", s.requireUser(s.handleEventStream))
	s.mux.HandleFunc("GET /api/events/{id}", s.requireUser(s.handleEventGet))

	// System
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
}

// requireUser rejects requests without a valid session before the handler runs.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.tokens.Parse(auth.TokenFromRequest(r))
		if err != nil {
			writeError(w, 401, "unauthorized")
			return
		}
		next(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	}
}

// userID returns the caller's ID. Only valid behind requireUser.
func userID(r *http.Request) string {
	c, ok := auth.FromContext(r.Context())
	if !ok {
		return ""
	}
	return c.UserID()
}

// publish appends an audit event so stream subscribers refetch. Best effort.
func (s *Server) publish(ctx context.Context, eventType, uid string, content map[string]any) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Append(ctx, eventType, uid, content, nil); err != nil {
		log.Printf("api: publish %s: %v", eventType, err)
	}
}

// invalidate drops the caller's cached task list after a mutation.
func (s *Server) invalidate(uid string) {
	if s.cache != nil {
		s.cache.Invalidate(uid)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status": "ok",
		"model":  s.modelName,
	}
	if s.events != nil {
		ctx := r.Context()
		count, err := s.events.Count(ctx)
		if err != nil {
			log.Printf("api: count events: %v", err)
		}
		status["events"] = count
		status["chainValid"] = s.events.VerifyChain(ctx) == nil
	}
	writeJSON(w, 200, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

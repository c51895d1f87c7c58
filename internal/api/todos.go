package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tasktalk/pkg/audit"
	"tasktalk/pkg/task"
)

// todoInput is the body of POST and PATCH. dueDate null clears the date.
type todoInput struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Priority    *string         `json:"priority"`
	Category    *string         `json:"category"`
	DueDate     json.RawMessage `json:"dueDate"`
	Completed   *bool           `json:"completed"`
}

type inputError struct{ msg string }

func (e *inputError) Error() string { return e.msg }

func (in todoInput) fields(now time.Time) (task.Fields, error) {
	var f task.Fields
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return f, &inputError{"title must not be blank"}
		}
		f.Title = &title
	}
	f.Description = in.Description
	f.Category = in.Category
	f.Completed = in.Completed
	if in.Priority != nil {
		p, _ := task.ParsePriority(*in.Priority)
		f.Priority = &p
	}
	if len(in.DueDate) > 0 {
		if string(in.DueDate) == "null" {
			f.ClearDueDate = true
		} else {
			var s string
			if err := json.Unmarshal(in.DueDate, &s); err != nil {
				return f, &inputError{"dueDate must be a string or null"}
			}
			if strings.TrimSpace(s) == "" {
				f.ClearDueDate = true
			} else {
				due, err := task.ParseDueDate(s, now)
				if err != nil {
					return f, &inputError{"dueDate: " + err.Error()}
				}
				f.DueDate = &due
			}
		}
	}
	return f, nil
}

func (s *Server) handleTodoList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(r)
	q := r.URL.Query()

	var filter task.Filter
	if v := q.Get("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, 400, "completed must be true or false")
			return
		}
		filter.Completed = &b
	}
	if v := q.Get("priority"); v != "" {
		p, ok := task.ParsePriority(v)
		if !ok {
			writeError(w, 400, "priority must be LOW, MEDIUM or HIGH")
			return
		}
		filter.Priority = p
	}
	filter.Category = q.Get("category")
	filter.Search = q.Get("q")

	load := func(ctx context.Context) ([]task.Task, error) {
		return s.tasks.FindMany(ctx, uid, filter)
	}
	var (
		tasks []task.Task
		err   error
	)
	if filter == (task.Filter{}) && s.cache != nil {
		tasks, err = s.cache.Get(ctx, uid, load)
	} else {
		tasks, err = load(ctx)
	}
	if err != nil {
		log.Printf("api: list todos: %v", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, tasks)
}

func (s *Server) handleTodoCreate(w http.ResponseWriter, r *http.Request) {
	var in todoInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	if in.Title == nil {
		writeError(w, 400, "title is required")
		return
	}
	f, err := in.fields(time.Now())
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}

	uid := userID(r)
	t, err := s.tasks.Create(r.Context(), uid, f)
	if err != nil {
		log.Printf("api: create todo: %v", err)
		writeError(w, 500, "internal error")
		return
	}
	s.invalidate(uid)
	s.publish(r.Context(), audit.TypeTaskCreated, uid, map[string]any{"taskId": t.ID, "title": t.Title})
	writeJSON(w, 201, t)
}

func (s *Server) handleTodoGet(w http.ResponseWriter, r *http.Request) {
	t, err := s.tasks.FindByID(r.Context(), userID(r), r.PathValue("id"))
	if s.storeError(w, err) {
		return
	}
	writeJSON(w, 200, t)
}

func (s *Server) handleTodoUpdate(w http.ResponseWriter, r *http.Request) {
	var in todoInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	f, err := in.fields(time.Now())
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}
	if f.Empty() {
		writeError(w, 400, "nothing to update")
		return
	}

	uid := userID(r)
	t, err := s.tasks.Update(r.Context(), uid, r.PathValue("id"), f)
	if s.storeError(w, err) {
		return
	}
	s.invalidate(uid)
	s.publish(r.Context(), audit.TypeTaskUpdated, uid, map[string]any{"taskId": t.ID, "title": t.Title})
	writeJSON(w, 200, t)
}

func (s *Server) handleTodoDelete(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	id := r.PathValue("id")
	if s.storeError(w, s.tasks.Delete(r.Context(), uid, id)) {
		return
	}
	s.invalidate(uid)
	s.publish(r.Context(), audit.TypeTaskDeleted, uid, map[string]any{"taskId": id})
	w.WriteHeader(204)
}

func (s *Server) handleTodoToggle(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	t, err := s.tasks.ToggleCompleted(r.Context(), uid, r.PathValue("id"))
	if s.storeError(w, err) {
		return
	}
	s.invalidate(uid)
	s.publish(r.Context(), audit.TypeTaskUpdated, uid, map[string]any{"taskId": t.ID, "completed": t.Completed})
	writeJSON(w, 200, t)
}

// storeError writes the response for a failed store call and reports
// whether there was one.
func (s *Server) storeError(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, task.ErrNotFound):
		writeError(w, 404, "task not found")
	default:
		log.Printf("api: store: %v", err)
		writeError(w, 500, "internal error")
	}
	return true
}

package api

import (
	"errors"
	"log"
	"net/http"

	"tasktalk/internal/auth"
	"tasktalk/pkg/user"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type session struct {
	User  *user.User `json:"user"`
	Token string     `json:"token,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	u, err := s.accounts.Register(r.Context(), req.Email, req.Name, req.Password)
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		writeError(w, 400, "email, password and name are required")
		return
	case errors.Is(err, auth.ErrInvalidEmail):
		writeError(w, 400, err.Error())
		return
	case errors.Is(err, user.ErrEmailTaken):
		writeError(w, 409, "user already exists")
		return
	case err != nil:
		log.Printf("api: register: %v", err)
		writeError(w, 500, "internal error")
		return
	}
	s.startSession(w, 201, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	u, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		writeError(w, 400, "email and password are required")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, 401, "invalid credentials")
		return
	case err != nil:
		log.Printf("api: login: %v", err)
		writeError(w, 500, "internal error")
		return
	}
	s.startSession(w, 200, u)
}

func (s *Server) startSession(w http.ResponseWriter, status int, u *user.User) {
	token, exp, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		log.Printf("api: issue token: %v", err)
		writeError(w, 500, "internal error")
		return
	}
	auth.SetCookie(w, token, exp, s.secureCookie)
	writeJSON(w, status, session{User: u, Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w)
	writeJSON(w, 200, map[string]bool{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.accounts.User(r.Context(), userID(r))
	if errors.Is(err, user.ErrNotFound) {
		writeError(w, 401, "unauthorized")
		return
	}
	if err != nil {
		log.Printf("api: me: %v", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, session{User: u})
}

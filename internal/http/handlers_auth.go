package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"grana/internal/auth"
	"grana/internal/core"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type credentialsResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      core.User `json:"user"`
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return core.Validationf("invalid request body")
	}
	return nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	creds, err := s.sessions.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusCreated, credentialsResponse{
		Token:     creds.Token,
		ExpiresAt: creds.ExpiresAt,
		User:      creds.User,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	creds, err := s.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, credentialsResponse{
		Token:     creds.Token,
		ExpiresAt: creds.ExpiresAt,
		User:      creds.User,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	h := r.Header.Get("Authorization")
	token := ""
	if parts := strings.SplitN(h, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		token = strings.TrimSpace(parts[1])
	}
	if err := s.sessions.Revoke(r.Context(), token); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFrom(r.Context())
	if u == nil {
		respondError(w, r, core.Unauthenticated())
		return
	}
	respondData(w, http.StatusOK, u)
}

package httpserver

import (
	"net/http"

	"bazaar/internal/service"
)

type registerRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=64"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password string  `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        any    `json:"user"`
}

func (s *Server) handleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeValid(r, &req); err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, err := s.auth.Register(r.Context(), service.RegisterInput{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	}
}

func (s *Server) handleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeValid(r, &req); err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := s.auth.Login(r.Context(), service.LoginInput{
			Username: req.Username,
			Password: req.Password,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse{
			AccessToken: res.AccessToken,
			TokenType:   res.TokenType,
			User:        res.User,
		})
	}
}

func (s *Server) handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, CurrentUser(r))
	}
}

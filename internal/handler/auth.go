package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pavelanni/classquiz/internal/auth"
	appI18n "github.com/pavelanni/classquiz/internal/i18n"
	"github.com/pavelanni/classquiz/internal/model"
)

type userResponse struct {
	ID    int64      `json:"id"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if err := decodeJSON(w, r, &reg); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.svc.Register(r.Context(), reg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slog.Info("registered user", "id", u.ID, "role", u.Role)
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.svc.Authenticate(r.Context(), creds)
	if errors.Is(err, model.ErrUnauthorized) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Code:    "login_failed",
			Message: appI18n.T(r.Context(), "Error.LoginFailed"),
		})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	token, claims, err := h.tokens.Issue(u)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      userResponse{ID: u.ID, Email: u.Email, Role: u.Role},
	})
}

// handleLogout revokes the presented token until it would have expired.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.writeError(w, r, model.ErrUnauthorized)
		return
	}
	if err := h.sessions.RevokeToken(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": appI18n.T(r.Context(), "LoggedOut")})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	u, err := h.svc.User(r.Context(), p.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/ametelin/reviewhub/internal/service"
)

// AuthHandler exposes signup and the code-for-token exchange. Both
// endpoints are unauthenticated.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// HandleSignup registers (or re-registers) an account and emails a fresh
// confirmation code.
//
// POST /api/v1/auth/signup {"username": ..., "email": ...}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.auth.Signup(r.Context(), req.Username, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("signup", "username", user.Username)
	writeJSON(w, http.StatusOK, map[string]string{
		"username": user.Username,
		"email":    user.Email,
	})
}

// HandleToken exchanges a confirmation code for a JWT.
//
// POST /api/v1/auth/token {"username": ..., "confirmation_code": ...}
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username         string `json:"username"`
		ConfirmationCode string `json:"confirmation_code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.auth.Token(r.Context(), req.Username, req.ConfirmationCode)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

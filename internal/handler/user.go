package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ametelin/reviewhub/internal/access"
	"github.com/ametelin/reviewhub/internal/apperror"
	"github.com/ametelin/reviewhub/internal/auth"
	"github.com/ametelin/reviewhub/internal/model"
	"github.com/ametelin/reviewhub/internal/service"
)

// currentUser returns the authenticated user from the request context, or
// nil for an anonymous request. Policy checks accept nil.
func currentUser(r *http.Request) *model.User {
	u, _ := auth.UserFromContext(r.Context())
	return u
}

// requireUser is for endpoints that make no sense anonymously.
func requireUser(r *http.Request) (*model.User, error) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthorized("authentication required")
	}
	return u, nil
}

// userInput is the wire shape for user create/patch payloads. Pointer
// fields distinguish "absent" from "set to empty".
type userInput struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Role      *string `json:"role"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
}

func (in userInput) toService() service.UserInput {
	return service.UserInput{
		Username:  in.Username,
		Email:     in.Email,
		Role:      in.Role,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Bio:       in.Bio,
	}
}

// UserHandler exposes admin user management and the self-profile endpoint.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleList returns accounts, admin only.
//
// GET /api/v1/users?search=&limit=&offset=
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AdminOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	users, err := h.users.List(r.Context(), r.URL.Query().Get("search"), listOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleCreate registers an account on behalf of an admin.
//
// POST /api/v1/users
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AdminOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	var in userInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.users.Create(r.Context(), in.toService())
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("user created", "username", user.Username, "role", user.Role)
	writeJSON(w, http.StatusCreated, user)
}

// HandleGet returns one account by username, admin only.
//
// GET /api/v1/users/{username}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AdminOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Get(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdate partially updates an account, admin only.
//
// PATCH /api/v1/users/{username}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AdminOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	var in userInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.users.Update(r.Context(), chi.URLParam(r, "username"), in.toService())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleDelete removes an account, admin only.
//
// DELETE /api/v1/users/{username}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AdminOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	if err := h.users.Delete(r.Context(), chi.URLParam(r, "username")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetSelf returns the caller's own profile.
//
// GET /api/v1/users/me
func (h *UserHandler) HandleGetSelf(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateSelf partially updates the caller's own profile. A role field
// in the payload is ignored.
//
// PATCH /api/v1/users/me
func (h *UserHandler) HandleUpdateSelf(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var in userInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.users.UpdateSelf(r.Context(), user, in.toService())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ametelin/reviewhub/internal/apperror"
	"github.com/ametelin/reviewhub/internal/model"
	"github.com/ametelin/reviewhub/internal/repository"
)

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the authenticated user entry.
type contextKey string

const userKey contextKey = "user"

// Identify resolves the Authorization: Bearer header into a *model.User in
// the request context.
//
// It runs on every API route, including public ones, because most policies
// distinguish anonymous readers from authenticated writers per request
// rather than per route. The rules are:
//
//   - no Authorization header   → anonymous, request continues
//   - malformed or invalid token → 401, request stops
//   - valid token, user deleted  → 401, request stops
//
// A presented-but-broken credential is an error, not anonymity: silently
// downgrading would turn an expired token into confusing 403s downstream.
//
// The DB lookup on each authenticated request picks up role changes made
// after the token was issued.
func Identify(tokens *TokenService, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, tokenStr, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenStr == "" {
				unauthorized(w, "malformed Authorization header")
				return
			}

			userID, err := tokens.Validate(tokenStr)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					unauthorized(w, "account no longer exists")
					return
				}
				http.Error(w, `{"error":"internal_error","message":"authentication lookup failed"}`,
					http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext retrieves the authenticated user from the request context.
// Returns (nil, false) for anonymous requests.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","message":"` + msg + `"}`))
}

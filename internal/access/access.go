// Package access implements the per-role permission predicates that gate
// every resource endpoint.
//
// Checks run in two phases, always before any domain logic:
//
//  1. Check is request-level: may this caller hit the endpoint at all?
//  2. CheckObject is object-level: may this caller mutate this specific
//     record? Only relevant for policies with an ownership component.
//
// Policies are a small enum evaluated by plain predicates rather than a type
// hierarchy; AdminOrReadOnly delegates to the AdminOnly predicate for its
// write half.
package access

import (
	"net/http"

	"github.com/ametelin/reviewhub/internal/apperror"
	"github.com/ametelin/reviewhub/internal/model"
)

// Policy selects which predicate governs a resource.
type Policy int

const (
	// AdminOnly grants everything to admins, nothing to anyone else.
	// Used for user management.
	AdminOnly Policy = iota

	// AdminOrReadOnly grants safe methods to everyone, writes to admins.
	// Used for categories, genres, and titles.
	AdminOrReadOnly

	// AuthorOrPrivilegedOrReadOnly grants safe methods to everyone and
	// creation to any authenticated user; mutating an existing object
	// additionally requires authorship, admin, or moderator (checked in
	// CheckObject). Used for reviews and comments.
	AuthorOrPrivilegedOrReadOnly
)

// SafeMethod reports whether the HTTP method is read-only.
func SafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// Check is the request-level phase. u is nil for anonymous callers.
// It returns nil to allow, an ErrUnauthorized wrapper when authentication
// would change the answer, and ErrForbidden otherwise.
func Check(p Policy, u *model.User, method string) error {
	switch p {
	case AdminOnly:
		return checkAdmin(u)

	case AdminOrReadOnly:
		if SafeMethod(method) {
			return nil
		}
		return checkAdmin(u)

	case AuthorOrPrivilegedOrReadOnly:
		if SafeMethod(method) {
			return nil
		}
		if u == nil {
			return apperror.Unauthorized("authentication required")
		}
		return nil
	}
	return apperror.Forbidden("access denied")
}

// CheckObject is the object-level phase for operations that target one
// existing record. authorID is the record's author. Policies without an
// ownership component fall back to the request-level answer.
func CheckObject(p Policy, u *model.User, method, authorID string) error {
	if p != AuthorOrPrivilegedOrReadOnly {
		return Check(p, u, method)
	}
	if SafeMethod(method) {
		return nil
	}
	if u == nil {
		return apperror.Unauthorized("authentication required")
	}
	if u.ID == authorID || u.IsAdmin() || u.IsModerator() {
		return nil
	}
	return apperror.Forbidden("you may only modify your own entries")
}

func checkAdmin(u *model.User) error {
	if u == nil {
		return apperror.Unauthorized("authentication required")
	}
	if !u.IsAdmin() {
		return apperror.Forbidden("admin rights required")
	}
	return nil
}

// Package validate holds the pure field validators shared by every entry
// point that accepts user input.
//
// Keeping these as standalone functions (rather than methods on the request
// types) means signup, token exchange, user management, and the self-profile
// endpoint all enforce exactly the same rules. None of them touch the
// database or the clock beyond reading the current year.
package validate

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/ametelin/reviewhub/internal/apperror"
	"github.com/ametelin/reviewhub/internal/model"
)

// SelfEndpoint is the reserved path segment for the self-profile endpoint
// (GET/PATCH /users/me). It can never be a username, or the route would be
// ambiguous.
const SelfEndpoint = "me"

// Username checks the username business rules: required, bounded length,
// restricted charset, and not the reserved self-profile segment.
//
// On a charset violation the error names every offending distinct
// character, sorted, so a client sees all problems at once instead of
// fixing them one request at a time.
func Username(v string) error {
	if v == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if len(v) > model.MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", model.MaxUsernameLength))
	}

	seen := map[rune]bool{}
	var wrong []rune
	for _, r := range v {
		if usernameRuneOK(r) || seen[r] {
			continue
		}
		seen[r] = true
		wrong = append(wrong, r)
	}
	if len(wrong) > 0 {
		sort.Slice(wrong, func(i, j int) bool { return wrong[i] < wrong[j] })
		return apperror.ValidationFailed("username", fmt.Sprintf(
			"username may contain only letters, digits and @ . + - _ ; found: %s",
			string(wrong)))
	}

	if v == SelfEndpoint {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username %q is reserved", SelfEndpoint))
	}
	return nil
}

func usernameRuneOK(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '@', r == '+', r == '-', r == '_':
		return true
	}
	return false
}

// Email checks that v is a parseable, bounded address.
func Email(v string) error {
	if v == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if len(v) > model.MaxEmailLength {
		return apperror.ValidationFailed("email",
			fmt.Sprintf("email must be %d characters or less", model.MaxEmailLength))
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		return apperror.ValidationFailed("email", "invalid email address")
	}
	return nil
}

// Year rejects years after the current calendar year. There is no lower
// bound: antique works are fine.
//
// The check reads the clock at validation time, so a value rejected on
// December 31st may pass on January 1st. Accepted quirk.
func Year(y int) error {
	current := time.Now().Year()
	if y > current {
		return apperror.ValidationFailed("year",
			fmt.Sprintf("year %d must not exceed the current year %d", y, current))
	}
	return nil
}

// Score checks the review score range.
func Score(n int) error {
	if n < model.MinScore || n > model.MaxScore {
		return apperror.ValidationFailed("score",
			fmt.Sprintf("score must be between %d and %d", model.MinScore, model.MaxScore))
	}
	return nil
}

// Slug checks a taxonomy slug: required, bounded, URL-safe.
func Slug(v string) error {
	if v == "" {
		return apperror.ValidationFailed("slug", "slug is required")
	}
	if len(v) > model.MaxSlugLength {
		return apperror.ValidationFailed("slug",
			fmt.Sprintf("slug must be %d characters or less", model.MaxSlugLength))
	}
	for _, r := range v {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			continue
		}
		return apperror.ValidationFailed("slug",
			"slug may contain only letters, digits, hyphens and underscores")
	}
	return nil
}

// Name checks a display name against the given length limit. The field
// label goes into the error so the same helper serves taxonomy and title
// names.
func Name(v string, limit int) error {
	if strings.TrimSpace(v) == "" {
		return apperror.ValidationFailed("name", "name is required")
	}
	if len(v) > limit {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", limit))
	}
	return nil
}

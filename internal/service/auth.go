// Package service holds the business logic layer. Services sit between the
// HTTP handlers and the repositories:
//
//	handler (HTTP) → service (rules) → repository (DB)
//
// Handlers never touch a repository directly, and services never see an
// http.Request. Every service takes its dependencies through its constructor
// so tests can substitute mocks.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ametelin/reviewhub/internal/apperror"
	"github.com/ametelin/reviewhub/internal/auth"
	"github.com/ametelin/reviewhub/internal/mail"
	"github.com/ametelin/reviewhub/internal/model"
	"github.com/ametelin/reviewhub/internal/repository"
	"github.com/ametelin/reviewhub/internal/validate"
)

const (
	signupSubject = "Your confirmation code"
	signupBody    = "Hello %s,\n\nYour confirmation code is: %s\n\nExchange it at /api/v1/auth/token/ for an access token.\n"
)

// AuthService implements signup and the code-for-token exchange.
//
// Signup is deliberately idempotent: repeating it with the same
// (username, email) pair reissues a fresh code rather than failing, so a
// lost email is recovered by signing up again.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	codes  *auth.CodeService
	sender mail.Sender
	logger *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	codes *auth.CodeService,
	sender mail.Sender,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		codes:  codes,
		sender: sender,
		logger: logger,
	}
}

// Signup registers a user (or finds the existing one with the exact same
// username and email), issues a one-time confirmation code, and emails it.
//
// A username or email that clashes with a different account fails with a
// conflict naming the offending field. Mail delivery failures are logged but
// do not fail the request: the account and code are already committed, and
// signup can simply be repeated.
func (s *AuthService) Signup(ctx context.Context, username, email string) (*model.User, error) {
	if err := validate.Username(username); err != nil {
		return nil, err
	}
	if err := validate.Email(email); err != nil {
		return nil, err
	}

	user, err := s.users.FindOrCreateUser(ctx, username, email)
	if err != nil {
		return nil, err
	}

	code, hash, err := s.codes.Issue()
	if err != nil {
		return nil, fmt.Errorf("issuing confirmation code: %w", err)
	}
	if err := s.users.SetUserConfirmationCode(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("storing confirmation code: %w", err)
	}

	body := fmt.Sprintf(signupBody, user.Username, code)
	if err := s.sender.Send(ctx, user.Email, signupSubject, body); err != nil {
		s.logger.Error("sending confirmation email",
			"username", user.Username,
			"error", err)
	}

	return user, nil
}

// Token exchanges a confirmation code for a JWT access token.
//
// The stored code is cleared before it is compared, so a wrong guess burns
// the code: the user has to sign up again for a fresh one. An account with
// no outstanding code (never signed up by email, or code already consumed)
// fails the same way as a wrong code.
func (s *AuthService) Token(ctx context.Context, username, code string) (string, error) {
	if err := validate.Username(username); err != nil {
		return "", err
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", err
	}

	hash := user.ConfirmationCodeHash
	if err := s.users.SetUserConfirmationCode(ctx, user.ID, ""); err != nil {
		return "", fmt.Errorf("clearing confirmation code: %w", err)
	}
	if hash == "" {
		return "", apperror.ValidationFailed("confirmation_code", "invalid confirmation code")
	}
	if err := s.codes.Verify(hash, code); err != nil {
		return "", apperror.ValidationFailed("confirmation_code", "invalid confirmation code")
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return token, nil
}

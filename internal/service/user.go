package service

import (
	"context"
	"log/slog"

	"github.com/ametelin/reviewhub/internal/apperror"
	"github.com/ametelin/reviewhub/internal/model"
	"github.com/ametelin/reviewhub/internal/repository"
	"github.com/ametelin/reviewhub/internal/validate"
)

// UserInput carries a user create or patch payload. Nil fields were absent
// from the request and leave the stored value untouched.
type UserInput struct {
	Username  *string
	Email     *string
	Role      *string
	FirstName *string
	LastName  *string
	Bio       *string
}

// UserService implements admin account management and the self-profile
// endpoint.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// Create registers an account on behalf of an admin. Unlike signup it
// accepts the full profile, including a role, and issues no confirmation
// code: the account authenticates by signing up with the same pair later.
func (s *UserService) Create(ctx context.Context, in UserInput) (*model.User, error) {
	if in.Username == nil {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if in.Email == nil {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	u := &model.User{Role: model.RoleUser}
	if err := applyUserInput(u, in, true); err != nil {
		return nil, err
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// List returns accounts ordered by username, optionally narrowed by a
// username substring search.
func (s *UserService) List(ctx context.Context, search string, opts repository.ListOptions) ([]model.User, error) {
	return s.users.ListUsers(ctx, search, opts)
}

// Get looks up an account by username.
func (s *UserService) Get(ctx context.Context, username string) (*model.User, error) {
	return s.users.GetUserByUsername(ctx, username)
}

// Update partially updates the account named by username (admin user
// management). Only the fields present in the input change.
func (s *UserService) Update(ctx context.Context, username string, in UserInput) (*model.User, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := applyUserInput(u, in, true); err != nil {
		return nil, err
	}
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Delete removes the account named by username.
func (s *UserService) Delete(ctx context.Context, username string) error {
	return s.users.DeleteUser(ctx, username)
}

// UpdateSelf partially updates the calling user's own profile. A role field
// in the payload is silently ignored: users cannot promote themselves.
func (s *UserService) UpdateSelf(ctx context.Context, user *model.User, in UserInput) (*model.User, error) {
	u, err := s.users.GetUserByUsername(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	in.Role = nil
	if err := applyUserInput(u, in, false); err != nil {
		return nil, err
	}
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// applyUserInput validates and copies the set fields of in onto u.
// allowRole gates whether a role field is honored.
func applyUserInput(u *model.User, in UserInput, allowRole bool) error {
	if in.Username != nil {
		if err := validate.Username(*in.Username); err != nil {
			return err
		}
		u.Username = *in.Username
	}
	if in.Email != nil {
		if err := validate.Email(*in.Email); err != nil {
			return err
		}
		u.Email = *in.Email
	}
	if in.Role != nil && allowRole {
		if !model.ValidRole(*in.Role) {
			return apperror.ValidationFailed("role", "role must be one of: user, moderator, admin")
		}
		u.Role = *in.Role
	}
	if in.FirstName != nil {
		if len(*in.FirstName) > model.MaxUsernameLength {
			return apperror.ValidationFailed("first_name", "first name is too long")
		}
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		if len(*in.LastName) > model.MaxUsernameLength {
			return apperror.ValidationFailed("last_name", "last name is too long")
		}
		u.LastName = *in.LastName
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}
	return nil
}

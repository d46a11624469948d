package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/ametelin/reviewhub/internal/apperror"
	"github.com/ametelin/reviewhub/internal/model"
	"github.com/ametelin/reviewhub/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, role, first_name, last_name, bio,
	is_staff, confirmation_code_hash, created_at`

// FindOrCreateUser is the signup primitive. An exact (username, email) pair
// match returns the existing account; otherwise a new one is inserted. A
// half-match surfaces as a ConflictError naming the clashing field.
//
// Concurrent identical signups race on the INSERT; the loser's constraint
// violation is resolved by re-reading the exact pair, so both callers end
// up with the same record, deterministically.
func (db *DB) FindOrCreateUser(ctx context.Context, username, email string) (*model.User, error) {
	u, err := db.getUserByPair(ctx, username, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: looking up user %s: %w", username, err)
	}

	fresh := &model.User{
		ID:        xid.New().String(),
		Username:  username,
		Email:     email,
		Role:      model.RoleUser,
		CreatedAt: time.Now(),
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, role, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		fresh.ID, fresh.Username, fresh.Email, fresh.Role, fresh.CreatedAt,
	)
	if err == nil {
		return fresh, nil
	}
	if !isConstraintErr(err) {
		return nil, fmt.Errorf("sqlite: inserting user %s: %w", username, err)
	}

	// Lost a race or half-matched an existing account. If the exact pair
	// now exists, a concurrent identical signup won the insert; reuse it.
	if u, raceErr := db.getUserByPair(ctx, username, email); raceErr == nil {
		return u, nil
	}

	if isUniqueViolation(err, "users.username") {
		return nil, apperror.Conflict("username",
			fmt.Sprintf("user with username %s already exists", username))
	}
	return nil, apperror.Conflict("email",
		fmt.Sprintf("user with email %s already exists", email))
}

func (db *DB) getUserByPair(ctx context.Context, username, email string) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE username = ? AND email = ?`,
		username, email,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a fully specified account (admin user management).
func (db *DB) CreateUser(ctx context.Context, u *model.User) error {
	u.ID = xid.New().String()
	u.CreatedAt = time.Now()
	if u.Role == "" {
		u.Role = model.RoleUser
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, role, first_name, last_name, bio, is_staff, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.Role, u.FirstName, u.LastName, u.Bio, u.IsStaff, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users.username") {
			return apperror.Conflict("username",
				fmt.Sprintf("user with username %s already exists", u.Username))
		}
		if isUniqueViolation(err, "users.email") {
			return apperror.Conflict("email",
				fmt.Sprintf("user with email %s already exists", u.Email))
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", u.Username, err)
	}
	return nil
}

// GetUserByID retrieves a user by internal id.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return &u, nil
}

// GetUserByUsername retrieves a user by the external username key.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", username, err)
	}
	return &u, nil
}

// ListUsers returns accounts ordered by username, optionally filtered by a
// username substring.
func (db *DB) ListUsers(ctx context.Context, search string, opts repository.ListOptions) ([]model.User, error) {
	limit, offset := clampList(opts.Limit, opts.Offset)

	users := make([]model.User, 0, limit)
	err := db.conn.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users
		 WHERE username LIKE ?
		 ORDER BY username
		 LIMIT ? OFFSET ?`,
		"%"+search+"%", limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	return users, nil
}

// UpdateUser writes back every mutable field. The caller (service layer)
// decides which fields changed; role preservation on the self-profile
// endpoint happens there.
func (db *DB) UpdateUser(ctx context.Context, u *model.User) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET username = ?, email = ?, role = ?, first_name = ?, last_name = ?, bio = ?
		 WHERE id = ?`,
		u.Username, u.Email, u.Role, u.FirstName, u.LastName, u.Bio, u.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "users.username") {
			return apperror.Conflict("username",
				fmt.Sprintf("user with username %s already exists", u.Username))
		}
		if isUniqueViolation(err, "users.email") {
			return apperror.Conflict("email",
				fmt.Sprintf("user with email %s already exists", u.Email))
		}
		return fmt.Errorf("sqlite: updating user %s: %w", u.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", u.Username)
	}
	return nil
}

// DeleteUser removes an account by username. Reviews and comments cascade.
func (db *DB) DeleteUser(ctx context.Context, username string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", username, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", username)
	}
	return nil
}

// SetUserConfirmationCode stores the new code hash, replacing (and thereby
// invalidating) any previous one. The empty string clears the code.
func (db *DB) SetUserConfirmationCode(ctx context.Context, userID, hash string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET confirmation_code_hash = ? WHERE id = ?`, hash, userID)
	if err != nil {
		return fmt.Errorf("sqlite: setting confirmation code for user %s: %w", userID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

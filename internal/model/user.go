// Package model defines the data structures used throughout the application.
package model

import "time"

// Roles a user account can hold. Role gates what the account may do on top
// of authorship checks; see the access package.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Field length limits shared by validation and the database schema.
const (
	MaxUsernameLength = 150
	MaxEmailLength    = 254
	MaxCodeLength     = 16
)

// User represents a registered account.
//
// The username is the external identifier for user-management endpoints
// (lookup by /users/{username}), so it carries a UNIQUE constraint alongside
// email. The internal xid keeps primary keys stable if a rename feature ever
// lands.
//
// ConfirmationCodeHash holds a bcrypt hash of the most recently issued
// signup code, or the empty string when no code is outstanding. The raw code
// is only ever present in the signup email; it is never persisted.
type User struct {
	ID                   string    `json:"-"          db:"id"`
	Username             string    `json:"username"   db:"username"`
	Email                string    `json:"email"      db:"email"`
	Role                 string    `json:"role"       db:"role"`
	FirstName            string    `json:"first_name" db:"first_name"`
	LastName             string    `json:"last_name"  db:"last_name"`
	Bio                  string    `json:"bio"        db:"bio"`
	IsStaff              bool      `json:"-"          db:"is_staff"`
	ConfirmationCodeHash string    `json:"-"          db:"confirmation_code_hash"`
	CreatedAt            time.Time `json:"-"          db:"created_at"`
}

// IsAdmin reports whether the user holds admin rights. Staff accounts
// (created out of band, e.g. a bootstrap superuser) count as admins even
// when their role field says otherwise.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.IsStaff
}

// IsModerator reports whether the user holds the moderator role. Moderators
// may edit or remove any review and comment but cannot manage users or
// taxonomies.
func (u *User) IsModerator() bool {
	return u.Role == RoleModerator
}

// ValidRole reports whether r is one of the known role values.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleModerator || r == RoleAdmin
}

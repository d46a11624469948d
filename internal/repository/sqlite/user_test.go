package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/ametelin/reviewhub/internal/apperror"
	"github.com/ametelin/reviewhub/internal/model"
	"github.com/ametelin/reviewhub/internal/repository"
)

func TestFindOrCreateUser_CreatesFresh(t *testing.T) {
	db := newTestDB(t)

	u, err := db.FindOrCreateUser(context.Background(), "bob", "b@x.com")
	if err != nil {
		t.Fatalf("FindOrCreateUser() error = %v", err)
	}
	if u.ID == "" {
		t.Error("FindOrCreateUser() did not assign an ID")
	}
	if u.Role != model.RoleUser {
		t.Errorf("role = %q, want %q", u.Role, model.RoleUser)
	}
}

func TestFindOrCreateUser_IdempotentOnExactPair(t *testing.T) {
	db := newTestDB(t)

	first, err := db.FindOrCreateUser(context.Background(), "bob", "b@x.com")
	if err != nil {
		t.Fatalf("first FindOrCreateUser() error = %v", err)
	}
	second, err := db.FindOrCreateUser(context.Background(), "bob", "b@x.com")
	if err != nil {
		t.Fatalf("second FindOrCreateUser() error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("repeat signup created a new record: %s != %s", first.ID, second.ID)
	}
}

func TestFindOrCreateUser_UsernameConflict(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.FindOrCreateUser(context.Background(), "bob", "b@x.com"); err != nil {
		t.Fatalf("FindOrCreateUser() error = %v", err)
	}

	_, err := db.FindOrCreateUser(context.Background(), "bob", "other@x.com")
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("FindOrCreateUser() error = %v, want conflict", err)
	}
	if appErr.Field != "username" {
		t.Errorf("conflict field = %q, want %q", appErr.Field, "username")
	}
}

func TestFindOrCreateUser_EmailConflict(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.FindOrCreateUser(context.Background(), "bob", "b@x.com"); err != nil {
		t.Fatalf("FindOrCreateUser() error = %v", err)
	}

	_, err := db.FindOrCreateUser(context.Background(), "alice", "b@x.com")
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("FindOrCreateUser() error = %v, want conflict", err)
	}
	if appErr.Field != "email" {
		t.Errorf("conflict field = %q, want %q", appErr.Field, "email")
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "bob")

	err := db.CreateUser(context.Background(), &model.User{
		Username: "bob",
		Email:    "fresh@x.com",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateUser() error = %v, want conflict", err)
	}
}

func TestGetUserByUsername(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "bob")

	got, err := db.GetUserByUsername(context.Background(), "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if got.ID != created.ID || got.Email != "bob@example.com" {
		t.Errorf("GetUserByUsername() = %+v, want record for %s", got, created.ID)
	}

	if _, err := db.GetUserByUsername(context.Background(), "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByUsername(ghost) error = %v, want not found", err)
	}
}

func TestListUsers_SearchAndOrder(t *testing.T) {
	db := newTestDB(t)
	for _, name := range []string{"carol", "bob", "bobby", "alice"} {
		createTestUser(t, db, name)
	}

	all, err := db.ListUsers(context.Background(), "", repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	want := []string{"alice", "bob", "bobby", "carol"}
	if len(all) != len(want) {
		t.Fatalf("ListUsers() returned %d users, want %d", len(all), len(want))
	}
	for i, w := range want {
		if all[i].Username != w {
			t.Errorf("ListUsers()[%d] = %q, want %q", i, all[i].Username, w)
		}
	}

	hits, err := db.ListUsers(context.Background(), "bob", repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListUsers(search) error = %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("ListUsers(%q) returned %d users, want 2", "bob", len(hits))
	}
}

func TestUpdateUser_EmailConflict(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	bob.Email = "alice@example.com"
	err := db.UpdateUser(context.Background(), bob)
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Field != "email" {
		t.Errorf("UpdateUser() error = %v, want email conflict", err)
	}
}

func TestDeleteUser_CascadesReviewsAndComments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	author := createTestUser(t, db, "bob")
	commenter := createTestUser(t, db, "carol")
	title := createTestTitle(t, db, "Solaris", 1972, nil)
	review := createTestReview(t, db, title, author, 9)
	createTestComment(t, db, review, commenter)

	if err := db.DeleteUser(ctx, "bob"); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	if _, err := db.GetReviewByID(ctx, title.ID, review.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("review survived author deletion: err = %v", err)
	}
	comments, err := db.ListComments(ctx, review.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("comments survived review cascade: %d left", len(comments))
	}
}

func TestSetUserConfirmationCode(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "bob")

	if err := db.SetUserConfirmationCode(ctx, u.ID, "hash-1"); err != nil {
		t.Fatalf("SetUserConfirmationCode() error = %v", err)
	}
	got, err := db.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.ConfirmationCodeHash != "hash-1" {
		t.Errorf("stored hash = %q, want %q", got.ConfirmationCodeHash, "hash-1")
	}

	// Empty string clears the code.
	if err := db.SetUserConfirmationCode(ctx, u.ID, ""); err != nil {
		t.Fatalf("SetUserConfirmationCode(clear) error = %v", err)
	}
	got, _ = db.GetUserByID(ctx, u.ID)
	if got.ConfirmationCodeHash != "" {
		t.Errorf("stored hash = %q after clear, want empty", got.ConfirmationCodeHash)
	}

	if err := db.SetUserConfirmationCode(ctx, "missing-id", "h"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("SetUserConfirmationCode(missing) error = %v, want not found", err)
	}
}

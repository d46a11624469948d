package sqlite

import (
	"context"
	"testing"

	"github.com/ametelin/reviewhub/internal/model"
)

// newTestDB returns a fresh in-memory database per test. ":memory:" costs
// nothing to create and is destroyed with the connection, so every test is
// fully isolated.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, Email: username + "@example.com"}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create test user %s: %v", username, err)
	}
	return u
}

func createTestCategory(t *testing.T, db *DB, name, slug string) *model.Category {
	t.Helper()
	c := &model.Category{Name: name, Slug: slug}
	if err := db.CreateCategory(context.Background(), c); err != nil {
		t.Fatalf("failed to create test category %s: %v", slug, err)
	}
	return c
}

func createTestGenre(t *testing.T, db *DB, name, slug string) *model.Genre {
	t.Helper()
	g := &model.Genre{Name: name, Slug: slug}
	if err := db.CreateGenre(context.Background(), g); err != nil {
		t.Fatalf("failed to create test genre %s: %v", slug, err)
	}
	return g
}

func createTestTitle(t *testing.T, db *DB, name string, year int, category *model.Category, genres ...model.Genre) *model.Title {
	t.Helper()
	title := &model.Title{Name: name, Year: year, Category: category, Genres: genres}
	if err := db.CreateTitle(context.Background(), title); err != nil {
		t.Fatalf("failed to create test title %s: %v", name, err)
	}
	return title
}

func createTestReview(t *testing.T, db *DB, title *model.Title, author *model.User, score int) *model.Review {
	t.Helper()
	r := &model.Review{
		TitleID:  title.ID,
		AuthorID: author.ID,
		Text:     "review by " + author.Username,
		Score:    score,
	}
	if err := db.CreateReview(context.Background(), r); err != nil {
		t.Fatalf("failed to create test review: %v", err)
	}
	return r
}

func createTestComment(t *testing.T, db *DB, review *model.Review, author *model.User) *model.Comment {
	t.Helper()
	c := &model.Comment{
		ReviewID: review.ID,
		AuthorID: author.ID,
		Text:     "comment by " + author.Username,
	}
	if err := db.CreateComment(context.Background(), c); err != nil {
		t.Fatalf("failed to create test comment: %v", err)
	}
	return c
}

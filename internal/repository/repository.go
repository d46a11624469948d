// Package repository declares the storage interfaces the service layer
// programs against. The sqlite subpackage is the only implementation; tests
// substitute in-memory mocks.
package repository

import (
	"context"

	"github.com/ametelin/reviewhub/internal/model"
)

// ListOptions carries limit/offset pagination for every list operation.
// Zero values mean "use defaults" (applied by the implementation).
type ListOptions struct {
	Limit  int
	Offset int
}

// TitleFilter narrows a title listing. Filters combine with AND.
type TitleFilter struct {
	Category string // category slug, case-insensitive substring
	Genre    string // genre slug, case-insensitive substring
	Name     string // title name substring
	Year     *int   // exact year; nil = no filter
}

// UserRepository persists accounts.
//
// FindOrCreateUser is the atomic signup primitive: an exact
// (username, email) match returns the existing record, a fresh pair inserts
// one, and a half-match (username taken with another email, or vice versa)
// returns a ConflictError naming the clashing field. Racing calls are
// resolved by the storage layer's uniqueness constraints.
type UserRepository interface {
	FindOrCreateUser(ctx context.Context, username, email string) (*model.User, error)
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context, search string, opts ListOptions) ([]model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	DeleteUser(ctx context.Context, username string) error
	// SetUserConfirmationCode stores a new code hash; the empty string
	// clears any outstanding code.
	SetUserConfirmationCode(ctx context.Context, userID, hash string) error
}

// CategoryRepository persists the category taxonomy. No update: taxonomies
// are replace-only once created.
type CategoryRepository interface {
	CreateCategory(ctx context.Context, c *model.Category) error
	GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error)
	ListCategories(ctx context.Context, search string, opts ListOptions) ([]model.Category, error)
	DeleteCategory(ctx context.Context, slug string) error
}

// GenreRepository persists the genre taxonomy.
//
// GetGenresBySlugs resolves write-shape slug references in one query and
// fails with NotFound naming the first slug that doesn't resolve.
type GenreRepository interface {
	CreateGenre(ctx context.Context, g *model.Genre) error
	GetGenreBySlug(ctx context.Context, slug string) (*model.Genre, error)
	GetGenresBySlugs(ctx context.Context, slugs []string) ([]model.Genre, error)
	ListGenres(ctx context.Context, search string, opts ListOptions) ([]model.Genre, error)
	DeleteGenre(ctx context.Context, slug string) error
}

// TitleRepository persists titles. Reads return the full read shape:
// nested category, genres, and the review-score mean, computed in the same
// query as the base fetch (never per row).
type TitleRepository interface {
	CreateTitle(ctx context.Context, t *model.Title) error
	GetTitleByID(ctx context.Context, id string) (*model.Title, error)
	ListTitles(ctx context.Context, f TitleFilter, opts ListOptions) ([]model.Title, error)
	UpdateTitle(ctx context.Context, t *model.Title) error
	DeleteTitle(ctx context.Context, id string) error
}

// ReviewRepository persists reviews, scoped under their parent title.
// CreateReview surfaces the one-review-per-(author,title) constraint as a
// ConflictError.
type ReviewRepository interface {
	CreateReview(ctx context.Context, r *model.Review) error
	GetReviewByID(ctx context.Context, titleID, id string) (*model.Review, error)
	ListReviews(ctx context.Context, titleID string, opts ListOptions) ([]model.Review, error)
	UpdateReview(ctx context.Context, r *model.Review) error
	DeleteReview(ctx context.Context, titleID, id string) error
}

// CommentRepository persists comments, scoped under their parent review.
type CommentRepository interface {
	CreateComment(ctx context.Context, c *model.Comment) error
	GetCommentByID(ctx context.Context, reviewID, id string) (*model.Comment, error)
	ListComments(ctx context.Context, reviewID string, opts ListOptions) ([]model.Comment, error)
	UpdateComment(ctx context.Context, c *model.Comment) error
	DeleteComment(ctx context.Context, reviewID, id string) error
}

package service

import (
	"context"
	"log/slog"

	"github.com/ametelin/reviewhub/internal/model"
	"github.com/ametelin/reviewhub/internal/repository"
	"github.com/ametelin/reviewhub/internal/validate"
)

// TaxonomyService implements the category and genre vocabularies. Both are
// slug-keyed and replace-only: there is no update, an entry is created,
// listed, or deleted.
type TaxonomyService struct {
	categories repository.CategoryRepository
	genres     repository.GenreRepository
	logger     *slog.Logger
}

func NewTaxonomyService(
	categories repository.CategoryRepository,
	genres repository.GenreRepository,
	logger *slog.Logger,
) *TaxonomyService {
	return &TaxonomyService{
		categories: categories,
		genres:     genres,
		logger:     logger,
	}
}

func validateTaxonomy(name, slug string) error {
	if err := validate.Name(name, model.MaxTaxonomyNameLength); err != nil {
		return err
	}
	return validate.Slug(slug)
}

// CreateCategory adds a category. The slug must be unique.
func (s *TaxonomyService) CreateCategory(ctx context.Context, name, slug string) (*model.Category, error) {
	if err := validateTaxonomy(name, slug); err != nil {
		return nil, err
	}
	c := &model.Category{Name: name, Slug: slug}
	if err := s.categories.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCategories returns categories ordered by slug, optionally narrowed by
// a name substring search.
func (s *TaxonomyService) ListCategories(ctx context.Context, search string, opts repository.ListOptions) ([]model.Category, error) {
	return s.categories.ListCategories(ctx, search, opts)
}

// DeleteCategory removes a category. Titles referencing it are kept and
// become uncategorized.
func (s *TaxonomyService) DeleteCategory(ctx context.Context, slug string) error {
	return s.categories.DeleteCategory(ctx, slug)
}

// CreateGenre adds a genre. The slug must be unique.
func (s *TaxonomyService) CreateGenre(ctx context.Context, name, slug string) (*model.Genre, error) {
	if err := validateTaxonomy(name, slug); err != nil {
		return nil, err
	}
	g := &model.Genre{Name: name, Slug: slug}
	if err := s.genres.CreateGenre(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// ListGenres returns genres ordered by slug, optionally narrowed by a name
// substring search.
func (s *TaxonomyService) ListGenres(ctx context.Context, search string, opts repository.ListOptions) ([]model.Genre, error) {
	return s.genres.ListGenres(ctx, search, opts)
}

// DeleteGenre removes a genre and its title associations. The titles
// themselves are kept.
func (s *TaxonomyService) DeleteGenre(ctx context.Context, slug string) error {
	return s.genres.DeleteGenre(ctx, slug)
}

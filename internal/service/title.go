package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ametelin/reviewhub/internal/apperror"
	"github.com/ametelin/reviewhub/internal/model"
	"github.com/ametelin/reviewhub/internal/repository"
	"github.com/ametelin/reviewhub/internal/validate"
)

// TitleInput carries a title create or patch payload. Category and genres
// are slug references into the taxonomies; the service resolves them to
// records before writing. Nil fields were absent from the request.
type TitleInput struct {
	Name        *string
	Year        *int
	Description *string
	Category    *string  // category slug
	Genres      []string // genre slugs; nil leaves genres untouched
}

// TitleService implements the title catalog.
type TitleService struct {
	titles     repository.TitleRepository
	categories repository.CategoryRepository
	genres     repository.GenreRepository
	logger     *slog.Logger
}

func NewTitleService(
	titles repository.TitleRepository,
	categories repository.CategoryRepository,
	genres repository.GenreRepository,
	logger *slog.Logger,
) *TitleService {
	return &TitleService{
		titles:     titles,
		categories: categories,
		genres:     genres,
		logger:     logger,
	}
}

// Create adds a title. Name and year are required; category and genre slugs
// must reference existing taxonomy entries.
func (s *TitleService) Create(ctx context.Context, in TitleInput) (*model.Title, error) {
	if in.Name == nil {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if in.Year == nil {
		return nil, apperror.ValidationFailed("year", "year is required")
	}

	t := &model.Title{}
	if err := s.applyTitleInput(ctx, t, in); err != nil {
		return nil, err
	}
	if t.Genres == nil {
		t.Genres = []model.Genre{}
	}
	if err := s.titles.CreateTitle(ctx, t); err != nil {
		return nil, err
	}
	return s.titles.GetTitleByID(ctx, t.ID)
}

// Get returns a title with its category, genres, and computed rating.
func (s *TitleService) Get(ctx context.Context, id string) (*model.Title, error) {
	return s.titles.GetTitleByID(ctx, id)
}

// List returns titles matching the filter, ordered by year then name.
func (s *TitleService) List(ctx context.Context, f repository.TitleFilter, opts repository.ListOptions) ([]model.Title, error) {
	return s.titles.ListTitles(ctx, f, opts)
}

// Update partially updates a title. Passing a genre list replaces the whole
// set; omitting it keeps the current one.
func (s *TitleService) Update(ctx context.Context, id string, in TitleInput) (*model.Title, error) {
	t, err := s.titles.GetTitleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyTitleInput(ctx, t, in); err != nil {
		return nil, err
	}
	if err := s.titles.UpdateTitle(ctx, t); err != nil {
		return nil, err
	}
	return s.titles.GetTitleByID(ctx, id)
}

// Delete removes a title along with its reviews and their comments.
func (s *TitleService) Delete(ctx context.Context, id string) error {
	return s.titles.DeleteTitle(ctx, id)
}

// applyTitleInput validates and copies the set fields of in onto t,
// resolving slug references. An unknown slug in a write payload is the
// client's mistake, so the lookup miss is reported as a validation failure
// rather than a not-found.
func (s *TitleService) applyTitleInput(ctx context.Context, t *model.Title, in TitleInput) error {
	if in.Name != nil {
		if err := validate.Name(*in.Name, model.MaxTitleNameLength); err != nil {
			return err
		}
		t.Name = *in.Name
	}
	if in.Year != nil {
		if err := validate.Year(*in.Year); err != nil {
			return err
		}
		t.Year = *in.Year
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Category != nil {
		if *in.Category == "" {
			t.Category = nil
		} else {
			c, err := s.categories.GetCategoryBySlug(ctx, *in.Category)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					return apperror.ValidationFailed("category",
						fmt.Sprintf("unknown category: %s", *in.Category))
				}
				return err
			}
			t.Category = c
		}
	}
	if in.Genres != nil {
		gs, err := s.genres.GetGenresBySlugs(ctx, in.Genres)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return apperror.ValidationFailed("genre", err.Error())
			}
			return err
		}
		t.Genres = gs
	}
	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/ametelin/reviewhub/internal/apperror"
	"github.com/ametelin/reviewhub/internal/model"
	"github.com/ametelin/reviewhub/internal/repository"
)

var (
	_ repository.CategoryRepository = (*DB)(nil)
	_ repository.GenreRepository    = (*DB)(nil)
)

// Categories and genres share one schema shape (id, name, unique slug) and
// one set of operations, so the methods below delegate to slug-table
// helpers parameterized by table name. The table names are compile-time
// constants, never user input.

func (db *DB) createSlugged(ctx context.Context, table, resource, id, name, slug string) error {
	_, err := db.conn.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, name, slug) VALUES (?, ?, ?)`, table),
		id, name, slug,
	)
	if err != nil {
		if isUniqueViolation(err, table+".slug") {
			return apperror.Conflict("slug",
				fmt.Sprintf("%s with slug %s already exists", resource, slug))
		}
		return fmt.Errorf("sqlite: inserting %s %s: %w", resource, slug, err)
	}
	return nil
}

func (db *DB) deleteSlugged(ctx context.Context, table, resource, slug string) error {
	result, err := db.conn.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE slug = ?`, table), slug)
	if err != nil {
		return fmt.Errorf("sqlite: deleting %s %s: %w", resource, slug, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound(resource, slug)
	}
	return nil
}

// CreateCategory inserts a category; duplicate slug → ConflictError.
func (db *DB) CreateCategory(ctx context.Context, c *model.Category) error {
	c.ID = xid.New().String()
	return db.createSlugged(ctx, "categories", "category", c.ID, c.Name, c.Slug)
}

// GetCategoryBySlug looks up one category by its external key.
func (db *DB) GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	var c model.Category
	err := db.conn.GetContext(ctx, &c,
		`SELECT id, name, slug FROM categories WHERE slug = ?`, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("category", slug)
		}
		return nil, fmt.Errorf("sqlite: getting category %s: %w", slug, err)
	}
	return &c, nil
}

// ListCategories returns categories ordered by name, optionally filtered by
// a name substring.
func (db *DB) ListCategories(ctx context.Context, search string, opts repository.ListOptions) ([]model.Category, error) {
	limit, offset := clampList(opts.Limit, opts.Offset)

	out := make([]model.Category, 0, limit)
	err := db.conn.SelectContext(ctx, &out,
		`SELECT id, name, slug FROM categories
		 WHERE name LIKE ?
		 ORDER BY name
		 LIMIT ? OFFSET ?`,
		"%"+search+"%", limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	return out, nil
}

// DeleteCategory removes a category. Titles referencing it keep existing
// with a null category (ON DELETE SET NULL).
func (db *DB) DeleteCategory(ctx context.Context, slug string) error {
	return db.deleteSlugged(ctx, "categories", "category", slug)
}

// CreateGenre inserts a genre; duplicate slug → ConflictError.
func (db *DB) CreateGenre(ctx context.Context, g *model.Genre) error {
	g.ID = xid.New().String()
	return db.createSlugged(ctx, "genres", "genre", g.ID, g.Name, g.Slug)
}

// GetGenreBySlug looks up one genre by its external key.
func (db *DB) GetGenreBySlug(ctx context.Context, slug string) (*model.Genre, error) {
	var g model.Genre
	err := db.conn.GetContext(ctx, &g,
		`SELECT id, name, slug FROM genres WHERE slug = ?`, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("genre", slug)
		}
		return nil, fmt.Errorf("sqlite: getting genre %s: %w", slug, err)
	}
	return &g, nil
}

// GetGenresBySlugs resolves a set of slugs in one query, for the title
// write shape. Any slug that does not resolve fails the whole call with a
// NotFound naming that slug, so clients learn exactly which reference was
// bad.
func (db *DB) GetGenresBySlugs(ctx context.Context, slugs []string) ([]model.Genre, error) {
	if len(slugs) == 0 {
		return []model.Genre{}, nil
	}

	query, args, err := sqlx.In(`SELECT id, name, slug FROM genres WHERE slug IN (?)`, slugs)
	if err != nil {
		return nil, fmt.Errorf("sqlite: building genre lookup: %w", err)
	}

	var found []model.Genre
	if err := db.conn.SelectContext(ctx, &found, db.conn.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("sqlite: resolving genres: %w", err)
	}

	bySlug := make(map[string]model.Genre, len(found))
	for _, g := range found {
		bySlug[g.Slug] = g
	}

	// Return in request order, deduplicated.
	out := make([]model.Genre, 0, len(slugs))
	seen := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		if seen[s] {
			continue
		}
		seen[s] = true
		g, ok := bySlug[s]
		if !ok {
			return nil, apperror.NotFound("genre", s)
		}
		out = append(out, g)
	}
	return out, nil
}

// ListGenres returns genres ordered by name, optionally filtered by a name
// substring.
func (db *DB) ListGenres(ctx context.Context, search string, opts repository.ListOptions) ([]model.Genre, error) {
	limit, offset := clampList(opts.Limit, opts.Offset)

	out := make([]model.Genre, 0, limit)
	err := db.conn.SelectContext(ctx, &out,
		`SELECT id, name, slug FROM genres
		 WHERE name LIKE ?
		 ORDER BY name
		 LIMIT ? OFFSET ?`,
		"%"+search+"%", limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing genres: %w", err)
	}
	return out, nil
}

// DeleteGenre removes a genre. Join rows go with it; titles are untouched.
func (db *DB) DeleteGenre(ctx context.Context, slug string) error {
	return db.deleteSlugged(ctx, "genres", "genre", slug)
}

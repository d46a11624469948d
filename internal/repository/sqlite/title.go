package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/ametelin/reviewhub/internal/apperror"
	"github.com/ametelin/reviewhub/internal/model"
	"github.com/ametelin/reviewhub/internal/repository"
)

var _ repository.TitleRepository = (*DB)(nil)

// titleRow is the scan target for the title read query: the base columns,
// the aggregated rating, and the (possibly absent) joined category.
type titleRow struct {
	ID          string          `db:"id"`
	Name        string          `db:"name"`
	Year        int             `db:"year"`
	Description string          `db:"description"`
	Rating      sql.NullFloat64 `db:"rating"`
	CategoryID  sql.NullString  `db:"category_id"`
	CatName     sql.NullString  `db:"cat_name"`
	CatSlug     sql.NullString  `db:"cat_slug"`
}

func (r titleRow) toModel() model.Title {
	t := model.Title{
		ID:          r.ID,
		Name:        r.Name,
		Year:        r.Year,
		Description: r.Description,
		Genres:      []model.Genre{},
	}
	if r.Rating.Valid {
		v := r.Rating.Float64
		t.Rating = &v
	}
	if r.CategoryID.Valid {
		t.Category = &model.Category{
			ID:   r.CategoryID.String,
			Name: r.CatName.String,
			Slug: r.CatSlug.String,
		}
	}
	return t
}

// titleSelect is the shared base query for single and list reads. The
// rating is aggregated here, in the same statement as the base fetch, so a
// page of titles costs one query for the rows plus one batched query for
// genres regardless of page size.
func titleSelect() sq.SelectBuilder {
	return sq.Select(
		"t.id", "t.name", "t.year", "t.description",
		"AVG(r.score) AS rating",
		"t.category_id", "c.name AS cat_name", "c.slug AS cat_slug",
	).
		From("titles AS t").
		LeftJoin("categories AS c ON c.id = t.category_id").
		LeftJoin("reviews AS r ON r.title_id = t.id").
		GroupBy("t.id", "t.name", "t.year", "t.description",
			"t.category_id", "c.name", "c.slug")
}

// CreateTitle inserts the title and its genre links in one transaction.
// Category and Genres must already be resolved records (the service layer
// turns slugs into them).
func (db *DB) CreateTitle(ctx context.Context, t *model.Title) error {
	t.ID = xid.New().String()

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var categoryID any
	if t.Category != nil {
		categoryID = t.Category.ID
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO titles (id, name, year, description, category_id)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Year, t.Description, categoryID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting title %s: %w", t.Name, err)
	}

	if err := insertTitleGenres(ctx, tx, t.ID, t.Genres); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing title insert: %w", err)
	}
	return nil
}

func insertTitleGenres(ctx context.Context, tx *sqlx.Tx, titleID string, genres []model.Genre) error {
	for _, g := range genres {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO title_genres (title_id, genre_id) VALUES (?, ?)`,
			titleID, g.ID,
		); err != nil {
			return fmt.Errorf("sqlite: linking title %s to genre %s: %w", titleID, g.Slug, err)
		}
	}
	return nil
}

// GetTitleByID retrieves one title in the read shape.
func (db *DB) GetTitleByID(ctx context.Context, id string) (*model.Title, error) {
	query, args, err := titleSelect().Where(sq.Eq{"t.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building title query: %w", err)
	}

	var row titleRow
	if err := db.conn.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("title", id)
		}
		return nil, fmt.Errorf("sqlite: getting title %s: %w", id, err)
	}

	t := row.toModel()
	if err := db.attachGenres(ctx, []*model.Title{&t}); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTitles returns titles matching the filter, ordered by (year, name).
//
// The four filters combine with AND. Slug filters use LIKE, which SQLite
// treats case-insensitively for ASCII, giving the icontains semantics; the
// genre filter is an EXISTS over the join table rather than a JOIN so a
// title matching two genres is not listed twice.
func (db *DB) ListTitles(ctx context.Context, f repository.TitleFilter, opts repository.ListOptions) ([]model.Title, error) {
	limit, offset := clampList(opts.Limit, opts.Offset)

	qb := titleSelect().
		OrderBy("t.year", "t.name").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	if f.Name != "" {
		qb = qb.Where(sq.Like{"t.name": "%" + f.Name + "%"})
	}
	if f.Year != nil {
		qb = qb.Where(sq.Eq{"t.year": *f.Year})
	}
	if f.Category != "" {
		qb = qb.Where(sq.Like{"c.slug": "%" + f.Category + "%"})
	}
	if f.Genre != "" {
		qb = qb.Where(
			`EXISTS (SELECT 1 FROM title_genres tg
			         JOIN genres g ON g.id = tg.genre_id
			         WHERE tg.title_id = t.id AND g.slug LIKE ?)`,
			"%"+f.Genre+"%",
		)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building title list query: %w", err)
	}

	var rows []titleRow
	if err := db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sqlite: listing titles: %w", err)
	}

	titles := make([]model.Title, 0, len(rows))
	refs := make([]*model.Title, 0, len(rows))
	for _, r := range rows {
		titles = append(titles, r.toModel())
	}
	for i := range titles {
		refs = append(refs, &titles[i])
	}
	if err := db.attachGenres(ctx, refs); err != nil {
		return nil, err
	}
	return titles, nil
}

// attachGenres loads the genres for a batch of titles in one query.
func (db *DB) attachGenres(ctx context.Context, titles []*model.Title) error {
	if len(titles) == 0 {
		return nil
	}

	ids := make([]string, 0, len(titles))
	byID := make(map[string]*model.Title, len(titles))
	for _, t := range titles {
		ids = append(ids, t.ID)
		byID[t.ID] = t
	}

	query, args, err := sqlx.In(
		`SELECT tg.title_id, g.id, g.name, g.slug
		 FROM title_genres tg
		 JOIN genres g ON g.id = tg.genre_id
		 WHERE tg.title_id IN (?)
		 ORDER BY g.name`, ids)
	if err != nil {
		return fmt.Errorf("sqlite: building genre attach query: %w", err)
	}

	rows, err := db.conn.QueryxContext(ctx, db.conn.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("sqlite: attaching genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var titleID string
		var g model.Genre
		if err := rows.Scan(&titleID, &g.ID, &g.Name, &g.Slug); err != nil {
			return fmt.Errorf("sqlite: scanning genre row: %w", err)
		}
		if t, ok := byID[titleID]; ok {
			t.Genres = append(t.Genres, g)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating genre rows: %w", err)
	}
	return nil
}

// UpdateTitle rewrites the base row and replaces the genre links, all in
// one transaction. The caller passes the complete post-update state.
func (db *DB) UpdateTitle(ctx context.Context, t *model.Title) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var categoryID any
	if t.Category != nil {
		categoryID = t.Category.ID
	}
	result, err := tx.ExecContext(ctx,
		`UPDATE titles SET name = ?, year = ?, description = ?, category_id = ?
		 WHERE id = ?`,
		t.Name, t.Year, t.Description, categoryID, t.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating title %s: %w", t.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("title", t.ID)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM title_genres WHERE title_id = ?`, t.ID); err != nil {
		return fmt.Errorf("sqlite: clearing title genres: %w", err)
	}
	if err := insertTitleGenres(ctx, tx, t.ID, t.Genres); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing title update: %w", err)
	}
	return nil
}

// DeleteTitle removes a title; its reviews and their comments cascade.
func (db *DB) DeleteTitle(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM titles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting title %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("title", id)
	}
	return nil
}

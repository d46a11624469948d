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

var (
	_ repository.ReviewRepository  = (*DB)(nil)
	_ repository.CommentRepository = (*DB)(nil)
)

// Review and comment reads join users for the author's username; the author
// column in the db tags refers to that joined value, not a stored field.

// CreateReview inserts a review. The UNIQUE(author_id, title_id) constraint
// is the authoritative one-review-per-title rule: losing a race to a
// concurrent create surfaces the same ConflictError as an ordinary repeat.
func (db *DB) CreateReview(ctx context.Context, r *model.Review) error {
	r.ID = xid.New().String()
	r.PubDate = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO reviews (id, title_id, author_id, text, score, pub_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.TitleID, r.AuthorID, r.Text, r.Score, r.PubDate,
	)
	if err != nil {
		if isUniqueViolation(err, "reviews.author_id") {
			return apperror.Conflict("title", "you have already reviewed this title")
		}
		return fmt.Errorf("sqlite: inserting review for title %s: %w", r.TitleID, err)
	}
	return nil
}

// GetReviewByID retrieves one review scoped to its parent title, so a
// review id from another title's subtree is a 404, not a leak.
func (db *DB) GetReviewByID(ctx context.Context, titleID, id string) (*model.Review, error) {
	var r model.Review
	err := db.conn.GetContext(ctx, &r,
		`SELECT r.id, r.title_id, r.author_id, u.username AS author, r.text, r.score, r.pub_date
		 FROM reviews r
		 JOIN users u ON u.id = r.author_id
		 WHERE r.id = ? AND r.title_id = ?`,
		id, titleID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("review", id)
		}
		return nil, fmt.Errorf("sqlite: getting review %s: %w", id, err)
	}
	return &r, nil
}

// ListReviews returns a title's reviews, newest first.
func (db *DB) ListReviews(ctx context.Context, titleID string, opts repository.ListOptions) ([]model.Review, error) {
	limit, offset := clampList(opts.Limit, opts.Offset)

	reviews := make([]model.Review, 0, limit)
	err := db.conn.SelectContext(ctx, &reviews,
		`SELECT r.id, r.title_id, r.author_id, u.username AS author, r.text, r.score, r.pub_date
		 FROM reviews r
		 JOIN users u ON u.id = r.author_id
		 WHERE r.title_id = ?
		 ORDER BY r.pub_date DESC, r.id DESC
		 LIMIT ? OFFSET ?`,
		titleID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reviews for title %s: %w", titleID, err)
	}
	return reviews, nil
}

// UpdateReview writes back text and score. Author, title, and pub_date are
// immutable.
func (db *DB) UpdateReview(ctx context.Context, r *model.Review) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE reviews SET text = ?, score = ? WHERE id = ? AND title_id = ?`,
		r.Text, r.Score, r.ID, r.TitleID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating review %s: %w", r.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("review", r.ID)
	}
	return nil
}

// DeleteReview removes a review; its comments cascade.
func (db *DB) DeleteReview(ctx context.Context, titleID, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM reviews WHERE id = ? AND title_id = ?`, id, titleID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting review %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("review", id)
	}
	return nil
}

// CreateComment inserts a comment under a review.
func (db *DB) CreateComment(ctx context.Context, c *model.Comment) error {
	c.ID = xid.New().String()
	c.PubDate = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, review_id, author_id, text, pub_date)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.ReviewID, c.AuthorID, c.Text, c.PubDate,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting comment for review %s: %w", c.ReviewID, err)
	}
	return nil
}

// GetCommentByID retrieves one comment scoped to its parent review.
func (db *DB) GetCommentByID(ctx context.Context, reviewID, id string) (*model.Comment, error) {
	var c model.Comment
	err := db.conn.GetContext(ctx, &c,
		`SELECT c.id, c.review_id, c.author_id, u.username AS author, c.text, c.pub_date
		 FROM comments c
		 JOIN users u ON u.id = c.author_id
		 WHERE c.id = ? AND c.review_id = ?`,
		id, reviewID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}
	return &c, nil
}

// ListComments returns a review's comments, newest first.
func (db *DB) ListComments(ctx context.Context, reviewID string, opts repository.ListOptions) ([]model.Comment, error) {
	limit, offset := clampList(opts.Limit, opts.Offset)

	comments := make([]model.Comment, 0, limit)
	err := db.conn.SelectContext(ctx, &comments,
		`SELECT c.id, c.review_id, c.author_id, u.username AS author, c.text, c.pub_date
		 FROM comments c
		 JOIN users u ON u.id = c.author_id
		 WHERE c.review_id = ?
		 ORDER BY c.pub_date DESC, c.id DESC
		 LIMIT ? OFFSET ?`,
		reviewID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for review %s: %w", reviewID, err)
	}
	return comments, nil
}

// UpdateComment writes back the text. Everything else is immutable.
func (db *DB) UpdateComment(ctx context.Context, c *model.Comment) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE comments SET text = ? WHERE id = ? AND review_id = ?`,
		c.Text, c.ID, c.ReviewID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating comment %s: %w", c.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("comment", c.ID)
	}
	return nil
}

// DeleteComment removes a comment.
func (db *DB) DeleteComment(ctx context.Context, reviewID, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM comments WHERE id = ? AND review_id = ?`, id, reviewID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("comment", id)
	}
	return nil
}

package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ametelin/reviewhub/internal/apperror"
	"github.com/ametelin/reviewhub/internal/model"
	"github.com/ametelin/reviewhub/internal/repository"
	"github.com/ametelin/reviewhub/internal/validate"
)

// ReviewService implements reviews and their comments. Both are nested
// resources: every operation checks the parent chain first, so a review id
// under the wrong title (or a comment under the wrong review) is a
// not-found, never a leak from a sibling.
type ReviewService struct {
	titles   repository.TitleRepository
	reviews  repository.ReviewRepository
	comments repository.CommentRepository
	logger   *slog.Logger
}

func NewReviewService(
	titles repository.TitleRepository,
	reviews repository.ReviewRepository,
	comments repository.CommentRepository,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		titles:   titles,
		reviews:  reviews,
		comments: comments,
		logger:   logger,
	}
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperror.ValidationFailed("text", "text must not be empty")
	}
	return nil
}

// CreateReview posts author's review of a title. Each user gets one review
// per title; a second attempt is a conflict.
func (s *ReviewService) CreateReview(ctx context.Context, titleID string, author *model.User, text string, score int) (*model.Review, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}
	if err := validate.Score(score); err != nil {
		return nil, err
	}
	if _, err := s.titles.GetTitleByID(ctx, titleID); err != nil {
		return nil, err
	}

	r := &model.Review{
		TitleID:  titleID,
		AuthorID: author.ID,
		Author:   author.Username,
		Text:     text,
		Score:    score,
		PubDate:  time.Now(),
	}
	if err := s.reviews.CreateReview(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetReview returns a single review under the given title.
func (s *ReviewService) GetReview(ctx context.Context, titleID, reviewID string) (*model.Review, error) {
	return s.reviews.GetReviewByID(ctx, titleID, reviewID)
}

// ListReviews returns a title's reviews, newest first.
func (s *ReviewService) ListReviews(ctx context.Context, titleID string, opts repository.ListOptions) ([]model.Review, error) {
	if _, err := s.titles.GetTitleByID(ctx, titleID); err != nil {
		return nil, err
	}
	return s.reviews.ListReviews(ctx, titleID, opts)
}

// UpdateReview changes a review's text and/or score. Nil fields stay as
// they are. Authorship and privilege were already checked by the handler.
func (s *ReviewService) UpdateReview(ctx context.Context, titleID, reviewID string, text *string, score *int) (*model.Review, error) {
	r, err := s.reviews.GetReviewByID(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}
	if text != nil {
		if err := validateText(*text); err != nil {
			return nil, err
		}
		r.Text = *text
	}
	if score != nil {
		if err := validate.Score(*score); err != nil {
			return nil, err
		}
		r.Score = *score
	}
	if err := s.reviews.UpdateReview(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteReview removes a review and its comments.
func (s *ReviewService) DeleteReview(ctx context.Context, titleID, reviewID string) error {
	return s.reviews.DeleteReview(ctx, titleID, reviewID)
}

// CreateComment posts a comment under a review. The full parent chain
// (title, then review under that title) must exist.
func (s *ReviewService) CreateComment(ctx context.Context, titleID, reviewID string, author *model.User, text string) (*model.Comment, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}
	if _, err := s.reviews.GetReviewByID(ctx, titleID, reviewID); err != nil {
		return nil, err
	}

	c := &model.Comment{
		ReviewID: reviewID,
		AuthorID: author.ID,
		Author:   author.Username,
		Text:     text,
		PubDate:  time.Now(),
	}
	if err := s.comments.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetComment returns a single comment under the given review and title.
func (s *ReviewService) GetComment(ctx context.Context, titleID, reviewID, commentID string) (*model.Comment, error) {
	if _, err := s.reviews.GetReviewByID(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	return s.comments.GetCommentByID(ctx, reviewID, commentID)
}

// ListComments returns a review's comments, newest first.
func (s *ReviewService) ListComments(ctx context.Context, titleID, reviewID string, opts repository.ListOptions) ([]model.Comment, error) {
	if _, err := s.reviews.GetReviewByID(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	return s.comments.ListComments(ctx, reviewID, opts)
}

// UpdateComment changes a comment's text.
func (s *ReviewService) UpdateComment(ctx context.Context, titleID, reviewID, commentID, text string) (*model.Comment, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}
	c, err := s.GetComment(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	c.Text = text
	if err := s.comments.UpdateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteComment removes a comment.
func (s *ReviewService) DeleteComment(ctx context.Context, titleID, reviewID, commentID string) error {
	if _, err := s.reviews.GetReviewByID(ctx, titleID, reviewID); err != nil {
		return err
	}
	return s.comments.DeleteComment(ctx, reviewID, commentID)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ametelin/reviewhub/internal/access"
	"github.com/ametelin/reviewhub/internal/model"
	"github.com/ametelin/reviewhub/internal/service"
)

// ReviewHandler exposes reviews and comments, nested under their title.
// Reads are public. Creates need any authenticated user; update and delete
// run a second, object-level check so only the author, a moderator, or an
// admin can touch an existing record.
type ReviewHandler struct {
	reviews *service.ReviewService
	logger  *slog.Logger
}

func NewReviewHandler(reviews *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, logger: logger}
}

type reviewInput struct {
	Text  *string `json:"text"`
	Score *int    `json:"score"`
}

// HandleListReviews returns a title's reviews, newest first.
//
// GET /api/v1/titles/{title_id}/reviews
func (h *ReviewHandler) HandleListReviews(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AuthorOrPrivilegedOrReadOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	reviews, err := h.reviews.ListReviews(r.Context(), chi.URLParam(r, "title_id"), listOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

// HandleGetReview returns one review.
//
// GET /api/v1/titles/{title_id}/reviews/{review_id}
func (h *ReviewHandler) HandleGetReview(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AuthorOrPrivilegedOrReadOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	review, err := h.reviews.GetReview(r.Context(), chi.URLParam(r, "title_id"), chi.URLParam(r, "review_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// HandleCreateReview posts the caller's review of a title.
//
// POST /api/v1/titles/{title_id}/reviews {"text": ..., "score": ...}
func (h *ReviewHandler) HandleCreateReview(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if err := access.Check(access.AuthorOrPrivilegedOrReadOnly, user, r.Method); err != nil {
		writeError(w, err)
		return
	}

	var in reviewInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	var text string
	if in.Text != nil {
		text = *in.Text
	}
	var score int
	if in.Score != nil {
		score = *in.Score
	}

	review, err := h.reviews.CreateReview(r.Context(), chi.URLParam(r, "title_id"), user, text, score)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// HandleUpdateReview partially updates a review. Object-level policy: the
// author, a moderator, or an admin.
//
// PATCH /api/v1/titles/{title_id}/reviews/{review_id}
func (h *ReviewHandler) HandleUpdateReview(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if err := access.Check(access.AuthorOrPrivilegedOrReadOnly, user, r.Method); err != nil {
		writeError(w, err)
		return
	}

	titleID := chi.URLParam(r, "title_id")
	reviewID := chi.URLParam(r, "review_id")
	review, err := h.reviews.GetReview(r.Context(), titleID, reviewID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := access.CheckObject(access.AuthorOrPrivilegedOrReadOnly, user, r.Method, review.AuthorID); err != nil {
		writeError(w, err)
		return
	}

	var in reviewInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.reviews.UpdateReview(r.Context(), titleID, reviewID, in.Text, in.Score)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleDeleteReview removes a review and its comments. Same object-level
// policy as update.
//
// DELETE /api/v1/titles/{title_id}/reviews/{review_id}
func (h *ReviewHandler) HandleDeleteReview(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if err := access.Check(access.AuthorOrPrivilegedOrReadOnly, user, r.Method); err != nil {
		writeError(w, err)
		return
	}

	titleID := chi.URLParam(r, "title_id")
	reviewID := chi.URLParam(r, "review_id")
	review, err := h.reviews.GetReview(r.Context(), titleID, reviewID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := access.CheckObject(access.AuthorOrPrivilegedOrReadOnly, user, r.Method, review.AuthorID); err != nil {
		writeError(w, err)
		return
	}

	if err := h.reviews.DeleteReview(r.Context(), titleID, reviewID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type commentInput struct {
	Text *string `json:"text"`
}

// HandleListComments returns a review's comments, newest first.
//
// GET /api/v1/titles/{title_id}/reviews/{review_id}/comments
func (h *ReviewHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AuthorOrPrivilegedOrReadOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	comments, err := h.reviews.ListComments(r.Context(),
		chi.URLParam(r, "title_id"), chi.URLParam(r, "review_id"), listOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

// HandleGetComment returns one comment.
//
// GET /api/v1/titles/{title_id}/reviews/{review_id}/comments/{comment_id}
func (h *ReviewHandler) HandleGetComment(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AuthorOrPrivilegedOrReadOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.reviews.GetComment(r.Context(),
		chi.URLParam(r, "title_id"), chi.URLParam(r, "review_id"), chi.URLParam(r, "comment_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// HandleCreateComment posts the caller's comment under a review.
//
// POST /api/v1/titles/{title_id}/reviews/{review_id}/comments {"text": ...}
func (h *ReviewHandler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if err := access.Check(access.AuthorOrPrivilegedOrReadOnly, user, r.Method); err != nil {
		writeError(w, err)
		return
	}

	var in commentInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	var text string
	if in.Text != nil {
		text = *in.Text
	}

	comment, err := h.reviews.CreateComment(r.Context(),
		chi.URLParam(r, "title_id"), chi.URLParam(r, "review_id"), user, text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// HandleUpdateComment changes a comment's text. Object-level policy: the
// author, a moderator, or an admin.
//
// PATCH /api/v1/titles/{title_id}/reviews/{review_id}/comments/{comment_id}
func (h *ReviewHandler) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if err := access.Check(access.AuthorOrPrivilegedOrReadOnly, user, r.Method); err != nil {
		writeError(w, err)
		return
	}

	titleID := chi.URLParam(r, "title_id")
	reviewID := chi.URLParam(r, "review_id")
	commentID := chi.URLParam(r, "comment_id")
	comment, err := h.reviews.GetComment(r.Context(), titleID, reviewID, commentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := access.CheckObject(access.AuthorOrPrivilegedOrReadOnly, user, r.Method, comment.AuthorID); err != nil {
		writeError(w, err)
		return
	}

	var in commentInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	var text string
	if in.Text != nil {
		text = *in.Text
	}
	updated, err := h.reviews.UpdateComment(r.Context(), titleID, reviewID, commentID, text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleDeleteComment removes a comment. Same object-level policy as
// update.
//
// DELETE /api/v1/titles/{title_id}/reviews/{review_id}/comments/{comment_id}
func (h *ReviewHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if err := access.Check(access.AuthorOrPrivilegedOrReadOnly, user, r.Method); err != nil {
		writeError(w, err)
		return
	}

	titleID := chi.URLParam(r, "title_id")
	reviewID := chi.URLParam(r, "review_id")
	commentID := chi.URLParam(r, "comment_id")
	comment, err := h.reviews.GetComment(r.Context(), titleID, reviewID, commentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := access.CheckObject(access.AuthorOrPrivilegedOrReadOnly, user, r.Method, comment.AuthorID); err != nil {
		writeError(w, err)
		return
	}

	if err := h.reviews.DeleteComment(r.Context(), titleID, reviewID, commentID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ametelin/reviewhub/internal/apperror"
	"github.com/ametelin/reviewhub/internal/model"
	"github.com/ametelin/reviewhub/internal/repository"
)

// In-memory fakes for the repository interfaces. Fakes (not a mock
// framework) keep the tests readable: each one behaves like a tiny
// database, including the uniqueness rules the real one enforces.

type fakeUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	nextID int

	// set to a non-nil error to simulate a storage failure
	setCodeErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) newID() string {
	f.nextID++
	return fmt.Sprintf("user-%d", f.nextID)
}

func (f *fakeUserRepo) byUsername(username string) *model.User {
	for _, u := range f.users {
		if u.Username == username {
			return u
		}
	}
	return nil
}

func (f *fakeUserRepo) byEmail(email string) *model.User {
	for _, u := range f.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (f *fakeUserRepo) FindOrCreateUser(ctx context.Context, username, email string) (*model.User, error) {
	if u := f.byUsername(username); u != nil {
		if u.Email == email {
			return u, nil
		}
		return nil, apperror.Conflict("username",
			fmt.Sprintf("user with username %s already exists", username))
	}
	if f.byEmail(email) != nil {
		return nil, apperror.Conflict("email",
			fmt.Sprintf("user with email %s already exists", email))
	}
	u := &model.User{ID: f.newID(), Username: username, Email: email, Role: model.RoleUser}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, u *model.User) error {
	if f.byUsername(u.Username) != nil {
		return apperror.Conflict("username",
			fmt.Sprintf("user with username %s already exists", u.Username))
	}
	if f.byEmail(u.Email) != nil {
		return apperror.Conflict("email",
			fmt.Sprintf("user with email %s already exists", u.Email))
	}
	u.ID = f.newID()
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u := f.byUsername(username)
	if u == nil {
		return nil, apperror.NotFound("user", username)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) ListUsers(ctx context.Context, search string, opts repository.ListOptions) ([]model.User, error) {
	var out []model.User
	for _, u := range f.users {
		if search == "" || strings.Contains(u.Username, search) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateUser(ctx context.Context, u *model.User) error {
	stored, ok := f.users[u.ID]
	if !ok {
		return apperror.NotFound("user", u.Username)
	}
	if other := f.byUsername(u.Username); other != nil && other.ID != u.ID {
		return apperror.Conflict("username",
			fmt.Sprintf("user with username %s already exists", u.Username))
	}
	if other := f.byEmail(u.Email); other != nil && other.ID != u.ID {
		return apperror.Conflict("email",
			fmt.Sprintf("user with email %s already exists", u.Email))
	}
	*stored = *u
	return nil
}

func (f *fakeUserRepo) DeleteUser(ctx context.Context, username string) error {
	u := f.byUsername(username)
	if u == nil {
		return apperror.NotFound("user", username)
	}
	delete(f.users, u.ID)
	return nil
}

func (f *fakeUserRepo) SetUserConfirmationCode(ctx context.Context, userID, hash string) error {
	if f.setCodeErr != nil {
		return f.setCodeErr
	}
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.ConfirmationCodeHash = hash
	return nil
}

type fakeCategoryRepo struct {
	categories map[string]*model.Category // keyed by slug
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: make(map[string]*model.Category)}
}

func (f *fakeCategoryRepo) CreateCategory(ctx context.Context, c *model.Category) error {
	if _, ok := f.categories[c.Slug]; ok {
		return apperror.Conflict("slug",
			fmt.Sprintf("category with slug %s already exists", c.Slug))
	}
	c.ID = "cat-" + c.Slug
	copied := *c
	f.categories[c.Slug] = &copied
	return nil
}

func (f *fakeCategoryRepo) GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	c, ok := f.categories[slug]
	if !ok {
		return nil, apperror.NotFound("category", slug)
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCategoryRepo) ListCategories(ctx context.Context, search string, opts repository.ListOptions) ([]model.Category, error) {
	var out []model.Category
	for _, c := range f.categories {
		if search == "" || strings.Contains(c.Name, search) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCategoryRepo) DeleteCategory(ctx context.Context, slug string) error {
	if _, ok := f.categories[slug]; !ok {
		return apperror.NotFound("category", slug)
	}
	delete(f.categories, slug)
	return nil
}

type fakeGenreRepo struct {
	genres map[string]*model.Genre // keyed by slug
}

func newFakeGenreRepo() *fakeGenreRepo {
	return &fakeGenreRepo{genres: make(map[string]*model.Genre)}
}

func (f *fakeGenreRepo) CreateGenre(ctx context.Context, g *model.Genre) error {
	if _, ok := f.genres[g.Slug]; ok {
		return apperror.Conflict("slug",
			fmt.Sprintf("genre with slug %s already exists", g.Slug))
	}
	g.ID = "gen-" + g.Slug
	copied := *g
	f.genres[g.Slug] = &copied
	return nil
}

func (f *fakeGenreRepo) GetGenreBySlug(ctx context.Context, slug string) (*model.Genre, error) {
	g, ok := f.genres[slug]
	if !ok {
		return nil, apperror.NotFound("genre", slug)
	}
	copied := *g
	return &copied, nil
}

func (f *fakeGenreRepo) GetGenresBySlugs(ctx context.Context, slugs []string) ([]model.Genre, error) {
	out := make([]model.Genre, 0, len(slugs))
	seen := make(map[string]bool)
	for _, slug := range slugs {
		if seen[slug] {
			continue
		}
		seen[slug] = true
		g, ok := f.genres[slug]
		if !ok {
			return nil, apperror.NotFound("genre", slug)
		}
		out = append(out, *g)
	}
	return out, nil
}

func (f *fakeGenreRepo) ListGenres(ctx context.Context, search string, opts repository.ListOptions) ([]model.Genre, error) {
	var out []model.Genre
	for _, g := range f.genres {
		if search == "" || strings.Contains(g.Name, search) {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeGenreRepo) DeleteGenre(ctx context.Context, slug string) error {
	if _, ok := f.genres[slug]; !ok {
		return apperror.NotFound("genre", slug)
	}
	delete(f.genres, slug)
	return nil
}

type fakeTitleRepo struct {
	titles map[string]*model.Title // keyed by ID
	nextID int
}

func newFakeTitleRepo() *fakeTitleRepo {
	return &fakeTitleRepo{titles: make(map[string]*model.Title)}
}

func (f *fakeTitleRepo) CreateTitle(ctx context.Context, t *model.Title) error {
	f.nextID++
	t.ID = fmt.Sprintf("title-%d", f.nextID)
	copied := *t
	f.titles[t.ID] = &copied
	return nil
}

func (f *fakeTitleRepo) GetTitleByID(ctx context.Context, id string) (*model.Title, error) {
	t, ok := f.titles[id]
	if !ok {
		return nil, apperror.NotFound("title", id)
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTitleRepo) ListTitles(ctx context.Context, filter repository.TitleFilter, opts repository.ListOptions) ([]model.Title, error) {
	var out []model.Title
	for _, t := range f.titles {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTitleRepo) UpdateTitle(ctx context.Context, t *model.Title) error {
	stored, ok := f.titles[t.ID]
	if !ok {
		return apperror.NotFound("title", t.ID)
	}
	*stored = *t
	return nil
}

func (f *fakeTitleRepo) DeleteTitle(ctx context.Context, id string) error {
	if _, ok := f.titles[id]; !ok {
		return apperror.NotFound("title", id)
	}
	delete(f.titles, id)
	return nil
}

type fakeReviewRepo struct {
	reviews map[string]*model.Review // keyed by ID
	nextID  int
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{reviews: make(map[string]*model.Review)}
}

func (f *fakeReviewRepo) CreateReview(ctx context.Context, r *model.Review) error {
	for _, existing := range f.reviews {
		if existing.TitleID == r.TitleID && existing.AuthorID == r.AuthorID {
			return apperror.Conflict("title", "you have already reviewed this title")
		}
	}
	f.nextID++
	r.ID = fmt.Sprintf("review-%d", f.nextID)
	copied := *r
	f.reviews[r.ID] = &copied
	return nil
}

func (f *fakeReviewRepo) GetReviewByID(ctx context.Context, titleID, id string) (*model.Review, error) {
	r, ok := f.reviews[id]
	if !ok || r.TitleID != titleID {
		return nil, apperror.NotFound("review", id)
	}
	copied := *r
	return &copied, nil
}

func (f *fakeReviewRepo) ListReviews(ctx context.Context, titleID string, opts repository.ListOptions) ([]model.Review, error) {
	var out []model.Review
	for _, r := range f.reviews {
		if r.TitleID == titleID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReviewRepo) UpdateReview(ctx context.Context, r *model.Review) error {
	stored, ok := f.reviews[r.ID]
	if !ok {
		return apperror.NotFound("review", r.ID)
	}
	stored.Text = r.Text
	stored.Score = r.Score
	return nil
}

func (f *fakeReviewRepo) DeleteReview(ctx context.Context, titleID, id string) error {
	r, ok := f.reviews[id]
	if !ok || r.TitleID != titleID {
		return apperror.NotFound("review", id)
	}
	delete(f.reviews, id)
	return nil
}

type fakeCommentRepo struct {
	comments map[string]*model.Comment // keyed by ID
	nextID   int
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: make(map[string]*model.Comment)}
}

func (f *fakeCommentRepo) CreateComment(ctx context.Context, c *model.Comment) error {
	f.nextID++
	c.ID = fmt.Sprintf("comment-%d", f.nextID)
	copied := *c
	f.comments[c.ID] = &copied
	return nil
}

func (f *fakeCommentRepo) GetCommentByID(ctx context.Context, reviewID, id string) (*model.Comment, error) {
	c, ok := f.comments[id]
	if !ok || c.ReviewID != reviewID {
		return nil, apperror.NotFound("comment", id)
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCommentRepo) ListComments(ctx context.Context, reviewID string, opts repository.ListOptions) ([]model.Comment, error) {
	var out []model.Comment
	for _, c := range f.comments {
		if c.ReviewID == reviewID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCommentRepo) UpdateComment(ctx context.Context, c *model.Comment) error {
	stored, ok := f.comments[c.ID]
	if !ok {
		return apperror.NotFound("comment", c.ID)
	}
	stored.Text = c.Text
	return nil
}

func (f *fakeCommentRepo) DeleteComment(ctx context.Context, reviewID, id string) error {
	c, ok := f.comments[id]
	if !ok || c.ReviewID != reviewID {
		return apperror.NotFound("comment", id)
	}
	delete(f.comments, id)
	return nil
}

// fakeMailSender records outgoing mail instead of delivering it.
type fakeMailSender struct {
	sent    []sentMail
	sendErr error
}

type sentMail struct {
	to, subject, body string
}

func (f *fakeMailSender) Send(ctx context.Context, to, subject, body string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

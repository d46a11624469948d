package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ametelin/reviewhub/internal/auth"
	"github.com/ametelin/reviewhub/internal/handler"
	"github.com/ametelin/reviewhub/internal/model"
	sqliteRepo "github.com/ametelin/reviewhub/internal/repository/sqlite"
	"github.com/ametelin/reviewhub/internal/service"
)

// captureSender records outgoing mail so tests can read confirmation codes.
type captureSender struct {
	bodies []string
}

func (c *captureSender) Send(_ context.Context, _, _, body string) error {
	c.bodies = append(c.bodies, body)
	return nil
}

func (c *captureSender) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, c.bodies)
	body := c.bodies[len(c.bodies)-1]
	const marker = "confirmation code is: "
	i := strings.Index(body, marker)
	require.GreaterOrEqual(t, i, 0, "no code in mail body")
	rest := body[i+len(marker):]
	if end := strings.IndexAny(rest, " \n"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

// testAPI wires the real stack (in-memory sqlite, services, handlers,
// bearer middleware) behind the production route table.
type testAPI struct {
	router http.Handler
	db     *sqliteRepo.DB
	tokens *auth.TokenService
	mail   *captureSender
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := auth.NewTokenService("handler-test-secret-handler-test")
	require.NoError(t, err)
	codes := auth.NewCodeServiceForTest(4)
	sender := &captureSender{}

	authHandler := handler.NewAuthHandler(
		service.NewAuthService(db, tokens, codes, sender, logger), logger)
	userHandler := handler.NewUserHandler(
		service.NewUserService(db, logger), logger)
	taxonomyHandler := handler.NewTaxonomyHandler(
		service.NewTaxonomyService(db, db, logger), logger)
	titleHandler := handler.NewTitleHandler(
		service.NewTitleService(db, db, db, logger), logger)
	reviewHandler := handler.NewReviewHandler(
		service.NewReviewService(db, db, db, logger), logger)

	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signup", authHandler.HandleSignup)
		r.Post("/auth/token", authHandler.HandleToken)

		r.Group(func(r chi.Router) {
			r.Use(auth.Identify(tokens, db))

			r.Get("/users", userHandler.HandleList)
			r.Post("/users", userHandler.HandleCreate)
			r.Get("/users/me", userHandler.HandleGetSelf)
			r.Patch("/users/me", userHandler.HandleUpdateSelf)
			r.Get("/users/{username}", userHandler.HandleGet)
			r.Patch("/users/{username}", userHandler.HandleUpdate)
			r.Delete("/users/{username}", userHandler.HandleDelete)

			r.Get("/categories", taxonomyHandler.HandleListCategories)
			r.Post("/categories", taxonomyHandler.HandleCreateCategory)
			r.Delete("/categories/{slug}", taxonomyHandler.HandleDeleteCategory)

			r.Get("/genres", taxonomyHandler.HandleListGenres)
			r.Post("/genres", taxonomyHandler.HandleCreateGenre)
			r.Delete("/genres/{slug}", taxonomyHandler.HandleDeleteGenre)

			r.Get("/titles", titleHandler.HandleList)
			r.Post("/titles", titleHandler.HandleCreate)
			r.Get("/titles/{id}", titleHandler.HandleGet)
			r.Patch("/titles/{id}", titleHandler.HandleUpdate)
			r.Delete("/titles/{id}", titleHandler.HandleDelete)

			r.Route("/titles/{title_id}/reviews", func(r chi.Router) {
				r.Get("/", reviewHandler.HandleListReviews)
				r.Post("/", reviewHandler.HandleCreateReview)
				r.Get("/{review_id}", reviewHandler.HandleGetReview)
				r.Patch("/{review_id}", reviewHandler.HandleUpdateReview)
				r.Delete("/{review_id}", reviewHandler.HandleDeleteReview)

				r.Route("/{review_id}/comments", func(r chi.Router) {
					r.Get("/", reviewHandler.HandleListComments)
					r.Post("/", reviewHandler.HandleCreateComment)
					r.Get("/{comment_id}", reviewHandler.HandleGetComment)
					r.Patch("/{comment_id}", reviewHandler.HandleUpdateComment)
					r.Delete("/{comment_id}", reviewHandler.HandleDeleteComment)
				})
			})
		})
	})

	return &testAPI{router: router, db: db, tokens: tokens, mail: sender}
}

// user creates an account directly in storage and returns a bearer token
// for it.
func (a *testAPI) user(t *testing.T, username, role string) string {
	t.Helper()
	u := &model.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
	}
	require.NoError(t, a.db.CreateUser(context.Background(), u))
	token, err := a.tokens.Generate(u.ID)
	require.NoError(t, err)
	return token
}

// do performs a request against the router. An empty token means anonymous.
func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

func TestSignupAndTokenFlow(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"username": "bob",
		"email":    "bob@example.com",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decodeBody[map[string]string](t, rr)
	assert.Equal(t, "bob", resp["username"])

	code := api.mail.lastCode(t)
	rr = api.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"username":          "bob",
		"confirmation_code": code,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	tokenResp := decodeBody[map[string]string](t, rr)
	require.NotEmpty(t, tokenResp["token"])

	// the issued token authenticates against /users/me
	rr = api.do(t, http.MethodGet, "/api/v1/users/me", tokenResp["token"], nil)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decodeBody[map[string]any](t, rr)
	assert.Equal(t, "bob", me["username"])
}

func TestSignup_ValidationErrorShape(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"username": "bad~name",
		"email":    "ok@example.com",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	errResp := decodeBody[handler.ErrorResponse](t, rr)
	assert.Equal(t, "validation_error", errResp.Error)
	assert.Equal(t, "username", errResp.Field)
	assert.Contains(t, errResp.Message, "~")
}

func TestSignup_ConflictMapsToBadRequest(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"username": "bob", "email": "bob@example.com",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"username": "bob", "email": "other@example.com",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	errResp := decodeBody[handler.ErrorResponse](t, rr)
	assert.Equal(t, "conflict", errResp.Error)
	assert.Equal(t, "username", errResp.Field)
}

func TestToken_InvalidBearerIsUnauthorized(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodGet, "/api/v1/users/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCategories_AccessMatrix(t *testing.T) {
	api := newTestAPI(t)
	admin := api.user(t, "admin", model.RoleAdmin)
	plain := api.user(t, "plain", model.RoleUser)

	payload := map[string]string{"name": "Films", "slug": "films"}

	rr := api.do(t, http.MethodPost, "/api/v1/categories", "", payload)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "anonymous write")

	rr = api.do(t, http.MethodPost, "/api/v1/categories", plain, payload)
	assert.Equal(t, http.StatusForbidden, rr.Code, "non-admin write")

	rr = api.do(t, http.MethodPost, "/api/v1/categories", admin, payload)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	// duplicate slug is a field-tagged 400
	rr = api.do(t, http.MethodPost, "/api/v1/categories", admin, payload)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	errResp := decodeBody[handler.ErrorResponse](t, rr)
	assert.Equal(t, "conflict", errResp.Error)

	// reads are public
	rr = api.do(t, http.MethodGet, "/api/v1/categories", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	categories := decodeBody[[]model.Category](t, rr)
	require.Len(t, categories, 1)
	assert.Equal(t, "films", categories[0].Slug)
}

func TestUsers_AdminOnly(t *testing.T) {
	api := newTestAPI(t)
	plain := api.user(t, "plain", model.RoleUser)
	moderator := api.user(t, "mod", model.RoleModerator)
	admin := api.user(t, "admin", model.RoleAdmin)

	for name, token := range map[string]string{"plain": plain, "moderator": moderator} {
		rr := api.do(t, http.MethodGet, "/api/v1/users", token, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code, "%s list", name)
	}

	rr := api.do(t, http.MethodGet, "/api/v1/users", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	users := decodeBody[[]model.User](t, rr)
	assert.Len(t, users, 3)

	// list is even hidden from anonymous readers
	rr = api.do(t, http.MethodGet, "/api/v1/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUsersMe_RoleLocked(t *testing.T) {
	api := newTestAPI(t)
	plain := api.user(t, "plain", model.RoleUser)

	rr := api.do(t, http.MethodPatch, "/api/v1/users/me", plain, map[string]string{
		"bio":  "just a user",
		"role": model.RoleAdmin,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	me := decodeBody[map[string]any](t, rr)
	assert.Equal(t, model.RoleUser, me["role"])
	assert.Equal(t, "just a user", me["bio"])
}

func TestTitles_WriteShapeAndReadShape(t *testing.T) {
	api := newTestAPI(t)
	admin := api.user(t, "admin", model.RoleAdmin)

	rr := api.do(t, http.MethodPost, "/api/v1/categories", admin, map[string]string{"name": "Films", "slug": "films"})
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = api.do(t, http.MethodPost, "/api/v1/genres", admin, map[string]string{"name": "Drama", "slug": "drama"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/v1/titles", admin, map[string]any{
		"name":     "Solaris",
		"year":     1972,
		"category": "films",
		"genre":    []string{"drama"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	title := decodeBody[model.Title](t, rr)
	require.NotNil(t, title.Category)
	assert.Equal(t, "films", title.Category.Slug)
	require.Len(t, title.Genres, 1)
	assert.Nil(t, title.Rating, "no reviews yet")

	// unknown genre slug in write shape
	rr = api.do(t, http.MethodPost, "/api/v1/titles", admin, map[string]any{
		"name":  "Ghost",
		"year":  2000,
		"genre": []string{"noir"},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	errResp := decodeBody[handler.ErrorResponse](t, rr)
	assert.Equal(t, "genre", errResp.Field)
}

func TestReviews_FullFlow(t *testing.T) {
	api := newTestAPI(t)
	admin := api.user(t, "admin", model.RoleAdmin)
	author := api.user(t, "author", model.RoleUser)
	stranger := api.user(t, "stranger", model.RoleUser)
	moderator := api.user(t, "mod", model.RoleModerator)

	rr := api.do(t, http.MethodPost, "/api/v1/titles", admin, map[string]any{
		"name": "Solaris", "year": 1972,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	title := decodeBody[model.Title](t, rr)

	reviewsPath := fmt.Sprintf("/api/v1/titles/%s/reviews", title.ID)

	// anonymous create is rejected
	rr = api.do(t, http.MethodPost, reviewsPath, "", map[string]any{"text": "x", "score": 5})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// out-of-range score
	rr = api.do(t, http.MethodPost, reviewsPath, author, map[string]any{"text": "x", "score": 11})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(t, http.MethodPost, reviewsPath, author, map[string]any{"text": "a classic", "score": 10})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	review := decodeBody[model.Review](t, rr)
	assert.Equal(t, "author", review.Author)

	// one review per author per title
	rr = api.do(t, http.MethodPost, reviewsPath, author, map[string]any{"text": "again", "score": 1})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	errResp := decodeBody[handler.ErrorResponse](t, rr)
	assert.Equal(t, "conflict", errResp.Error)

	// rating now reflects the single score
	rr = api.do(t, http.MethodGet, "/api/v1/titles/"+title.ID, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeBody[model.Title](t, rr)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 10.0, *got.Rating)

	reviewPath := reviewsPath + "/" + review.ID

	// object policy: stranger cannot edit, the author can
	rr = api.do(t, http.MethodPatch, reviewPath, stranger, map[string]any{"score": 1})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(t, http.MethodPatch, reviewPath, author, map[string]any{"score": 8})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decodeBody[model.Review](t, rr)
	assert.Equal(t, 8, updated.Score)
	assert.Equal(t, "a classic", updated.Text, "text untouched by partial update")

	// comments mirror the policy
	commentsPath := reviewPath + "/comments"
	rr = api.do(t, http.MethodPost, commentsPath, stranger, map[string]any{"text": "disagree"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	comment := decodeBody[model.Comment](t, rr)

	rr = api.do(t, http.MethodDelete, commentsPath+"/"+comment.ID, author, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code, "review author does not own the comment")

	// a moderator can remove anything
	rr = api.do(t, http.MethodDelete, commentsPath+"/"+comment.ID, moderator, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = api.do(t, http.MethodDelete, reviewPath, moderator, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestReviews_MissingParentIs404(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodGet, "/api/v1/titles/ghost/reviews", "", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	errResp := decodeBody[handler.ErrorResponse](t, rr)
	assert.Equal(t, "not_found", errResp.Error)
}

func TestTitles_ListFiltersOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	admin := api.user(t, "admin", model.RoleAdmin)

	rr := api.do(t, http.MethodPost, "/api/v1/categories", admin, map[string]string{"name": "Films", "slug": "films"})
	require.Equal(t, http.StatusCreated, rr.Code)

	for _, payload := range []map[string]any{
		{"name": "Solaris", "year": 1972, "category": "films"},
		{"name": "Stalker", "year": 1979, "category": "films"},
		{"name": "Roadside Picnic", "year": 1972},
	} {
		rr = api.do(t, http.MethodPost, "/api/v1/titles", admin, payload)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr = api.do(t, http.MethodGet, "/api/v1/titles?category=films&year=1972", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	titles := decodeBody[[]model.Title](t, rr)
	require.Len(t, titles, 1)
	assert.Equal(t, "Solaris", titles[0].Name)

	rr = api.do(t, http.MethodGet, "/api/v1/titles?limit=2", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	titles = decodeBody[[]model.Title](t, rr)
	assert.Len(t, titles, 2)
}

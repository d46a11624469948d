package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ametelin/reviewhub/internal/access"
	"github.com/ametelin/reviewhub/internal/model"
	"github.com/ametelin/reviewhub/internal/service"
)

// TaxonomyHandler exposes the category and genre vocabularies. Reads are
// public; writes are admin only.
type TaxonomyHandler struct {
	taxonomies *service.TaxonomyService
	logger     *slog.Logger
}

func NewTaxonomyHandler(taxonomies *service.TaxonomyService, logger *slog.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{taxonomies: taxonomies, logger: logger}
}

type taxonomyInput struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// HandleListCategories returns categories ordered by slug.
//
// GET /api/v1/categories?search=&limit=&offset=
func (h *TaxonomyHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AdminOrReadOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	categories, err := h.taxonomies.ListCategories(r.Context(), r.URL.Query().Get("search"), listOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// HandleCreateCategory adds a category, admin only.
//
// POST /api/v1/categories {"name": ..., "slug": ...}
func (h *TaxonomyHandler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AdminOrReadOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	var in taxonomyInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.taxonomies.CreateCategory(r.Context(), in.Name, in.Slug)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HandleDeleteCategory removes a category, admin only. Titles in it become
// uncategorized.
//
// DELETE /api/v1/categories/{slug}
func (h *TaxonomyHandler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AdminOrReadOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	if err := h.taxonomies.DeleteCategory(r.Context(), chi.URLParam(r, "slug")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListGenres returns genres ordered by slug.
//
// GET /api/v1/genres?search=&limit=&offset=
func (h *TaxonomyHandler) HandleListGenres(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AdminOrReadOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	genres, err := h.taxonomies.ListGenres(r.Context(), r.URL.Query().Get("search"), listOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if genres == nil {
		genres = []model.Genre{}
	}
	writeJSON(w, http.StatusOK, genres)
}

// HandleCreateGenre adds a genre, admin only.
//
// POST /api/v1/genres {"name": ..., "slug": ...}
func (h *TaxonomyHandler) HandleCreateGenre(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AdminOrReadOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	var in taxonomyInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	g, err := h.taxonomies.CreateGenre(r.Context(), in.Name, in.Slug)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// HandleDeleteGenre removes a genre, admin only. Titles keep their other
// genres.
//
// DELETE /api/v1/genres/{slug}
func (h *TaxonomyHandler) HandleDeleteGenre(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AdminOrReadOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	if err := h.taxonomies.DeleteGenre(r.Context(), chi.URLParam(r, "slug")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ametelin/reviewhub/internal/access"
	"github.com/ametelin/reviewhub/internal/model"
	"github.com/ametelin/reviewhub/internal/repository"
	"github.com/ametelin/reviewhub/internal/service"
)

// titleInput is the wire shape for title create/patch payloads. Category
// and genre are slug references.
type titleInput struct {
	Name        *string  `json:"name"`
	Year        *int     `json:"year"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Genre       []string `json:"genre"`
}

func (in titleInput) toService() service.TitleInput {
	return service.TitleInput{
		Name:        in.Name,
		Year:        in.Year,
		Description: in.Description,
		Category:    in.Category,
		Genres:      in.Genre,
	}
}

// TitleHandler exposes the title catalog. Reads are public; writes are
// admin only.
type TitleHandler struct {
	titles *service.TitleService
	logger *slog.Logger
}

func NewTitleHandler(titles *service.TitleService, logger *slog.Logger) *TitleHandler {
	return &TitleHandler{titles: titles, logger: logger}
}

// titleFilter reads the combinable list filters from the query string. A
// non-numeric year is ignored rather than rejected, matching the lenient
// handling of the other filter params.
func titleFilter(r *http.Request) repository.TitleFilter {
	q := r.URL.Query()
	f := repository.TitleFilter{
		Category: q.Get("category"),
		Genre:    q.Get("genre"),
		Name:     q.Get("name"),
	}
	if y, err := strconv.Atoi(q.Get("year")); err == nil {
		f.Year = &y
	}
	return f
}

// HandleList returns titles ordered by year then name.
//
// GET /api/v1/titles?category=&genre=&name=&year=&limit=&offset=
func (h *TitleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AdminOrReadOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	titles, err := h.titles.List(r.Context(), titleFilter(r), listOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if titles == nil {
		titles = []model.Title{}
	}
	writeJSON(w, http.StatusOK, titles)
}

// HandleGet returns one title with category, genres, and rating.
//
// GET /api/v1/titles/{id}
func (h *TitleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AdminOrReadOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	title, err := h.titles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, title)
}

// HandleCreate adds a title, admin only. Responds with the read shape.
//
// POST /api/v1/titles
func (h *TitleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AdminOrReadOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	var in titleInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	title, err := h.titles.Create(r.Context(), in.toService())
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("title created", "id", title.ID, "name", title.Name)
	writeJSON(w, http.StatusCreated, title)
}

// HandleUpdate partially updates a title, admin only.
//
// PATCH /api/v1/titles/{id}
func (h *TitleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AdminOrReadOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	var in titleInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	title, err := h.titles.Update(r.Context(), chi.URLParam(r, "id"), in.toService())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, title)
}

// HandleDelete removes a title with its reviews and comments, admin only.
//
// DELETE /api/v1/titles/{id}
func (h *TitleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := access.Check(access.AdminOrReadOnly, currentUser(r), r.Method); err != nil {
		writeError(w, err)
		return
	}

	if err := h.titles.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

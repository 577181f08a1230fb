package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/msomdec/recipe-console/internal/catalog"
	"github.com/msomdec/recipe-console/internal/domain"
	"github.com/msomdec/recipe-console/internal/view"
)

// HomeHandler serves the public catalogue pages.
type HomeHandler struct {
	catalog *catalog.Service
	view    *view.Renderer
}

// NewHomeHandler creates a new HomeHandler.
func NewHomeHandler(svc *catalog.Service, renderer *view.Renderer) *HomeHandler {
	return &HomeHandler{catalog: svc, view: renderer}
}

// HandleHome renders the browse page: search, sort, and pagination over
// the public collection.
// GET /
func (h *HomeHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	query := parseListQuery(r)

	base := view.Base{Authenticated: UserFromContext(r.Context()) != nil}
	data := view.HomeData{
		Base:   base,
		Query:  query,
		Q:      query.Q,
		SortBy: query.SortBy,
		Order:  query.Normalize().Order,
		Page:   query.Page(),
	}

	list, err := h.catalog.Recipes(r.Context(), query)
	if err != nil {
		slog.Error("list recipes", "error", err)
		data.LoadError = true
		h.view.HomePage(w, data)
		return
	}

	data.List = list
	data.PageCount = query.PageCount(list.Total)
	data.PrevPage = data.Page - 1
	data.NextPage = data.Page + 1
	h.view.HomePage(w, data)
}

// HandleRecipe renders a single recipe.
// GET /recipes/{id}
func (h *HomeHandler) HandleRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	recipe, err := h.catalog.Recipe(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		slog.Error("get recipe", "error", err, "id", id)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.view.DetailPage(w, view.DetailData{
		Base:   view.Base{Title: recipe.Name, Authenticated: UserFromContext(r.Context()) != nil},
		Recipe: recipe,
	})
}

// parseListQuery reads browse parameters from the URL. Unknown sort
// fields are discarded; page numbers below 1 clamp to 1.
func parseListQuery(r *http.Request) domain.ListQuery {
	q := domain.ListQuery{
		Limit: domain.DefaultLimit,
		Q:     r.URL.Query().Get("q"),
		Order: r.URL.Query().Get("order"),
	}

	if sortBy := r.URL.Query().Get("sortBy"); sortBy != "" {
		for _, allowed := range domain.SortFields {
			if sortBy == allowed {
				q.SortBy = sortBy
				break
			}
		}
	}

	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 1 {
			page = parsed
		}
	}
	return q.WithPage(page)
}

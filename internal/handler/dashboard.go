package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/msomdec/recipe-console/internal/catalog"
	"github.com/msomdec/recipe-console/internal/domain"
	"github.com/msomdec/recipe-console/internal/view"
)

// dashboardPageSize is the working-list size on the management dashboard.
const dashboardPageSize = 50

// dashboardQuery is the one list entry the dashboard page and its SSE
// stream share: both must land on the same cache key.
func dashboardQuery() domain.ListQuery {
	return domain.ListQuery{Limit: dashboardPageSize}
}

// DashboardHandler serves the authenticated management pages.
type DashboardHandler struct {
	catalog *catalog.Service
	view    *view.Renderer
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(svc *catalog.Service, renderer *view.Renderer) *DashboardHandler {
	return &DashboardHandler{catalog: svc, view: renderer}
}

func (h *DashboardHandler) base(r *http.Request, title string) view.Base {
	return view.Base{
		Title:         title,
		Authenticated: true,
		User:          UserFromContext(r.Context()),
		Notice:        r.URL.Query().Get("notice"),
	}
}

// HandleDashboard renders the working list with management controls.
// GET /dashboard
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	data := view.DashboardData{Base: h.base(r, "Dashboard")}

	list, err := h.catalog.Recipes(r.Context(), dashboardQuery())
	if err != nil {
		slog.Error("load dashboard recipes", "error", err)
		data.LoadError = true
		h.view.DashboardPage(w, data)
		return
	}

	data.Grid = view.GridData{Recipes: list.Recipes, Total: list.Total, Manageable: true}
	h.view.DashboardPage(w, data)
}

// HandleLive streams dashboard grid updates over SSE. The subscription is
// attached to the same cache entry the page rendered from, so optimistic
// patches and invalidation refetches from any other request show up here.
// GET /dashboard/live
func (h *DashboardHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	sub := h.catalog.SubscribeRecipes(r.Context(), dashboardQuery())
	defer sub.Close()

	for {
		select {
		case <-r.Context().Done():
			return
		case res := <-sub.Updates():
			if res.Err != nil {
				// Keep showing the last rendered state; the next
				// successful refetch replaces it.
				continue
			}
			list, ok := res.Value.(domain.RecipeList)
			if !ok {
				continue
			}

			var buf bytes.Buffer
			if err := h.view.RecipeGrid(&buf, view.GridData{
				Recipes:    list.Recipes,
				Total:      list.Total,
				Manageable: true,
			}); err != nil {
				slog.Error("render recipe grid", "error", err)
				continue
			}
			if err := sse.PatchElements(buf.String()); err != nil {
				return
			}
		}
	}
}

// HandleNew renders the blank recipe form.
// GET /dashboard/recipes/new
func (h *DashboardHandler) HandleNew(w http.ResponseWriter, r *http.Request) {
	h.view.EditorPage(w, view.EditorData{
		Base:         h.base(r, "Create Recipe"),
		Difficulties: domain.Difficulties,
	})
}

// HandleCreate processes recipe creation from the form.
// POST /dashboard/recipes
func (h *DashboardHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	draft, err := parseDraftForm(r)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if _, err := h.catalog.CreateRecipe(r.Context(), draft); err != nil {
		h.renderEditorError(w, r, nil, err, "create recipe")
		return
	}
	http.Redirect(w, r, "/dashboard?notice=Recipe+created", http.StatusSeeOther)
}

// HandleEdit renders the form prefilled with an existing recipe.
// GET /dashboard/recipes/{id}/edit
func (h *DashboardHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
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
		slog.Error("load recipe for edit", "error", err, "id", id)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.view.EditorPage(w, view.EditorData{
		Base:         h.base(r, "Edit Recipe"),
		Recipe:       &recipe,
		Difficulties: domain.Difficulties,
	})
}

// HandleUpdate processes the edit form.
// POST /dashboard/recipes/{id}
func (h *DashboardHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	draft, err := parseDraftForm(r)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if _, err := h.catalog.UpdateRecipe(r.Context(), id, draftToPatch(draft)); err != nil {
		recipe := recipeFromDraft(id, draft)
		h.renderEditorError(w, r, &recipe, err, "update recipe")
		return
	}
	http.Redirect(w, r, "/dashboard?notice=Recipe+updated", http.StatusSeeOther)
}

// HandleDelete deletes a recipe.
// POST /dashboard/recipes/{id}/delete
func (h *DashboardHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := h.catalog.DeleteRecipe(r.Context(), id); err != nil {
		slog.Error("delete recipe", "error", err, "id", id)
		http.Redirect(w, r, "/dashboard?notice=Failed+to+delete+recipe", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/dashboard?notice=Recipe+deleted", http.StatusSeeOther)
}

func (h *DashboardHandler) renderEditorError(w http.ResponseWriter, r *http.Request, recipe *domain.Recipe, err error, action string) {
	msg := "An unexpected error occurred. Please try again."
	if errors.Is(err, domain.ErrInvalidInput) {
		msg = err.Error()
	} else {
		slog.Error(action, "error", err)
	}

	data := view.EditorData{
		Base:         h.base(r, "Recipe"),
		Recipe:       recipe,
		Difficulties: domain.Difficulties,
	}
	data.Error = msg
	h.view.EditorPage(w, data)
}

// parseDraftForm reads the recipe form. Ingredients and instructions are
// one entry per line; tags and meal types are comma separated.
func parseDraftForm(r *http.Request) (domain.RecipeDraft, error) {
	if err := r.ParseForm(); err != nil {
		return domain.RecipeDraft{}, err
	}

	return domain.RecipeDraft{
		Name:               strings.TrimSpace(r.FormValue("name")),
		Ingredients:        splitLines(r.FormValue("ingredients")),
		Instructions:       splitLines(r.FormValue("instructions")),
		PrepTimeMinutes:    formInt(r, "prepTimeMinutes"),
		CookTimeMinutes:    formInt(r, "cookTimeMinutes"),
		Servings:           formInt(r, "servings"),
		Difficulty:         r.FormValue("difficulty"),
		Cuisine:            strings.TrimSpace(r.FormValue("cuisine")),
		CaloriesPerServing: formInt(r, "caloriesPerServing"),
		Tags:               splitComma(r.FormValue("tags")),
		MealType:           splitComma(r.FormValue("mealType")),
		Image:              strings.TrimSpace(r.FormValue("image")),
	}, nil
}

func draftToPatch(d domain.RecipeDraft) domain.RecipePatch {
	return domain.RecipePatch{
		Name:               &d.Name,
		Ingredients:        &d.Ingredients,
		Instructions:       &d.Instructions,
		PrepTimeMinutes:    &d.PrepTimeMinutes,
		CookTimeMinutes:    &d.CookTimeMinutes,
		Servings:           &d.Servings,
		Difficulty:         &d.Difficulty,
		Cuisine:            &d.Cuisine,
		CaloriesPerServing: &d.CaloriesPerServing,
		Tags:               &d.Tags,
		MealType:           &d.MealType,
		Image:              &d.Image,
	}
}

// recipeFromDraft rebuilds a Recipe for re-rendering the edit form after
// a failed update.
func recipeFromDraft(id int, d domain.RecipeDraft) domain.Recipe {
	r := domain.Recipe{ID: id}
	draftToPatch(d).Apply(&r)
	return r
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func formInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.FormValue(name)))
	if err != nil {
		return 0
	}
	return v
}

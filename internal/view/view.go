// Package view renders the console's HTML pages.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/msomdec/recipe-console/internal/domain"
)

//go:embed templates/*.html
var files embed.FS

var pages = []string{"home", "detail", "login", "dashboard", "editor", "profile"}

// Renderer holds the parsed page templates.
type Renderer struct {
	templates map[string]*template.Template
	fragment  *template.Template
}

var funcs = template.FuncMap{
	"join": strings.Join,
	"stars": func(rating float64) string {
		full := int(rating + 0.5)
		if full > 5 {
			full = 5
		}
		return strings.Repeat("★", full) + strings.Repeat("☆", 5-full)
	},
}

// New parses all templates. Each page is parsed together with the shared
// layout.
func New() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template)}
	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(files,
			"templates/layout.html",
			"templates/recipe_grid.html",
			"templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		r.templates[page] = t
	}

	frag, err := template.New("recipe_grid.html").Funcs(funcs).ParseFS(files, "templates/recipe_grid.html")
	if err != nil {
		return nil, fmt.Errorf("parse recipe grid fragment: %w", err)
	}
	r.fragment = frag
	return r, nil
}

func (r *Renderer) render(w io.Writer, page string, data any) error {
	t, ok := r.templates[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return t.ExecuteTemplate(w, "layout.html", data)
}

// HomeData drives the public browse page.
type HomeData struct {
	Base
	Query     domain.ListQuery
	List      domain.RecipeList
	Page      int
	PageCount int
	PrevPage  int
	NextPage  int
	SortBy    string
	Order     string
	Q         string
	LoadError bool
}

// Base carries the fields every page shares.
type Base struct {
	Title         string
	Authenticated bool
	User          *domain.User
	Error         string
	Notice        string
}

// HomePage renders the public browse page.
func (r *Renderer) HomePage(w io.Writer, data HomeData) error {
	return r.render(w, "home", data)
}

// DetailData drives the single-recipe page.
type DetailData struct {
	Base
	Recipe domain.Recipe
}

// DetailPage renders a single recipe.
func (r *Renderer) DetailPage(w io.Writer, data DetailData) error {
	return r.render(w, "detail", data)
}

// LoginData drives the login page.
type LoginData struct {
	Base
	Username string
}

// LoginPage renders the login form.
func (r *Renderer) LoginPage(w io.Writer, data LoginData) error {
	return r.render(w, "login", data)
}

// DashboardData drives the management dashboard.
type DashboardData struct {
	Base
	Grid      GridData
	LoadError bool
}

// DashboardPage renders the management dashboard.
func (r *Renderer) DashboardPage(w io.Writer, data DashboardData) error {
	return r.render(w, "dashboard", data)
}

// EditorData drives the recipe create/edit form. Recipe is nil when
// creating.
type EditorData struct {
	Base
	Recipe       *domain.Recipe
	Difficulties []string
}

// EditorPage renders the recipe form.
func (r *Renderer) EditorPage(w io.Writer, data EditorData) error {
	return r.render(w, "editor", data)
}

// ProfileData drives the profile page.
type ProfileData struct {
	Base
	Profile domain.User
}

// ProfilePage renders the profile page.
func (r *Renderer) ProfilePage(w io.Writer, data ProfileData) error {
	return r.render(w, "profile", data)
}

// GridData drives the recipe grid fragment shared by the dashboard page
// and its SSE stream.
type GridData struct {
	Recipes    []domain.Recipe
	Total      int
	Manageable bool
}

// RecipeGrid renders the grid fragment on its own, for SSE patches.
func (r *Renderer) RecipeGrid(w io.Writer, data GridData) error {
	return r.fragment.ExecuteTemplate(w, "recipe_grid", data)
}

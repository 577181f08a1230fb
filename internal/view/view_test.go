package view

import (
	"strings"
	"testing"

	"github.com/msomdec/recipe-console/internal/domain"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestNew_ParsesAllPages(t *testing.T) {
	r := newRenderer(t)
	for _, page := range pages {
		if _, ok := r.templates[page]; !ok {
			t.Errorf("page %q not parsed", page)
		}
	}
	if r.fragment == nil {
		t.Error("grid fragment not parsed")
	}
}

func TestHomePage_RendersRecipesAndPager(t *testing.T) {
	r := newRenderer(t)

	var b strings.Builder
	err := r.HomePage(&b, HomeData{
		Base: Base{Title: "Browse"},
		List: domain.RecipeList{
			Recipes: []domain.Recipe{{ID: 1, Name: "Classic Margherita Pizza", Rating: 4.6}},
			Total:   40,
		},
		Page: 2, PageCount: 4, PrevPage: 1, NextPage: 3,
	})
	if err != nil {
		t.Fatalf("HomePage: %v", err)
	}

	out := b.String()
	if !strings.Contains(out, "Classic Margherita Pizza") {
		t.Fatal("recipe name missing")
	}
	if !strings.Contains(out, "page=3") {
		t.Fatal("next page link missing")
	}
}

func TestDetailPage_EscapesUserContent(t *testing.T) {
	r := newRenderer(t)

	var b strings.Builder
	err := r.DetailPage(&b, DetailData{
		Recipe: domain.Recipe{
			ID:           7,
			Name:         "<script>alert(1)</script>",
			Ingredients:  []string{"flour"},
			Instructions: []string{"mix"},
		},
	})
	if err != nil {
		t.Fatalf("DetailPage: %v", err)
	}
	if strings.Contains(b.String(), "<script>alert(1)</script>") {
		t.Fatal("recipe name rendered unescaped")
	}
}

func TestLoginPage_ShowsErrorAndKeepsUsername(t *testing.T) {
	r := newRenderer(t)

	var b strings.Builder
	err := r.LoginPage(&b, LoginData{
		Base:     Base{Error: "Invalid username or password."},
		Username: "emilys",
	})
	if err != nil {
		t.Fatalf("LoginPage: %v", err)
	}
	out := b.String()
	if !strings.Contains(out, "Invalid username or password.") {
		t.Fatal("error message missing")
	}
	if !strings.Contains(out, "emilys") {
		t.Fatal("username not preserved in form")
	}
}

func TestEditorPage_CreateAndEditModes(t *testing.T) {
	r := newRenderer(t)

	var create strings.Builder
	if err := r.EditorPage(&create, EditorData{Difficulties: domain.Difficulties}); err != nil {
		t.Fatalf("EditorPage create: %v", err)
	}

	var edit strings.Builder
	err := r.EditorPage(&edit, EditorData{
		Recipe:       &domain.Recipe{ID: 7, Name: "Pizza", Difficulty: "Medium"},
		Difficulties: domain.Difficulties,
	})
	if err != nil {
		t.Fatalf("EditorPage edit: %v", err)
	}
	if !strings.Contains(edit.String(), "Pizza") {
		t.Fatal("edit form not prefilled")
	}
}

func TestRecipeGrid_StandaloneFragment(t *testing.T) {
	r := newRenderer(t)

	var b strings.Builder
	err := r.RecipeGrid(&b, GridData{
		Recipes:    []domain.Recipe{{ID: 1, Name: "Pizza"}},
		Total:      1,
		Manageable: true,
	})
	if err != nil {
		t.Fatalf("RecipeGrid: %v", err)
	}
	out := b.String()
	if !strings.Contains(out, `id="dashboard-recipes"`) {
		t.Fatal("grid root id missing, SSE patches would have no target")
	}
	if !strings.Contains(out, "Pizza") {
		t.Fatal("recipe missing from grid")
	}
}

func TestStarsFunc(t *testing.T) {
	fn := funcs["stars"].(func(float64) string)
	tests := []struct {
		rating float64
		want   string
	}{
		{0, "☆☆☆☆☆"},
		{4.6, "★★★★★"},
		{3.2, "★★★☆☆"},
		{9, "★★★★★"},
	}
	for _, tt := range tests {
		if got := fn(tt.rating); got != tt.want {
			t.Errorf("stars(%v) = %q, want %q", tt.rating, got, tt.want)
		}
	}
}

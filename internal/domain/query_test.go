package domain_test

import (
	"testing"

	"github.com/msomdec/recipe-console/internal/domain"
)

func TestListQuery_Normalize_Defaults(t *testing.T) {
	got := domain.ListQuery{}.Normalize()

	if got.Limit != domain.DefaultLimit {
		t.Fatalf("expected limit %d, got %d", domain.DefaultLimit, got.Limit)
	}
	if got.Skip != 0 {
		t.Fatalf("expected skip 0, got %d", got.Skip)
	}
	if got.Order != domain.OrderAsc {
		t.Fatalf("expected order asc, got %q", got.Order)
	}
}

func TestListQuery_CacheArg_EquivalentShapes(t *testing.T) {
	// A missing optional filter must be equivalent to its default value:
	// both shapes share one cache entry.
	a := domain.ListQuery{Limit: 12}.CacheArg()
	b := domain.ListQuery{Limit: 12, Skip: 0, Q: "", SortBy: "", Order: "asc"}.CacheArg()
	if a != b {
		t.Fatalf("expected equal cache args, got %q vs %q", a, b)
	}

	c := domain.ListQuery{Limit: 12, Q: "pasta"}.CacheArg()
	if a == c {
		t.Fatal("expected different cache args for different search terms")
	}
}

func TestListQuery_CacheArg_OrderIgnoredWithoutSort(t *testing.T) {
	a := domain.ListQuery{Order: "desc"}.CacheArg()
	b := domain.ListQuery{}.CacheArg()
	if a != b {
		t.Fatalf("order without a sort field should normalize away, got %q vs %q", a, b)
	}
}

func TestListQuery_PageMath(t *testing.T) {
	q := domain.ListQuery{Limit: 12}

	if got := q.PageCount(40); got != 4 {
		t.Fatalf("expected 4 pages for total=40 limit=12, got %d", got)
	}

	page4 := q.WithPage(4)
	if page4.Skip != 36 {
		t.Fatalf("expected skip 36 for page 4, got %d", page4.Skip)
	}
	if page4.Page() != 4 {
		t.Fatalf("expected page 4, got %d", page4.Page())
	}

	if got := q.PageCount(0); got != 0 {
		t.Fatalf("expected 0 pages for empty collection, got %d", got)
	}
	if got := q.PageCount(12); got != 1 {
		t.Fatalf("expected 1 page for total=12, got %d", got)
	}
}

func TestListQuery_Values_SortOnlyWhenSet(t *testing.T) {
	v := domain.ListQuery{Limit: 12, Skip: 24}.Values()
	if v.Get("limit") != "12" || v.Get("skip") != "24" {
		t.Fatalf("unexpected pagination values: %v", v)
	}
	if v.Has("sortBy") || v.Has("order") {
		t.Fatalf("expected no sort params without a sort field, got %v", v)
	}

	v = domain.ListQuery{SortBy: "rating", Order: "desc"}.Values()
	if v.Get("sortBy") != "rating" || v.Get("order") != "desc" {
		t.Fatalf("expected sort params preserved, got %v", v)
	}
}

func TestRecipeList_Clone_Independent(t *testing.T) {
	original := domain.RecipeList{
		Recipes: []domain.Recipe{{ID: 1, Name: "Soup"}},
		Total:   1,
	}

	clone := original.Clone()
	clone.Recipes[0].Name = "Stew"
	clone.Total = 2

	if original.Recipes[0].Name != "Soup" {
		t.Fatal("clone mutation leaked into the original slice")
	}
	if original.Total != 1 {
		t.Fatal("clone mutation leaked into the original total")
	}
}

func TestRecipePatch_Apply_PartialMerge(t *testing.T) {
	r := domain.Recipe{ID: 7, Name: "Pancakes", Servings: 2, Cuisine: "American"}

	name := "Crepes"
	servings := 4
	domain.RecipePatch{Name: &name, Servings: &servings}.Apply(&r)

	if r.Name != "Crepes" || r.Servings != 4 {
		t.Fatalf("patched fields not applied: %+v", r)
	}
	if r.Cuisine != "American" || r.ID != 7 {
		t.Fatalf("untouched fields changed: %+v", r)
	}
}

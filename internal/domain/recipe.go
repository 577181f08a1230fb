package domain

// Recipe is a single recipe as served by the upstream catalogue API.
// The ID is assigned by the server and immutable; Rating and ReviewCount
// are server-computed.
type Recipe struct {
	ID                 int      `json:"id"`
	Name               string   `json:"name"`
	Ingredients        []string `json:"ingredients"`
	Instructions       []string `json:"instructions"`
	PrepTimeMinutes    int      `json:"prepTimeMinutes"`
	CookTimeMinutes    int      `json:"cookTimeMinutes"`
	Servings           int      `json:"servings"`
	Difficulty         string   `json:"difficulty"`
	Cuisine            string   `json:"cuisine"`
	CaloriesPerServing int      `json:"caloriesPerServing"`
	Tags               []string `json:"tags"`
	UserID             int      `json:"userId"`
	Image              string   `json:"image"`
	Rating             float64  `json:"rating"`
	ReviewCount        int      `json:"reviewCount"`
	MealType           []string `json:"mealType"`
}

// Difficulties is the enumerated set of difficulty labels the console
// offers in its forms.
var Difficulties = []string{"Easy", "Medium", "Hard"}

// TotalTimeMinutes is the combined prep and cook time.
func (r Recipe) TotalTimeMinutes() int {
	return r.PrepTimeMinutes + r.CookTimeMinutes
}

// RecipeList is a single page of recipes together with the total size of
// the matching collection. Total may exceed len(Recipes); page counts must
// be derived from Total, never from the page length.
type RecipeList struct {
	Recipes []Recipe `json:"recipes"`
	Total   int      `json:"total"`
	Skip    int      `json:"skip"`
	Limit   int      `json:"limit"`
}

// Clone returns a deep copy of the list. Cached lists are shared between
// subscribers, so every speculative edit works on a clone.
func (l RecipeList) Clone() RecipeList {
	out := l
	out.Recipes = make([]Recipe, len(l.Recipes))
	copy(out.Recipes, l.Recipes)
	return out
}

// RecipeDraft carries the user-editable fields for recipe creation.
type RecipeDraft struct {
	Name               string   `json:"name"`
	Ingredients        []string `json:"ingredients"`
	Instructions       []string `json:"instructions"`
	PrepTimeMinutes    int      `json:"prepTimeMinutes"`
	CookTimeMinutes    int      `json:"cookTimeMinutes"`
	Servings           int      `json:"servings"`
	Difficulty         string   `json:"difficulty"`
	Cuisine            string   `json:"cuisine"`
	CaloriesPerServing int      `json:"caloriesPerServing"`
	Tags               []string `json:"tags"`
	MealType           []string `json:"mealType"`
	Image              string   `json:"image"`
}

// RecipePatch is a partial update. Nil fields are left untouched, both in
// the PUT body sent upstream and when merged into cached copies.
type RecipePatch struct {
	Name               *string   `json:"name,omitempty"`
	Ingredients        *[]string `json:"ingredients,omitempty"`
	Instructions       *[]string `json:"instructions,omitempty"`
	PrepTimeMinutes    *int      `json:"prepTimeMinutes,omitempty"`
	CookTimeMinutes    *int      `json:"cookTimeMinutes,omitempty"`
	Servings           *int      `json:"servings,omitempty"`
	Difficulty         *string   `json:"difficulty,omitempty"`
	Cuisine            *string   `json:"cuisine,omitempty"`
	CaloriesPerServing *int      `json:"caloriesPerServing,omitempty"`
	Tags               *[]string `json:"tags,omitempty"`
	MealType           *[]string `json:"mealType,omitempty"`
	Image              *string   `json:"image,omitempty"`
}

// Apply merges the non-nil fields of the patch into r.
func (p RecipePatch) Apply(r *Recipe) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Ingredients != nil {
		r.Ingredients = *p.Ingredients
	}
	if p.Instructions != nil {
		r.Instructions = *p.Instructions
	}
	if p.PrepTimeMinutes != nil {
		r.PrepTimeMinutes = *p.PrepTimeMinutes
	}
	if p.CookTimeMinutes != nil {
		r.CookTimeMinutes = *p.CookTimeMinutes
	}
	if p.Servings != nil {
		r.Servings = *p.Servings
	}
	if p.Difficulty != nil {
		r.Difficulty = *p.Difficulty
	}
	if p.Cuisine != nil {
		r.Cuisine = *p.Cuisine
	}
	if p.CaloriesPerServing != nil {
		r.CaloriesPerServing = *p.CaloriesPerServing
	}
	if p.Tags != nil {
		r.Tags = *p.Tags
	}
	if p.MealType != nil {
		r.MealType = *p.MealType
	}
	if p.Image != nil {
		r.Image = *p.Image
	}
}

// DeleteReceipt is the upstream response to a recipe deletion.
type DeleteReceipt struct {
	IsDeleted bool   `json:"isDeleted"`
	DeletedOn string `json:"deletedOn"`
}

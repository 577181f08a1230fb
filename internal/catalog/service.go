// Package catalog binds the upstream recipe API to the cache: it defines
// the read queries with their tags and the write operations under both
// mutation strategies.
package catalog

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/msomdec/recipe-console/internal/cache"
	"github.com/msomdec/recipe-console/internal/domain"
	"github.com/msomdec/recipe-console/internal/session"
	"github.com/msomdec/recipe-console/internal/upstream"
)

// Cache operation names. Together with the canonical argument encoding
// they form the cache key for each query.
const (
	opList    = "recipes.list"
	opGet     = "recipes.get"
	opProfile = "auth.profile"
)

// ListTag is the collection sentinel: every list result carries it, so a
// creation (whose new id no list knows yet) can still reach all of them.
var ListTag = cache.Tag{Type: "recipe", ID: "LIST"}

// ProfileTag marks the cached /auth/me result.
var ProfileTag = cache.Tag{Type: "user", ID: "me"}

// RecipeTag is the per-entity tag for one recipe id.
func RecipeTag(id int) cache.Tag {
	return cache.Tag{Type: "recipe", ID: strconv.Itoa(id)}
}

// Strategy selects how writes affect cached reads.
type Strategy string

const (
	// StrategyOptimistic patches cached entries before the network call
	// and rolls back on failure.
	StrategyOptimistic Strategy = "optimistic"
	// StrategyInvalidate marks affected tags stale after the call
	// succeeds, forcing refetches.
	StrategyInvalidate Strategy = "invalidate"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyOptimistic, StrategyInvalidate:
		return Strategy(s), nil
	case "":
		return StrategyOptimistic, nil
	}
	return "", fmt.Errorf("%w: unknown mutation strategy %q", domain.ErrInvalidInput, s)
}

// Service is the cache-backed recipe catalogue.
type Service struct {
	api      *upstream.Client
	store    *cache.Store
	sessions *session.Store
	strategy Strategy
}

// NewService creates a Service using the given transport, cache, and
// session store.
func NewService(api *upstream.Client, store *cache.Store, sessions *session.Store, strategy Strategy) *Service {
	return &Service{api: api, store: store, sessions: sessions, strategy: strategy}
}

// Store exposes the underlying cache, mainly for tests and teardown.
func (s *Service) Store() *cache.Store { return s.store }

func (s *Service) token() string { return s.sessions.Token() }

// --- read queries ---

type listQuery struct {
	svc   *Service
	query domain.ListQuery
}

func (q listQuery) Key() cache.Key {
	return cache.Key{Op: opList, Arg: q.query.CacheArg()}
}

func (q listQuery) Fetch(ctx context.Context) (any, []cache.Tag, error) {
	list, err := q.svc.api.ListRecipes(ctx, q.svc.token(), q.query)
	if err != nil {
		return nil, nil, err
	}
	tags := make([]cache.Tag, 0, len(list.Recipes)+1)
	tags = append(tags, ListTag)
	for _, r := range list.Recipes {
		tags = append(tags, RecipeTag(r.ID))
	}
	return *list, tags, nil
}

type getQuery struct {
	svc *Service
	id  int
}

func (q getQuery) Key() cache.Key {
	return cache.Key{Op: opGet, Arg: strconv.Itoa(q.id)}
}

func (q getQuery) Fetch(ctx context.Context) (any, []cache.Tag, error) {
	recipe, err := q.svc.api.GetRecipe(ctx, q.svc.token(), q.id)
	if err != nil {
		return nil, nil, err
	}
	return *recipe, []cache.Tag{RecipeTag(recipe.ID)}, nil
}

type profileQuery struct {
	svc *Service
}

func (q profileQuery) Key() cache.Key {
	return cache.Key{Op: opProfile, Arg: ""}
}

func (q profileQuery) Fetch(ctx context.Context) (any, []cache.Tag, error) {
	token := q.svc.token()
	if token == "" {
		return nil, nil, domain.ErrNoSession
	}
	user, err := q.svc.api.Me(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	return *user, []cache.Tag{ProfileTag}, nil
}

// Recipes returns one page of the catalogue through the cache.
func (s *Service) Recipes(ctx context.Context, query domain.ListQuery) (domain.RecipeList, error) {
	v, err := s.store.Get(ctx, listQuery{svc: s, query: query.Normalize()})
	if err != nil {
		return domain.RecipeList{}, err
	}
	return v.(domain.RecipeList), nil
}

// SubscribeRecipes attaches a long-lived subscription to a list entry.
// The subscriber sees every change to it, including optimistic patches
// and invalidation refetches triggered elsewhere.
func (s *Service) SubscribeRecipes(ctx context.Context, query domain.ListQuery) *cache.Subscription {
	return s.store.Subscribe(ctx, listQuery{svc: s, query: query.Normalize()})
}

// Recipe returns a single recipe through the cache.
func (s *Service) Recipe(ctx context.Context, id int) (domain.Recipe, error) {
	v, err := s.store.Get(ctx, getQuery{svc: s, id: id})
	if err != nil {
		return domain.Recipe{}, err
	}
	return v.(domain.Recipe), nil
}

// Profile returns the current account's profile through the cache.
func (s *Service) Profile(ctx context.Context) (domain.User, error) {
	v, err := s.store.Get(ctx, profileQuery{svc: s})
	if err != nil {
		return domain.User{}, err
	}
	return v.(domain.User), nil
}

// --- auth ---

// Login authenticates against the upstream service and installs the
// session. The cached profile of any previous account is dropped.
func (s *Service) Login(ctx context.Context, username, password string) (*domain.Session, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}

	result, err := s.api.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	sess := &domain.Session{
		ID:           uuid.NewString(),
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         result.User,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.sessions.Login(ctx, sess); err != nil {
		return nil, err
	}

	// Drop by operation, not tag: a profile entry holding a cached error
	// carries no tags but must not survive the login.
	s.store.Drop(cache.MatchOp(opProfile))
	return sess, nil
}

// Logout clears the session and drops the cached profile. Idempotent.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.sessions.Logout(ctx); err != nil {
		return err
	}
	s.store.Drop(cache.MatchOp(opProfile))
	return nil
}

// --- write operations ---

// CreateRecipe submits a new recipe. Under the optimistic strategy the
// recipe appears at the front of every cached list, with a synthesized
// temporary id, before the upstream call resolves; a failure reverts both
// the insertion and the total increment.
func (s *Service) CreateRecipe(ctx context.Context, draft domain.RecipeDraft) (domain.Recipe, error) {
	if err := validateDraft(draft); err != nil {
		return domain.Recipe{}, err
	}

	if s.strategy == StrategyOptimistic {
		return s.createOptimistic(ctx, draft)
	}

	created, err := s.api.CreateRecipe(ctx, s.token(), draft)
	if err != nil {
		return domain.Recipe{}, err
	}
	s.store.Invalidate(ListTag)
	return *created, nil
}

func (s *Service) createOptimistic(ctx context.Context, draft domain.RecipeDraft) (domain.Recipe, error) {
	placeholder := s.synthesize(draft)

	patch := s.store.ApplyPatch(cache.MatchTag(ListTag), func(value any) (any, bool) {
		list, ok := value.(domain.RecipeList)
		if !ok {
			return nil, false
		}
		next := list.Clone()
		next.Recipes = append([]domain.Recipe{placeholder}, next.Recipes...)
		next.Total++
		return next, true
	})

	created, err := s.api.CreateRecipe(ctx, s.token(), draft)
	if err != nil {
		patch.Revert()
		return domain.Recipe{}, err
	}
	patch.Commit()
	return *created, nil
}

// synthesize builds the placeholder entity inserted by an optimistic
// create. The temporary id is random; the next natural refetch replaces
// it with the server-assigned one.
func (s *Service) synthesize(draft domain.RecipeDraft) domain.Recipe {
	userID := 0
	if sess := s.sessions.Current(); sess != nil {
		userID = sess.User.ID
	}
	mealType := draft.MealType
	if mealType == nil {
		mealType = []string{}
	}
	return domain.Recipe{
		ID:                 rand.IntN(10000) + 100,
		Name:               draft.Name,
		Ingredients:        draft.Ingredients,
		Instructions:       draft.Instructions,
		PrepTimeMinutes:    draft.PrepTimeMinutes,
		CookTimeMinutes:    draft.CookTimeMinutes,
		Servings:           draft.Servings,
		Difficulty:         draft.Difficulty,
		Cuisine:            draft.Cuisine,
		CaloriesPerServing: draft.CaloriesPerServing,
		Tags:               draft.Tags,
		MealType:           mealType,
		Image:              draft.Image,
		UserID:             userID,
		Rating:             0,
		ReviewCount:        0,
	}
}

// UpdateRecipe sends a partial update. Optimistically, the patch is merged
// into every cached view carrying the recipe's tag, lists and the single
// entry alike; a failure restores each of them exactly.
func (s *Service) UpdateRecipe(ctx context.Context, id int, recipePatch domain.RecipePatch) (domain.Recipe, error) {
	if err := validatePatch(recipePatch); err != nil {
		return domain.Recipe{}, err
	}
	if s.strategy == StrategyOptimistic {
		return s.updateOptimistic(ctx, id, recipePatch)
	}

	updated, err := s.api.UpdateRecipe(ctx, s.token(), id, recipePatch)
	if err != nil {
		return domain.Recipe{}, err
	}
	s.store.Invalidate(RecipeTag(id))
	return *updated, nil
}

func (s *Service) updateOptimistic(ctx context.Context, id int, recipePatch domain.RecipePatch) (domain.Recipe, error) {
	patch := s.store.ApplyPatch(cache.MatchTag(RecipeTag(id)), func(value any) (any, bool) {
		switch v := value.(type) {
		case domain.RecipeList:
			next := v.Clone()
			changed := false
			for i := range next.Recipes {
				if next.Recipes[i].ID == id {
					recipePatch.Apply(&next.Recipes[i])
					changed = true
				}
			}
			return next, changed
		case domain.Recipe:
			if v.ID != id {
				return nil, false
			}
			recipePatch.Apply(&v)
			return v, true
		}
		return nil, false
	})

	updated, err := s.api.UpdateRecipe(ctx, s.token(), id, recipePatch)
	if err != nil {
		patch.Revert()
		return domain.Recipe{}, err
	}
	patch.Commit()
	return *updated, nil
}

// DeleteRecipe removes a recipe. Optimistically it disappears from every
// cached list containing it, each list's total dropping by one; lists that
// never contained it are untouched. Page offsets of other cached pages are
// left as they are and self-correct on the next natural refetch.
func (s *Service) DeleteRecipe(ctx context.Context, id int) error {
	if s.strategy == StrategyOptimistic {
		return s.deleteOptimistic(ctx, id)
	}

	if _, err := s.api.DeleteRecipe(ctx, s.token(), id); err != nil {
		return err
	}
	s.store.Drop(cache.MatchKey(cache.Key{Op: opGet, Arg: strconv.Itoa(id)}))
	s.store.Invalidate(RecipeTag(id))
	return nil
}

func (s *Service) deleteOptimistic(ctx context.Context, id int) error {
	patch := s.store.ApplyPatch(cache.MatchTag(RecipeTag(id)), func(value any) (any, bool) {
		list, ok := value.(domain.RecipeList)
		if !ok {
			return nil, false
		}
		next := list.Clone()
		kept := next.Recipes[:0]
		removed := false
		for _, r := range next.Recipes {
			if r.ID == id {
				removed = true
				continue
			}
			kept = append(kept, r)
		}
		if !removed {
			return nil, false
		}
		next.Recipes = kept
		next.Total = max(0, next.Total-1)
		return next, true
	})

	if _, err := s.api.DeleteRecipe(ctx, s.token(), id); err != nil {
		patch.Revert()
		return err
	}
	patch.Commit()
	// The single-entity entry would 404 on refetch; drop it outright.
	s.store.Drop(cache.MatchKey(cache.Key{Op: opGet, Arg: strconv.Itoa(id)}))
	return nil
}

// validateDraft enforces the form invariants before any network call:
// a name, at least one non-blank ingredient, at least one non-blank
// instruction step, and a positive serving count.
func validateDraft(d domain.RecipeDraft) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if !hasNonBlank(d.Ingredients) {
		return fmt.Errorf("%w: at least one ingredient is required", domain.ErrInvalidInput)
	}
	if !hasNonBlank(d.Instructions) {
		return fmt.Errorf("%w: at least one instruction step is required", domain.ErrInvalidInput)
	}
	if d.Servings <= 0 {
		return fmt.Errorf("%w: servings must be positive", domain.ErrInvalidInput)
	}
	if d.PrepTimeMinutes < 0 || d.CookTimeMinutes < 0 {
		return fmt.Errorf("%w: times must not be negative", domain.ErrInvalidInput)
	}
	if d.CaloriesPerServing < 0 {
		return fmt.Errorf("%w: calories must not be negative", domain.ErrInvalidInput)
	}
	return nil
}

// validatePatch enforces the same form invariants on the fields a partial
// update actually carries: the last ingredient or instruction cannot be
// removed, and the name cannot be blanked.
func validatePatch(p domain.RecipePatch) error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if p.Ingredients != nil && !hasNonBlank(*p.Ingredients) {
		return fmt.Errorf("%w: at least one ingredient is required", domain.ErrInvalidInput)
	}
	if p.Instructions != nil && !hasNonBlank(*p.Instructions) {
		return fmt.Errorf("%w: at least one instruction step is required", domain.ErrInvalidInput)
	}
	if p.Servings != nil && *p.Servings <= 0 {
		return fmt.Errorf("%w: servings must be positive", domain.ErrInvalidInput)
	}
	return nil
}

func hasNonBlank(items []string) bool {
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

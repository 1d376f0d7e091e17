package generation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriplan/internal/ai"
	"nutriplan/internal/models"
	"nutriplan/internal/usage"
	"nutriplan/pkg/logger"
)

type fakeStore struct {
	user *models.User

	plans   []*models.MealPlan
	recipes []*models.Recipe
	lists   []*models.ShoppingList
	meals   []*models.PlanMeal
	mealErr error
	planErr error
	listErr error
	nextID  int64
}

func (f *fakeStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	if f.user == nil {
		return nil, errors.New("user not found")
	}
	return f.user, nil
}

func (f *fakeStore) SaveMealPlan(ctx context.Context, plan *models.MealPlan) error {
	if f.planErr != nil {
		return f.planErr
	}
	f.nextID++
	plan.ID = f.nextID
	f.plans = append(f.plans, plan)
	return nil
}

func (f *fakeStore) SaveRecipe(ctx context.Context, recipe *models.Recipe) error {
	f.nextID++
	recipe.ID = f.nextID
	f.recipes = append(f.recipes, recipe)
	return nil
}

func (f *fakeStore) SaveShoppingList(ctx context.Context, list *models.ShoppingList) error {
	if f.listErr != nil {
		return f.listErr
	}
	f.nextID++
	list.ID = f.nextID
	f.lists = append(f.lists, list)
	return nil
}

func (f *fakeStore) SavePlanMeal(ctx context.Context, meal *models.PlanMeal) error {
	if f.mealErr != nil {
		return f.mealErr
	}
	f.meals = append(f.meals, meal)
	return nil
}

type fakeGenerator struct {
	result *ai.Result
	err    error
	calls  int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, feature models.Feature) (*ai.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeUsage struct {
	check      *usage.Usage
	checkErr   error
	consume    *usage.Usage
	consumeErr error

	checkCalls   int
	consumeCalls int
}

func (f *fakeUsage) Check(ctx context.Context, user *models.User) (*usage.Usage, error) {
	f.checkCalls++
	return f.check, f.checkErr
}

func (f *fakeUsage) Consume(ctx context.Context, user *models.User) (*usage.Usage, error) {
	f.consumeCalls++
	return f.consume, f.consumeErr
}

type fakeCache struct {
	hit  *ai.Result
	sets int
}

func (f *fakeCache) Get(ctx context.Context, feature models.Feature, prompt string) (*ai.Result, bool) {
	if f.hit == nil {
		return nil, false
	}
	return f.hit, true
}

func (f *fakeCache) Set(ctx context.Context, feature models.Feature, prompt string, res *ai.Result) {
	f.sets++
}

func openQuota() *usage.Usage {
	return &usage.Usage{DailyUsed: 1, DailyLimit: 3, MonthlyUsed: 5, MonthlyLimit: 50, CanGenerate: true}
}

func newTestService(store *fakeStore, gen *fakeGenerator, u *fakeUsage, c Cache) *Service {
	return NewService(store, gen, u, c, logger.NewNop())
}

func TestGenerateContentSuccess(t *testing.T) {
	store := &fakeStore{user: &models.User{ID: 1, Plan: models.PlanFree}}
	gen := &fakeGenerator{result: &ai.Result{Content: "## Day 1", TotalTokens: 500, Cost: 0.015}}
	u := &fakeUsage{
		check:   openQuota(),
		consume: &usage.Usage{DailyUsed: 2, DailyLimit: 3, MonthlyUsed: 6, MonthlyLimit: 50, CanGenerate: true},
	}
	cache := &fakeCache{}
	svc := newTestService(store, gen, u, cache)

	resp, err := svc.GenerateContent(context.Background(), &models.GenerationRequest{
		UserID:  1,
		Feature: models.FeatureMealPlan,
		Days:    3,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "## Day 1", resp.Content)
	assert.Equal(t, 500, resp.TotalTokens)
	assert.InDelta(t, 0.015, resp.Cost, 1e-9)
	assert.False(t, resp.Cached)
	assert.Equal(t, 2, resp.DailyUsed)
	assert.Equal(t, 6, resp.MonthlyUsed)

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 1, u.consumeCalls)
	assert.Equal(t, 1, cache.sets)
}

func TestGenerateContentInvalidFeature(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeGenerator{}, &fakeUsage{}, nil)

	_, err := svc.GenerateContent(context.Background(), &models.GenerationRequest{Feature: "horoscope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid feature")
}

func TestGenerateContentQuotaExceededBeforeUpstream(t *testing.T) {
	store := &fakeStore{user: &models.User{ID: 1, Plan: models.PlanFree}}
	gen := &fakeGenerator{result: &ai.Result{Content: "never"}}
	u := &fakeUsage{check: &usage.Usage{DailyUsed: 3, DailyLimit: 3, MonthlyUsed: 10, MonthlyLimit: 50, CanGenerate: false}}
	svc := newTestService(store, gen, u, nil)

	_, err := svc.GenerateContent(context.Background(), &models.GenerationRequest{UserID: 1, Feature: models.FeatureMealPlan})
	require.Error(t, err)
	assert.True(t, errors.Is(err, usage.ErrQuotaExceeded))
	assert.Zero(t, gen.calls, "no upstream call once quota is spent")
	assert.Zero(t, u.consumeCalls)
}

func TestGenerateContentCacheHit(t *testing.T) {
	store := &fakeStore{user: &models.User{ID: 1, Plan: models.PlanFree}}
	gen := &fakeGenerator{result: &ai.Result{Content: "fresh"}}
	u := &fakeUsage{check: openQuota()}
	cache := &fakeCache{hit: &ai.Result{Content: "cached plan", TotalTokens: 400, Cost: 0.012}}
	svc := newTestService(store, gen, u, cache)

	resp, err := svc.GenerateContent(context.Background(), &models.GenerationRequest{UserID: 1, Feature: models.FeatureMealPlan})
	require.NoError(t, err)
	assert.True(t, resp.Cached)
	assert.Equal(t, "cached plan", resp.Content)
	assert.Zero(t, resp.Cost, "cache hits are free")
	assert.Equal(t, 1, resp.DailyUsed, "cache hits consume no quota")

	assert.Zero(t, gen.calls)
	assert.Zero(t, u.consumeCalls)
	assert.Zero(t, cache.sets)
}

func TestGenerateContentConcurrentQuotaLoss(t *testing.T) {
	// The pre-check passed but another request took the last slot before
	// the commit. The content was already paid for, so it is returned
	// with the exhausted snapshot.
	store := &fakeStore{user: &models.User{ID: 1, Plan: models.PlanFree}}
	gen := &fakeGenerator{result: &ai.Result{Content: "## Day 1", TotalTokens: 100}}
	u := &fakeUsage{
		check:      &usage.Usage{DailyUsed: 2, DailyLimit: 3, MonthlyUsed: 10, MonthlyLimit: 50, CanGenerate: true},
		consumeErr: usage.ErrQuotaExceeded,
	}
	svc := newTestService(store, gen, u, nil)

	resp, err := svc.GenerateContent(context.Background(), &models.GenerationRequest{UserID: 1, Feature: models.FeatureMealPlan})
	require.NoError(t, err)
	assert.Equal(t, "## Day 1", resp.Content)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 2, u.checkCalls, "snapshot is re-read after the lost race")
}

func TestGenerateContentUpstreamFailure(t *testing.T) {
	store := &fakeStore{user: &models.User{ID: 1, Plan: models.PlanFree}}
	gen := &fakeGenerator{err: errors.New("upstream down")}
	u := &fakeUsage{check: openQuota()}
	svc := newTestService(store, gen, u, nil)

	_, err := svc.GenerateContent(context.Background(), &models.GenerationRequest{UserID: 1, Feature: models.FeatureMealPlan})
	require.Error(t, err)
	assert.Zero(t, u.consumeCalls, "failed generations consume no quota")
}

const structuredPlan = `# Veggie Week
## Day 1
### Breakfast - Oatmeal
- rolled oats
Calories: 350 kcal
### Lunch
- lentil soup
## Day 2
### Dinner
- grilled tofu

## Shopping List
- rolled oats
- lentils
`

func TestSaveMealPlanStructured(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, nil, nil, nil)

	plan, err := svc.SaveMealPlan(context.Background(), 1, "", structuredPlan)
	require.NoError(t, err)
	assert.Equal(t, "Veggie Week", plan.Title, "title falls back to the parsed one")
	assert.NotEmpty(t, plan.Data)
	assert.Empty(t, plan.RawText)

	var decoded struct {
		Days []struct {
			Label string `json:"label"`
		} `json:"days"`
	}
	require.NoError(t, json.Unmarshal(plan.Data, &decoded))
	assert.Len(t, decoded.Days, 2)

	// enrichment rows: one per meal, plus the derived shopping list
	require.Len(t, store.meals, 3)
	assert.Equal(t, "Day 1", store.meals[0].Day)
	assert.Equal(t, "Breakfast", store.meals[0].Name)
	assert.Equal(t, 350, store.meals[0].Calories)

	require.Len(t, store.lists, 1)
	assert.Equal(t, "Veggie Week - Shopping List", store.lists[0].Title)
}

func TestSaveMealPlanRawFallback(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, nil, nil, nil)

	content := "Sorry, I could not produce a plan this time."
	plan, err := svc.SaveMealPlan(context.Background(), 1, "", content)
	require.NoError(t, err)
	assert.Equal(t, "Meal Plan", plan.Title)
	assert.Empty(t, plan.Data)
	assert.Equal(t, content, plan.RawText)
	assert.Empty(t, store.meals)
	assert.Empty(t, store.lists)
}

func TestSaveMealPlanExplicitTitleWins(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, nil, nil, nil)

	plan, err := svc.SaveMealPlan(context.Background(), 1, "My Plan", structuredPlan)
	require.NoError(t, err)
	assert.Equal(t, "My Plan", plan.Title)
}

func TestSaveMealPlanEnrichmentFailuresSwallowed(t *testing.T) {
	store := &fakeStore{
		mealErr: errors.New("plan_meals insert failed"),
		listErr: errors.New("shopping_lists insert failed"),
	}
	svc := newTestService(store, nil, nil, nil)

	plan, err := svc.SaveMealPlan(context.Background(), 1, "", structuredPlan)
	require.NoError(t, err, "enrichment failures never fail the save")
	require.Len(t, store.plans, 1)
	assert.NotEmpty(t, plan.Data)
}

func TestSaveMealPlanStoreFailure(t *testing.T) {
	store := &fakeStore{planErr: errors.New("db down")}
	svc := newTestService(store, nil, nil, nil)

	_, err := svc.SaveMealPlan(context.Background(), 1, "", structuredPlan)
	require.Error(t, err)
	assert.Empty(t, store.meals, "no enrichment after a failed save")
}

func TestSaveRecipe(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, nil, nil, nil)

	recipe, err := svc.SaveRecipe(context.Background(), 1, "", "A plain text recipe nobody formatted.")
	require.NoError(t, err)
	assert.Equal(t, "Recipe", recipe.Title)
	assert.NotEmpty(t, recipe.RawText)
	assert.Empty(t, recipe.Data)
	require.Len(t, store.recipes, 1)
}

func TestSaveShoppingListStructured(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, nil, nil, nil)

	content := `{"title":"Groceries","days":[],"shopping_list":["eggs","milk"]}`
	list, err := svc.SaveShoppingList(context.Background(), 1, "", content)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", list.Title)
	assert.NotEmpty(t, list.Data)
	assert.Empty(t, list.RawText)
}

func TestCheckUserUsage(t *testing.T) {
	store := &fakeStore{user: &models.User{ID: 1, Plan: models.PlanPremium}}
	u := &fakeUsage{check: openQuota()}
	svc := newTestService(store, nil, u, nil)

	got, err := svc.CheckUserUsage(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, openQuota(), got)
}

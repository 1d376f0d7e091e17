package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriplan/internal/models"
)

func testUser() *models.User {
	return &models.User{
		ID:            1,
		Name:          "Dana",
		Goal:          "weight_loss",
		Diet:          "vegetarian",
		Allergies:     []string{"peanuts"},
		Location:      "Lisbon",
		CalorieTarget: 1800,
	}
}

func TestBuildMealPlanPrompt(t *testing.T) {
	prompt := BuildMealPlanPrompt(testUser(), &models.GenerationRequest{
		Feature: models.FeatureMealPlan,
		Days:    3,
		Budget:  "low",
		Cuisine: "mediterranean",
	})

	assert.Contains(t, prompt, "3-day")
	assert.Contains(t, prompt, "weight_loss")
	assert.Contains(t, prompt, "vegetarian")
	assert.Contains(t, prompt, "peanuts")
	assert.Contains(t, prompt, "Lisbon")
	assert.Contains(t, prompt, "1800 kcal")
	assert.Contains(t, prompt, "mediterranean")
	assert.Contains(t, prompt, "## Day N")
	assert.Contains(t, prompt, "## Shopping List")
}

func TestBuildMealPlanPromptDefaultsToSevenDays(t *testing.T) {
	prompt := BuildMealPlanPrompt(testUser(), &models.GenerationRequest{Feature: models.FeatureMealPlan})
	assert.Contains(t, prompt, "7-day")
}

func TestPromptOmitsEmptyProfileFields(t *testing.T) {
	prompt := BuildMealPlanPrompt(&models.User{ID: 2}, &models.GenerationRequest{Days: 5})

	assert.NotContains(t, prompt, "Allergies")
	assert.NotContains(t, prompt, "Dietary preference")
	assert.NotContains(t, prompt, "calorie target")
	assert.Contains(t, prompt, "5-day")
}

func TestConflictClausePresent(t *testing.T) {
	req := &models.GenerationRequest{Ingredients: []string{"chicken"}}

	for _, prompt := range []string{
		BuildMealPlanPrompt(testUser(), req),
		BuildRecipePrompt(testUser(), req),
		BuildShoppingListPrompt(testUser(), req),
	} {
		assert.Contains(t, prompt, "substitute a suitable alternative")
		assert.Contains(t, prompt, "chicken")
	}
}

func TestBuildRecipePrompt(t *testing.T) {
	prompt := BuildRecipePrompt(testUser(), &models.GenerationRequest{
		Feature:     models.FeatureRecipe,
		Ingredients: []string{"tofu", "broccoli"},
	})

	assert.Contains(t, prompt, "built around: tofu, broccoli")
	assert.Contains(t, prompt, "## Ingredients")
	assert.Contains(t, prompt, "## Instructions")
}

func TestBuildNutritionPrompt(t *testing.T) {
	prompt := BuildNutritionPrompt(testUser(), &models.GenerationRequest{
		Feature:  models.FeatureNutrition,
		Question: "How much protein do I need?",
	})

	assert.Contains(t, prompt, "Question: How much protein do I need?")
	assert.Contains(t, prompt, "weight_loss")
}

func TestBuildPromptDispatch(t *testing.T) {
	for _, f := range []models.Feature{
		models.FeatureMealPlan,
		models.FeatureRecipe,
		models.FeatureShoppingList,
		models.FeatureNutrition,
	} {
		prompt, err := BuildPrompt(testUser(), &models.GenerationRequest{Feature: f, Question: "q"})
		require.NoError(t, err)
		assert.NotEmpty(t, prompt)
	}

	_, err := BuildPrompt(testUser(), &models.GenerationRequest{Feature: "horoscope"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown feature"))
}

func TestBuildPromptDeterministic(t *testing.T) {
	req := &models.GenerationRequest{Feature: models.FeatureMealPlan, Days: 3}

	a, err := BuildPrompt(testUser(), req)
	require.NoError(t, err)
	b, err := BuildPrompt(testUser(), req)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

package ai

import (
	"fmt"
	"strings"

	"nutriplan/internal/models"
)

// BuildPrompt assembles the instruction string for a generation request.
// Pure function of the profile and request parameters.
func BuildPrompt(user *models.User, req *models.GenerationRequest) (string, error) {
	switch req.Feature {
	case models.FeatureMealPlan:
		return BuildMealPlanPrompt(user, req), nil
	case models.FeatureRecipe:
		return BuildRecipePrompt(user, req), nil
	case models.FeatureShoppingList:
		return BuildShoppingListPrompt(user, req), nil
	case models.FeatureNutrition:
		return BuildNutritionPrompt(user, req), nil
	default:
		return "", fmt.Errorf("unknown feature: %q", req.Feature)
	}
}

// profileSection renders the shared profile block every prompt embeds.
func profileSection(user *models.User) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User profile:\n")
	if user.Name != "" {
		fmt.Fprintf(&b, "- Name: %s\n", user.Name)
	}
	if user.Goal != "" {
		fmt.Fprintf(&b, "- Fitness goal: %s\n", user.Goal)
	}
	if user.Diet != "" {
		fmt.Fprintf(&b, "- Dietary preference: %s\n", user.Diet)
	}
	if len(user.Allergies) > 0 {
		fmt.Fprintf(&b, "- Allergies: %s\n", strings.Join(user.Allergies, ", "))
	}
	if user.Location != "" {
		fmt.Fprintf(&b, "- Location: %s (prefer locally available ingredients)\n", user.Location)
	}
	if user.CalorieTarget > 0 {
		fmt.Fprintf(&b, "- Daily calorie target: %d kcal\n", user.CalorieTarget)
	}

	return b.String()
}

// conflictClause tells the model how to handle ingredients that clash
// with the diet or allergy list. This is a prompt convention only:
// nothing downstream verifies the model complied.
const conflictClause = "If any requested ingredient conflicts with the dietary preference or " +
	"allergies above, substitute a suitable alternative and briefly explain the swap."

func BuildMealPlanPrompt(user *models.User, req *models.GenerationRequest) string {
	days := req.Days
	if days <= 0 {
		days = 7
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Create a personalized %d-day meal plan.\n\n", days)
	b.WriteString(profileSection(user))
	if req.Budget != "" {
		fmt.Fprintf(&b, "- Budget: %s\n", req.Budget)
	}
	if req.Cuisine != "" {
		fmt.Fprintf(&b, "- Preferred cuisine: %s\n", req.Cuisine)
	}
	if len(req.Ingredients) > 0 {
		fmt.Fprintf(&b, "- Ingredients to use: %s\n", strings.Join(req.Ingredients, ", "))
	}

	b.WriteString("\n" + conflictClause + "\n")
	b.WriteString(`
Format the plan exactly like this, in markdown:
- One "## Day N" header per day.
- Under each day, meal headers "### Breakfast", "### Lunch", "### Dinner" and "### Snack".
- Under each meal, an ingredient bullet list ("- item") and a line "Calories: N kcal".
- After the last day, a "## Shopping List" section with one bullet per item.
- Finish with a "## Prep Tips" section of short bullets.
`)

	return b.String()
}

func BuildRecipePrompt(user *models.User, req *models.GenerationRequest) string {
	var b strings.Builder

	b.WriteString("Create a single detailed recipe.\n\n")
	b.WriteString(profileSection(user))
	if req.Cuisine != "" {
		fmt.Fprintf(&b, "- Preferred cuisine: %s\n", req.Cuisine)
	}
	if req.Budget != "" {
		fmt.Fprintf(&b, "- Budget: %s\n", req.Budget)
	}
	if len(req.Ingredients) > 0 {
		fmt.Fprintf(&b, "\nThe recipe must be built around: %s\n", strings.Join(req.Ingredients, ", "))
	}

	b.WriteString("\n" + conflictClause + "\n")
	b.WriteString(`
Format the recipe in markdown:
1. A "# Title" line.
2. An "## Ingredients" bullet list with amounts.
3. Numbered "## Instructions" steps.
4. A final line "Calories: N kcal" per serving.
`)

	return b.String()
}

func BuildShoppingListPrompt(user *models.User, req *models.GenerationRequest) string {
	days := req.Days
	if days <= 0 {
		days = 7
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Create a consolidated shopping list for %d days of meals.\n\n", days)
	b.WriteString(profileSection(user))
	if req.Budget != "" {
		fmt.Fprintf(&b, "- Budget: %s\n", req.Budget)
	}
	if len(req.Ingredients) > 0 {
		fmt.Fprintf(&b, "- Must include: %s\n", strings.Join(req.Ingredients, ", "))
	}

	b.WriteString("\n" + conflictClause + "\n")
	b.WriteString(`
Format the list in markdown:
- A "# Title" line.
- A "## Shopping List" section.
- Group items by category ("### Produce", "### Pantry", etc.), one bullet per item with quantity.
`)

	return b.String()
}

func BuildNutritionPrompt(user *models.User, req *models.GenerationRequest) string {
	var b strings.Builder

	b.WriteString("Answer the following nutrition question for this user.\n\n")
	b.WriteString(profileSection(user))
	fmt.Fprintf(&b, "\nQuestion: %s\n", req.Question)
	b.WriteString("\nAnswer in plain markdown, short paragraphs, no medical diagnosis. " +
		"Tailor the advice to the profile above.\n")

	return b.String()
}

package models

// Feature identifies one of the fixed AI generation use-cases.
type Feature string

const (
	FeatureMealPlan     Feature = "meal_plan"
	FeatureRecipe       Feature = "recipe"
	FeatureShoppingList Feature = "shopping_list"
	FeatureNutrition    Feature = "nutrition"
)

func (f Feature) Valid() bool {
	switch f {
	case FeatureMealPlan, FeatureRecipe, FeatureShoppingList, FeatureNutrition:
		return true
	}
	return false
}

// GenerationRequest is the transient input to the generation pipeline.
// It is never persisted itself.
type GenerationRequest struct {
	UserID      int64    `json:"-"`
	Feature     Feature  `json:"feature"`
	Days        int      `json:"days,omitempty"`
	Budget      string   `json:"budget,omitempty"`
	Cuisine     string   `json:"cuisine,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
	Question    string   `json:"question,omitempty"`
}

// GenerationResponse carries the model output plus token accounting and a
// snapshot of the usage counters taken after the call.
type GenerationResponse struct {
	Success          bool    `json:"success"`
	Content          string  `json:"content"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost"`
	Cached           bool    `json:"cached"`
	DailyUsed        int     `json:"daily_used"`
	DailyLimit       int     `json:"daily_limit"`
	MonthlyUsed      int     `json:"monthly_used"`
	MonthlyLimit     int     `json:"monthly_limit"`
}

package models

import (
	"encoding/json"
	"time"
)

// MealPlan is a persisted generation artifact. Exactly one of Data and
// RawText is guaranteed non-empty: Data carries the structured breakdown
// when parsing succeeded, RawText carries the model output verbatim when
// it did not.
type MealPlan struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Title     string          `json:"title"`
	Data      json.RawMessage `json:"data,omitempty"`
	RawText   string          `json:"raw_text,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type Recipe struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Title     string          `json:"title"`
	Data      json.RawMessage `json:"data,omitempty"`
	RawText   string          `json:"raw_text,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type ShoppingList struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Title     string          `json:"title"`
	Data      json.RawMessage `json:"data,omitempty"`
	RawText   string          `json:"raw_text,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// PlanMeal is a single meal extracted from a saved meal plan. Rows are
// written best-effort after the plan itself is stored.
type PlanMeal struct {
	ID        int64     `json:"id"`
	PlanID    int64     `json:"plan_id"`
	UserID    int64     `json:"user_id"`
	Day       string    `json:"day"`
	Name      string    `json:"name"`
	Calories  int       `json:"calories"`
	CreatedAt time.Time `json:"created_at"`
}

package models

import (
	"time"
)

// Subscription plans. Any plan other than free is treated as paid.
const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

const (
	PlanStatusActive   = "active"
	PlanStatusPastDue  = "past_due"
	PlanStatusCanceled = "canceled"
)

type User struct {
	ID                   int64     `json:"id"`
	Email                string    `json:"email"`
	PasswordHash         string    `json:"-"`
	Name                 string    `json:"name"`
	Goal                 string    `json:"goal"`
	Diet                 string    `json:"diet"`
	Allergies            []string  `json:"allergies"`
	Location             string    `json:"location"`
	CalorieTarget        int       `json:"calorie_target"`
	Plan                 string    `json:"plan"`
	PlanStatus           string    `json:"plan_status"`
	StripeCustomerID     string    `json:"-"`
	StripeSubscriptionID string    `json:"-"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// IsPaid reports whether the user is on an active paid plan.
func (u *User) IsPaid() bool {
	return u.Plan != PlanFree && u.PlanStatus == PlanStatusActive
}

// UsageRecord holds the stored generation counters for one user.
// Daily and monthly counters reset independently: the daily one when the
// stored reset date is not today, the monthly one when the month changes.
type UsageRecord struct {
	UserID         int64     `json:"user_id"`
	DailyUsed      int       `json:"daily_used"`
	MonthlyUsed    int       `json:"monthly_used"`
	DailyResetAt   time.Time `json:"daily_reset_at"`
	MonthlyResetAt time.Time `json:"monthly_reset_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Payment struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Amount          int       `json:"amount"`
	Currency        string    `json:"currency"`
	StripePaymentID string    `json:"stripe_payment_id"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Package usage implements the per-tier generation quota bookkeeping.
package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nutriplan/internal/models"
	"nutriplan/pkg/logger"
)

// ErrQuotaExceeded is returned when a user has no generation quota left.
// It is detected before any upstream call and is never retried.
var ErrQuotaExceeded = errors.New("generation quota exceeded")

// Limits are the static per-plan generation limits.
type Limits struct {
	Daily   int
	Monthly int
}

var planLimits = map[string]Limits{
	models.PlanFree:    {Daily: 3, Monthly: 50},
	models.PlanPremium: {Daily: 20, Monthly: 500},
}

// PlanLimits returns the limits for a subscription plan. Unknown paid
// tiers get the premium limits; an empty plan is treated as free.
func PlanLimits(plan string) Limits {
	if l, ok := planLimits[plan]; ok {
		return l
	}
	if plan == "" {
		return planLimits[models.PlanFree]
	}
	return planLimits[models.PlanPremium]
}

// Usage is the quota snapshot returned to callers.
type Usage struct {
	DailyUsed    int  `json:"daily_used"`
	DailyLimit   int  `json:"daily_limit"`
	MonthlyUsed  int  `json:"monthly_used"`
	MonthlyLimit int  `json:"monthly_limit"`
	CanGenerate  bool `json:"can_generate"`
}

// Store is the persistence surface the service needs.
type Store interface {
	GetUsage(ctx context.Context, userID int64) (*models.UsageRecord, error)
	// ConsumeQuota atomically re-checks both limits and increments both
	// counters inside one transaction. Returns ErrQuotaExceeded via the
	// db package sentinel when either limit is already reached.
	ConsumeQuota(ctx context.Context, userID int64, dailyLimit, monthlyLimit int) (*models.UsageRecord, error)
}

type Service struct {
	store  Store
	logger *logger.Logger
	now    func() time.Time
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: log.Named("usage"),
		now:    time.Now,
	}
}

// Check computes the current quota snapshot for a user without mutating
// anything. Stored counters whose reset date is stale are treated as
// zero; the actual reset is written by the next ConsumeQuota.
func (s *Service) Check(ctx context.Context, user *models.User) (*Usage, error) {
	limits := PlanLimits(user.Plan)

	rec, err := s.store.GetUsage(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load usage record: %w", err)
	}

	daily, monthly := EffectiveCounts(rec, s.now())
	return &Usage{
		DailyUsed:    daily,
		DailyLimit:   limits.Daily,
		MonthlyUsed:  monthly,
		MonthlyLimit: limits.Monthly,
		CanGenerate:  daily < limits.Daily && monthly < limits.Monthly,
	}, nil
}

// Consume spends one quota slot for the user. The store performs the
// check-then-increment under a row lock, so two concurrent requests can
// never push a counter past its limit.
func (s *Service) Consume(ctx context.Context, user *models.User) (*Usage, error) {
	limits := PlanLimits(user.Plan)

	rec, err := s.store.ConsumeQuota(ctx, user.ID, limits.Daily, limits.Monthly)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("quota consumed",
		"user_id", user.ID,
		"plan", user.Plan,
		"daily_used", rec.DailyUsed,
		"monthly_used", rec.MonthlyUsed,
	)

	return &Usage{
		DailyUsed:    rec.DailyUsed,
		DailyLimit:   limits.Daily,
		MonthlyUsed:  rec.MonthlyUsed,
		MonthlyLimit: limits.Monthly,
		CanGenerate:  rec.DailyUsed < limits.Daily && rec.MonthlyUsed < limits.Monthly,
	}, nil
}

// EffectiveCounts applies the calendar resets to stored counters without
// persisting them. The daily counter resets when the stored reset date is
// not today, the monthly one when the stored month differs.
func EffectiveCounts(rec *models.UsageRecord, now time.Time) (daily, monthly int) {
	if rec == nil {
		return 0, 0
	}
	daily = rec.DailyUsed
	monthly = rec.MonthlyUsed
	if !sameDay(rec.DailyResetAt, now) {
		daily = 0
	}
	if !sameMonth(rec.MonthlyResetAt, now) {
		monthly = 0
	}
	return daily, monthly
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sameMonth(a, b time.Time) bool {
	ay, am, _ := a.Date()
	by, bm, _ := b.Date()
	return ay == by && am == bm
}

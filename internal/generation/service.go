// Package generation wires the request pipeline: quota check, prompt
// construction, upstream call, usage commit, and artifact persistence.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"nutriplan/internal/ai"
	"nutriplan/internal/models"
	"nutriplan/internal/parser"
	"nutriplan/internal/usage"
	"nutriplan/pkg/logger"
)

// Store is the persistence surface the pipeline needs.
type Store interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	SaveMealPlan(ctx context.Context, plan *models.MealPlan) error
	SaveRecipe(ctx context.Context, recipe *models.Recipe) error
	SaveShoppingList(ctx context.Context, list *models.ShoppingList) error
	SavePlanMeal(ctx context.Context, meal *models.PlanMeal) error
}

// Generator sends an assembled prompt upstream.
type Generator interface {
	Generate(ctx context.Context, prompt string, feature models.Feature) (*ai.Result, error)
}

// UsageService gates and accounts generation requests.
type UsageService interface {
	Check(ctx context.Context, user *models.User) (*usage.Usage, error)
	Consume(ctx context.Context, user *models.User) (*usage.Usage, error)
}

// Cache is the optional response cache. Hits skip the upstream call and
// consume no quota.
type Cache interface {
	Get(ctx context.Context, feature models.Feature, prompt string) (*ai.Result, bool)
	Set(ctx context.Context, feature models.Feature, prompt string, res *ai.Result)
}

type Service struct {
	store     Store
	generator Generator
	usage     UsageService
	cache     Cache
	logger    *logger.Logger
}

func NewService(store Store, generator Generator, usageSvc UsageService, cache Cache, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		generator: generator,
		usage:     usageSvc,
		cache:     cache,
		logger:    log.Named("generation"),
	}
}

// GenerateContent runs one generation request end to end. Quota is
// verified before any network traffic; the final quota commit re-checks
// the limits atomically in the store.
func (s *Service) GenerateContent(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResponse, error) {
	if !req.Feature.Valid() {
		return nil, fmt.Errorf("invalid feature: %q", req.Feature)
	}

	user, err := s.store.GetUserByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	quota, err := s.usage.Check(ctx, user)
	if err != nil {
		return nil, err
	}
	if !quota.CanGenerate {
		return nil, usage.ErrQuotaExceeded
	}

	prompt, err := ai.BuildPrompt(user, req)
	if err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	log := s.logger.With("request_id", requestID, "user_id", user.ID, "feature", req.Feature)

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, req.Feature, prompt); ok {
			log.Infow("serving generation from cache")
			return buildResponse(cached, quota, true), nil
		}
	}

	result, err := s.generator.Generate(ctx, prompt, req.Feature)
	if err != nil {
		log.Errorw("generation failed", "error", err)
		return nil, err
	}

	snapshot, err := s.usage.Consume(ctx, user)
	if err != nil {
		if errors.Is(err, usage.ErrQuotaExceeded) {
			// A concurrent request won the last quota slot between our
			// pre-check and the commit. The upstream call already
			// happened, so return the content with the exhausted
			// snapshot rather than discarding paid-for output.
			log.Warnw("quota exhausted by concurrent request after generation")
			snapshot, err = s.usage.Check(ctx, user)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	if s.cache != nil {
		s.cache.Set(ctx, req.Feature, prompt, result)
	}

	return buildResponse(result, snapshot, false), nil
}

// CheckUserUsage returns the current quota snapshot for a user.
func (s *Service) CheckUserUsage(ctx context.Context, userID int64) (*usage.Usage, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return s.usage.Check(ctx, user)
}

func buildResponse(result *ai.Result, quota *usage.Usage, cached bool) *models.GenerationResponse {
	resp := &models.GenerationResponse{
		Success:          true,
		Content:          result.Content,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,
		Cost:             result.Cost,
		Cached:           cached,
		DailyUsed:        quota.DailyUsed,
		DailyLimit:       quota.DailyLimit,
		MonthlyUsed:      quota.MonthlyUsed,
		MonthlyLimit:     quota.MonthlyLimit,
	}
	if cached {
		resp.Cost = 0
	}
	return resp
}

// SaveMealPlan persists generated content as a meal plan artifact. The
// structured form is stored when parsing succeeds, the raw text
// otherwise; one of the two is always non-empty. Per-meal rows and a
// derived shopping list are written best-effort afterwards: their
// failures are logged and swallowed, the plan itself stays saved.
func (s *Service) SaveMealPlan(ctx context.Context, userID int64, title, content string) (*models.MealPlan, error) {
	plan := &models.MealPlan{UserID: userID, Title: title}

	result := parser.Parse(content)
	if result.Parsed() {
		data, err := parser.Serialize(result.Record)
		if err != nil {
			plan.RawText = content
		} else {
			plan.Data = json.RawMessage(data)
			if plan.Title == "" {
				plan.Title = result.Record.Title
			}
		}
	} else {
		plan.RawText = content
	}
	if plan.Title == "" {
		plan.Title = "Meal Plan"
	}

	if err := s.store.SaveMealPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to save meal plan: %w", err)
	}

	if result.Parsed() {
		s.saveEnrichment(ctx, plan, result.Record)
	}

	return plan, nil
}

// saveEnrichment writes the secondary rows derived from a parsed plan.
func (s *Service) saveEnrichment(ctx context.Context, plan *models.MealPlan, record *parser.PlanRecord) {
	for _, day := range record.Days {
		for _, meal := range day.Meals {
			pm := &models.PlanMeal{
				PlanID:   plan.ID,
				UserID:   plan.UserID,
				Day:      day.Label,
				Name:     meal.Name,
				Calories: meal.Calories,
			}
			if err := s.store.SavePlanMeal(ctx, pm); err != nil {
				s.logger.Warnw("failed to save plan meal", "plan_id", plan.ID, "day", day.Label, "meal", meal.Name, "error", err)
			}
		}
	}

	if len(record.ShoppingList) == 0 {
		return
	}

	data, err := parser.Serialize(&parser.PlanRecord{ShoppingList: record.ShoppingList})
	if err != nil {
		return
	}
	list := &models.ShoppingList{
		UserID: plan.UserID,
		Title:  plan.Title + " - Shopping List",
		Data:   json.RawMessage(data),
	}
	if err := s.store.SaveShoppingList(ctx, list); err != nil {
		s.logger.Warnw("failed to save derived shopping list", "plan_id", plan.ID, "error", err)
	}
}

// SaveRecipe persists generated content as a recipe artifact.
func (s *Service) SaveRecipe(ctx context.Context, userID int64, title, content string) (*models.Recipe, error) {
	recipe := &models.Recipe{UserID: userID, Title: title}

	result := parser.Parse(content)
	if result.Parsed() {
		if data, err := parser.Serialize(result.Record); err == nil {
			recipe.Data = json.RawMessage(data)
			if recipe.Title == "" {
				recipe.Title = result.Record.Title
			}
		} else {
			recipe.RawText = content
		}
	} else {
		recipe.RawText = content
	}
	if recipe.Title == "" {
		recipe.Title = "Recipe"
	}

	if err := s.store.SaveRecipe(ctx, recipe); err != nil {
		return nil, fmt.Errorf("failed to save recipe: %w", err)
	}
	return recipe, nil
}

// SaveShoppingList persists generated content as a shopping list artifact.
func (s *Service) SaveShoppingList(ctx context.Context, userID int64, title, content string) (*models.ShoppingList, error) {
	list := &models.ShoppingList{UserID: userID, Title: title}

	result := parser.Parse(content)
	if result.Parsed() {
		if data, err := parser.Serialize(result.Record); err == nil {
			list.Data = json.RawMessage(data)
			if list.Title == "" {
				list.Title = result.Record.Title
			}
		} else {
			list.RawText = content
		}
	} else {
		list.RawText = content
	}
	if list.Title == "" {
		list.Title = "Shopping List"
	}

	if err := s.store.SaveShoppingList(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to save shopping list: %w", err)
	}
	return list, nil
}

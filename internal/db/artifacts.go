package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"

	"nutriplan/internal/models"
)

// artifact is the common row shape shared by the three artifact tables.
type artifact struct {
	ID        int64
	UserID    int64
	Title     string
	Data      json.RawMessage
	RawText   string
	CreatedAt time.Time
}

func (db *PostgresDB) insertArtifact(ctx context.Context, table string, a *artifact) error {
	query := fmt.Sprintf(`
        INSERT INTO %s (user_id, title, data, raw_text)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `, table)

	err := db.pool.QueryRow(ctx, query, a.UserID, a.Title, a.Data, a.RawText).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

func (db *PostgresDB) getArtifact(ctx context.Context, table string, userID, id int64) (*artifact, error) {
	query := fmt.Sprintf(`
        SELECT id, user_id, title, data, raw_text, created_at
        FROM %s
        WHERE id = $1 AND user_id = $2
    `, table)

	var a artifact
	err := db.pool.QueryRow(ctx, query, id, userID).Scan(
		&a.ID, &a.UserID, &a.Title, &a.Data, &a.RawText, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get row from %s: %w", table, err)
	}
	return &a, nil
}

func (db *PostgresDB) listArtifacts(ctx context.Context, table string, userID int64) ([]artifact, error) {
	query := fmt.Sprintf(`
        SELECT id, user_id, title, data, raw_text, created_at
        FROM %s
        WHERE user_id = $1
        ORDER BY created_at DESC
    `, table)

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rows from %s: %w", table, err)
	}
	defer rows.Close()

	var out []artifact
	for rows.Next() {
		var a artifact
		if err := rows.Scan(&a.ID, &a.UserID, &a.Title, &a.Data, &a.RawText, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", table, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (db *PostgresDB) deleteArtifact(ctx context.Context, table string, userID, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, table)

	tag, err := db.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *PostgresDB) SaveMealPlan(ctx context.Context, plan *models.MealPlan) error {
	a := artifact{UserID: plan.UserID, Title: plan.Title, Data: plan.Data, RawText: plan.RawText}
	if err := db.insertArtifact(ctx, "meal_plans", &a); err != nil {
		return err
	}
	plan.ID = a.ID
	plan.CreatedAt = a.CreatedAt
	return nil
}

func (db *PostgresDB) GetMealPlan(ctx context.Context, userID, id int64) (*models.MealPlan, error) {
	a, err := db.getArtifact(ctx, "meal_plans", userID, id)
	if err != nil {
		return nil, err
	}
	return &models.MealPlan{ID: a.ID, UserID: a.UserID, Title: a.Title, Data: a.Data, RawText: a.RawText, CreatedAt: a.CreatedAt}, nil
}

func (db *PostgresDB) ListMealPlans(ctx context.Context, userID int64) ([]models.MealPlan, error) {
	rows, err := db.listArtifacts(ctx, "meal_plans", userID)
	if err != nil {
		return nil, err
	}
	plans := make([]models.MealPlan, 0, len(rows))
	for _, a := range rows {
		plans = append(plans, models.MealPlan{ID: a.ID, UserID: a.UserID, Title: a.Title, Data: a.Data, RawText: a.RawText, CreatedAt: a.CreatedAt})
	}
	return plans, nil
}

func (db *PostgresDB) DeleteMealPlan(ctx context.Context, userID, id int64) error {
	return db.deleteArtifact(ctx, "meal_plans", userID, id)
}

func (db *PostgresDB) SaveRecipe(ctx context.Context, recipe *models.Recipe) error {
	a := artifact{UserID: recipe.UserID, Title: recipe.Title, Data: recipe.Data, RawText: recipe.RawText}
	if err := db.insertArtifact(ctx, "recipes", &a); err != nil {
		return err
	}
	recipe.ID = a.ID
	recipe.CreatedAt = a.CreatedAt
	return nil
}

func (db *PostgresDB) GetRecipe(ctx context.Context, userID, id int64) (*models.Recipe, error) {
	a, err := db.getArtifact(ctx, "recipes", userID, id)
	if err != nil {
		return nil, err
	}
	return &models.Recipe{ID: a.ID, UserID: a.UserID, Title: a.Title, Data: a.Data, RawText: a.RawText, CreatedAt: a.CreatedAt}, nil
}

func (db *PostgresDB) ListRecipes(ctx context.Context, userID int64) ([]models.Recipe, error) {
	rows, err := db.listArtifacts(ctx, "recipes", userID)
	if err != nil {
		return nil, err
	}
	recipes := make([]models.Recipe, 0, len(rows))
	for _, a := range rows {
		recipes = append(recipes, models.Recipe{ID: a.ID, UserID: a.UserID, Title: a.Title, Data: a.Data, RawText: a.RawText, CreatedAt: a.CreatedAt})
	}
	return recipes, nil
}

func (db *PostgresDB) DeleteRecipe(ctx context.Context, userID, id int64) error {
	return db.deleteArtifact(ctx, "recipes", userID, id)
}

func (db *PostgresDB) SaveShoppingList(ctx context.Context, list *models.ShoppingList) error {
	a := artifact{UserID: list.UserID, Title: list.Title, Data: list.Data, RawText: list.RawText}
	if err := db.insertArtifact(ctx, "shopping_lists", &a); err != nil {
		return err
	}
	list.ID = a.ID
	list.CreatedAt = a.CreatedAt
	return nil
}

func (db *PostgresDB) GetShoppingList(ctx context.Context, userID, id int64) (*models.ShoppingList, error) {
	a, err := db.getArtifact(ctx, "shopping_lists", userID, id)
	if err != nil {
		return nil, err
	}
	return &models.ShoppingList{ID: a.ID, UserID: a.UserID, Title: a.Title, Data: a.Data, RawText: a.RawText, CreatedAt: a.CreatedAt}, nil
}

func (db *PostgresDB) ListShoppingLists(ctx context.Context, userID int64) ([]models.ShoppingList, error) {
	rows, err := db.listArtifacts(ctx, "shopping_lists", userID)
	if err != nil {
		return nil, err
	}
	lists := make([]models.ShoppingList, 0, len(rows))
	for _, a := range rows {
		lists = append(lists, models.ShoppingList{ID: a.ID, UserID: a.UserID, Title: a.Title, Data: a.Data, RawText: a.RawText, CreatedAt: a.CreatedAt})
	}
	return lists, nil
}

func (db *PostgresDB) DeleteShoppingList(ctx context.Context, userID, id int64) error {
	return db.deleteArtifact(ctx, "shopping_lists", userID, id)
}

// SavePlanMeal writes one extracted meal row for a saved plan.
func (db *PostgresDB) SavePlanMeal(ctx context.Context, meal *models.PlanMeal) error {
	query := `
        INSERT INTO plan_meals (plan_id, user_id, day, name, calories)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `

	err := db.pool.QueryRow(ctx, query,
		meal.PlanID, meal.UserID, meal.Day, meal.Name, meal.Calories,
	).Scan(&meal.ID, &meal.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save plan meal: %w", err)
	}
	return nil
}

func (db *PostgresDB) SavePayment(ctx context.Context, payment *models.Payment) error {
	query := `
        INSERT INTO payments (user_id, amount, currency, stripe_payment_id, status)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (stripe_payment_id) DO UPDATE SET status = $5, updated_at = NOW()
        RETURNING id
    `

	err := db.pool.QueryRow(ctx, query,
		payment.UserID, payment.Amount, payment.Currency,
		payment.StripePaymentID, payment.Status,
	).Scan(&payment.ID)

	return err
}

// UpdatePaymentStatus flips the status of an existing ledger row.
// Returns ErrNotFound when the payment was never recorded.
func (db *PostgresDB) UpdatePaymentStatus(ctx context.Context, stripePaymentID string, status string) error {
	query := `
        UPDATE payments
        SET status = $2, updated_at = NOW()
        WHERE stripe_payment_id = $1
    `

	tag, err := db.pool.Exec(ctx, query, stripePaymentID, status)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

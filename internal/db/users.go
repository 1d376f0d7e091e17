package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"nutriplan/internal/models"
)

func (db *PostgresDB) CreateUser(ctx context.Context, user *models.User) error {
	query := `
        INSERT INTO users (email, password_hash, name, goal, diet, allergies, location, calorie_target, plan, plan_status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at, updated_at
    `

	if user.Plan == "" {
		user.Plan = models.PlanFree
	}
	if user.PlanStatus == "" {
		user.PlanStatus = models.PlanStatusActive
	}
	if user.Allergies == nil {
		user.Allergies = []string{}
	}

	err := db.pool.QueryRow(ctx, query,
		user.Email, user.PasswordHash, user.Name, user.Goal, user.Diet,
		user.Allergies, user.Location, user.CalorieTarget, user.Plan, user.PlanStatus,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

const userColumns = `id, email, password_hash, name, goal, diet, allergies, location, calorie_target,
        plan, plan_status, stripe_customer_id, stripe_subscription_id, created_at, updated_at`

func (db *PostgresDB) scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Goal, &user.Diet,
		&user.Allergies, &user.Location, &user.CalorieTarget,
		&user.Plan, &user.PlanStatus, &user.StripeCustomerID, &user.StripeSubscriptionID,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

func (db *PostgresDB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return db.scanUser(db.pool.QueryRow(ctx, query, id))
}

func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return db.scanUser(db.pool.QueryRow(ctx, query, email))
}

func (db *PostgresDB) GetUserByStripeCustomer(ctx context.Context, customerID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`
	return db.scanUser(db.pool.QueryRow(ctx, query, customerID))
}

// UpdateProfile writes the user-editable profile fields.
func (db *PostgresDB) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
        UPDATE users
        SET name = $2, goal = $3, diet = $4, allergies = $5, location = $6, calorie_target = $7, updated_at = NOW()
        WHERE id = $1
    `

	if user.Allergies == nil {
		user.Allergies = []string{}
	}

	_, err := db.pool.Exec(ctx, query,
		user.ID, user.Name, user.Goal, user.Diet, user.Allergies, user.Location, user.CalorieTarget,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// UpdateSubscription flips the billing state after a Stripe event.
func (db *PostgresDB) UpdateSubscription(ctx context.Context, userID int64, plan, status, customerID, subscriptionID string) error {
	query := `
        UPDATE users
        SET plan = $2, plan_status = $3, stripe_customer_id = $4, stripe_subscription_id = $5, updated_at = NOW()
        WHERE id = $1
    `

	_, err := db.pool.Exec(ctx, query, userID, plan, status, customerID, subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

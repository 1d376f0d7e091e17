package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"

	"nutriplan/internal/models"
	"nutriplan/internal/usage"
)

// GetUsage returns the stored counters for a user, or nil when the user
// has never generated anything.
func (db *PostgresDB) GetUsage(ctx context.Context, userID int64) (*models.UsageRecord, error) {
	query := `
        SELECT user_id, daily_used, monthly_used, daily_reset_at, monthly_reset_at, updated_at
        FROM usage_records
        WHERE user_id = $1
    `

	var rec models.UsageRecord
	err := db.pool.QueryRow(ctx, query, userID).Scan(
		&rec.UserID, &rec.DailyUsed, &rec.MonthlyUsed,
		&rec.DailyResetAt, &rec.MonthlyResetAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get usage record: %w", err)
	}

	return &rec, nil
}

// ConsumeQuota re-checks both limits and increments both counters inside
// one transaction. The row lock makes two concurrent generations from the
// same user serialize here, so a counter can never pass its limit.
func (db *PostgresDB) ConsumeQuota(ctx context.Context, userID int64, dailyLimit, monthlyLimit int) (*models.UsageRecord, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin quota transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Make sure the row exists before locking it.
	_, err = tx.Exec(ctx, `
        INSERT INTO usage_records (user_id, daily_used, monthly_used, daily_reset_at, monthly_reset_at)
        VALUES ($1, 0, 0, NOW(), NOW())
        ON CONFLICT (user_id) DO NOTHING
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure usage record: %w", err)
	}

	var rec models.UsageRecord
	err = tx.QueryRow(ctx, `
        SELECT user_id, daily_used, monthly_used, daily_reset_at, monthly_reset_at, updated_at
        FROM usage_records
        WHERE user_id = $1
        FOR UPDATE
    `, userID).Scan(
		&rec.UserID, &rec.DailyUsed, &rec.MonthlyUsed,
		&rec.DailyResetAt, &rec.MonthlyResetAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock usage record: %w", err)
	}

	now := time.Now()
	daily, monthly := usage.EffectiveCounts(&rec, now)

	if daily >= dailyLimit || monthly >= monthlyLimit {
		return nil, usage.ErrQuotaExceeded
	}

	rec.DailyUsed = daily + 1
	rec.MonthlyUsed = monthly + 1
	rec.DailyResetAt = now
	rec.MonthlyResetAt = now
	rec.UpdatedAt = now

	_, err = tx.Exec(ctx, `
        UPDATE usage_records
        SET daily_used = $2, monthly_used = $3, daily_reset_at = $4, monthly_reset_at = $5, updated_at = $6
        WHERE user_id = $1
    `, userID, rec.DailyUsed, rec.MonthlyUsed, rec.DailyResetAt, rec.MonthlyResetAt, rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update usage record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit quota transaction: %w", err)
	}

	return &rec, nil
}

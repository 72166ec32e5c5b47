package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/plata-bot/plata/internal/domain"
)

// BudgetRepository defines persistence operations for monthly budgets.
type BudgetRepository interface {
	// Upsert creates or replaces the budget for (user, category).
	Upsert(ctx context.Context, b *domain.Budget) error
	FindByCategory(ctx context.Context, userID, categoryID int64) (*domain.Budget, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Budget, error)
	Delete(ctx context.Context, userID, categoryID int64) error
}

type budgetRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewBudgetRepository creates a new SQL-backed budget repository.
func NewBudgetRepository(db *sql.DB, log *slog.Logger) BudgetRepository {
	return &budgetRepository{
		db:  db,
		log: log,
	}
}

// Upsert creates or updates the budget for (user, category).
func (r *budgetRepository) Upsert(ctx context.Context, b *domain.Budget) error {
	const query = `
		INSERT INTO budgets (user_id, category_id, monthly_limit)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, category_id)
		DO UPDATE SET monthly_limit = EXCLUDED.monthly_limit
		RETURNING id
	`

	if err := r.db.QueryRowContext(ctx, query, b.UserID, b.CategoryID, b.MonthlyLimit).Scan(&b.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to upsert budget", slog.Int64("user_id", b.UserID), slog.Any("error", err))
		}
		return fmt.Errorf("upsert budget: %w", err)
	}

	return nil
}

// FindByCategory retrieves the budget for (user, category).
func (r *budgetRepository) FindByCategory(ctx context.Context, userID, categoryID int64) (*domain.Budget, error) {
	const query = `
		SELECT id, user_id, category_id, monthly_limit
		FROM budgets
		WHERE user_id = $1 AND category_id = $2
	`

	var b domain.Budget
	if err := r.db.QueryRowContext(ctx, query, userID, categoryID).Scan(&b.ID, &b.UserID, &b.CategoryID, &b.MonthlyLimit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select budget: %w", err)
	}

	return &b, nil
}

// ListByUser returns all budgets for the user.
func (r *budgetRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Budget, error) {
	const query = `
		SELECT id, user_id, category_id, monthly_limit
		FROM budgets
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select budgets: %w", err)
	}
	defer rows.Close()

	var budgets []domain.Budget
	for rows.Next() {
		var b domain.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.MonthlyLimit); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}

	return budgets, rows.Err()
}

// Delete removes the budget for (user, category).
func (r *budgetRepository) Delete(ctx context.Context, userID, categoryID int64) error {
	const query = `DELETE FROM budgets WHERE user_id = $1 AND category_id = $2`

	result, err := r.db.ExecContext(ctx, query, userID, categoryID)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to delete budget", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return fmt.Errorf("delete budget: %w", err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}

	return nil
}

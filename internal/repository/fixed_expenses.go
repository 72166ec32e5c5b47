package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/plata-bot/plata/internal/domain"
)

// FixedExpenseRepository defines persistence operations for recurring expenses.
type FixedExpenseRepository interface {
	Create(ctx context.Context, fe *domain.FixedExpense) error
	Update(ctx context.Context, fe *domain.FixedExpense) error
	Delete(ctx context.Context, userID, id int64) error
	FindByID(ctx context.Context, userID, id int64) (*domain.FixedExpense, error)
	// FindByDescription matches case-insensitively and returns rows in any
	// state, including rejected placeholders.
	FindByDescription(ctx context.Context, userID int64, description string) (*domain.FixedExpense, error)
	ListByUser(ctx context.Context, userID int64, activeOnly bool) ([]domain.FixedExpense, error)
	// DueOnDay returns every active fixed expense whose reminder day equals
	// day, across all users.
	DueOnDay(ctx context.Context, day int) ([]domain.FixedExpense, error)
}

type fixedExpenseRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewFixedExpenseRepository creates a new SQL-backed fixed expense repository.
func NewFixedExpenseRepository(db *sql.DB, log *slog.Logger) FixedExpenseRepository {
	return &fixedExpenseRepository{
		db:  db,
		log: log,
	}
}

const fixedExpenseColumns = `id, user_id, description, amount, category_id, reminder_day, is_active`

func scanFixedExpense(row interface{ Scan(...any) error }) (*domain.FixedExpense, error) {
	var fe domain.FixedExpense
	if err := row.Scan(
		&fe.ID,
		&fe.UserID,
		&fe.Description,
		&fe.Amount,
		&fe.CategoryID,
		&fe.ReminderDay,
		&fe.IsActive,
	); err != nil {
		return nil, err
	}
	return &fe, nil
}

// Create persists a fixed expense and fills in the generated ID.
func (r *fixedExpenseRepository) Create(ctx context.Context, fe *domain.FixedExpense) error {
	const query = `
		INSERT INTO fixed_expenses (user_id, description, amount, category_id, reminder_day, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		fe.UserID,
		fe.Description,
		fe.Amount,
		fe.CategoryID,
		fe.ReminderDay,
		fe.IsActive,
	).Scan(&fe.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create fixed expense", slog.Int64("user_id", fe.UserID), slog.Any("error", err))
		}
		return fmt.Errorf("insert fixed expense: %w", err)
	}

	return nil
}

// Update rewrites all mutable fields of a fixed expense.
func (r *fixedExpenseRepository) Update(ctx context.Context, fe *domain.FixedExpense) error {
	const query = `
		UPDATE fixed_expenses
		SET description = $3,
			amount = $4,
			category_id = $5,
			reminder_day = $6,
			is_active = $7
		WHERE id = $1 AND user_id = $2
	`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		fe.ID,
		fe.UserID,
		fe.Description,
		fe.Amount,
		fe.CategoryID,
		fe.ReminderDay,
		fe.IsActive,
	); err != nil {
		if r.log != nil {
			r.log.Error("failed to update fixed expense", slog.Int64("fixed_expense_id", fe.ID), slog.Any("error", err))
		}
		return fmt.Errorf("update fixed expense: %w", err)
	}

	return nil
}

// Delete removes a fixed expense owned by the user.
func (r *fixedExpenseRepository) Delete(ctx context.Context, userID, id int64) error {
	const query = `DELETE FROM fixed_expenses WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to delete fixed expense", slog.Int64("fixed_expense_id", id), slog.Any("error", err))
		}
		return fmt.Errorf("delete fixed expense: %w", err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}

	return nil
}

// FindByID retrieves a fixed expense owned by the user.
func (r *fixedExpenseRepository) FindByID(ctx context.Context, userID, id int64) (*domain.FixedExpense, error) {
	query := `SELECT ` + fixedExpenseColumns + ` FROM fixed_expenses WHERE id = $1 AND user_id = $2`

	fe, err := scanFixedExpense(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select fixed expense: %w", err)
	}

	return fe, nil
}

// FindByDescription matches on lower(description) regardless of active state.
func (r *fixedExpenseRepository) FindByDescription(ctx context.Context, userID int64, description string) (*domain.FixedExpense, error) {
	query := `SELECT ` + fixedExpenseColumns + `
		FROM fixed_expenses
		WHERE user_id = $1 AND lower(description) = lower($2)`

	fe, err := scanFixedExpense(r.db.QueryRowContext(ctx, query, userID, description))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select fixed expense by description: %w", err)
	}

	return fe, nil
}

// ListByUser returns the user's fixed expenses in stable display order.
func (r *fixedExpenseRepository) ListByUser(ctx context.Context, userID int64, activeOnly bool) ([]domain.FixedExpense, error) {
	query := `SELECT ` + fixedExpenseColumns + ` FROM fixed_expenses WHERE user_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select fixed expenses: %w", err)
	}
	defer rows.Close()

	var expenses []domain.FixedExpense
	for rows.Next() {
		fe, err := scanFixedExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fixed expense: %w", err)
		}
		expenses = append(expenses, *fe)
	}

	return expenses, rows.Err()
}

// DueOnDay returns active fixed expenses due on the given day of month,
// ordered by user so callers can group them.
func (r *fixedExpenseRepository) DueOnDay(ctx context.Context, day int) ([]domain.FixedExpense, error) {
	query := `SELECT ` + fixedExpenseColumns + `
		FROM fixed_expenses
		WHERE is_active AND reminder_day = $1
		ORDER BY user_id, id`

	rows, err := r.db.QueryContext(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("select due fixed expenses: %w", err)
	}
	defer rows.Close()

	var expenses []domain.FixedExpense
	for rows.Next() {
		fe, err := scanFixedExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due fixed expense: %w", err)
		}
		expenses = append(expenses, *fe)
	}

	return expenses, rows.Err()
}

// Package repository contains the SQL persistence layer.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/plata-bot/plata/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	FindByPhone(ctx context.Context, phone string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	UpdateLastShown(ctx context.Context, userID int64, ids []int64) error
	Delete(ctx context.Context, userID int64) error
	Count(ctx context.Context) (int64, error)
	AllPhones(ctx context.Context) ([]string, error)
}

type userRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db *sql.DB, log *slog.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log,
	}
}

const userColumns = `
	id, phone, name, onboarding_step, monthly_income, savings_goal, plan,
	last_income_update_prompt_at, income_update_declined,
	last_shown_transaction_ids, created_at
`

// FindByPhone retrieves a user by their phone number.
func (r *userRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = $1`

	row := r.db.QueryRowContext(ctx, query, phone)

	var user domain.User
	var lastShown pq.Int64Array
	if err := row.Scan(
		&user.ID,
		&user.Phone,
		&user.Name,
		&user.OnboardingStep,
		&user.MonthlyIncome,
		&user.SavingsGoal,
		&user.Plan,
		&user.LastIncomeUpdatePromptAt,
		&user.IncomeUpdateDeclined,
		&lastShown,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		if r.log != nil {
			r.log.Error("failed to fetch user by phone", slog.String("phone", phone), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select user by phone: %w", err)
	}

	user.LastShownTransactionIDs = lastShown
	return &user, nil
}

// FindByID retrieves a user by their primary key.
func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	var user domain.User
	var lastShown pq.Int64Array
	if err := row.Scan(
		&user.ID,
		&user.Phone,
		&user.Name,
		&user.OnboardingStep,
		&user.MonthlyIncome,
		&user.SavingsGoal,
		&user.Plan,
		&user.LastIncomeUpdatePromptAt,
		&user.IncomeUpdateDeclined,
		&lastShown,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		if r.log != nil {
			r.log.Error("failed to fetch user by id", slog.Int64("user_id", id), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select user by id: %w", err)
	}

	user.LastShownTransactionIDs = lastShown
	return &user, nil
}

// Create persists a new user record and fills in the generated ID.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
		INSERT INTO users (phone, name, onboarding_step, monthly_income, savings_goal, plan,
			income_update_declined, last_shown_transaction_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Phone,
		user.Name,
		user.OnboardingStep,
		user.MonthlyIncome,
		user.SavingsGoal,
		user.Plan,
		user.IncomeUpdateDeclined,
		pq.Array(user.LastShownTransactionIDs),
		user.CreatedAt,
	).Scan(&user.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create user", slog.String("phone", user.Phone), slog.Any("error", err))
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// Update writes all mutable user fields.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
		UPDATE users
		SET name = $2,
			onboarding_step = $3,
			monthly_income = $4,
			savings_goal = $5,
			plan = $6,
			last_income_update_prompt_at = $7,
			income_update_declined = $8,
			last_shown_transaction_ids = $9
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.OnboardingStep,
		user.MonthlyIncome,
		user.SavingsGoal,
		user.Plan,
		user.LastIncomeUpdatePromptAt,
		user.IncomeUpdateDeclined,
		pq.Array(user.LastShownTransactionIDs),
	); err != nil {
		if r.log != nil {
			r.log.Error("failed to update user", slog.Int64("user_id", user.ID), slog.Any("error", err))
		}
		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

// UpdateLastShown saves the most recent transaction list shown to the user.
func (r *userRepository) UpdateLastShown(ctx context.Context, userID int64, ids []int64) error {
	const query = `UPDATE users SET last_shown_transaction_ids = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID, pq.Array(ids)); err != nil {
		if r.log != nil {
			r.log.Error("failed to update last shown list", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return fmt.Errorf("update last shown transactions: %w", err)
	}

	return nil
}

// Delete removes the user row; owned rows cascade via foreign keys.
func (r *userRepository) Delete(ctx context.Context, userID int64) error {
	const query = `DELETE FROM users WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		if r.log != nil {
			r.log.Error("failed to delete user", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return fmt.Errorf("delete user: %w", err)
	}

	return nil
}

// Count returns the total number of users.
func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return count, nil
}

// AllPhones returns every registered phone number.
func (r *userRepository) AllPhones(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT phone FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select phones: %w", err)
	}
	defer rows.Close()

	var phones []string
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, fmt.Errorf("scan phone: %w", err)
		}
		phones = append(phones, phone)
	}

	return phones, rows.Err()
}

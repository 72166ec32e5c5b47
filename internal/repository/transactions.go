package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/plata-bot/plata/internal/domain"
)

// CategoryTotal is a per-category month-to-date expense sum.
type CategoryTotal struct {
	CategoryID   int64
	CategoryName string
	Total        int64
}

// MonthIncome is a calendar month's summed income.
type MonthIncome struct {
	Year  int
	Month time.Month
	Total int64
}

// TransactionRepository defines persistence operations for ledger entries.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	Update(ctx context.Context, tx *domain.Transaction) error
	Delete(ctx context.Context, userID, id int64) error
	FindByID(ctx context.Context, userID, id int64) (*domain.Transaction, error)
	MostRecent(ctx context.Context, userID int64) (*domain.Transaction, error)
	ListMonth(ctx context.Context, userID int64, ref time.Time) ([]domain.Transaction, error)
	MonthTotals(ctx context.Context, userID int64, ref time.Time) (income, expenses int64, err error)
	CategoryExpensesMonth(ctx context.Context, userID, categoryID int64, ref time.Time) (int64, error)
	CategoryTotalsMonth(ctx context.Context, userID int64, ref time.Time) ([]CategoryTotal, error)
	IncomeByMonth(ctx context.Context, userID int64, months int, ref time.Time) ([]MonthIncome, error)
	ExistsForFixedExpenseInMonth(ctx context.Context, userID, fixedExpenseID int64, ref time.Time) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type transactionRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewTransactionRepository creates a new SQL-backed transaction repository.
func NewTransactionRepository(db *sql.DB, log *slog.Logger) TransactionRepository {
	return &transactionRepository{
		db:  db,
		log: log,
	}
}

const transactionColumns = `
	id, user_id, amount, category_id, description, tx_date, is_income,
	expense_type, fixed_expense_id, created_at
`

func scanTransaction(row interface{ Scan(...any) error }) (*domain.Transaction, error) {
	var tx domain.Transaction
	if err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&tx.CategoryID,
		&tx.Description,
		&tx.Date,
		&tx.IsIncome,
		&tx.ExpenseType,
		&tx.FixedExpenseID,
		&tx.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Create persists a transaction and fills in the generated ID.
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	const query = `
		INSERT INTO transactions (user_id, amount, category_id, description, tx_date,
			is_income, expense_type, fixed_expense_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		tx.UserID,
		tx.Amount,
		tx.CategoryID,
		tx.Description,
		tx.Date,
		tx.IsIncome,
		tx.ExpenseType,
		tx.FixedExpenseID,
		tx.CreatedAt,
	).Scan(&tx.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create transaction", slog.Int64("user_id", tx.UserID), slog.Any("error", err))
		}
		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}

// Update rewrites the mutable fields of a transaction.
func (r *transactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	const query = `
		UPDATE transactions
		SET amount = $3,
			category_id = $4,
			description = $5,
			expense_type = $6,
			fixed_expense_id = $7
		WHERE id = $1 AND user_id = $2
	`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		tx.ID,
		tx.UserID,
		tx.Amount,
		tx.CategoryID,
		tx.Description,
		tx.ExpenseType,
		tx.FixedExpenseID,
	); err != nil {
		if r.log != nil {
			r.log.Error("failed to update transaction", slog.Int64("transaction_id", tx.ID), slog.Any("error", err))
		}
		return fmt.Errorf("update transaction: %w", err)
	}

	return nil
}

// Delete removes a transaction owned by the user.
func (r *transactionRepository) Delete(ctx context.Context, userID, id int64) error {
	const query = `DELETE FROM transactions WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to delete transaction", slog.Int64("transaction_id", id), slog.Any("error", err))
		}
		return fmt.Errorf("delete transaction: %w", err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}

	return nil
}

// FindByID retrieves a transaction owned by the user.
func (r *transactionRepository) FindByID(ctx context.Context, userID, id int64) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND user_id = $2`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select transaction: %w", err)
	}

	return tx, nil
}

// MostRecent returns the user's most recently created transaction.
func (r *transactionRepository) MostRecent(ctx context.Context, userID int64) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select most recent transaction: %w", err)
	}

	return tx, nil
}

// ListMonth returns the month's transactions in display order: newest first.
func (r *transactionRepository) ListMonth(ctx context.Context, userID int64, ref time.Time) ([]domain.Transaction, error) {
	start, end := monthBounds(ref)

	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND tx_date >= $2 AND tx_date < $3
		ORDER BY tx_date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("select month transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *tx)
	}

	return txs, rows.Err()
}

// MonthTotals returns the month's total income and expenses.
func (r *transactionRepository) MonthTotals(ctx context.Context, userID int64, ref time.Time) (int64, int64, error) {
	start, end := monthBounds(ref)

	const query = `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE is_income), 0),
			COALESCE(SUM(amount) FILTER (WHERE NOT is_income), 0)
		FROM transactions
		WHERE user_id = $1 AND tx_date >= $2 AND tx_date < $3
	`

	var income, expenses int64
	if err := r.db.QueryRowContext(ctx, query, userID, start, end).Scan(&income, &expenses); err != nil {
		return 0, 0, fmt.Errorf("select month totals: %w", err)
	}

	return income, expenses, nil
}

// CategoryExpensesMonth sums the month's expenses in one category.
func (r *transactionRepository) CategoryExpensesMonth(ctx context.Context, userID, categoryID int64, ref time.Time) (int64, error) {
	start, end := monthBounds(ref)

	const query = `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND category_id = $2 AND NOT is_income
			AND tx_date >= $3 AND tx_date < $4
	`

	var total int64
	if err := r.db.QueryRowContext(ctx, query, userID, categoryID, start, end).Scan(&total); err != nil {
		return 0, fmt.Errorf("select category month expenses: %w", err)
	}

	return total, nil
}

// CategoryTotalsMonth returns per-category expense sums for the month,
// largest first.
func (r *transactionRepository) CategoryTotalsMonth(ctx context.Context, userID int64, ref time.Time) ([]CategoryTotal, error) {
	start, end := monthBounds(ref)

	const query = `
		SELECT t.category_id, c.name, COALESCE(SUM(t.amount), 0)
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = $1 AND NOT t.is_income AND t.tx_date >= $2 AND t.tx_date < $3
		GROUP BY t.category_id, c.name
		ORDER BY 3 DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("select category totals: %w", err)
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.CategoryID, &ct.CategoryName, &ct.Total); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ct)
	}

	return totals, rows.Err()
}

// IncomeByMonth returns summed income per calendar month for the trailing
// months strictly before ref's month, most recent first. Months without
// income are omitted.
func (r *transactionRepository) IncomeByMonth(ctx context.Context, userID int64, months int, ref time.Time) ([]MonthIncome, error) {
	currentStart, _ := monthBounds(ref)
	windowStart := currentStart.AddDate(0, -months, 0)

	const query = `
		SELECT EXTRACT(YEAR FROM tx_date)::int, EXTRACT(MONTH FROM tx_date)::int, SUM(amount)
		FROM transactions
		WHERE user_id = $1 AND is_income AND tx_date >= $2 AND tx_date < $3
		GROUP BY 1, 2
		HAVING SUM(amount) > 0
		ORDER BY 1 DESC, 2 DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, windowStart, currentStart)
	if err != nil {
		return nil, fmt.Errorf("select income by month: %w", err)
	}
	defer rows.Close()

	var results []MonthIncome
	for rows.Next() {
		var mi MonthIncome
		var month int
		if err := rows.Scan(&mi.Year, &month, &mi.Total); err != nil {
			return nil, fmt.Errorf("scan month income: %w", err)
		}
		mi.Month = time.Month(month)
		results = append(results, mi)
	}

	return results, rows.Err()
}

// ExistsForFixedExpenseInMonth reports whether a transaction referencing the
// fixed expense was already created in ref's calendar month.
func (r *transactionRepository) ExistsForFixedExpenseInMonth(ctx context.Context, userID, fixedExpenseID int64, ref time.Time) (bool, error) {
	start, end := monthBounds(ref)

	const query = `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE user_id = $1 AND fixed_expense_id = $2
				AND tx_date >= $3 AND tx_date < $4
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, fixedExpenseID, start, end).Scan(&exists); err != nil {
		return false, fmt.Errorf("check fixed expense month: %w", err)
	}

	return exists, nil
}

// Count returns the total number of transactions.
func (r *transactionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}

	return count, nil
}

func monthBounds(ref time.Time) (time.Time, time.Time) {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	return start, start.AddDate(0, 1, 0)
}

// Package ledger implements transaction bookkeeping: creation, recency and
// positional edits, and reclassification.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/plata-bot/plata/internal/apperr"
	"github.com/plata-bot/plata/internal/domain"
	"github.com/plata-bot/plata/internal/repository"
)

var (
	// ErrNoRecent indicates that no transaction inside the 5-minute window
	// exists; the operation never guesses at older entries.
	ErrNoRecent = errors.New("no recent transaction")
	// ErrPositionNotFound indicates that a positional reference could not be
	// resolved against the list the user was shown.
	ErrPositionNotFound = errors.New("position not found")
	// ErrIncomeReclassify indicates an attempt to reclassify an income entry.
	ErrIncomeReclassify = errors.New("cannot reclassify income")
	// ErrAlreadyInCategory indicates the transaction already sits in the
	// target category; callers confirm instead of rewriting.
	ErrAlreadyInCategory = errors.New("already in target category")
	// ErrUnknownCategory indicates the target category does not exist.
	ErrUnknownCategory = errors.New("unknown category")
)

// Entry is a validated transaction creation request.
type Entry struct {
	Amount      int64
	Category    string
	Description string
	IsIncome    bool
}

// BatchResult reports how a batch creation went.
type BatchResult struct {
	Created []domain.Transaction
	Skipped int
}

// Service implements ledger operations on top of the repositories.
type Service struct {
	transactions repository.TransactionRepository
	categories   repository.CategoryRepository
	users        repository.UserRepository
	log          *slog.Logger
	now          func() time.Time
}

// NewService constructs a ledger Service.
func NewService(
	transactions repository.TransactionRepository,
	categories repository.CategoryRepository,
	users repository.UserRepository,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		transactions: transactions,
		categories:   categories,
		users:        users,
		log:          log,
		now:          time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ResolveCategory resolves a category name case-insensitively within the
// given direction, falling back to the direction's default category. A
// missing default is a data-integrity failure, never a silent drop.
func (s *Service) ResolveCategory(ctx context.Context, kind domain.CategoryKind, name string) (*domain.Category, error) {
	if strings.TrimSpace(name) != "" {
		category, err := s.categories.FindByName(ctx, kind, strings.TrimSpace(name))
		if err == nil {
			return category, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	fallback := domain.DefaultExpenseCategory
	if kind == domain.CategoryIncome {
		fallback = domain.DefaultIncomeCategory
	}

	category, err := s.categories.FindByName(ctx, kind, fallback)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NewIntegrityError(fmt.Sprintf("default category %q is missing", fallback))
		}
		return nil, err
	}

	return category, nil
}

// Create validates and persists a single entry.
func (s *Service) Create(ctx context.Context, user *domain.User, entry Entry) (*domain.Transaction, *domain.Category, error) {
	if entry.Amount <= 0 {
		return nil, nil, apperr.NewValidationError(
			fmt.Sprintf("non-positive amount %d", entry.Amount),
			"El monto debe ser mayor que cero. Intenta de nuevo, por ejemplo: \"almuerzo 25000\".",
		)
	}

	kind := domain.CategoryExpense
	expenseType := domain.ExpenseTypeVariable
	if entry.IsIncome {
		kind = domain.CategoryIncome
	}

	category, err := s.ResolveCategory(ctx, kind, entry.Category)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	tx := &domain.Transaction{
		UserID:      user.ID,
		Amount:      entry.Amount,
		CategoryID:  category.ID,
		Description: strings.TrimSpace(entry.Description),
		Date:        now,
		IsIncome:    entry.IsIncome,
		ExpenseType: expenseType,
		CreatedAt:   now,
	}

	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, nil, err
	}

	return tx, category, nil
}

// CreateBatch persists several entries at once, skipping individually
// malformed ones (non-positive amounts) while still committing the rest.
func (s *Service) CreateBatch(ctx context.Context, user *domain.User, entries []Entry) (BatchResult, error) {
	var result BatchResult

	for _, entry := range entries {
		if entry.Amount <= 0 {
			result.Skipped++
			continue
		}

		tx, _, err := s.Create(ctx, user, entry)
		if err != nil {
			var appErr *apperr.AppError
			if errors.As(err, &appErr) && appErr.Severity == apperr.SeverityCritical {
				return result, err
			}

			s.log.Error("batch entry failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
			result.Skipped++
			continue
		}

		result.Created = append(result.Created, *tx)
	}

	return result, nil
}

// Recent returns the user's most recent transaction when it is inside the
// edit window, or ErrNoRecent.
func (s *Service) Recent(ctx context.Context, userID int64) (*domain.Transaction, error) {
	tx, err := s.transactions.MostRecent(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoRecent
		}
		return nil, err
	}

	if !tx.Recent(s.now()) {
		return nil, ErrNoRecent
	}

	return tx, nil
}

// UpdateAmount rewrites a transaction's amount.
func (s *Service) UpdateAmount(ctx context.Context, tx *domain.Transaction, amount int64) error {
	if amount <= 0 {
		return apperr.NewValidationError(
			fmt.Sprintf("non-positive amount %d", amount),
			"El monto debe ser mayor que cero.",
		)
	}

	tx.Amount = amount
	return s.transactions.Update(ctx, tx)
}

// UpdateDescription rewrites a transaction's description.
func (s *Service) UpdateDescription(ctx context.Context, tx *domain.Transaction, description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return apperr.NewValidationError("empty description", "La descripción no puede quedar vacía.")
	}

	tx.Description = description
	return s.transactions.Update(ctx, tx)
}

// Delete removes a transaction owned by the user.
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	return s.transactions.Delete(ctx, userID, id)
}

// ResolvePosition resolves a 1-based index against the list the user was
// last shown, falling back to this month's transactions in display order.
// It never resolves to a transaction outside that list.
func (s *Service) ResolvePosition(ctx context.Context, user *domain.User, index int) (*domain.Transaction, error) {
	if index < 1 {
		return nil, ErrPositionNotFound
	}

	if ids := user.LastShownTransactionIDs; len(ids) > 0 {
		if index > len(ids) {
			return nil, ErrPositionNotFound
		}

		tx, err := s.transactions.FindByID(ctx, user.ID, ids[index-1])
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrPositionNotFound
			}
			return nil, err
		}

		return tx, nil
	}

	// Best effort: the user never saw a list this session, so recompute the
	// month's display order.
	txs, err := s.transactions.ListMonth(ctx, user.ID, s.now())
	if err != nil {
		return nil, err
	}

	if index > len(txs) {
		return nil, ErrPositionNotFound
	}

	tx := txs[index-1]
	return &tx, nil
}

// Reclassify moves the most recent expense (inside the window) to another
// category. Income entries are never reclassified.
func (s *Service) Reclassify(ctx context.Context, userID int64, categoryName string) (*domain.Transaction, *domain.Category, error) {
	tx, err := s.Recent(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	if tx.IsIncome {
		return nil, nil, ErrIncomeReclassify
	}

	category, err := s.categories.FindByName(ctx, domain.CategoryExpense, categoryName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrUnknownCategory
		}
		return nil, nil, err
	}

	if tx.CategoryID == category.ID {
		return tx, category, ErrAlreadyInCategory
	}

	tx.CategoryID = category.ID
	if err := s.transactions.Update(ctx, tx); err != nil {
		return nil, nil, err
	}

	return tx, category, nil
}

// ListMonth returns this month's transactions and records them as the list
// the user is now looking at, so positional references stay honest.
func (s *Service) ListMonth(ctx context.Context, user *domain.User) ([]domain.Transaction, error) {
	txs, err := s.transactions.ListMonth(ctx, user.ID, s.now())
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}

	user.LastShownTransactionIDs = ids
	if err := s.users.UpdateLastShown(ctx, user.ID, ids); err != nil {
		s.log.Error("failed to record shown list", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}

	return txs, nil
}

// MonthSummary aggregates the month's income, expenses and per-category
// totals.
func (s *Service) MonthSummary(ctx context.Context, userID int64) (income, expenses int64, totals []repository.CategoryTotal, err error) {
	now := s.now()

	income, expenses, err = s.transactions.MonthTotals(ctx, userID, now)
	if err != nil {
		return 0, 0, nil, err
	}

	totals, err = s.transactions.CategoryTotalsMonth(ctx, userID, now)
	if err != nil {
		return 0, 0, nil, err
	}

	return income, expenses, totals, nil
}

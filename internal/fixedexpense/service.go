// Package fixedexpense manages the lifecycle of recurring expenses: creation,
// pause and activation, the suggestion flow, and the monthly reminder batch.
package fixedexpense

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
	// ErrIndexOutOfRange indicates a positional reference beyond the user's
	// fixed-expense list.
	ErrIndexOutOfRange = errors.New("fixed expense index out of range")
	// ErrAlreadyActive indicates the expense is already active; callers
	// report it instead of creating a duplicate.
	ErrAlreadyActive = errors.New("fixed expense already active")
)

// suggestionKeywords drive the "is this recurring?" heuristic. A variable
// expense whose description contains one of these is a candidate.
var suggestionKeywords = []string{
	"arriendo", "renta", "alquiler", "hipoteca",
	"netflix", "spotify", "disney", "hbo", "prime",
	"internet", "celular", "plan", "telefono",
	"suscripcion", "suscripción", "membresia", "membresía",
	"gym", "gimnasio", "seguro", "pension", "pensión",
	"colegio", "universidad", "matricula", "matrícula",
	"luz", "agua", "gas", "administracion", "administración",
}

// Service implements fixed-expense lifecycle operations.
type Service struct {
	fixed        repository.FixedExpenseRepository
	transactions repository.TransactionRepository
	log          *slog.Logger
	now          func() time.Time
}

// NewService constructs a fixed-expense Service.
func NewService(
	fixed repository.FixedExpenseRepository,
	transactions repository.TransactionRepository,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		fixed:        fixed,
		transactions: transactions,
		log:          log,
		now:          time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// MatchesKeyword reports whether a description looks like a recurring
// payment.
func MatchesKeyword(description string) bool {
	lowered := strings.ToLower(description)
	for _, kw := range suggestionKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// ShouldSuggest reports whether a freshly created variable transaction
// warrants the "is this recurring?" prompt: the description matches the
// keyword heuristic and no fixed expense, active or rejected, exists for it.
func (s *Service) ShouldSuggest(ctx context.Context, tx *domain.Transaction) (bool, error) {
	if tx == nil || tx.IsIncome || tx.ExpenseType != domain.ExpenseTypeVariable {
		return false, nil
	}

	if !MatchesKeyword(tx.Description) {
		return false, nil
	}

	_, err := s.fixed.FindByDescription(ctx, tx.UserID, tx.Description)
	if err == nil {
		// Any existing row, including a rejected placeholder, suppresses
		// the prompt.
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	return true, nil
}

// MarkAsFixed promotes a transaction to a fixed expense: the transaction is
// linked and retyped, and the fixed expense is created or reactivated. An
// already-active expense is reported via ErrAlreadyActive and never
// duplicated.
func (s *Service) MarkAsFixed(ctx context.Context, tx *domain.Transaction) (*domain.FixedExpense, error) {
	existing, err := s.fixed.FindByDescription(ctx, tx.UserID, tx.Description)
	switch {
	case err == nil && existing.IsActive:
		if linkErr := s.linkTransaction(ctx, tx, existing.ID); linkErr != nil {
			return nil, linkErr
		}
		return existing, ErrAlreadyActive
	case err == nil:
		existing.IsActive = true
		existing.Amount = tx.Amount
		existing.CategoryID = tx.CategoryID
		if updateErr := s.fixed.Update(ctx, existing); updateErr != nil {
			return nil, updateErr
		}
		if linkErr := s.linkTransaction(ctx, tx, existing.ID); linkErr != nil {
			return nil, linkErr
		}
		return existing, nil
	case errors.Is(err, repository.ErrNotFound):
		fe := &domain.FixedExpense{
			UserID:      tx.UserID,
			Description: tx.Description,
			Amount:      tx.Amount,
			CategoryID:  tx.CategoryID,
			IsActive:    true,
		}
		if createErr := s.fixed.Create(ctx, fe); createErr != nil {
			return nil, createErr
		}
		if linkErr := s.linkTransaction(ctx, tx, fe.ID); linkErr != nil {
			return nil, linkErr
		}
		return fe, nil
	default:
		return nil, err
	}
}

func (s *Service) linkTransaction(ctx context.Context, tx *domain.Transaction, fixedExpenseID int64) error {
	tx.ExpenseType = domain.ExpenseTypeFixed
	tx.FixedExpenseID = &fixedExpenseID
	return s.transactions.Update(ctx, tx)
}

// RejectSuggestion records a rejected placeholder so the same description is
// never suggested again. Idempotent: an existing row is left alone.
func (s *Service) RejectSuggestion(ctx context.Context, tx *domain.Transaction) error {
	_, err := s.fixed.FindByDescription(ctx, tx.UserID, tx.Description)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	placeholder := &domain.FixedExpense{
		UserID:      tx.UserID,
		Description: tx.Description,
		Amount:      tx.Amount,
		CategoryID:  tx.CategoryID,
		IsActive:    false,
	}

	return s.fixed.Create(ctx, placeholder)
}

// Create registers a fixed expense directly from an intent, reactivating an
// inactive row for the same description instead of duplicating it.
func (s *Service) Create(ctx context.Context, userID int64, description string, amount int64, categoryID int64, day *int) (*domain.FixedExpense, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperr.NewValidationError("empty description", "Dime el nombre del gasto fijo, por ejemplo: \"arriendo 800000\".")
	}
	if amount <= 0 {
		return nil, apperr.NewValidationError(
			fmt.Sprintf("non-positive amount %d", amount),
			"El monto debe ser mayor que cero.",
		)
	}
	if day != nil {
		if err := validateDay(*day); err != nil {
			return nil, err
		}
	}

	existing, err := s.fixed.FindByDescription(ctx, userID, description)
	switch {
	case err == nil && existing.IsActive:
		return existing, ErrAlreadyActive
	case err == nil:
		existing.IsActive = true
		existing.Amount = amount
		existing.CategoryID = categoryID
		if day != nil {
			existing.ReminderDay = day
		}
		if updateErr := s.fixed.Update(ctx, existing); updateErr != nil {
			return nil, updateErr
		}
		return existing, nil
	case errors.Is(err, repository.ErrNotFound):
		fe := &domain.FixedExpense{
			UserID:      userID,
			Description: description,
			Amount:      amount,
			CategoryID:  categoryID,
			ReminderDay: day,
			IsActive:    true,
		}
		if createErr := s.fixed.Create(ctx, fe); createErr != nil {
			return nil, createErr
		}
		return fe, nil
	default:
		return nil, err
	}
}

// List returns the user's fixed expenses in display order. Rejected
// placeholders carry no amount relevance but still appear inactive; callers
// that only want real entries filter on IsActive.
func (s *Service) List(ctx context.Context, userID int64) ([]domain.FixedExpense, error) {
	return s.fixed.ListByUser(ctx, userID, false)
}

// AtIndex resolves a 1-based index against the user's current list.
func (s *Service) AtIndex(ctx context.Context, userID int64, index int) (*domain.FixedExpense, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	if index < 1 || index > len(list) {
		return nil, ErrIndexOutOfRange
	}

	fe := list[index-1]
	return &fe, nil
}

// Pause deactivates the expense at the given index.
func (s *Service) Pause(ctx context.Context, userID int64, index int) (*domain.FixedExpense, error) {
	fe, err := s.AtIndex(ctx, userID, index)
	if err != nil {
		return nil, err
	}

	fe.IsActive = false
	if err := s.fixed.Update(ctx, fe); err != nil {
		return nil, err
	}

	return fe, nil
}

// Activate reactivates the expense at the given index.
func (s *Service) Activate(ctx context.Context, userID int64, index int) (*domain.FixedExpense, error) {
	fe, err := s.AtIndex(ctx, userID, index)
	if err != nil {
		return nil, err
	}

	fe.IsActive = true
	if err := s.fixed.Update(ctx, fe); err != nil {
		return nil, err
	}

	return fe, nil
}

// DeleteAt removes the expense at the given index entirely.
func (s *Service) DeleteAt(ctx context.Context, userID int64, index int) (*domain.FixedExpense, error) {
	fe, err := s.AtIndex(ctx, userID, index)
	if err != nil {
		return nil, err
	}

	if err := s.fixed.Delete(ctx, userID, fe.ID); err != nil {
		return nil, err
	}

	return fe, nil
}

// SetReminderDay stores the monthly reminder day for the expense.
func (s *Service) SetReminderDay(ctx context.Context, userID, fixedExpenseID int64, day int) (*domain.FixedExpense, error) {
	if err := validateDay(day); err != nil {
		return nil, err
	}

	fe, err := s.fixed.FindByID(ctx, userID, fixedExpenseID)
	if err != nil {
		return nil, err
	}

	fe.ReminderDay = &day
	if err := s.fixed.Update(ctx, fe); err != nil {
		return nil, err
	}

	return fe, nil
}

// RemoveReminder clears the reminder day, leaving the expense active.
func (s *Service) RemoveReminder(ctx context.Context, userID, fixedExpenseID int64) (*domain.FixedExpense, error) {
	fe, err := s.fixed.FindByID(ctx, userID, fixedExpenseID)
	if err != nil {
		return nil, err
	}

	fe.ReminderDay = nil
	if err := s.fixed.Update(ctx, fe); err != nil {
		return nil, err
	}

	return fe, nil
}

// UpdateAmount stores a new typical amount for the expense.
func (s *Service) UpdateAmount(ctx context.Context, userID, fixedExpenseID int64, amount int64) (*domain.FixedExpense, error) {
	if amount <= 0 {
		return nil, apperr.NewValidationError(
			fmt.Sprintf("non-positive amount %d", amount),
			"El monto debe ser mayor que cero.",
		)
	}

	fe, err := s.fixed.FindByID(ctx, userID, fixedExpenseID)
	if err != nil {
		return nil, err
	}

	fe.Amount = amount
	if err := s.fixed.Update(ctx, fe); err != nil {
		return nil, err
	}

	return fe, nil
}

func validateDay(day int) error {
	if day < 1 || day > 31 {
		return apperr.NewValidationError(
			fmt.Sprintf("day %d out of range", day),
			"El día debe estar entre 1 y 31.",
		)
	}
	return nil
}

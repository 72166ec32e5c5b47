package fixedexpense

import (
	"context"
	"log/slog"
	"time"

	"github.com/plata-bot/plata/internal/domain"
	"github.com/plata-bot/plata/internal/pending"
	"github.com/plata-bot/plata/internal/repository"
)

// DueGroup is one user's reminder bundle for the day.
type DueGroup struct {
	User  *domain.User
	Items []domain.FixedExpense
	Total int64
}

// ReminderSender delivers the consolidated reminder message for one group.
type ReminderSender func(ctx context.Context, group DueGroup) error

// BatchResult reports how a reminder batch run went.
type BatchResult struct {
	Notified int `json:"notified"`
	Errors   int `json:"errors"`
}

// Reminder runs the monthly reminder batch. It is invoked by an external
// scheduler, never self-triggered.
type Reminder struct {
	fixed   repository.FixedExpenseRepository
	users   repository.UserRepository
	pending pending.Storage
	log     *slog.Logger
}

// NewReminder constructs the batch runner.
func NewReminder(
	fixed repository.FixedExpenseRepository,
	users repository.UserRepository,
	pendingStore pending.Storage,
	log *slog.Logger,
) *Reminder {
	if log == nil {
		log = slog.Default()
	}

	return &Reminder{
		fixed:   fixed,
		users:   users,
		pending: pendingStore,
		log:     log,
	}
}

// Run fetches every active fixed expense due on day, groups them by user,
// delivers one consolidated message per user via send, and parks each user
// in the bulk-reminder pending state. A failure for one user never aborts
// the rest of the batch.
func (r *Reminder) Run(ctx context.Context, day int, send ReminderSender) (BatchResult, error) {
	var result BatchResult

	due, err := r.fixed.DueOnDay(ctx, day)
	if err != nil {
		return result, err
	}

	for _, group := range groupByUser(due) {
		user, err := r.users.FindByID(ctx, group.userID)
		if err != nil {
			r.log.Error("reminder batch: failed to load user", slog.Int64("user_id", group.userID), slog.Any("error", err))
			result.Errors++
			continue
		}

		dueGroup := DueGroup{User: user, Items: group.items, Total: group.total}
		if err := send(ctx, dueGroup); err != nil {
			r.log.Error("reminder batch: failed to notify user", slog.Int64("user_id", user.ID), slog.Any("error", err))
			result.Errors++
			continue
		}

		if err := r.pending.Set(ctx, user.Phone, pending.AwaitingBulkReminder()); err != nil {
			r.log.Error("reminder batch: failed to set pending state", slog.Int64("user_id", user.ID), slog.Any("error", err))
			result.Errors++
			continue
		}

		result.Notified++
	}

	return result, nil
}

type userGroup struct {
	userID int64
	items  []domain.FixedExpense
	total  int64
}

func groupByUser(due []domain.FixedExpense) []userGroup {
	var groups []userGroup
	index := make(map[int64]int)

	for _, fe := range due {
		i, ok := index[fe.UserID]
		if !ok {
			i = len(groups)
			index[fe.UserID] = i
			groups = append(groups, userGroup{userID: fe.UserID})
		}
		groups[i].items = append(groups[i].items, fe)
		groups[i].total += fe.Amount
	}

	return groups
}

// RegisterAll books every due fixed expense of the user as this month's
// fixed transaction. It is idempotent: an expense already referenced by a
// transaction this calendar month is skipped, so a resend or retry never
// double-books.
func (s *Service) RegisterAll(ctx context.Context, user *domain.User) (created, skipped int, err error) {
	list, err := s.fixed.ListByUser(ctx, user.ID, true)
	if err != nil {
		return 0, 0, err
	}

	now := s.now()

	for _, fe := range list {
		if fe.ReminderDay == nil {
			continue
		}

		exists, err := s.transactions.ExistsForFixedExpenseInMonth(ctx, user.ID, fe.ID, now)
		if err != nil {
			return created, skipped, err
		}
		if exists {
			skipped++
			continue
		}

		feID := fe.ID
		tx := &domain.Transaction{
			UserID:         user.ID,
			Amount:         fe.Amount,
			CategoryID:     fe.CategoryID,
			Description:    fe.Description,
			Date:           now,
			ExpenseType:    domain.ExpenseTypeFixed,
			FixedExpenseID: &feID,
			CreatedAt:      now,
		}

		if err := s.transactions.Create(ctx, tx); err != nil {
			return created, skipped, err
		}

		created++
	}

	return created, skipped, nil
}

// DayOfMonth returns the reminder day for a point in time.
func DayOfMonth(t time.Time) int {
	return t.Day()
}

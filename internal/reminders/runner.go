// Package reminders coordinates the monthly reminder batch across its two
// triggers: the scheduler HTTP endpoint and the asynq cron entry. An
// idempotency record per (date, day) guarantees that overlapping triggers
// run the batch once and share the first result.
package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/plata-bot/plata/internal/fixedexpense"
	"github.com/plata-bot/plata/internal/i18n"
	"github.com/plata-bot/plata/internal/idempotency"
	"github.com/plata-bot/plata/internal/notify"
	"github.com/plata-bot/plata/pkg/metrics"
)

const resultTTL = 20 * time.Hour

// Runner executes the batch exactly once per calendar day per target day.
type Runner struct {
	reminder *fixedexpense.Reminder
	notifier notify.Notifier
	catalogs *i18n.Manager
	idem     idempotency.Manager
	log      *slog.Logger
	now      func() time.Time
}

// NewRunner wires the batch runner.
func NewRunner(
	reminder *fixedexpense.Reminder,
	notifier notify.Notifier,
	catalogs *i18n.Manager,
	idem idempotency.Manager,
	log *slog.Logger,
) *Runner {
	if log == nil {
		log = slog.Default()
	}

	return &Runner{
		reminder: reminder,
		notifier: notifier,
		catalogs: catalogs,
		idem:     idem,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// RunToday runs the batch for the current day of month.
func (r *Runner) RunToday(ctx context.Context) (fixedexpense.BatchResult, error) {
	return r.RunDay(ctx, fixedexpense.DayOfMonth(r.now()))
}

// RunDay runs the batch for the given day of month. A second call for the
// same (date, day) returns the recorded result without re-notifying anyone.
func (r *Runner) RunDay(ctx context.Context, day int) (fixedexpense.BatchResult, error) {
	key := "reminders:" + idempotency.GenerateKey(r.now().Format("2006-01-02"), day)

	outcome, err := r.idem.Execute(ctx, key, resultTTL, func(ctx context.Context) (interface{}, error) {
		send := notify.ReminderSender(r.notifier, r.catalogs.Translator(""))
		result, err := r.reminder.Run(ctx, day, send)
		if err != nil {
			return nil, err
		}

		metrics.RemindersNotified.Add(float64(result.Notified))
		metrics.RemindersErrors.Add(float64(result.Errors))
		return result, nil
	})
	if err != nil {
		if errors.Is(err, idempotency.ErrRequestInProgress) {
			r.log.WarnContext(ctx, "reminder batch already running", "day", day)
			return fixedexpense.BatchResult{}, nil
		}
		return fixedexpense.BatchResult{}, err
	}

	return decodeResult(outcome)
}

func decodeResult(outcome *idempotency.Result) (fixedexpense.BatchResult, error) {
	if outcome == nil || outcome.Response == nil {
		return fixedexpense.BatchResult{}, nil
	}

	if direct, ok := outcome.Response.(fixedexpense.BatchResult); ok {
		return direct, nil
	}

	// Cached responses come back as generic JSON.
	raw, err := json.Marshal(outcome.Response)
	if err != nil {
		return fixedexpense.BatchResult{}, err
	}

	var result fixedexpense.BatchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return fixedexpense.BatchResult{}, err
	}
	return result, nil
}

package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/plata-bot/plata/internal/fixedexpense"
	"github.com/plata-bot/plata/internal/jobs"
	"github.com/plata-bot/plata/internal/reminders"
)

// ReminderRunHandler executes the monthly payment reminder batch. Day zero
// in the payload means "today". The runner's idempotency record keeps this
// trigger from doubling the HTTP scheduler endpoint.
type ReminderRunHandler struct {
	runner *reminders.Runner
	log    *slog.Logger
}

func NewReminderRunHandler(runner *reminders.Runner, log *slog.Logger) *ReminderRunHandler {
	if log == nil {
		log = slog.Default()
	}

	return &ReminderRunHandler{runner: runner, log: log}
}

func (h *ReminderRunHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.ReminderRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "reminder run: bad payload", "error", err)
		return nil
	}

	var (
		result fixedexpense.BatchResult
		err    error
	)
	if payload.Day > 0 {
		result, err = h.runner.RunDay(ctx, payload.Day)
	} else {
		result, err = h.runner.RunToday(ctx)
	}
	if err != nil {
		h.log.ErrorContext(ctx, "reminder run: batch failed", "day", payload.Day, "error", err)
		return nil
	}

	h.log.InfoContext(ctx, "reminder batch finished",
		"day", payload.Day, "notified", result.Notified, "errors", result.Errors)
	return nil
}

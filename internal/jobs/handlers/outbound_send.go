package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/plata-bot/plata/internal/jobs"
	"github.com/plata-bot/plata/internal/notify"
)

// OutboundSendHandler pushes a queued message to the gateway. Delivery is
// best-effort: failures are logged by the notifier and the task is never
// retried.
type OutboundSendHandler struct {
	notifier notify.Notifier
	log      *slog.Logger
}

func NewOutboundSendHandler(notifier notify.Notifier, log *slog.Logger) *OutboundSendHandler {
	if log == nil {
		log = slog.Default()
	}

	return &OutboundSendHandler{notifier: notifier, log: log}
}

func (h *OutboundSendHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.OutboundSendPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "outbound send: bad payload", "error", err)
		return nil
	}

	if payload.Phone == "" || payload.Body == "" {
		return nil
	}

	_ = h.notifier.Send(ctx, payload.Phone, payload.Body)
	return nil
}

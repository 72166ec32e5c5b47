package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/plata-bot/plata/internal/fixedexpense"
	"github.com/plata-bot/plata/internal/i18n"
	"github.com/plata-bot/plata/internal/jobs"
	"github.com/plata-bot/plata/internal/notify"
	"github.com/plata-bot/plata/internal/pending"
	"github.com/plata-bot/plata/internal/repository"
	"github.com/plata-bot/plata/internal/texts"
)

// SuggestionPromptHandler delivers the deferred "mark as fixed?" question a
// few minutes after a matching expense was registered. Every condition is
// re-checked at delivery time; if the moment has passed the task is dropped
// silently, never retried.
type SuggestionPromptHandler struct {
	fixed        *fixedexpense.Service
	transactions repository.TransactionRepository
	users        repository.UserRepository
	pendingStore pending.Storage
	notifier     notify.Notifier
	catalogs     *i18n.Manager
	log          *slog.Logger
}

func NewSuggestionPromptHandler(
	fixed *fixedexpense.Service,
	transactions repository.TransactionRepository,
	users repository.UserRepository,
	pendingStore pending.Storage,
	notifier notify.Notifier,
	catalogs *i18n.Manager,
	log *slog.Logger,
) *SuggestionPromptHandler {
	if log == nil {
		log = slog.Default()
	}

	return &SuggestionPromptHandler{
		fixed:        fixed,
		transactions: transactions,
		users:        users,
		pendingStore: pendingStore,
		notifier:     notifier,
		catalogs:     catalogs,
		log:          log,
	}
}

func (h *SuggestionPromptHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.SuggestionPromptPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "suggestion prompt: bad payload", "error", err)
		return nil
	}

	tx, err := h.transactions.FindByID(ctx, payload.UserID, payload.TransactionID)
	if err != nil {
		return nil
	}

	ok, err := h.fixed.ShouldSuggest(ctx, tx)
	if err != nil || !ok {
		return nil
	}

	user, err := h.users.FindByID(ctx, payload.UserID)
	if err != nil {
		return nil
	}

	// Never interrupt another pending exchange with a suggestion.
	current, err := h.pendingStore.Get(ctx, user.Phone)
	if err == nil && !current.IsNone() {
		return nil
	}

	tr := h.catalogs.Translator("")
	if err := h.notifier.Send(ctx, user.Phone, texts.SuggestionPrompt(tr, *tx)); err != nil {
		return nil
	}

	if err := h.pendingStore.Set(ctx, user.Phone, pending.AwaitingMarkFixedConfirm(tx.ID)); err != nil {
		h.log.ErrorContext(ctx, "suggestion prompt: set pending failed",
			"user_id", user.ID, "error", err)
	}

	return nil
}

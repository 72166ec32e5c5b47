// Package conversation routes inbound messages through the pending-action
// state machine and the intent classifier, producing exactly one primary
// reply per message. Secondary messages (alerts, broadcasts, deferred
// prompts) go through the asynq delivery queue instead.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/plata-bot/plata/internal/advice"
	"github.com/plata-bot/plata/internal/alerts"
	"github.com/plata-bot/plata/internal/apperr"
	"github.com/plata-bot/plata/internal/classifier"
	"github.com/plata-bot/plata/internal/domain"
	"github.com/plata-bot/plata/internal/fixedexpense"
	"github.com/plata-bot/plata/internal/i18n"
	"github.com/plata-bot/plata/internal/jobs"
	"github.com/plata-bot/plata/internal/ledger"
	"github.com/plata-bot/plata/internal/notify"
	"github.com/plata-bot/plata/internal/pending"
	"github.com/plata-bot/plata/internal/repository"
	"github.com/plata-bot/plata/pkg/config"
	"github.com/plata-bot/plata/pkg/metrics"
)

// Enqueuer is the slice of the jobs manager the router needs. Secondary
// deliveries and deferred prompts go through it, never through the primary
// reply path.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Router owns the per-message handling flow.
type Router struct {
	users        repository.UserRepository
	categories   repository.CategoryRepository
	budgets      repository.BudgetRepository
	transactions repository.TransactionRepository
	ledger       *ledger.Service
	fixed        *fixedexpense.Service
	alerts       *alerts.Engine
	classifier   classifier.Classifier
	advisor      advice.Advisor
	pendingStore pending.Storage
	incomeWindow *pending.IncomeWindow
	locks        *pending.Lock
	notifier     notify.Notifier
	enqueuer     Enqueuer
	catalogs     *i18n.Manager
	errs         *apperr.Handler
	bot          config.BotConfig
	log          *slog.Logger
	now          func() time.Time
}

// Deps bundles the router's collaborators.
type Deps struct {
	Users        repository.UserRepository
	Categories   repository.CategoryRepository
	Budgets      repository.BudgetRepository
	Transactions repository.TransactionRepository
	Ledger       *ledger.Service
	Fixed        *fixedexpense.Service
	Alerts       *alerts.Engine
	Classifier   classifier.Classifier
	Advisor      advice.Advisor
	PendingStore pending.Storage
	IncomeWindow *pending.IncomeWindow
	Locks        *pending.Lock
	Notifier     notify.Notifier
	Enqueuer     Enqueuer
	Catalogs     *i18n.Manager
	Errors       *apperr.Handler
	Bot          config.BotConfig
	Log          *slog.Logger
}

// NewRouter wires the handling flow.
func NewRouter(d Deps) *Router {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		users:        d.Users,
		categories:   d.Categories,
		budgets:      d.Budgets,
		transactions: d.Transactions,
		ledger:       d.Ledger,
		fixed:        d.Fixed,
		alerts:       d.Alerts,
		classifier:   d.Classifier,
		advisor:      d.Advisor,
		pendingStore: d.PendingStore,
		incomeWindow: d.IncomeWindow,
		locks:        d.Locks,
		notifier:     d.Notifier,
		enqueuer:     d.Enqueuer,
		catalogs:     d.Catalogs,
		errs:         d.Errors,
		bot:          d.Bot,
		log:          log,
		now:          time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (r *Router) WithClock(now func() time.Time) *Router {
	r.now = now
	return r
}

// Handle processes one inbound message under the per-phone lock. It always
// sends exactly one primary reply unless the message is empty or the lock
// cannot be taken; a panic anywhere below degrades to the generic reply.
func (r *Router) Handle(ctx context.Context, phone, body string) {
	start := r.now()
	status := "ok"

	defer func() {
		if rec := recover(); rec != nil {
			status = "panic"
			r.log.ErrorContext(ctx, "message handling panicked", "recover", rec)
			r.send(ctx, phone, r.tr().T("fallback.generic_error"))
		}
		metrics.RecordMessage("webhook", status, time.Since(start))
	}()

	body = strings.TrimSpace(body)
	if body == "" {
		status = "empty"
		return
	}

	release, err := r.locks.Acquire(ctx, phone)
	if err != nil {
		status = "locked"
		r.log.WarnContext(ctx, "could not acquire user lock", "error", err)
		return
	}
	defer release()

	reply := r.route(ctx, phone, body)
	if reply == "" {
		reply = r.tr().T("fallback.not_understood")
	}
	r.send(ctx, phone, reply)
}

func (r *Router) route(ctx context.Context, phone, body string) string {
	if r.bot.OperatorPhone != "" && phone == r.bot.OperatorPhone {
		if reply, handled := r.handleAdmin(ctx, body); handled {
			return reply
		}
	}

	user, err := r.users.FindByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return r.errs.Handle(ctx, err)
		}
		user = &domain.User{Phone: phone, OnboardingStep: domain.StepAwaitingName}
		if err := r.users.Create(ctx, user); err != nil {
			return r.errs.Handle(ctx, err)
		}
	}

	if !user.Onboarded() {
		return r.handleOnboarding(ctx, user, body)
	}

	if reply, handled := r.handleIncomeWindow(ctx, user, body); handled {
		return reply
	}

	action, err := r.pendingStore.Get(ctx, user.Phone)
	if err != nil && !errors.Is(err, pending.ErrNotFound) {
		r.log.ErrorContext(ctx, "pending lookup failed", "error", err)
		action = pending.None()
	}

	if !action.IsNone() {
		if reply, handled := r.handlePending(ctx, user, action, body); handled {
			return reply
		}
		// Mark-as-fixed declines fall through to classification with the
		// original message.
	}

	if normalize(body) == "ayuda" {
		return r.tr().T("help.text")
	}

	return r.dispatch(ctx, user, body)
}

func (r *Router) send(ctx context.Context, phone, text string) {
	if text == "" {
		return
	}
	_ = r.notifier.Send(ctx, phone, text)
}

// sendLater queues a secondary message through the delivery queue.
func (r *Router) sendLater(ctx context.Context, phone, text string, opts ...asynq.Option) {
	task, err := jobs.NewOutboundSendTask(phone, text)
	if err != nil {
		r.log.ErrorContext(ctx, "build outbound task failed", "error", err)
		return
	}
	if _, err := r.enqueuer.Enqueue(ctx, task, opts...); err != nil {
		r.log.ErrorContext(ctx, "enqueue outbound task failed", "error", err)
	}
}

func (r *Router) tr() i18n.Translator {
	return r.catalogs.Translator(r.bot.DefaultLanguage)
}

func (r *Router) clearPending(ctx context.Context, phone string) {
	if err := r.pendingStore.Clear(ctx, phone); err != nil {
		r.log.ErrorContext(ctx, "clear pending failed", "error", err)
	}
	metrics.RecordPendingTransition("none")
}

func (r *Router) setPending(ctx context.Context, phone string, action pending.Action) {
	if err := r.pendingStore.Set(ctx, phone, action); err != nil {
		r.log.ErrorContext(ctx, "set pending failed", "error", err)
	}
	metrics.RecordPendingTransition(string(action.Kind))
}

// normalize lowercases, trims and strips accents relevant to the yes/no and
// command vocabularies.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	replacer := strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u")
	return replacer.Replace(s)
}

var amountPattern = regexp.MustCompile(`-?\d[\d.,]*`)

// parseAmount extracts the first number in the message, tolerating currency
// signs and thousands separators.
func parseAmount(s string) (int64, bool) {
	match := amountPattern.FindString(s)
	if match == "" {
		return 0, false
	}

	cleaned := strings.NewReplacer(".", "", ",", "").Replace(match)
	value, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, false
	}

	return value, true
}

// parseNumbers extracts up to two numbers, for combined "amount and day"
// edits.
func parseNumbers(s string) []int64 {
	matches := amountPattern.FindAllString(s, 2)
	out := make([]int64, 0, len(matches))
	for _, m := range matches {
		cleaned := strings.NewReplacer(".", "", ",", "").Replace(m)
		value, err := strconv.ParseInt(cleaned, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, value)
	}
	return out
}

var affirmativeTokens = map[string]struct{}{
	"si": {}, "si claro": {}, "claro": {}, "dale": {}, "ok": {},
	"bueno": {}, "de una": {}, "yes": {}, "si por favor": {},
}

var negativeTokens = map[string]struct{}{
	"no": {}, "nop": {}, "no gracias": {}, "negativo": {}, "nel": {},
}

func isAffirmative(s string) bool {
	_, ok := affirmativeTokens[normalize(s)]
	return ok
}

func isNegative(s string) bool {
	_, ok := negativeTokens[normalize(s)]
	return ok
}

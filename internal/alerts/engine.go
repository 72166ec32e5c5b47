// Package alerts implements the budget and financial-health decision engine.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/plata-bot/plata/internal/advice"
	"github.com/plata-bot/plata/internal/domain"
	"github.com/plata-bot/plata/internal/repository"
	"github.com/plata-bot/plata/internal/texts"
)

// Health alert thresholds. The composite alert is evaluated in fixed
// priority; the first true condition wins.
const (
	budgetWarnPct      = 80
	budgetExceededPct  = 100
	overspendRatio     = 0.70
	projectionRatio    = 0.80
	concentrationRatio = 0.30
)

// HealthKind names the winning financial-health condition.
type HealthKind string

const (
	HealthOverspend     HealthKind = "overspend"
	HealthProjection    HealthKind = "projection"
	HealthConcentration HealthKind = "concentration"
)

// Engine evaluates budget thresholds and financial-health alerts.
type Engine struct {
	budgets      repository.BudgetRepository
	transactions repository.TransactionRepository
	users        repository.UserRepository
	alerts       repository.AlertRepository
	advisor      advice.Advisor
	log          *slog.Logger
	now          func() time.Time
}

// NewEngine constructs the alert engine.
func NewEngine(
	budgets repository.BudgetRepository,
	transactions repository.TransactionRepository,
	users repository.UserRepository,
	alertsRepo repository.AlertRepository,
	advisor advice.Advisor,
	log *slog.Logger,
) *Engine {
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		budgets:      budgets,
		transactions: transactions,
		users:        users,
		alerts:       alertsRepo,
		advisor:      advisor,
		log:          log,
		now:          time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// BudgetAlert returns the threshold message for the category after an
// expense write, or "" when no threshold is crossed. There is no dedup: the
// check fires on every qualifying transaction.
func (e *Engine) BudgetAlert(ctx context.Context, userID int64, category *domain.Category) (string, error) {
	budget, err := e.budgets.FindByCategory(ctx, userID, category.ID)
	if err != nil {
		if err == repository.ErrNotFound {
			return "", nil
		}
		return "", err
	}

	spent, err := e.transactions.CategoryExpensesMonth(ctx, userID, category.ID, e.now())
	if err != nil {
		return "", err
	}

	pct := budget.PercentUsed(spent)
	switch {
	case pct >= budgetExceededPct:
		return fmt.Sprintf(
			"🚨 Superaste tu presupuesto de %s: llevas %s de %s (%.0f%%).",
			category.Name, texts.Money(spent), texts.Money(budget.MonthlyLimit), pct,
		), nil
	case pct >= budgetWarnPct:
		return fmt.Sprintf(
			"⚠️ Vas en %.0f%% de tu presupuesto de %s: %s de %s.",
			pct, category.Name, texts.Money(spent), texts.Money(budget.MonthlyLimit),
		), nil
	default:
		return "", nil
	}
}

// HealthAlert evaluates the financial-health composite in fixed priority and
// returns the alert text for the winning condition, already suffixed with an
// advice tip. At most one alert per user per calendar day fires; the dedup
// table enforces it. Returns "" when nothing fires.
func (e *Engine) HealthAlert(ctx context.Context, user *domain.User) (string, error) {
	now := e.now()

	effective, err := e.EffectiveIncome(ctx, user)
	if err != nil {
		return "", err
	}

	_, mtdSpend, err := e.transactions.MonthTotals(ctx, user.ID, now)
	if err != nil {
		return "", err
	}

	kind, topic, body := e.pickHealthAlert(ctx, user, effective, mtdSpend, now)
	if kind == "" {
		return "", nil
	}

	claimed, err := e.alerts.TryClaim(ctx, user.ID, domain.AlertFinancialHealth, now)
	if err != nil {
		return "", err
	}
	if !claimed {
		// Someone already fired today's alert for this user.
		return "", nil
	}

	prompt := fmt.Sprintf(
		"Usuario con ingreso %s, meta de ahorro %s, gasto del mes %s. Alerta: %s. Da un consejo corto.",
		texts.Money(effective), texts.Money(user.SavingsGoal), texts.Money(mtdSpend), kind,
	)
	tip := e.advisor.Tip(ctx, prompt, topic)

	return body + "\n\n💡 " + tip, nil
}

// pickHealthAlert applies the priority order: overspend pace, projected
// savings shortfall, category concentration. First true condition wins.
func (e *Engine) pickHealthAlert(ctx context.Context, user *domain.User, effective, mtdSpend int64, now time.Time) (HealthKind, string, string) {
	spendingBudget := effective - user.SavingsGoal

	if spendingBudget > 0 {
		ratio := float64(mtdSpend) / float64(spendingBudget)
		if ratio > overspendRatio && ratio < 1 {
			body := fmt.Sprintf(
				"⚠️ Llevas %.0f%% de tu presupuesto de gasto del mes (%s de %s).",
				ratio*100, texts.Money(mtdSpend), texts.Money(spendingBudget),
			)
			return HealthOverspend, "", body
		}
	}

	if user.SavingsGoal > 0 && now.Day() > 0 {
		daysInMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
		projectedSpend := mtdSpend * int64(daysInMonth) / int64(now.Day())
		projectedSavings := effective - projectedSpend
		if float64(projectedSavings) < projectionRatio*float64(user.SavingsGoal) {
			body := fmt.Sprintf(
				"📉 A este ritmo cerrarías el mes ahorrando %s, por debajo de tu meta de %s.",
				texts.Money(projectedSavings), texts.Money(user.SavingsGoal),
			)
			return HealthProjection, "", body
		}
	}

	if effective > 0 {
		totals, err := e.transactions.CategoryTotalsMonth(ctx, user.ID, now)
		if err != nil {
			e.log.Error("failed to load category totals", slog.Int64("user_id", user.ID), slog.Any("error", err))
			return "", "", ""
		}

		for _, ct := range totals {
			if float64(ct.Total) > concentrationRatio*float64(effective) {
				body := fmt.Sprintf(
					"🔎 Tus gastos en %s ya van en %s, más del 30%% de tu ingreso del mes.",
					ct.CategoryName, texts.Money(ct.Total),
				)
				return HealthConcentration, ct.CategoryName, body
			}
		}
	}

	return "", "", ""
}

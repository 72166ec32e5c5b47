package alerts

import (
	"context"
	"math"
	"time"

	"github.com/plata-bot/plata/internal/domain"
	"github.com/plata-bot/plata/internal/repository"
)

// Income re-estimation eligibility thresholds.
const (
	trailingMonths    = 3
	minHistoryMonths  = 2
	reestimateMinDiff = 0.20
	promptCooldown    = 30 * 24 * time.Hour
	declinedCooldown  = 60 * 24 * time.Hour
)

// IncomeEstimate is a proposed income update.
type IncomeEstimate struct {
	Average int64
	DiffPct float64
}

// EffectiveIncome is the income figure used in financial-health math: the
// larger of declared income and the trailing average, further raised to the
// current month's income-to-date when that exceeds both.
func (e *Engine) EffectiveIncome(ctx context.Context, user *domain.User) (int64, error) {
	now := e.now()

	history, err := e.transactions.IncomeByMonth(ctx, user.ID, trailingMonths, now)
	if err != nil {
		return 0, err
	}

	effective := user.MonthlyIncome
	if avg := averageIncome(history); avg > effective {
		effective = avg
	}

	currentIncome, _, err := e.transactions.MonthTotals(ctx, user.ID, now)
	if err != nil {
		return 0, err
	}
	if currentIncome > effective {
		effective = currentIncome
	}

	return effective, nil
}

// IncomeReestimate checks whether the user should be offered an income
// update: onboarding complete, at least two trailing months with income, a
// relative difference of 20% or more, and an elapsed cooldown (60 days after
// a decline, 30 otherwise). Returns nil when not eligible.
func (e *Engine) IncomeReestimate(ctx context.Context, user *domain.User) (*IncomeEstimate, error) {
	if !user.Onboarded() {
		return nil, nil
	}

	now := e.now()

	if user.LastIncomeUpdatePromptAt != nil {
		cooldown := promptCooldown
		if user.IncomeUpdateDeclined {
			cooldown = declinedCooldown
		}
		if now.Sub(*user.LastIncomeUpdatePromptAt) < cooldown {
			return nil, nil
		}
	}

	history, err := e.transactions.IncomeByMonth(ctx, user.ID, trailingMonths, now)
	if err != nil {
		return nil, err
	}
	if len(history) < minHistoryMonths {
		return nil, nil
	}

	avg := averageIncome(history)
	if user.MonthlyIncome <= 0 {
		// Degenerate denominator: the relative difference is undefined, so
		// the guard resolves it to zero and no prompt fires.
		return nil, nil
	}

	diff := math.Abs(float64(avg-user.MonthlyIncome)) / float64(user.MonthlyIncome)
	if diff < reestimateMinDiff {
		return nil, nil
	}

	return &IncomeEstimate{Average: avg, DiffPct: diff * 100}, nil
}

// MarkIncomePrompted records that the re-estimation prompt was just sent.
func (e *Engine) MarkIncomePrompted(ctx context.Context, user *domain.User) error {
	now := e.now()
	user.LastIncomeUpdatePromptAt = &now
	return e.users.Update(ctx, user)
}

// ResolveIncomePrompt applies the user's yes/no answer: acceptance replaces
// declared income with the trailing average and resets the decline flag;
// decline sets the flag so the longer cooldown applies.
func (e *Engine) ResolveIncomePrompt(ctx context.Context, user *domain.User, accepted bool, average int64) error {
	if accepted {
		user.MonthlyIncome = average
		user.IncomeUpdateDeclined = false
	} else {
		user.IncomeUpdateDeclined = true
		now := e.now()
		user.LastIncomeUpdatePromptAt = &now
	}

	return e.users.Update(ctx, user)
}

func averageIncome(history []repository.MonthIncome) int64 {
	if len(history) == 0 {
		return 0
	}

	var sum int64
	for _, m := range history {
		sum += m.Total
	}

	return int64(math.Round(float64(sum) / float64(len(history))))
}

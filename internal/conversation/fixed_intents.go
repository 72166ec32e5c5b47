package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/plata-bot/plata/internal/classifier"
	"github.com/plata-bot/plata/internal/domain"
	"github.com/plata-bot/plata/internal/fixedexpense"
	"github.com/plata-bot/plata/internal/pending"
	"github.com/plata-bot/plata/internal/texts"
)

func (r *Router) intentAddFixedExpense(ctx context.Context, user *domain.User, result classifier.Result) string {
	tr := r.tr()

	var p classifier.FixedExpensePayload
	if !result.Decode(&p) || strings.TrimSpace(p.Description) == "" {
		return tr.T("fallback.not_understood")
	}
	if p.Amount <= 0 {
		return tr.T("fixedexpense.invalid_amount")
	}

	category, err := r.ledger.ResolveCategory(ctx, domain.CategoryExpense, p.Category)
	if err != nil {
		return r.errs.Handle(ctx, err)
	}

	var day *int
	if p.Day >= 1 && p.Day <= 31 {
		day = &p.Day
	}

	fe, err := r.fixed.Create(ctx, user.ID, p.Description, p.Amount, category.ID, day)
	if err != nil {
		if errors.Is(err, fixedexpense.ErrAlreadyActive) {
			return fmt.Sprintf(tr.T("fixedexpense.already_active"), p.Description)
		}
		return r.errs.Handle(ctx, err)
	}

	answer := fmt.Sprintf(tr.T("fixedexpense.created"), fe.Description, texts.Money(fe.Amount))
	if fe.ReminderDay != nil {
		answer += "\n" + fmt.Sprintf(tr.T("fixedexpense.reminder_set"), fe.Description, *fe.ReminderDay)
	}
	return answer
}

func (r *Router) intentListFixedExpenses(ctx context.Context, user *domain.User) string {
	items, err := r.fixed.List(ctx, user.ID)
	if err != nil {
		return r.errs.Handle(ctx, err)
	}
	return texts.FixedExpenseList(r.tr(), items)
}

// intentFixedExpenseState pauses, activates or deletes by 1-based index into
// the user's current list.
func (r *Router) intentFixedExpenseState(ctx context.Context, user *domain.User, result classifier.Result, op string) string {
	tr := r.tr()

	var p classifier.IndexPayload
	if !result.Decode(&p) || p.Index < 1 {
		return tr.T("fixedexpense.index_out_of_range")
	}

	var fe *domain.FixedExpense
	var err error
	var key string

	switch op {
	case "pause":
		fe, err = r.fixed.Pause(ctx, user.ID, p.Index)
		key = "fixedexpense.paused"
	case "activate":
		fe, err = r.fixed.Activate(ctx, user.ID, p.Index)
		key = "fixedexpense.activated"
	case "delete":
		fe, err = r.fixed.DeleteAt(ctx, user.ID, p.Index)
		key = "fixedexpense.deleted"
	}

	if err != nil {
		if errors.Is(err, fixedexpense.ErrIndexOutOfRange) {
			return tr.T("fixedexpense.index_out_of_range")
		}
		return r.errs.Handle(ctx, err)
	}
	return fmt.Sprintf(tr.T(key), fe.Description)
}

func (r *Router) intentEditFixedExpense(ctx context.Context, user *domain.User, result classifier.Result) string {
	tr := r.tr()

	fe := r.resolveFixedExpenseRef(ctx, user, result)
	if fe == nil {
		return tr.T("fixedexpense.index_out_of_range")
	}

	r.setPending(ctx, user.Phone, pending.AwaitingFixedExpenseEdit(fe.ID))
	return fmt.Sprintf(tr.T("fixedexpense.edit_prompt"), fe.Description)
}

func (r *Router) intentSetReminderDay(ctx context.Context, user *domain.User, result classifier.Result) string {
	tr := r.tr()

	var p classifier.FixedExpensePayload
	result.Decode(&p)

	fe := r.resolveFixedExpenseRef(ctx, user, result)
	if fe == nil {
		if strings.TrimSpace(p.Description) != "" {
			return fmt.Sprintf(tr.T("fixedexpense.not_found"), p.Description)
		}
		return tr.T("fixedexpense.index_out_of_range")
	}

	if p.Day >= 1 && p.Day <= 31 {
		updated, err := r.fixed.SetReminderDay(ctx, user.ID, fe.ID, p.Day)
		if err != nil {
			return r.errs.Handle(ctx, err)
		}
		return fmt.Sprintf(tr.T("fixedexpense.reminder_set"), updated.Description, p.Day)
	}

	r.setPending(ctx, user.Phone, pending.AwaitingReminderDay(fe.ID))
	return fmt.Sprintf(tr.T("fixedexpense.ask_reminder_day"), fe.Description)
}

// resolveFixedExpenseRef finds the referenced fixed expense by index or by
// description, whichever the payload carries.
func (r *Router) resolveFixedExpenseRef(ctx context.Context, user *domain.User, result classifier.Result) *domain.FixedExpense {
	var byIndex classifier.IndexPayload
	if result.Decode(&byIndex) && byIndex.Index >= 1 {
		fe, err := r.fixed.AtIndex(ctx, user.ID, byIndex.Index)
		if err == nil {
			return fe
		}
	}

	var byName classifier.FixedExpensePayload
	if result.Decode(&byName) && strings.TrimSpace(byName.Description) != "" {
		items, err := r.fixed.List(ctx, user.ID)
		if err != nil {
			return nil
		}
		want := normalize(byName.Description)
		for i := range items {
			if normalize(items[i].Description) == want {
				return &items[i]
			}
		}
	}

	return nil
}

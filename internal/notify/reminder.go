package notify

import (
	"context"

	"github.com/plata-bot/plata/internal/fixedexpense"
	"github.com/plata-bot/plata/internal/i18n"
	"github.com/plata-bot/plata/internal/texts"
)

// ReminderSender adapts a Notifier into the delivery callback the reminder
// batch expects, rendering one consolidated message per user.
func ReminderSender(n Notifier, tr i18n.Translator) fixedexpense.ReminderSender {
	return func(ctx context.Context, group fixedexpense.DueGroup) error {
		return n.Send(ctx, group.User.Phone, texts.ReminderMessage(tr, group))
	}
}

package conversation

import (
	"context"
	"fmt"
	"strings"
)

// handleAdmin serves the operator-only commands. Anything that is not a
// recognized command flows through the normal pipeline, so the operator can
// still use the bot as a regular user.
func (r *Router) handleAdmin(ctx context.Context, body string) (string, bool) {
	norm := normalize(body)

	switch {
	case norm == "ping":
		return "pong", true

	case norm == "stats":
		users, err := r.users.Count(ctx)
		if err != nil {
			return r.errs.Handle(ctx, err), true
		}
		txs, err := r.transactions.Count(ctx)
		if err != nil {
			return r.errs.Handle(ctx, err), true
		}
		return fmt.Sprintf("👥 %d usuarios · 🧾 %d movimientos", users, txs), true

	case strings.HasPrefix(norm, "broadcast "):
		text := strings.TrimSpace(body[len("broadcast "):])
		if text == "" {
			return "Uso: broadcast <mensaje>", true
		}

		phones, err := r.users.AllPhones(ctx)
		if err != nil {
			return r.errs.Handle(ctx, err), true
		}

		for _, phone := range phones {
			r.sendLater(ctx, phone, text)
		}
		return fmt.Sprintf("📣 Broadcast encolado para %d usuarios.", len(phones)), true
	}

	return "", false
}

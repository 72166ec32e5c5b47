package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// signatureHeader carries the hex HMAC-SHA256 of the raw request body,
// computed by the gateway with the shared webhook secret.
const signatureHeader = "X-Gateway-Signature"

const maxWebhookBody = 64 << 10

type webhookPayload struct {
	SenderID string `json:"senderId"`
	Body     string `json:"body"`
}

// handleWebhookMessage processes one inbound message. Once the signature
// checks out the endpoint always acknowledges 200, no matter what handling
// does: the gateway must never retry a message we already routed.
func (s *Server) handleWebhookMessage(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	if !s.validSignature(raw, r.Header.Get(signatureHeader)) {
		s.log.WarnContext(r.Context(), "webhook signature mismatch")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	ack := func() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}

	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.SenderID == "" {
		s.log.WarnContext(r.Context(), "webhook payload malformed", "error", err)
		ack()
		return
	}

	if !s.allowSender(r, payload.SenderID) {
		ack()
		return
	}

	s.router.Handle(r.Context(), payload.SenderID, payload.Body)
	ack()
}

func (s *Server) validSignature(body []byte, got string) bool {
	if got == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.cfg.Gateway.WebhookSecret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(want), []byte(got))
}

// allowSender runs the sliding-window rate limits. Throttled messages are
// dropped after the ack; the gateway is not a retry channel.
func (s *Server) allowSender(r *http.Request, phone string) bool {
	if s.limiter == nil || s.rules == nil || !s.rules.Enabled() || s.rules.IsWhitelisted(phone) {
		return true
	}

	ctx := r.Context()

	if limit, window, err := s.rules.GetGlobalLimit(); err == nil {
		result, err := s.limiter.Check(ctx, "webhook:global", limit, window)
		if err == nil && !result.Allowed {
			s.log.WarnContext(ctx, "global rate limit exceeded")
			return false
		}
	}

	limit, window, err := s.rules.GetPerSenderLimit()
	if err != nil {
		return true
	}

	result, err := s.limiter.Check(ctx, fmt.Sprintf("webhook:sender:%s", phone), limit, window)
	if err != nil {
		// Fail open: a limiter outage must not silence users.
		return true
	}
	if !result.Allowed {
		s.log.WarnContext(ctx, "sender rate limit exceeded", "phone", phone)
		return false
	}
	return true
}

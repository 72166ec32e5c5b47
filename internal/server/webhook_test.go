package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plata-bot/plata/pkg/config"
)

const testWebhookSecret = "test-webhook-secret"

func testServer() *Server {
	cfg := config.Config{}
	cfg.Gateway.WebhookSecret = testWebhookSecret
	cfg.Scheduler.Secret = "scheduler-secret"

	return New(nil, nil, nil, nil, nil, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookMessage_RejectsBadSignature(t *testing.T) {
	testCases := []struct {
		name      string
		signature string
	}{
		{name: "missing signature", signature: ""},
		{name: "wrong secret", signature: sign("stolen-secret", []byte(`{"senderId":"+57300","body":"hola"}`))},
		{name: "garbage signature", signature: "not-hex-at-all"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := testServer()

			req := httptest.NewRequest(http.MethodPost, "/webhook/messages",
				strings.NewReader(`{"senderId":"+57300","body":"hola"}`))
			if tc.signature != "" {
				req.Header.Set(signatureHeader, tc.signature)
			}
			rec := httptest.NewRecorder()

			s.handleWebhookMessage(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestWebhookMessage_AcksMalformedPayload(t *testing.T) {
	// The gateway must not retry garbage: once the signature checks out the
	// endpoint acknowledges no matter what the body holds.
	testCases := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"senderId":`},
		{name: "missing sender", body: `{"body":"hola"}`},
		{name: "empty object", body: `{}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := testServer()

			req := httptest.NewRequest(http.MethodPost, "/webhook/messages", strings.NewReader(tc.body))
			req.Header.Set(signatureHeader, sign(testWebhookSecret, []byte(tc.body)))
			rec := httptest.NewRecorder()

			s.handleWebhookMessage(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
		})
	}
}

func TestValidSignature(t *testing.T) {
	s := testServer()
	body := []byte(`{"senderId":"+57300","body":"hola"}`)

	assert.True(t, s.validSignature(body, sign(testWebhookSecret, body)))
	assert.False(t, s.validSignature(body, sign(testWebhookSecret, []byte("other body"))))
	assert.False(t, s.validSignature(body, ""))
}

func TestRemindersRun_RequiresSchedulerSecret(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodPost, "/internal/reminders/run", nil)
	req.Header.Set(schedulerSecretHeader, "wrong")
	rec := httptest.NewRecorder()

	s.handleRemindersRun(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRemindersRun_DisabledWithoutConfiguredSecret(t *testing.T) {
	s := testServer()
	s.cfg.Scheduler.Secret = ""

	// An unset secret disables the endpoint entirely instead of opening it.
	req := httptest.NewRequest(http.MethodPost, "/internal/reminders/run", nil)
	req.Header.Set(schedulerSecretHeader, "")
	rec := httptest.NewRecorder()

	s.handleRemindersRun(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

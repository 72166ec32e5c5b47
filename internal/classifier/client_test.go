package classifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plata-bot/plata/pkg/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(url string) *Client {
	return NewClient(config.ClassifierConfig{URL: url, Token: "t"}, testLogger())
}

func TestClassify_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))

		var req Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "almuerzo 25000", req.Message)
		assert.Equal(t, []string{"Mercado", "Restaurantes"}, req.ExpenseCategories)

		_ = json.NewEncoder(w).Encode(Result{
			Type: IntentRegisterTransaction,
			Data: json.RawMessage(`{"amount":25000,"category":"Restaurantes","description":"almuerzo"}`),
		})
	}))
	defer srv.Close()

	result := newTestClient(srv.URL).Classify(context.Background(), Request{
		Message:           "almuerzo 25000",
		MonthlyIncome:     800000,
		ExpenseCategories: []string{"Mercado", "Restaurantes"},
	})

	assert.Equal(t, IntentRegisterTransaction, result.Type)

	var payload TransactionPayload
	assert.True(t, result.Decode(&payload))
	assert.Equal(t, int64(25000), payload.Amount)
	assert.Equal(t, "Restaurantes", payload.Category)
}

func TestClassify_FallsBackToOther(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name:    "empty body",
			handler: func(_ http.ResponseWriter, _ *http.Request) {},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("{not json"))
			},
		},
		{
			name: "unknown intent",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"type":"made_up_intent"}`))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			result := newTestClient(srv.URL).Classify(context.Background(), Request{Message: "hola"})
			assert.Equal(t, IntentOther, result.Type)
		})
	}
}

func TestClassify_UnreachableServer(t *testing.T) {
	result := newTestClient("http://127.0.0.1:1").Classify(context.Background(), Request{Message: "hola"})
	assert.Equal(t, IntentOther, result.Type)
}

func TestResult_Decode(t *testing.T) {
	empty := Result{Type: IntentOther}
	var payload TransactionPayload
	assert.False(t, empty.Decode(&payload))

	malformed := Result{Type: IntentRegisterTransaction, Data: json.RawMessage(`{`)}
	assert.False(t, malformed.Decode(&payload))
}

func TestKnown(t *testing.T) {
	assert.True(t, Known(IntentGreeting))
	assert.True(t, Known(IntentOther))
	assert.False(t, Known(IntentTag("nope")))
}

// Package server exposes the HTTP surface: the message webhook, the
// scheduler trigger, health and metrics.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plata-bot/plata/internal/conversation"
	"github.com/plata-bot/plata/internal/health"
	"github.com/plata-bot/plata/internal/middleware"
	"github.com/plata-bot/plata/internal/ratelimit"
	"github.com/plata-bot/plata/internal/reminders"
	"github.com/plata-bot/plata/pkg/config"
	"github.com/plata-bot/plata/pkg/logger"
)

// Server bundles the HTTP handlers.
type Server struct {
	router  *conversation.Router
	runner  *reminders.Runner
	checker *health.Checker
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	cfg     config.Config
	log     *slog.Logger
}

// New wires the HTTP surface.
func New(
	router *conversation.Router,
	runner *reminders.Runner,
	checker *health.Checker,
	limiter ratelimit.Limiter,
	rules *ratelimit.Rules,
	cfg config.Config,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}

	return &Server{
		router:  router,
		runner:  runner,
		checker: checker,
		limiter: limiter,
		rules:   rules,
		cfg:     cfg,
		log:     log,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.Use(logger.Middleware)
	r.Use(middleware.New(s.log))

	webhook := r.PathPrefix("/webhook").Subrouter()
	webhook.Use(middleware.Metrics("webhook"))
	webhook.HandleFunc("/messages", s.handleWebhookMessage).Methods(http.MethodPost)

	internal := r.PathPrefix("/internal").Subrouter()
	internal.Use(middleware.Metrics("internal"))
	internal.HandleFunc("/reminders/run", s.handleRemindersRun).Methods(http.MethodPost)

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"

	"github.com/plata-bot/plata/internal/advice"
	"github.com/plata-bot/plata/internal/alerts"
	"github.com/plata-bot/plata/internal/apperr"
	"github.com/plata-bot/plata/internal/classifier"
	"github.com/plata-bot/plata/internal/conversation"
	"github.com/plata-bot/plata/internal/database"
	"github.com/plata-bot/plata/internal/fixedexpense"
	"github.com/plata-bot/plata/internal/health"
	"github.com/plata-bot/plata/internal/i18n"
	"github.com/plata-bot/plata/internal/idempotency"
	"github.com/plata-bot/plata/internal/jobs"
	"github.com/plata-bot/plata/internal/jobs/handlers"
	"github.com/plata-bot/plata/internal/ledger"
	"github.com/plata-bot/plata/internal/lifecycle"
	"github.com/plata-bot/plata/internal/notify"
	"github.com/plata-bot/plata/internal/pending"
	"github.com/plata-bot/plata/internal/ratelimit"
	"github.com/plata-bot/plata/internal/reminders"
	"github.com/plata-bot/plata/internal/repository"
	"github.com/plata-bot/plata/internal/server"
	"github.com/plata-bot/plata/pkg/config"
	"github.com/plata-bot/plata/pkg/graceful"
	"github.com/plata-bot/plata/pkg/logger"
	pkgredis "github.com/plata-bot/plata/pkg/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, _, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)

	log.Info("starting plata bot",
		"env", cfg.AppEnv, "port", cfg.Server.Port, "log_level", cfg.Logger.Level)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}

	log.Info("plata bot stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return err
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, "migrations"); err != nil {
		return err
	}

	redisClient, err := pkgredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	catalogs, err := i18n.Load(cfg.Bot.DefaultLanguage)
	if err != nil {
		return err
	}
	go func() {
		if err := catalogs.Watch(log); err != nil {
			log.Warn("i18n watcher stopped", "error", err)
		}
	}()

	// Repositories.
	users := repository.NewUserRepository(db, log)
	categories := repository.NewCategoryRepository(db, log)
	transactions := repository.NewTransactionRepository(db, log)
	fixedExpenses := repository.NewFixedExpenseRepository(db, log)
	budgets := repository.NewBudgetRepository(db, log)
	alertClaims := repository.NewAlertRepository(db, log)

	// Outbound clients.
	gateway := notify.NewGatewayClient(cfg.Gateway, log)
	notifier := notify.NewBestEffort(gateway, log)
	intents := classifier.NewClient(cfg.Classifier, log)
	advisor := advice.NewClient(cfg.Advice, log)

	// Domain services.
	ledgerSvc := ledger.NewService(transactions, categories, users, log)
	fixedSvc := fixedexpense.NewService(fixedExpenses, transactions, log)
	alertEngine := alerts.NewEngine(budgets, transactions, users, alertClaims, advisor, log)

	// Conversation state.
	pendingStore := pending.NewRedisStorage(redisClient.Client, log)
	incomeWindow := pending.NewIncomeWindow(redisClient.Client)
	locks := pending.NewLock(redisClient.Client, log)

	// Jobs.
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	queue := jobs.NewManager(redisOpt, log)
	defer queue.Close()

	// Reminder batch, shared by the scheduler endpoint and the asynq cron.
	idemStore := idempotency.NewRedisStore(redisClient.Client, log)
	idemManager := idempotency.NewManager(idemStore, log)
	batchReminder := fixedexpense.NewReminder(fixedExpenses, users, pendingStore, log)
	batchRunner := reminders.NewRunner(batchReminder, notifier, catalogs, idemManager, log)

	router := conversation.NewRouter(conversation.Deps{
		Users:        users,
		Categories:   categories,
		Budgets:      budgets,
		Transactions: transactions,
		Ledger:       ledgerSvc,
		Fixed:        fixedSvc,
		Alerts:       alertEngine,
		Classifier:   intents,
		Advisor:      advisor,
		PendingStore: pendingStore,
		IncomeWindow: incomeWindow,
		Locks:        locks,
		Notifier:     notifier,
		Enqueuer:     queue,
		Catalogs:     catalogs,
		Errors:       apperr.NewHandler(log, cfg.Sentry.Enabled),
		Bot:          cfg.Bot,
		Log:          log,
	})

	// Background worker.
	worker := jobs.NewWorker(redisOpt, cfg.Jobs.Queues, cfg.Jobs.Concurrency, log)
	worker.RegisterHandler(jobs.TaskTypeOutboundSend, handlers.NewOutboundSendHandler(notifier, log))
	worker.RegisterHandler(jobs.TaskTypeSuggestionPrompt,
		handlers.NewSuggestionPromptHandler(fixedSvc, transactions, users, pendingStore, notifier, catalogs, log))
	worker.RegisterHandler(jobs.TaskTypeReminderRun, handlers.NewReminderRunHandler(batchRunner, log))

	scheduler := jobs.NewScheduler(redisOpt, log)
	if cfg.Scheduler.Cron != "" {
		if err := scheduler.RegisterTasks(cfg.Scheduler.Cron); err != nil {
			return err
		}
	}

	// Health.
	checker := health.NewChecker(log)
	checker.AddCheck("database", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(redisClient.Client))

	// Rate limiting for the webhook. Redis is the source of truth; a Redis
	// outage degrades to per-instance in-memory limits instead of dropping
	// traffic.
	limiter := ratelimit.NewAdaptiveLimiter(
		ratelimit.NewRedisLimiter(redisClient.Client, log),
		ratelimit.NewMemoryLimiter(log),
		log,
	)
	rules := ratelimit.NewRules(cfg.RateLimit)

	go ratelimit.NewCleaner(redisClient.Client, log, time.Hour).Run(ctx)
	go idempotency.NewCleaner(redisClient.Client, log, time.Hour).Run(ctx)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.New(router, batchRunner, checker, limiter, rules, *cfg, log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	workerErr := make(chan error, 1)
	go func() { workerErr <- worker.Run() }()
	scheduler.Run()

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("worker", func(context.Context) error { worker.Shutdown(); return nil })
	shutdown.Register("scheduler", func(context.Context) error { scheduler.Shutdown(); return nil })

	srv := graceful.NewServer(log, httpServer, cfg.Server.ShutdownTimeout)
	serveErr := srv.ListenAndServe(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown reported errors", "error", err)
	}

	select {
	case err := <-workerErr:
		if err != nil {
			log.Error("worker stopped with error", "error", err)
		}
	default:
	}

	return serveErr
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	"github.com/planloop/planloop-api/internal/config"
	"github.com/planloop/planloop-api/internal/events"
	"github.com/planloop/planloop-api/internal/platform/logger"
	"github.com/planloop/planloop-api/internal/platform/postgres"
	"github.com/planloop/planloop-api/internal/push"
	"github.com/planloop/planloop-api/internal/scheduler"
	"github.com/planloop/planloop-api/internal/spawn"
	"github.com/planloop/planloop-api/internal/store"
)

// application bundles the long-lived components of the scheduler process.
type application struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB
	cron   *cron.Cron
	server *http.Server
	runner *scheduler.Runner
	subs   store.SubscriptionStore
}

// newApplication loads configuration and wires every component: database,
// migrations, stores, push dispatcher, notification runner, recurrence
// spawner and the ops HTTP surface.
func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logr := logger.Setup(cfg.Server.LogLevel)
	logr.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"timezone", cfg.Scheduler.Timezone)

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := postgres.MigrateUp(startupCtx, db); err != nil {
		return nil, err
	}

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve notification timezone: %w", err)
	}

	subStore := postgres.NewPostgresSubscriptionStore(db)
	taskStore := postgres.NewPostgresTaskStore(db)

	dispatcher := push.NewWebPushDispatcher(
		push.VAPIDConfig{
			PublicKey:  cfg.Push.VAPIDPublicKey,
			PrivateKey: cfg.Push.VAPIDPrivateKey,
			Subscriber: cfg.Push.Subscriber,
		},
		cfg.Scheduler.DispatchTimeout,
		nil,
	)

	runner := scheduler.NewRunner(
		subStore,
		dispatcher,
		scheduler.PayloadBuilder{
			IconPath:    cfg.Push.IconPath,
			TaskListURL: cfg.Push.TaskListURL,
		},
		scheduler.RunnerConfig{
			WorkerCount: cfg.Scheduler.WorkerCount,
			Location:    loc,
		},
		logr,
	)

	spawner := spawn.NewSpawner(taskStore, logr)
	emitter := events.NewInMemoryEventEmitter(logr)
	emitter.RegisterHandler(spawn.NewCompletionEventHandler(spawner, logr))

	app := &application{
		cfg:    cfg,
		logger: logr,
		db:     db,
		cron:   cron.New(),
		runner: runner,
		subs:   subStore,
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newRouter(app, emitter),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if _, err := app.cron.AddFunc("* * * * *", app.tick); err != nil {
		return nil, fmt.Errorf("failed to register tick schedule: %w", err)
	}

	return app, nil
}

// openDatabase opens and verifies the database connection.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Start launches the tick schedule and the ops HTTP listener.
func (a *application) Start() {
	a.cron.Start()
	a.logger.Info("notification tick schedule started", "schedule", "* * * * *")

	go func() {
		a.logger.Info("ops server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("ops server failed", "error", err)
		}
	}()
}

// Shutdown stops the tick schedule, waits for any in-flight tick, closes
// the HTTP listener and releases the database.
func (a *application) Shutdown() {
	a.logger.Info("shutting down")

	// Stop returns a context that is done once in-flight jobs finish.
	<-a.cron.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("ops server shutdown failed", "error", err)
	}

	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", "error", err)
	}

	a.logger.Info("shutdown complete")
}

// tick runs one scheduler invocation. Each tick gets its own bounded
// context and a tick-scoped logger carried through for store and dispatch
// logging.
func (a *application) tick() {
	now := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Scheduler.TickTimeout)
	defer cancel()
	ctx = logger.WithLogger(ctx, a.logger.With("tick_at", now.Format(time.RFC3339)))

	if err := a.runner.RunTick(ctx, now); err != nil {
		a.logger.Error("notification tick failed", "error", err)
	}
}

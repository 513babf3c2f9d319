// Package main is the entrypoint for the printwatch daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/printwatch/internal/api"
	"github.com/kiranshivaraju/printwatch/internal/api/handler"
	mw "github.com/kiranshivaraju/printwatch/internal/api/middleware"
	"github.com/kiranshivaraju/printwatch/internal/cache"
	"github.com/kiranshivaraju/printwatch/internal/config"
	"github.com/kiranshivaraju/printwatch/internal/leds"
	"github.com/kiranshivaraju/printwatch/internal/monitor"
	"github.com/kiranshivaraju/printwatch/internal/notify"
	"github.com/kiranshivaraju/printwatch/internal/printer"
	"github.com/kiranshivaraju/printwatch/internal/retention"
	"github.com/kiranshivaraju/printwatch/internal/store"
	"github.com/kiranshivaraju/printwatch/pkg/models"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	shutdownTimeout = 30 * time.Second
	logMaxSizeMB    = 10
	logMaxBackups   = 10
	adminKeyName    = "admin"
	requestsPerMin  = 60
)

func main() {
	// The logger is built before config.Load so config errors are logged too.
	logger, closer := newLogger(os.Stdout, os.Getenv("PRINTWATCH_LOG_FILE"))
	slog.SetDefault(logger)

	err := run()
	if closer != nil {
		closer.Close()
	}
	if err != nil {
		slog.Error("printwatch failed", "error", err)
		os.Exit(1)
	}
}

// newLogger builds the JSON logger. When logFile is set, output is also
// written to a rotating file and the returned closer must be closed on exit.
func newLogger(stdout io.Writer, logFile string) (*slog.Logger, io.Closer) {
	var out io.Writer = stdout
	var closer io.Closer
	if logFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			LocalTime:  true,
		}
		out = io.MultiWriter(stdout, rotating)
		closer = rotating
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})), closer
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"printer_host", cfg.Printer.Host,
		"poll_interval", cfg.Monitor.Interval,
		"email_enabled", cfg.Email.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	pgStore := store.NewPostgresStore(pool)

	if err := bootstrapAdminKey(ctx, pgStore, cfg.Server.AdminKey); err != nil {
		return fmt.Errorf("bootstrap admin key: %w", err)
	}

	// 5. Printer, LEDs and notifications
	client := printer.NewHTTPClient(cfg.Printer.Host, cfg.Printer.APIID, cfg.Printer.APIKey, cfg.Printer.Timeout)

	colors, err := leds.DefaultStatusColors()
	if err != nil {
		return fmt.Errorf("build status colors: %w", err)
	}
	indicator := leds.NewIndicator(client, colors)

	footer, err := loadFooter(cfg.Email.FooterFile)
	if err != nil {
		return fmt.Errorf("load email footer: %w", err)
	}

	var sender notify.Sender = notify.LogSender{}
	if cfg.Email.Enabled {
		mailer, err := notify.NewSMTPMailer(cfg.Email)
		if err != nil {
			return fmt.Errorf("create mailer: %w", err)
		}
		sender = mailer
	}

	// 6. Start the poll loop
	mon := monitor.New(client, indicator, sender, pgStore, redisCache, monitor.Options{
		Interval:      cfg.Monitor.Interval,
		TempSamples:   cfg.Monitor.TempSamples,
		CameraEnabled: cfg.Printer.CameraEnabled,
		Footer:        footer,
	})

	monitorDone := make(chan error, 1)
	go func() {
		monitorDone <- mon.Run(ctx)
	}()

	// 7. Retention
	janitor := retention.New(pgStore, cfg.Retention.Days)
	if err := janitor.Start(); err != nil {
		return fmt.Errorf("start retention: %w", err)
	}
	defer janitor.Stop()

	// 8. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, requestsPerMin),

		HealthHandler: handler.NewHealthHandler(map[string]handler.Pinger{
			"database": pgStore,
			"cache":    redisCache,
		}),
		StatusHandler:           handler.NewStatusHandler(redisCache),
		ListJobsHandler:         handler.NewListJobsHandler(pgStore),
		GetJobHandler:           handler.NewGetJobHandler(pgStore),
		JobMetricsHandler:       handler.NewJobMetricsHandler(pgStore),
		JobNotificationsHandler: handler.NewJobNotificationsHandler(pgStore),
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	monitorStopped := false
	select {
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
		stop()
	case err := <-monitorDone:
		runErr = err
		monitorStopped = true
		stop()
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("server shutdown: %w", err))
	}

	// The store and cache close on return; let an in-flight cycle finish first.
	if !monitorStopped {
		if err := waitMonitor(shutdownCtx, monitorDone); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}

	slog.Info("printwatch stopped gracefully")
	return runErr
}

// waitMonitor blocks until the poll loop returns or ctx expires.
func waitMonitor(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("monitor did not stop: %w", ctx.Err())
	}
}

// keyCreator is the store subset needed to seed the admin API key.
type keyCreator interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
}

// bootstrapAdminKey stores rawKey as an admin-scoped API key. An empty key is
// a no-op; an existing admin key is left untouched.
func bootstrapAdminKey(ctx context.Context, s keyCreator, rawKey string) error {
	if rawKey == "" {
		return nil
	}
	if len(rawKey) < mw.KeyPrefixLen {
		return fmt.Errorf("PRINTWATCH_ADMIN_KEY must be at least %d characters", mw.KeyPrefixLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin key: %w", err)
	}

	key := &models.APIKey{
		Name:      adminKeyName,
		KeyHash:   string(hash),
		KeyPrefix: rawKey[:mw.KeyPrefixLen],
		Scopes:    []string{mw.ScopeAdmin},
	}
	err = s.CreateAPIKey(ctx, key)
	if errors.Is(err, store.ErrDuplicateKey) {
		slog.Info("admin api key already present")
		return nil
	}
	if err != nil {
		return err
	}
	slog.Info("admin api key created", "key_prefix", key.KeyPrefix)
	return nil
}

// loadFooter reads the email footer. No path means no footer; a missing file
// is logged and treated the same way.
func loadFooter(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("email footer file not found", "path", path)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

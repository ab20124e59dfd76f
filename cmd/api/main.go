// Package main is the entrypoint for the visit tracking API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/visitrack/visitrack/internal/cache"
	"github.com/visitrack/visitrack/internal/config"
	"github.com/visitrack/visitrack/internal/handler"
	"github.com/visitrack/visitrack/internal/metrics"
	"github.com/visitrack/visitrack/internal/notify"
	"github.com/visitrack/visitrack/internal/repository"
	"github.com/visitrack/visitrack/internal/repository/sqlite"
	"github.com/visitrack/visitrack/internal/server"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewPrometheus(reg)
	if err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Event store
	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error(
			"failed to open event store",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("event store ready", "backend", store.backend)

	// Cache is optional; without it click notifications are not throttled.
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL, cfg.SecretKey)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			_ = store.close()
			os.Exit(1)
		}
		logger.Info("connected to Redis")
	}

	// Notifications
	notifier, err := newNotifier(cfg, logger, recorder)
	if err != nil {
		logger.Error("invalid mail configuration", "error", err)
		_ = store.close()
		os.Exit(1)
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.Mail.Timeout, logger)

	// Handlers
	visitHandler := handler.NewVisitHandler(store.VisitStore, cfg.StoreTimeout, recorder, logger)
	if cfg.NotifyOnVisit {
		visitHandler.WithVisitNotifications(dispatcher)
	}
	notifyHandler := handler.NewNotifyHandler(notifier, cfg.Mail.Timeout, recorder, logger)
	redisDep := handler.Dependency{Name: "redis"}
	if cacheClient != nil {
		notifyHandler.WithThrottle(cacheClient, cfg.NotifyRatePerMinute, cfg.NotifyBurst)
		redisDep.Checker = cacheClient
	}
	healthHandler := handler.NewHealthHandler(logger,
		handler.Dependency{Name: store.backend, Checker: store.HealthChecker},
		redisDep,
	)

	router := handler.NewRouter(handler.RouterConfig{
		Visits:             visitHandler,
		Notify:             notifyHandler,
		Health:             healthHandler,
		Metrics:            promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AllowedOrigin:      cfg.FrontendURL,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
		IsDevelopment:      cfg.IsDevelopment(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		Logger:             logger,
	})

	srv := server.New(router, cfg, logger)

	// Stopped in reverse: dispatcher drains first, then cache, then store.
	srv.OnShutdown("store", func(context.Context) error { return store.close() })
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error { return cacheClient.Close() })
	}
	srv.OnShutdown("notification dispatcher", dispatcher.Shutdown)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store", store.backend,
		"frontend_url", cfg.FrontendURL,
		"notify_on_visit", cfg.NotifyOnVisit,
		"mail", notifier.Transport(),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// eventStore bundles the selected backend with its lifecycle hooks.
type eventStore struct {
	handler.VisitStore
	handler.HealthChecker
	backend string
	close   func() error
}

// openStore selects the backend from the DATABASE_URL scheme.
// Postgres schemas are migrated before use; SQLite creates its own.
func openStore(ctx context.Context, cfg *config.Config) (*eventStore, error) {
	if cfg.UsesSQLite() {
		s, err := sqlite.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &eventStore{VisitStore: s, HealthChecker: s, backend: "sqlite", close: s.Close}, nil
	}

	if err := repository.Migrate(ctx, cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &eventStore{
		VisitStore:    repository.NewVisitRepository(repo),
		HealthChecker: repo,
		backend:       "postgres",
		close: func() error {
			repo.Close()
			return nil
		},
	}, nil
}

// newNotifier builds the admin notifier. The SMTP transport is only
// constructed when there is someone to send to and something to send from.
func newNotifier(cfg *config.Config, logger *slog.Logger, recorder metrics.Recorder) (*notify.Notifier, error) {
	var sender notify.Sender
	if cfg.AdminEmail != "" && cfg.Mail.Sender() != "" && !cfg.Mail.SuppressSend {
		smtpSender, err := notify.NewSMTPSender(cfg.Mail)
		if err != nil {
			return nil, err
		}
		sender = smtpSender
	}
	return notify.New(sender, cfg.Mail, cfg.AdminEmail, logger, recorder), nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

// redactURL drops the password from a connection URL.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		if username := parsed.User.Username(); username != "" {
			parsed.User = url.User(username)
		} else {
			parsed.User = url.User("redacted")
		}
	}

	return parsed.String()
}

// sanitizeError replaces every secret URL in err with its redacted form.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"Linkgrab/internal/api/middleware"
	"Linkgrab/internal/api/routes"
	"Linkgrab/internal/core/download"
	"Linkgrab/internal/core/linkcache"
	"Linkgrab/internal/core/resolver"
	"Linkgrab/internal/core/usage"
	"Linkgrab/internal/core/ytdlp"
	postgresRepo "Linkgrab/internal/db/postgres"
	"Linkgrab/internal/metrics"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("LOG_LEVEL")),
	})))

	if err := run(); err != nil {
		slog.Error("[SERVER] fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Usage counters live in Postgres when DATABASE_URL is set, in memory otherwise.
	var (
		db        *sql.DB
		usageRepo usage.Repository
	)
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		var err error
		db, err = openDatabase(ctx, dbURL)
		if err != nil {
			return err
		}
		defer db.Close()
		usageRepo = postgresRepo.NewUsageRepository(db)
	} else {
		slog.Warn("[SERVER] DATABASE_URL not set, usage counters are kept in memory")
		usageRepo = usage.NewMemoryRepository()
	}
	usageService, err := usage.NewService(usageRepo)
	if err != nil {
		return err
	}

	cacheCfg := linkcache.ConfigFromEnv()
	linkCache, err := linkcache.New(ctx, cacheCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := linkCache.Close(); err != nil {
			slog.Warn("[SERVER] failed to close link cache", "error", err)
		}
	}()

	// The extraction tool is optional: without it YouTube reports itself unavailable
	// and Meta resolves from the page only.
	var extractor resolver.MetadataExtractor
	ytdlpCfg := ytdlp.ConfigFromEnv()
	ytdlpClient, err := ytdlp.NewClient(ytdlpCfg)
	switch {
	case err != nil:
		slog.Warn("[SERVER] metadata extractor disabled", "error", err)
	default:
		if _, lookErr := exec.LookPath(ytdlpCfg.Binary); lookErr != nil {
			slog.Warn("[SERVER] metadata extractor binary not found, disabled",
				"binary", ytdlpCfg.Binary,
				"error", lookErr,
			)
			break
		}
		extractor = ytdlpClient
	}

	resolverCfg := resolver.ConfigFromEnv()
	if err := resolverCfg.Validate(); err != nil {
		return err
	}
	dispatcher, err := resolver.NewDispatcher(
		linkCache,
		resolver.DefaultStrategies(resolverCfg, resolver.NewHTTPClient(resolverCfg.HTTPTimeout), extractor),
		resolver.WithRecorder(m),
		resolver.WithCircuitBreaker(resolverCfg.CircuitThreshold, resolverCfg.CircuitOpenDuration),
	)
	if err != nil {
		return err
	}

	proxy, err := download.NewProxy(download.ConfigFromEnv(), download.WithRecorder(m))
	if err != nil {
		return err
	}

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	sessions, err := middleware.NewSessions(secret, os.Getenv("SESSION_SECURE_COOKIE") != "false")
	if err != nil {
		return err
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	var pinger routes.Pinger
	if db != nil {
		pinger = db
	}
	routes.RegisterSystemRoutes(r, dispatcher, pinger, m.Handler())

	rateLimiter := middleware.NewRateLimiter(intFromEnv("RATE_LIMIT_PER_MINUTE", 60), time.Minute)
	r.Group(func(api chi.Router) {
		api.Use(rateLimiter.Middleware)
		api.Use(sessions.Middleware)

		routes.RegisterResolveRoutes(api, dispatcher, usageService)
		routes.RegisterDownloadRoutes(api, proxy, usageService)
		routes.RegisterUsageRoutes(api, usageService)
	})

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("[SERVER] listening",
			"port", port,
			"services", dispatcher.Services(),
			"extractor", extractor != nil,
			"redis", cacheCfg.RedisURL != "",
			"postgres", db != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("[SERVER] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openDatabase(ctx context.Context, dbURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("[SERVER] connected to database")

	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, err
	}
	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "internal/db/migrations"
	}
	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("[SERVER] migrations completed", "dir", migrationsDir)
	return db, nil
}

func logLevel(v string) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func intFromEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("[SERVER] invalid integer value, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pvportal/pvportal/internal/config"
	"github.com/pvportal/pvportal/internal/domain/admin"
	"github.com/pvportal/pvportal/internal/domain/audit"
	"github.com/pvportal/pvportal/internal/domain/notification"
	"github.com/pvportal/pvportal/internal/domain/report"
	"github.com/pvportal/pvportal/internal/domain/settings"
	"github.com/pvportal/pvportal/internal/platform/auth"
	"github.com/pvportal/pvportal/internal/platform/db"
	"github.com/pvportal/pvportal/internal/platform/middleware"
	"github.com/pvportal/pvportal/internal/platform/ratelimit"
	"github.com/pvportal/pvportal/internal/platform/telemetry"
	"github.com/pvportal/pvportal/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pv-server",
		Short: "Pharmacovigilance report review API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(settingsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// connect loads config and opens the pool for the one-shot subcommands.
func connect(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			ctx := context.Background()
			pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrations.FS)
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", db.DefaultSchema, "Target schema for migrations")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			ctx := context.Background()
			pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", db.DefaultSchema, "Target schema for migrations")
	cmd.AddCommand(statusCmd)

	return cmd
}

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect system settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective system settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := settings.NewService(settings.NewRepo(pool), zerolog.New(os.Stderr))
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(svc.Current(ctx))
		},
	})
	return cmd
}

// services are the domain services the router mounts.
type services struct {
	settings      *settings.Service
	admins        *admin.Service
	notifications *notification.Service
	reports       *report.Service
}

func newServices(pool *pgxpool.Pool, logger zerolog.Logger) *services {
	settingsSvc := settings.NewService(settings.NewRepo(pool), logger)
	notifySvc := notification.NewService(notification.NewRepo(pool), settingsSvc, logger)
	return &services{
		settings:      settingsSvc,
		admins:        admin.NewService(admin.NewRepo(pool), logger),
		notifications: notifySvc,
		reports: report.NewService(report.NewRepo(pool),
			audit.NewLogger(audit.NewRepo(pool), logger), notifySvc, logger),
	}
}

// newVerifier builds the token verifier. A development config without any key
// source gets one that rejects every token, so admin endpoints answer 401.
func newVerifier(cfg *config.Config, logger zerolog.Logger) (auth.Verifier, error) {
	if cfg.IsDev() && !cfg.HasAuthSource() {
		logger.Warn().Msg("no AUTH_SIGNING_KEY, AUTH_JWKS_URL or AUTH_ISSUER configured; admin endpoints will reject every token")
		return auth.DenyAll(), nil
	}
	return auth.NewTokenVerifier(verifierConfig(cfg))
}

func verifierConfig(cfg *config.Config) auth.VerifierConfig {
	vc := auth.VerifierConfig{
		JWKSURL:  cfg.AuthJWKSURL,
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
	}
	if cfg.AuthSigningKey != "" {
		vc.SigningKey = []byte(cfg.AuthSigningKey)
	}
	return vc
}

func telemetryConfig(cfg *config.Config) telemetry.Config {
	return telemetry.Config{
		ServiceName: cfg.OTELServiceName,
		Environment: cfg.Env,
		Endpoint:    cfg.OTELEndpoint,
		Headers:     cfg.OTELHeaders,
		Insecure:    cfg.OTELInsecure,
		Required:    cfg.OTELRequired,
		Sampler:     cfg.OTELSampler,
		SamplerArg:  cfg.OTELSamplerArg,
	}
}

// newLimiter returns the Redis-backed limiter when redisURL is set so every
// instance shares one window, otherwise a process-local one. The returned
// close func is never nil.
func newLimiter(redisURL string, logger zerolog.Logger) (ratelimit.Limiter, func() error, error) {
	if redisURL == "" {
		return ratelimit.NewInMemory(), func() error { return nil }, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	return ratelimit.NewRedis(client, logger), client.Close, nil
}

type routerConfig struct {
	corsOrigins []string
	bodyLimit   string
	serviceName string
	intake      middleware.IntakeRateLimitConfig
	poolStats   func() *db.PoolStats
}

func newRouter(rc routerConfig, svc *services, evaluator *auth.Evaluator, limiter ratelimit.Limiter, health db.Pinger, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(telemetry.Middleware(rc.serviceName))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(rc.bodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: rc.corsOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, middleware.ClientIDHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(health, rc.poolStats))

	apiV1 := e.Group("/api/v1")

	reportHandler := report.NewHandler(svc.reports)
	reportHandler.RegisterIntake(apiV1, middleware.IntakeRateLimit(limiter, rc.intake, logger))

	adminAPI := apiV1.Group("/admin", evaluator.Middleware())
	requireMFA := evaluator.RequireMFA()
	reportHandler.RegisterRoutes(adminAPI, requireMFA)
	settings.NewHandler(svc.settings).RegisterRoutes(adminAPI, requireMFA)
	admin.NewHandler(svc.admins).RegisterRoutes(adminAPI, requireMFA)
	notification.NewHandler(svc.notifications).RegisterRoutes(adminAPI)

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.Init(ctx, telemetryConfig(cfg), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	limiter, closeLimiter, err := newLimiter(cfg.RedisURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure rate limiter")
	}
	defer closeLimiter()

	svc := newServices(pool, logger)
	if cfg.ReportAtomicUpdates {
		svc.reports.UseTransactions(pool)
		logger.Info().Msg("report updates run in a single transaction")
	}
	if len(cfg.KafkaBrokers) > 0 {
		pub, err := notification.NewKafkaPublisher(notification.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaNotifyTopic,
			Logger:  logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure kafka publisher")
		}
		defer pub.Close()
		svc.notifications.SetPublisher(pub)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaNotifyTopic).Msg("publishing notifications to kafka")
	}

	verifier, err := newVerifier(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure token verification")
	}
	evaluator := auth.NewEvaluator(verifier, svc.settings, svc.admins)
	evaluator.SetLogger(logger)

	e := newRouter(routerConfig{
		corsOrigins: cfg.CORSOrigins,
		bodyLimit:   cfg.BodyLimit,
		serviceName: cfg.OTELServiceName,
		intake: middleware.IntakeRateLimitConfig{
			Limit:  cfg.IntakeRateLimit,
			Window: cfg.IntakeRateWindow(),
		},
		poolStats: func() *db.PoolStats { return db.GetPoolStats(pool) },
	}, svc, evaluator, limiter, pool, logger)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// Package main is the entrypoint for the GAM access API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/gamaccess/gamaccess/internal/audit"
	"github.com/gamaccess/gamaccess/internal/cache"
	"github.com/gamaccess/gamaccess/internal/config"
	"github.com/gamaccess/gamaccess/internal/gam"
	"github.com/gamaccess/gamaccess/internal/handler"
	"github.com/gamaccess/gamaccess/internal/metrics"
	"github.com/gamaccess/gamaccess/internal/middleware"
	"github.com/gamaccess/gamaccess/internal/reporting"
	"github.com/gamaccess/gamaccess/internal/repository"
	"github.com/gamaccess/gamaccess/internal/server"
	"github.com/gamaccess/gamaccess/internal/service"
)

const version = "1.0.0"

func main() {
	ctx := context.Background()

	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	recorder := metrics.NewInMemory()

	gamClient, err := gam.NewClient(gam.Config{
		KeyFile:         cfg.GAMKeyFile,
		ApplicationName: cfg.GAMApplicationName,
		APIVersion:      cfg.GAMAPIVersion,
		Metrics:         recorder,
	})
	if err != nil {
		logger.Error("failed to build GAM client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defaultNetworks := cfg.GetDefaultNetworks()

	auditPublisher := audit.NewPublisher(cacheClient.Client(), logger, recorder)
	auditWorker := audit.NewWorker(cacheClient.Client(), repo, logger, recorder)

	granter := service.NewAccessGranter(
		&gamUserServiceFactory{client: gamClient},
		defaultNetworks,
		logger,
		recorder,
		auditPublisher,
	)
	lister := service.NewNetworkLister(gamClient.Networks(), cfg.NetworkCacheTTL, logger, recorder)
	reports := service.NewReports(buildReportSource(cfg, gamClient, defaultNetworks, logger), logger, recorder, nil)

	infoHandler := handler.NewInfoHandler(handler.ServiceInfo{Service: "gamaccess", Version: version})
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	grantHandler := handler.NewGrantHandler(logger, granter)
	networkHandler := handler.NewNetworkHandler(logger, lister)
	reportHandler := handler.NewReportHandler(logger, reports)
	apiKeyHandler := handler.NewAPIKeyHandler(logger, repo)
	grantEventHandler := handler.NewGrantEventHandler(logger, repo)
	metricsHandler := handler.NewMetricsHandler(recorder)

	r := setupRouter(routerDeps{
		info:        infoHandler,
		health:      healthHandler,
		grant:       grantHandler,
		networks:    networkHandler,
		reports:     reportHandler,
		apiKeys:     apiKeyHandler,
		grantEvents: grantEventHandler,
		metrics:     metricsHandler,
		repo:        repo,
		cache:       cacheClient,
		cfg:         cfg,
		logger:      logger,
	})

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	workerCtx, workerCancel := context.WithCancel(ctx)
	go func() {
		if err := auditWorker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("audit worker stopped", slog.String("error", err.Error()))
		}
	}()
	srv.OnShutdown("audit_worker", func(ctx context.Context) error {
		workerCancel()
		return auditWorker.Shutdown(ctx)
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"report_source", cfg.ReportSource,
		"default_networks", len(defaultNetworks),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// gamUserServiceFactory derives network-scoped user services from the
// shared GAM client.
type gamUserServiceFactory struct {
	client *gam.Client
}

func (f *gamUserServiceFactory) UserService(networkCode string) (gam.UserService, error) {
	return f.client.WithNetwork(networkCode).Users(), nil
}

// buildReportSource selects the reporting backend. "static" serves
// deterministic data for development and demos.
func buildReportSource(cfg *config.Config, client *gam.Client, defaultNetworks []string, logger *slog.Logger) reporting.Source {
	if cfg.ReportSource == "static" {
		logger.Warn("serving static report data", "report_source", cfg.ReportSource)
		return reporting.NewStatic()
	}

	defaultNetwork := ""
	if len(defaultNetworks) > 0 {
		defaultNetwork = defaultNetworks[0]
	}

	return reporting.NewGAM(func(networkCode string) gam.ReportService {
		return client.WithNetwork(networkCode).Reports()
	}, defaultNetwork)
}

// initLogger initializes slog from configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routerDeps struct {
	info        *handler.InfoHandler
	health      *handler.HealthHandler
	grant       *handler.GrantHandler
	networks    *handler.NetworkHandler
	reports     *handler.ReportHandler
	apiKeys     *handler.APIKeyHandler
	grantEvents *handler.GrantEventHandler
	metrics     *handler.MetricsHandler
	repo        *repository.Repository
	cache       *cache.Cache
	cfg         *config.Config
	logger      *slog.Logger
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Recoverer(d.logger))

	securityCfg := middleware.DefaultSecurityConfig()
	securityCfg.IsDevelopment = d.cfg.IsDevelopment()
	securityCfg.MaxRequestBodySize = d.cfg.MaxRequestBodySize
	r.Use(middleware.Security(securityCfg))
	r.Use(middleware.MaxBodySize(securityCfg.MaxRequestBodySize))

	if origins := d.cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg := middleware.DefaultCORSConfig()
		corsCfg.AllowedOrigins = origins
		r.Use(middleware.CORS(corsCfg))
	}

	// Probes and root info, unauthenticated.
	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	r.Get("/", d.info.Root)

	authCfg := middleware.AuthConfig{
		Logger:     d.logger,
		Repository: d.repo,
		Cache:      d.cache,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:       d.logger,
		Cache:        d.cache,
		APIEnabled:   d.cfg.RateLimitAPIEnabled,
		GrantEnabled: d.cfg.RateLimitGrantEnabled,
		GrantRPS:     d.cfg.RateLimitGrantRPS,
		GrantBurst:   d.cfg.RateLimitGrantBurst,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))
		r.Use(middleware.RateLimitAPI(rateLimitCfg))

		r.With(middleware.RequireGrant(), middleware.RateLimitGrant(rateLimitCfg)).
			Post("/grant-access", d.grant.GrantAccess)

		r.With(middleware.RequireRead()).Get("/networks", d.networks.ListNetworks)

		r.Route("/reports", func(r chi.Router) {
			r.Use(middleware.RequireRead())
			r.Get("/summary", d.reports.Summary)
			r.Get("/locations", d.reports.Locations)
			r.Get("/timeseries", d.reports.Timeseries)
		})

		r.With(middleware.RequireAdmin()).Get("/grant-events", d.grantEvents.ListGrantEvents)

		r.Route("/api-keys", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())
			r.Get("/", d.apiKeys.ListAPIKeys)
			r.Post("/", d.apiKeys.CreateAPIKey)
			r.Delete("/{key_id}", d.apiKeys.RevokeAPIKey)
		})
	})

	// Metrics snapshot for development; production scraping goes
	// through the platform's sidecar instead.
	if d.cfg.IsDevelopment() {
		r.Get("/internal/metrics", d.metrics.Metrics)
	}

	r.NotFound(d.info.NotFound)
	r.MethodNotAllowed(d.info.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

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

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/portal/gateway/internal/config"
	"github.com/portal/gateway/internal/domain/healthcheck"
	"github.com/portal/gateway/internal/platform/auth"
	"github.com/portal/gateway/internal/platform/db"
	"github.com/portal/gateway/internal/platform/envelope"
	"github.com/portal/gateway/internal/platform/lock"
	"github.com/portal/gateway/internal/platform/middleware"
	"github.com/portal/gateway/internal/platform/systems"
)

// app holds the wired services and the resources that must be released on
// shutdown.
type app struct {
	campaigns *healthcheck.CampaignService
	results   *healthcheck.ResultService
	sync      *healthcheck.SyncService
	prober    *systems.Prober
	checks    []db.Check
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type repositories struct {
	campaigns healthcheck.CampaignRepository
	results   healthcheck.ResultRepository
	syncLogs  healthcheck.SyncLogRepository
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{}

	repos, err := a.openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.RedisURL != "" {
		rc, err := lock.Connect(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rc.Close() })
		a.checks = append(a.checks, redisCheck(rc))
		locker = lock.NewRedisLocker(rc, lock.DefaultRedisConfig())
		logger.Info().Msg("using redis campaign locks")
	}

	hr := systems.NewHRClient(systems.Endpoint{
		Name:       "hr",
		BaseURL:    cfg.HRAPIURL,
		Token:      cfg.HRThirdPartyToken,
		HealthPath: "/actuator/health",
	}, cfg.UpstreamTimeout, nil)
	hospital := systems.NewHospitalClient(systems.Endpoint{
		Name:        "hospital",
		BaseURL:     cfg.HospitalAPIURL,
		BearerToken: cfg.HospitalJWTToken,
		HealthPath:  "/api/health",
	}, cfg.UpstreamTimeout, nil)

	a.campaigns = healthcheck.NewCampaignService(repos.campaigns, hr, locker)
	a.results = healthcheck.NewResultService(repos.results, repos.campaigns)
	ledger := healthcheck.NewLedger(repos.syncLogs)
	a.sync = healthcheck.NewSyncService(a.campaigns, a.results, ledger, hr, hospital, logger)

	a.prober = systems.NewProber(cfg.UpstreamTimeout,
		systems.Endpoint{Name: "hr", BaseURL: cfg.HRAPIURL, HealthPath: "/actuator/health"},
		systems.Endpoint{Name: "hospital", BaseURL: cfg.HospitalAPIURL, HealthPath: "/api/health"},
		systems.Endpoint{Name: "hotel", BaseURL: cfg.HotelAPIURL, HealthPath: "/api/health"},
	)
	return a, nil
}

// openStore connects the configured backend and registers its health check
// and shutdown hook.
func (a *app) openStore(ctx context.Context, cfg *config.Config) (repositories, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, poolOptions(cfg))
		if err != nil {
			return repositories{}, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		a.checks = append(a.checks, db.PostgresCheck(pool))
		return repositories{
			campaigns: healthcheck.NewCampaignRepo(pool),
			results:   healthcheck.NewResultRepo(pool),
			syncLogs:  healthcheck.NewSyncLogRepo(pool),
		}, nil

	case config.BackendMongo:
		client, database, err := db.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return repositories{}, err
		}
		a.closers = append(a.closers, func() { _ = client.Disconnect(context.Background()) })
		a.checks = append(a.checks, db.MongoCheck(client))
		if err := healthcheck.EnsureMongoIndexes(ctx, database); err != nil {
			return repositories{}, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return repositories{
			campaigns: healthcheck.NewCampaignMongoRepo(database),
			results:   healthcheck.NewResultMongoRepo(database),
			syncLogs:  healthcheck.NewSyncLogMongoRepo(database),
		}, nil

	case config.BackendMemory:
		return repositories{
			campaigns: healthcheck.NewInMemoryCampaignStore(),
			results:   healthcheck.NewInMemoryResultStore(),
			syncLogs:  healthcheck.NewInMemorySyncLogStore(),
		}, nil
	}
	return repositories{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func poolOptions(cfg *config.Config) db.PoolOptions {
	return db.PoolOptions{
		MaxConns:         cfg.DBMaxConns,
		MinConns:         cfg.DBMinConns,
		StatementTimeout: cfg.DBStatementTimeout,
	}
}

func redisCheck(rc *redis.Client) db.Check {
	return db.Check{
		Name: "redis",
		Ping: func(ctx context.Context) error { return rc.Ping(ctx).Err() },
	}
}

func newServer(cfg *config.Config, logger zerolog.Logger, a *app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = envelope.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "Content-Disposition"},
	}))
	e.Use(middleware.BodyLimit("1M", "8M"))
	e.Use(auth.Bearer(auth.BearerConfig{SigningKey: []byte(cfg.AuthSigningKey)}))
	e.Use(middleware.Audit(logger, middleware.AccessCounter()))

	// Probes
	e.GET("/health", db.HealthHandler(a.checks...))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API
	api := e.Group("/api/gateway")
	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	api.GET("/systems", systems.StatusHandler(a.prober))
	healthcheck.NewHandler(a.campaigns, a.results, a.sync).RegisterRoutes(api)

	return e
}

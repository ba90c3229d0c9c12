package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	router "github.com/goliatone/go-router"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/goliatone/go-reports/components/reports"
	"github.com/goliatone/go-reports/components/reports/commands"
	"github.com/goliatone/go-reports/components/reports/gorouter"
	"github.com/goliatone/go-reports/components/reports/httpapi"
	"github.com/goliatone/go-reports/components/reports/queries"
	"github.com/goliatone/go-reports/pkg/analytics"
	"github.com/goliatone/go-reports/pkg/config"
	"github.com/goliatone/go-reports/pkg/logger"
	"github.com/goliatone/go-reports/pkg/store/postgres"
)

const startupTimeout = 10 * time.Second

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(cfg.LogLevel, cfg.LogFormat, "reportd")
}

type stores struct {
	fx.Out

	Dashboards  reports.DashboardStore
	Connections reports.ConnectionStore
}

// newStores prefers PostgreSQL, then the analytics backend for connections,
// then in-memory stores for local runs.
func newStores(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (stores, error) {
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{MaxOpenConns: 10, MaxIdleConns: 5})
		if err != nil {
			return stores{}, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return stores{}, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return closeDB(db) }})
		log.Info("using postgres stores")
		return stores{
			Dashboards:  postgres.NewDashboardStore(db, log),
			Connections: postgres.NewConnectionStore(db, log),
		}, nil
	}

	log.Warn("REPORTS_DATABASE_URL not set, dashboards are kept in memory")
	out := stores{Dashboards: reports.NewInMemoryDashboardStore()}
	if cfg.AnalyticsURL != "" {
		client, err := analytics.NewHTTPClient(analytics.HTTPConfig{BaseURL: cfg.AnalyticsURL, APIKey: cfg.AnalyticsKey})
		if err != nil {
			return stores{}, err
		}
		out.Connections = analytics.NewConnectionStore(client)
		return out, nil
	}
	out.Connections = reports.NewInMemoryConnectionStore()
	return out, nil
}

func closeDB(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func newRowsRepository(cfg *config.Config, log *zap.Logger) (reports.RowsRepository, error) {
	if cfg.AnalyticsURL == "" {
		log.Warn("REPORTS_ANALYTICS_URL not set, widgets render without rows")
		return analytics.NewRowsRepository(analytics.NewMockClient(analytics.MockData{})), nil
	}
	client, err := analytics.NewHTTPClient(analytics.HTTPConfig{BaseURL: cfg.AnalyticsURL, APIKey: cfg.AnalyticsKey})
	if err != nil {
		return nil, err
	}
	return analytics.NewRowsRepository(client), nil
}

// newRenderCache shares rendered charts through Redis when configured.
func newRenderCache(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (reports.RenderCache, error) {
	if cfg.RedisAddr == "" {
		return reports.NewChartCache(cfg.ChartTTL), nil
	}
	store := reports.NewRedisKVStore(reports.NewRedisClient(cfg.RedisAddr))
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		log.Warn("redis unavailable, charts render uncached until it recovers", zap.Error(err))
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return store.Close() }})
	return reports.NewKVChartCache(store, cfg.ChartTTL,
		reports.WithStoreErrorHook(func(op string, err error) {
			log.Warn("chart cache store failed", zap.String("op", op), zap.Error(err))
		}),
	), nil
}

type serviceParams struct {
	fx.In

	Dashboards  reports.DashboardStore
	Connections reports.ConnectionStore
	Rows        reports.RowsRepository
	Cache       reports.RenderCache
	Logger      *zap.Logger
}

func newService(p serviceParams) *reports.Service {
	return reports.NewService(reports.Options{
		Dashboards:  p.Dashboards,
		Connections: p.Connections,
		Rows:        p.Rows,
		Renderer:    reports.NewPieChartRenderer(reports.WithRenderCache(p.Cache)),
		Telemetry:   reports.NewZapTelemetry(p.Logger),
		Logger:      p.Logger,
	})
}

func newHandlers(svc *reports.Service, log *zap.Logger) *httpapi.Handlers {
	telemetry := reports.NewZapTelemetry(log)
	return &httpapi.Handlers{
		Validate:  queries.NewValidateQueryQuery(svc),
		Health:    queries.NewDashboardHealthQuery(svc),
		Render:    queries.NewRenderWidgetQuery(svc),
		PieSeries: queries.NewPieSeriesQuery(svc),
		SaveDraft: commands.NewSaveDraftCommand(svc, telemetry),
		Publish:   commands.NewPublishVersionCommand(svc, telemetry),
		Logger:    log,
	}
}

// newServer builds the go-router fiber adapter around a reportd fiber app.
func newServer(log *zap.Logger) router.Server[*fiber.App] {
	return router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		app := fiber.New(fiber.Config{
			AppName:               "reportd",
			DisableStartupMessage: true,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				code := fiber.StatusInternalServerError
				if e, ok := err.(*fiber.Error); ok {
					code = e.Code
				}
				if code >= fiber.StatusInternalServerError {
					log.Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
				}
				return c.Status(code).JSON(fiber.Map{"error": err.Error()})
			},
		})
		app.Use(recover.New())
		return app
	})
}

func registerRoutes(server router.Server[*fiber.App], handlers *httpapi.Handlers) error {
	r := server.Router()
	r.Get("/healthz", router.WrapHandler(func(ctx router.Context) error {
		return ctx.JSON(fiber.StatusOK, map[string]string{"status": "ok"})
	}))
	return gorouter.Register(gorouter.Config[*fiber.App]{
		Router:   r,
		Handlers: handlers,
	})
}

func startServer(lc fx.Lifecycle, server router.Server[*fiber.App], cfg *config.Config, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("reportd listening", zap.String("addr", cfg.Addr()))
				if err := server.Serve(cfg.Addr()); err != nil {
					log.Error("server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}

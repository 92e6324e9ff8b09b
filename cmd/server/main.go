package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/sudo-init-do/nearbuy/internal/alerts"
	"github.com/sudo-init-do/nearbuy/internal/config"
	"github.com/sudo-init-do/nearbuy/internal/db"
	"github.com/sudo-init-do/nearbuy/internal/jobs"
	"github.com/sudo-init-do/nearbuy/internal/kv"
	"github.com/sudo-init-do/nearbuy/internal/metrics"
	mware "github.com/sudo-init-do/nearbuy/internal/middleware"
	"github.com/sudo-init-do/nearbuy/internal/realtime"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer pool.Close()

	store, closeStore := openKV(ctx, cfg)
	defer closeStore()

	// Notifications go through asynq when Redis is available and run
	// in-process otherwise.
	processor := alerts.NewProcessor(alerts.NewPgNotifications(pool), alerts.NewMailer(cfg))
	var (
		enqueuer alerts.Enqueuer
		worker   *asynq.Server
	)
	if cfg.RedisAddr != "" {
		redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		client := alerts.NewClient(redisOpt, cfg.AppURL)
		defer client.Close()
		enqueuer = client
		worker = alerts.NewServer(redisOpt)
	} else {
		enqueuer = alerts.NewInline(processor, cfg.AppURL)
	}

	hub := realtime.NewHub()
	scheduler := jobs.NewScheduler()
	if err := scheduler.AddRatingRefresh(cfg.RatingRefreshSpec, jobs.SellerRatings(pool)); err != nil {
		log.Fatalf("jobs error: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = mware.NewValidator()
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORS())
	e.Use(metrics.Middleware)

	registerHealth(e, pool)
	if err := registerRoutes(e, deps{
		cfg:      cfg,
		pool:     pool,
		kv:       store,
		enqueuer: enqueuer,
		hub:      hub,
	}); err != nil {
		log.Fatalf("routes error: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("nearbuy listening on :%s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return realtime.NewListener(pool, hub).Run(gctx) })
	if worker != nil {
		g.Go(func() error { return worker.Start(processor.Mux()) })
	}
	scheduler.Start()

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		scheduler.Stop(shutdownCtx)
		if worker != nil {
			worker.Shutdown()
		}
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Println("server stopped")
}

// openKV returns the Redis store when REDIS_ADDR is set, the in-memory one
// otherwise.
func openKV(ctx context.Context, cfg config.Config) (kv.Store, func()) {
	if cfg.RedisAddr == "" {
		log.Println("REDIS_ADDR not set, using in-memory key value store")
		return kv.NewMemory(), func() {}
	}
	r, err := kv.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, 0)
	if err != nil {
		log.Fatalf("redis error: %v", err)
	}
	return r, func() { _ = r.Close() }
}

func registerHealth(e *echo.Echo, pool *pgxpool.Pool) {
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "nearbuy"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
	e.GET("/metrics", metrics.Handler())
}

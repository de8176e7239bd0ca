package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/baechuer/property-recs/internal/application/recommend"
	"github.com/baechuer/property-recs/internal/application/sweep"
	"github.com/baechuer/property-recs/internal/application/tracking"
	"github.com/baechuer/property-recs/internal/config"
	"github.com/baechuer/property-recs/internal/domain"
	"github.com/baechuer/property-recs/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/property-recs/internal/infrastructure/notify"
	"github.com/baechuer/property-recs/internal/infrastructure/postgres"
	"github.com/baechuer/property-recs/internal/infrastructure/redis"
	"github.com/baechuer/property-recs/internal/logger"
	"github.com/baechuer/property-recs/internal/security"
	"github.com/baechuer/property-recs/internal/transport/rest"
)

/*
========================
 Public entry (prod)
========================
*/

func NewApp(ctx context.Context) (*App, func(), error) {
	return newApp(ctx, defaultDeps())
}

// NewAppWithDeps allows injecting dependencies for testing
func NewAppWithDeps(ctx context.Context, deps Deps) (*App, func(), error) {
	return newApp(ctx, deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(ctx context.Context, dsn string) (postgres.DB, func(), error)

	NewRedis func(ctx context.Context, addr, password string, db int) (*goredis.Client, error)

	NewPublisher func(url, exchange string) (Publisher, error)
}

// Publisher is the outbound broker connection.
type Publisher interface {
	rabbitmq.EventPublisher
	Close() error
}

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB: func(ctx context.Context, dsn string) (postgres.DB, func(), error) {
			pool, err := postgres.Connect(ctx, dsn)
			if err != nil {
				return nil, nil, err
			}
			return pool, pool.Close, nil
		},
		NewRedis: redis.New,
		NewPublisher: func(url, exchange string) (Publisher, error) {
			return rabbitmq.NewPublisher(url, exchange)
		},
	}
}

// App owns the sweep loop and the HTTP server.
type App struct {
	Config    *config.Config
	Server    *http.Server
	Scheduler *sweep.Scheduler

	// resolved adapters, exposed for inspection in tests
	Notifier domain.Notifier
	Guard    tracking.ViewDedupGuard

	lg zerolog.Logger
}

/*
========================
 Core bootstrap logic
========================
*/

func newApp(ctx context.Context, deps Deps) (*App, func(), error) {
	lg := logger.Component("bootstrap")
	// constructors below tag their own component
	baseLg := zlog.Logger

	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	// 1) postgres
	db, closeDB, err := deps.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	cleanupFns := []func(){}
	if closeDB != nil {
		cleanupFns = append(cleanupFns, closeDB)
	}
	lg.Info().Msg("postgres connected")

	listings := postgres.NewListingStore(db)
	activity := postgres.NewActivityStore(db)

	// 2) redis (best-effort in dev)
	var rdb *goredis.Client
	if cfg.RedisEnabled && deps.NewRedis != nil {
		c, err := deps.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		switch {
		case err == nil:
			rdb = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			lg.Info().Str("addr", cfg.RedisAddr).Msg("redis connected")
		case cfg.Env == "dev":
			lg.Warn().Err(err).Msg("redis unavailable; falling back to store guard, no delivery dedup")
		default:
			runCleanup(cleanupFns)
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
	}

	// 3) view dedup guard
	var guard tracking.ViewDedupGuard = tracking.NewStoreGuard(activity, cfg.ViewDedupWindow)
	if cfg.ViewGuard == "redis" && rdb != nil {
		guard = redis.NewViewGuard(rdb, cfg.ViewDedupWindow)
	}

	// 4) notifier chain: idempotent -> breaker -> transport
	var base domain.Notifier
	if cfg.Notifier == "rabbit" {
		pub, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		switch {
		case err == nil:
			cleanupFns = append(cleanupFns, func() { _ = pub.Close() })
			base = rabbitmq.NewNotifier(pub, cfg.RabbitRoutingKey)
			lg.Info().Str("exchange", cfg.RabbitExchange).Msg("rabbitmq connected")
		case cfg.Env == "dev":
			lg.Warn().Err(err).Msg("rabbitmq unavailable; using log notifier")
		default:
			runCleanup(cleanupFns)
			return nil, nil, fmt.Errorf("rabbitmq: %w", err)
		}
	}
	if base == nil {
		base = notify.NewLogNotifier(baseLg)
	}

	var notifier domain.Notifier = notify.NewBreaker(base, cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout, baseLg)
	if rdb != nil {
		notifier = notify.NewIdempotent(notifier, redis.NewDeliveryStore(rdb), cfg.DeliveryDedupTTL, baseLg)
	}

	// 5) application
	engine := recommend.NewEngine(listings, activity, baseLg)
	scheduler := sweep.NewScheduler(activity, engine, notifier, sweep.Config{
		Interval:       cfg.SweepInterval,
		StartupDelay:   cfg.SweepStartupDelay,
		ActivityWindow: cfg.ActivityWindow,
		UserTimeout:    cfg.UserPipelineTimeout,
		Concurrency:    cfg.SweepConcurrency,
	}, baseLg)

	recorder := tracking.NewRecorder(listings, activity, guard, baseLg)
	similar := recommend.NewSimilarListings(listings, cfg.NearbyPrefetch)

	// 6) http
	var verifier security.Verifier
	if cfg.JWTSecret != "" {
		verifier = security.NewHS256Verifier(cfg.JWTSecret, cfg.JWTIssuer)
	} else {
		lg.Info().Msg("JWT_SECRET not set; view tracking is anonymous only")
	}

	httpLg := logger.Component("http")
	handler := rest.NewRouter(rest.RouterDeps{
		Handler:   rest.NewHandler(recorder, similar, scheduler, httpLg),
		Verifier:  verifier,
		Logger:    httpLg,
		RLEnabled: cfg.RLEnabled,
		RLLimit:   cfg.RLLimit,
		RLWindow:  cfg.RLWindow,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	app := &App{
		Config:    cfg,
		Server:    srv,
		Scheduler: scheduler,
		Notifier:  notifier,
		Guard:     guard,
		lg:        lg,
	}
	return app, func() { runCleanup(cleanupFns) }, nil
}

// Start runs the sweep loop and the HTTP server until ctx is canceled, then
// shuts the server down within ShutdownWait.
func (a *App) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Scheduler.Run(gctx)
		return nil
	})

	g.Go(func() error {
		a.lg.Info().Str("addr", a.Server.Addr).Msg("http server listening")
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownWait)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			a.lg.Warn().Err(err).Msg("http shutdown")
		}
		return nil
	})

	return g.Wait()
}

// runCleanup closes resources in reverse order of acquisition.
func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

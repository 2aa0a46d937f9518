package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/md-rashed-zaman/venuebook/libs/db"
	"github.com/md-rashed-zaman/venuebook/libs/grpcx"
	"github.com/md-rashed-zaman/venuebook/libs/httpx"
	"github.com/md-rashed-zaman/venuebook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/venuebook/libs/otel"
	"github.com/md-rashed-zaman/venuebook/libs/runtime"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/app"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/booking"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/consumer"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/handlers"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/inbox"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/metrics"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/outbox"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := app.ConfigFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}
	logger := runtime.NewLogger(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := runtime.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("venue-service stopped with error", "err", err)
		os.Exit(1)
	}
}

// deps is what one-shot initialization produces. Every field is fully usable
// once run has it; nothing is connected lazily from a request path.
type deps struct {
	store    booking.Store
	source   outbox.Source
	recorder inbox.Recorder
	checks   []runtime.ReadyCheck
	closers  []func()
}

func run(ctx context.Context, cfg app.Config, logger *slog.Logger) error {
	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.ServiceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	d, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range d.closers {
			c()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.MustNewMetrics(reg)

	svc := booking.NewService(d.store, logger, booking.Options{
		Policy: booking.Policy{
			CheckReservedConflicts: cfg.CheckReservedConflicts,
			MaxRangeDays:           cfg.MaxRangeDays,
		},
		Metrics: m,
	})

	limiter, limiterCheck, closeLimiter := newLimiter(cfg)
	defer closeLimiter()

	readiness := runtime.NewReadiness()
	checks := append([]runtime.ReadyCheck{{Name: "init", Check: readiness.Check}}, d.checks...)
	checks = append(checks,
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)},
		limiterCheck,
	)

	api := http.NewServeMux()
	handlers.NewBookingHandler(svc, logger).Register(api)

	mux := runtime.NewBaseMux(checks...)
	mux.Handle("GET /metrics", metrics.Handler(reg))
	mux.Handle("/api/", httpx.Chain(api,
		httpx.WithCORS(httpx.DefaultCORSPolicy(cfg.CORSOrigins)),
		httpx.WithRateLimit(limiter, logger, cfg.RateFailOpen),
		httpx.WithBodyLimit(cfg.MaxBodyBytes),
		httpx.WithTimeout(cfg.RequestTimeout),
	))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
	)
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           otelhttp.NewHandler(httpHandler, "venue"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv, grpcLis, err := newGRPC(cfg, logger, readiness)
	if err != nil {
		return err
	}

	publisher := outbox.NewPublisher(d.source, logger, outbox.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		PollEvery: cfg.OutboxPollEvery,
		BatchSize: cfg.OutboxBatchSize,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		readiness.MarkNotReady()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "err", err)
		}
		logger.Info("http server stopped")
		return nil
	})
	g.Go(func() error {
		return grpcx.Serve(gctx, grpcSrv, grpcLis, logger)
	})
	g.Go(func() error {
		publisher.Run(gctx)
		return nil
	})
	if reader := consumer.NewKafkaReader(consumer.Config{
		Brokers: cfg.KafkaBrokers,
		GroupID: cfg.KafkaGroupID,
		Topic:   cfg.CommandTopic,
	}); reader != nil {
		c := consumer.New(logger, d.recorder, reader, consumer.CommandHandler(svc, logger, m))
		g.Go(func() error {
			c.Run(gctx)
			return nil
		})
	} else {
		logger.Warn("booking command consumer disabled (no kafka brokers configured)")
	}

	readiness.MarkReady()
	logger.Info("venue-service ready",
		"store", storeKind(cfg),
		"check_reserved_conflicts", cfg.CheckReservedConflicts,
		"max_range_days", cfg.MaxRangeDays,
	)
	return g.Wait()
}

func openStore(ctx context.Context, cfg app.Config, logger *slog.Logger) (deps, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set; using in-memory store")
		mem := storage.NewMemory()
		return deps{store: mem, source: mem, recorder: inbox.NewMemory()}, nil
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{MaxConns: int32(cfg.DBMaxConns)})
	if err != nil {
		return deps{}, fmt.Errorf("db connection failed: %w", err)
	}
	if cfg.Migrate {
		if err := storage.Migrate(ctx, pool); err != nil {
			pool.Close()
			return deps{}, fmt.Errorf("db migrate failed: %w", err)
		}
	}
	outboxRepo := outbox.NewRepository(pool)
	return deps{
		store:    storage.NewPostgres(pool, outboxRepo),
		source:   outboxRepo,
		recorder: inbox.NewRepository(pool),
		checks:   []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}},
		closers:  []func(){pool.Close},
	}, nil
}

func newLimiter(cfg app.Config) (httpx.Limiter, runtime.ReadyCheck, func()) {
	if cfg.RedisAddr == "" {
		return httpx.NewMemoryRateLimiter(cfg.RateLimit, cfg.RateWindow), runtime.ReadyCheck{}, func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	check := runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}}
	limiter := httpx.NewRedisRateLimiter(rdb, cfg.RateLimit, cfg.RateWindow, cfg.ServiceName+":ratelimit")
	return limiter, check, func() { _ = rdb.Close() }
}

func storeKind(cfg app.Config) string {
	if cfg.DatabaseURL == "" {
		return "memory"
	}
	return "postgres"
}

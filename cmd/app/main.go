package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agaaaptr/open-socmed/configs"
	"github.com/agaaaptr/open-socmed/internal/follow"
	"github.com/agaaaptr/open-socmed/internal/health"
	"github.com/agaaaptr/open-socmed/internal/kafka"
	"github.com/agaaaptr/open-socmed/internal/migrate"
	"github.com/agaaaptr/open-socmed/internal/notification"
	"github.com/agaaaptr/open-socmed/internal/posts"
	"github.com/agaaaptr/open-socmed/internal/profile"
	"github.com/agaaaptr/open-socmed/internal/ratelimit"
	"github.com/agaaaptr/open-socmed/internal/shared/db"
	"github.com/agaaaptr/open-socmed/internal/shared/httpx"
	"github.com/agaaaptr/open-socmed/internal/shared/logx"
	"github.com/agaaaptr/open-socmed/internal/shared/redisx"
	"github.com/agaaaptr/open-socmed/internal/timeline"
)

func initOTEL(ctx context.Context, env string) (func(context.Context) error, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = "otel-collector:4318"
	}
	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("otel exporter: %w", err)
	}
	name := os.Getenv("OTEL_SERVICE_NAME")
	if name == "" {
		name = "cirqle-api"
	}
	res, _ := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(name),
		attribute.String("deployment.environment", env),
	))
	ratio := 1.0
	if s := os.Getenv("OTEL_TRACES_SAMPLER_ARG"); s != "" {
		if f, e := strconv.ParseFloat(s, 64); e == nil && f >= 0 && f <= 1 {
			ratio = f
		}
	}
	tp := trace.NewTracerProvider(
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(ratio))),
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := configs.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logx.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := initOTEL(ctx, cfg.Env)
	if err != nil {
		return err
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(c)
	}()

	store, err := db.Open(ctx, db.Options{DSN: cfg.DatabaseURL, ReplicaDSN: cfg.ReplicaURL, Log: log})
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.AutoMigrate {
		if err := migrate.AutoMigrateAll(store); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("schema migrated")
	}

	rdb, err := redisx.Open(ctx, cfg.RedisAddr())
	if err != nil {
		return err
	}
	defer rdb.Close()

	events := kafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer events.Close()

	limiter := ratelimit.New(rdb)
	postPolicy := ratelimit.Policy{L: limiter, Name: "posts", Limit: cfg.PostRateLimit, Window: cfg.PostRateWindow}
	followPolicy := ratelimit.Policy{L: limiter, Name: "follows", Limit: 60, Window: time.Minute}

	profileSvc := profile.NewService(profile.NewRepository(store.Base))
	timelineCache := timeline.NewRedisCache(rdb, cfg.TimelineTTL)
	postRepo := posts.NewRepository(store.Base)
	postSvc := posts.NewService(postRepo, events, postPolicy, log, posts.WithTimelineInvalidator(timelineCache))
	followSvc := follow.NewService(follow.NewRepository(store.Base), profileSvc, events, log)
	timelineSvc := timeline.NewService(followSvc, postRepo, timelineCache, log)
	notifSvc := notification.NewService(notification.NewRedisRepository(rdb), profileSvc, log)

	dispatch := kafka.NewDispatcher().
		On(kafka.PostCreated, timelineSvc.OnPostEvent).
		On(kafka.PostUpdated, timelineSvc.OnPostEvent).
		On(kafka.PostDeleted, timelineSvc.OnPostEvent).
		On(kafka.FollowCreated, timelineSvc.OnFollowEvent).
		On(kafka.FollowCreated, notifSvc.OnFollowEvent).
		On(kafka.FollowDeleted, timelineSvc.OnFollowEvent)
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaTopic, dispatch.Handle, log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	hh := health.NewHandler(store, log)
	mux.HandleFunc("GET /api/health", hh.Live)
	mux.HandleFunc("GET /api/health/database", hh.Database)

	auth := httpx.AuthMiddleware([]byte(cfg.JWTSecret))
	protect := func(pattern string, h http.Handler) {
		mux.Handle(pattern, auth(h))
	}

	ph := posts.NewHandler(postSvc)
	protect("GET /api/posts", httpx.Wrap(ph.List))
	protect("POST /api/posts", httpx.Wrap(ph.Create))
	protect("PUT /api/posts", httpx.Wrap(ph.Update))
	protect("DELETE /api/posts", httpx.Wrap(ph.Delete))

	protect("GET /api/timeline", httpx.Wrap(timeline.NewHandler(timelineSvc).Get))

	fh := follow.NewHandler(followSvc)
	protect("POST /api/follow", followPolicy.LimitHTTP(httpx.Wrap(fh.Follow)))
	protect("DELETE /api/follow", httpx.Wrap(fh.Unfollow))
	protect("GET /api/followers", httpx.Wrap(fh.Followers))
	protect("GET /api/following", httpx.Wrap(fh.Following))

	prh := profile.NewHandler(profileSvc)
	protect("GET /api/profile", httpx.Wrap(prh.Get))
	protect("PUT /api/profile", httpx.Wrap(prh.Update))
	protect("GET /api/search-users", httpx.Wrap(prh.Search))
	protect("GET /api/check-username", httpx.Wrap(prh.CheckUsername))

	nh := notification.NewHandler(notifSvc)
	protect("GET /api/notifications", httpx.Wrap(nh.List))
	protect("POST /api/mark-notifications-as-read", httpx.Wrap(nh.MarkAllRead))

	srv := &http.Server{
		Addr:              cfg.AppPort,
		Handler:           otelhttp.NewHandler(mux, "http.server"),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("cirqle api listening", zap.String("addr", cfg.AppPort), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return consumer.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(c)
	})
	return g.Wait()
}

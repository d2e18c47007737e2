package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"skill-quiz-service/internal/app"
	"skill-quiz-service/internal/auth"
	"skill-quiz-service/internal/config"
	"skill-quiz-service/internal/infra/memory"
	"skill-quiz-service/internal/infra/postgres"
	infraredis "skill-quiz-service/internal/infra/redis"
	"skill-quiz-service/internal/logger"
	"skill-quiz-service/internal/metrics"
	transport "skill-quiz-service/internal/transport/http"
)

// backend holds the storage handles shared by the commands.
type backend struct {
	store   app.Store
	reports app.ReportStore
	loader  app.QuizLoader
	db      *bun.DB
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
}

// openBackend picks postgres when configured, the in-memory store otherwise.
// The pgx pool serves quiz views; bun serves everything else.
func openBackend(ctx context.Context, cfg config.Config, log *zap.Logger) (*backend, error) {
	if cfg.Postgres.URL == "" {
		log.Warn("postgres url not configured, using in-memory store; reports are disabled")
		store := memory.NewStore()
		return &backend{store: store, loader: app.NewStoreQuizLoader(store)}, nil
	}

	db, err := postgres.Open(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, err
	}
	b := &backend{
		store:   postgres.NewStore(db),
		reports: postgres.NewReports(db),
		db:      db,
		closers: []func(){func() { _ = db.Close() }},
	}
	pool, err := postgres.NewPool(ctx, cfg.Postgres.URL)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.closers = append(b.closers, pool.Close)
	b.loader = postgres.NewQuizLoader(pool)
	return b, nil
}

type server struct {
	handler http.Handler
	feed    *app.AttemptFeed
	relay   *infraredis.FeedRelay
	closers []func()
}

func buildServer(ctx context.Context, cfg config.Config, b *backend, log *zap.Logger) (*server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret (or JWT_SECRET) must be set")
	}
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 7*24*time.Hour))
	m := metrics.New()
	feed := app.NewAttemptFeed(32)
	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)

	srv := &server{feed: feed}
	var (
		views     app.QuizViewRepository
		publisher app.AttemptPublisher = feed
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		srv.closers = append(srv.closers, func() { _ = client.Close() })
		views = infraredis.NewQuizCache(client, b.loader, cacheTTL, log)
		srv.relay = infraredis.NewFeedRelay(client, feed, log)
		publisher = srv.relay
	} else {
		views = memory.NewQuizCache(b.loader, cacheTTL)
	}

	services := transport.Services{
		Scoring:  app.NewScoringService(b.store, publisher, log).WithRecorder(m),
		Attempts: app.NewAttemptService(b.store),
		Catalog:  app.NewCatalogService(b.store, views),
		Users:    app.NewUserService(b.store, tokens),
		Reports:  app.NewReportService(b.reports),
		Feed:     feed,
	}
	srv.handler = transport.NewRouter(services, transport.Options{
		Log:         log,
		Metrics:     m,
		Tokens:      tokens,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit:   cfg.Server.RateLimit.Requests,
		RateWindow:  config.TTLDuration(cfg.Server.RateLimit.Window, time.Minute),
	})
	return srv, nil
}

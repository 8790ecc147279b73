package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"almoner/internal/events"
	"almoner/internal/events/kafka"
	"almoner/internal/ledger/cache"
	"almoner/internal/ledger/handler"
	"almoner/internal/ledger/service"
	"almoner/internal/ledger/store/memory"
	"almoner/internal/ledger/store/postgres"
	"almoner/internal/payout"
	"almoner/internal/platform/config"
	"almoner/internal/platform/httpserver"
	"almoner/internal/platform/logger"
	"almoner/internal/platform/metrics"
	"almoner/internal/platform/middleware"
	platformredis "almoner/internal/platform/redis"
	"almoner/internal/platform/token"
	"almoner/pkg/platform/sentinel"
	"almoner/pkg/requestcontext"
)

const eventBufferSize = 256

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, txr, cleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	publisher := events.NewPublisher(events.NewMemoryLog(), eventBufferSize, log)
	m := metrics.New()

	var sink service.PayoutSink
	if cfg.PayoutURL != "" {
		sink = payout.NewWebhookSink(cfg.PayoutURL)
		log.Info("payouts via webhook", "url", cfg.PayoutURL)
	} else {
		sink = payout.NewLogSink(log)
		log.Warn("no PAYOUT_URL set, withdrawals will only be logged")
	}

	svc := service.New(store, txr, sink, publisher, m, log)

	if cfg.DeployerAddress != "" {
		if err := runGenesis(ctx, cfg, svc, log); err != nil {
			return err
		}
	}

	leaderboard, err := buildLeaderboardCache(ctx, cfg, log)
	if err != nil {
		return err
	}

	tokens := token.NewService(cfg.JWTSigningKey, "almoner")
	ratelimiter := middleware.NewRateLimiter(cfg.ProposalRateLimit, time.Hour)

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	h := handler.New(svc, publisher, leaderboard, log)
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireCaller(tokens, log))
		h.Register(r, ratelimiter.Limit)
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := kafka.New(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		worker := events.NewWorker(kafkaSink, publisher.Inbox(), log)
		g.Go(func() error {
			if err := worker.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		log.Info("event worker started", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	g.Go(func() error {
		log.Info("starting almoner", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildStore picks postgres when DATABASE_URL is set, the in-process memory
// store otherwise.
func buildStore(ctx context.Context, cfg config.Server, log *slog.Logger) (service.Store, service.TxRunner, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("no DATABASE_URL set, running on the in-memory store")
		return memory.New(), service.PassthroughTx{}, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := postgres.Open(ctx, db)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	log.Info("connected to postgres")
	return store, postgres.NewRunner(db), func() { db.Close() }, nil
}

func buildLeaderboardCache(ctx context.Context, cfg config.Server, log *slog.Logger) (*cache.Leaderboard, error) {
	if cfg.RedisURL == "" {
		return cache.NewLeaderboard(nil, 0), nil
	}
	client, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	log.Info("leaderboard cache enabled", "ttl", cfg.LeaderboardCacheTTL)
	return cache.NewLeaderboard(client, cfg.LeaderboardCacheTTL), nil
}

// runGenesis initializes the ledger on behalf of the configured deployer. An
// already-initialized ledger is fine: genesis happened on a previous boot.
func runGenesis(ctx context.Context, cfg config.Server, svc *service.Service, log *slog.Logger) error {
	seeds, err := config.LoadGenesis(cfg.GenesisFile)
	if err != nil {
		return err
	}

	ctx = requestcontext.WithCaller(ctx, cfg.DeployerAddress)
	switch err := svc.Initialize(ctx, seeds); {
	case err == nil:
		log.Info("ledger initialized", "deployer", cfg.DeployerAddress, "seeds", len(seeds))
	case errors.Is(err, sentinel.ErrAlreadyInitialized):
		log.Info("ledger already initialized")
	default:
		return err
	}
	return nil
}

// Command server runs the network credit scoring service: the tenant-facing
// HTTP API, the nightly aggregation and detection jobs, and the audit outbox
// relay. Wiring only; business logic lives under internal/.
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
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"creditnet/internal/jwttoken"
	"creditnet/internal/network"
	"creditnet/internal/network/cache"
	"creditnet/internal/network/detect"
	"creditnet/internal/network/metrics"
	"creditnet/internal/network/service"
	"creditnet/internal/network/store"
	"creditnet/internal/platform/config"
	"creditnet/internal/platform/httpserver"
	"creditnet/internal/platform/logger"
	"creditnet/internal/platform/middleware"
	platformredis "creditnet/internal/platform/redis"
	"creditnet/internal/scheduler"
	"creditnet/migrations"
	"creditnet/pkg/platform/audit/publisher"
	auditmem "creditnet/pkg/platform/audit/store/memory"
	auditpg "creditnet/pkg/platform/audit/store/postgres"
	"creditnet/pkg/platform/audit/worker"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Persistence: PostgreSQL when DATABASE_URL is set, in-memory otherwise.
	var (
		observations  store.ObservationStore
		profiles      store.ProfileStore
		contributions store.ContributionStore
		intelligence  store.IntelligenceStore
		auditSink     service.AuditSink
		relay         *publisher.KafkaRelay
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if _, err := pool.Exec(ctx, migrations.Schema); err != nil {
			return err
		}

		observations = store.NewPostgresObservationStore(pool)
		profiles = store.NewPostgresProfileStore(pool)
		contributions = store.NewPostgresContributionStore(pool)
		intelligence = store.NewPostgresIntelligenceStore(pool)

		// The audit outbox shares the database but runs on database/sql so
		// outbox inserts and relay reads use plain transactions.
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		outbox := auditpg.New(db)
		auditSink = outbox

		if len(cfg.Kafka.Brokers) > 0 {
			relay, err = publisher.NewKafkaRelay(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, outbox,
				publisher.WithLogger(log))
			if err != nil {
				return err
			}
			defer relay.Close()
			go func() {
				if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("audit relay stopped", "error", err)
				}
			}()
			log.Info("audit relay started", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
		} else {
			log.Warn("no kafka brokers configured, audit events stay in the outbox")
		}
		log.Info("using postgres stores")
	} else {
		observations = store.NewMemoryObservationStore()
		profiles = store.NewMemoryProfileStore()
		contributions = store.NewMemoryContributionStore()
		intelligence = store.NewMemoryIntelligenceStore()

		// No outbox without a database; buffer audit writes through a worker
		// so the request path never waits on the store.
		sink, inbox := worker.NewSink(256)
		auditWorker := worker.NewWorker(auditmem.NewInMemoryStore(), inbox)
		go func() {
			if err := auditWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit worker stopped", "error", err)
			}
		}()
		auditSink = sink
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	// Optional Redis read cache for buyer profiles.
	var profileCache *cache.ProfileCache
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		profileCache = cache.New(redisClient, cfg.ProfileCacheTTL, log)
		log.Info("profile cache enabled", "ttl", cfg.ProfileCacheTTL)
	}

	svc := network.NewService(observations, profiles, contributions, intelligence,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAuditSink(auditSink),
		service.WithProfileCache(profileCache),
	)
	detector := network.NewDetector(observations, intelligence,
		detect.WithLogger(log),
		detect.WithMetrics(m),
	)

	// Background jobs.
	sched := scheduler.New(log)
	if err := sched.Add(cfg.AggregationSchedule, "profile_aggregation", func(ctx context.Context) error {
		_, err := svc.RunAggregation(ctx)
		return err
	}); err != nil {
		return err
	}
	if err := sched.Add(cfg.DetectionSchedule, "pattern_detection", func(ctx context.Context) error {
		findings, err := detector.Run(ctx)
		svc.NoteDetectionRun(ctx, len(findings))
		return err
	}); err != nil {
		return err
	}
	if err := sched.Add("@hourly", "intelligence_sweep", func(ctx context.Context) error {
		_, err := svc.SweepExpiredIntelligence(ctx)
		return err
	}); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	// HTTP surface.
	tokens := jwttoken.New(cfg.JWTSigningKey, "creditnet", "creditnet-api")
	h := network.NewHandler(svc, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokens, log))
		h.Register(r)
	})

	srv := httpserver.New(cfg.Addr, r)
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

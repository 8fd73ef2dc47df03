package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"avatar-gateway/internal/audit"
	"avatar-gateway/internal/audit/sink"
	"avatar-gateway/internal/blob"
	"avatar-gateway/internal/moderation"
	"avatar-gateway/internal/moderation/classifier"
	modmetrics "avatar-gateway/internal/moderation/metrics"
	modstore "avatar-gateway/internal/moderation/store"
	"avatar-gateway/internal/platform/config"
	"avatar-gateway/internal/platform/httpserver"
	"avatar-gateway/internal/platform/logger"
	"avatar-gateway/internal/platform/middleware"
	platformredis "avatar-gateway/internal/platform/redis"
	"avatar-gateway/internal/profile"
	"avatar-gateway/internal/session"
	sessionmetrics "avatar-gateway/internal/session/metrics"
	"avatar-gateway/internal/session/provider"
	sessionstore "avatar-gateway/internal/session/store"
	"avatar-gateway/internal/upload"
	"avatar-gateway/internal/upload/handler"
	uploadmetrics "avatar-gateway/internal/upload/metrics"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages; nothing here makes a decision beyond
// which adapter satisfies each port.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	charter := audit.NewCharter(log)
	ledger := audit.NewLedger(log)

	g, ctx := errgroup.WithContext(ctx)

	// Optional Kafka export for ledger entries.
	if len(cfg.Audit.KafkaBrokers) > 0 {
		kafka, err := sink.NewKafka(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			log.Error("kafka audit sink init failed", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		worker := audit.NewWorker(kafka, ledger.Buffer(1024), log)
		g.Go(func() error {
			worker.Run(ctx)
			return nil
		})
	}

	// Session cache: redis when configured, in-process otherwise.
	var sessions sessionstore.Store
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessions = sessionstore.NewRedisStore(redisClient.Client)
		log.Info("session cache using redis")
	} else {
		sessions = sessionstore.NewInMemoryStore()
		log.Warn("REDIS_URL not set, session cache is in-process only")
	}

	identity := provider.NewSupabase(cfg.Identity.BaseURL, cfg.Identity.ServiceKey, cfg.SessionWindow, cfg.Identity.Timeout)
	validator := session.NewValidator(sessions, identity, cfg.SessionWindow,
		session.WithLedger(ledger),
		session.WithMetrics(sessionmetrics.New()),
	)

	mod := moderation.NewModerator(
		classifier.NewHTTP(cfg.Classifier.BaseURL, cfg.Classifier.Token, cfg.Classifier.Model,
			&http.Client{Timeout: cfg.Classifier.Timeout}),
		ledger,
		cfg.Classifier.FailOpen,
	)
	modm := modmetrics.New()
	mod.OnDecision(func(d moderation.Decision, failedOpen bool, start time.Time) {
		modm.ObserveClassify(start)
		switch {
		case failedOpen:
			modm.FailOpen.Inc()
		case d.Approved:
			modm.Approved.Inc()
		default:
			modm.Rejected.Inc()
		}
	})

	blobs := blob.NewHTTPStore(cfg.Blob.BaseURL, cfg.Blob.Token,
		&http.Client{Timeout: cfg.Blob.Timeout})

	// Profile persistence and the decision log share a backend: direct
	// Postgres when a DSN is present, the REST surface otherwise.
	var (
		profiles  profile.Store
		decisions modstore.DecisionLog
	)
	if cfg.Profile.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.Profile.PostgresDSN)
		if err != nil {
			log.Error("postgres pool init failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		profiles = profile.NewPostgresStore(pool)
		decisions = modstore.NewPostgresDecisionLog(pool)
		log.Info("profile store using postgres")
	} else {
		restClient := &http.Client{Timeout: cfg.Profile.Timeout}
		profiles = profile.NewPostgRESTStore(cfg.Profile.RESTBaseURL, cfg.Profile.ServiceKey, restClient)
		decisions = modstore.NewPostgRESTDecisionLog(cfg.Profile.RESTBaseURL, cfg.Profile.ServiceKey, restClient)
		log.Info("profile store using REST surface")
	}

	orch := upload.NewOrchestrator(upload.Deps{
		Sessions:      validator,
		Moderator:     mod,
		Blobs:         blobs,
		Profiles:      profiles,
		Decisions:     decisions,
		Fetcher:       upload.NewHTTPFetcher(&http.Client{Timeout: cfg.Blob.Timeout}),
		Charter:       charter,
		Ledger:        ledger,
		Metrics:       uploadmetrics.New(),
		PublicBaseURL: cfg.Blob.PublicBaseURL,
	})

	h := handler.New(orch, validator, log, cfg.AdminKeyHash, cfg.Environment, cfg.Version)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS("*"))
	r.Use(middleware.RequestLog(log))
	h.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, r)

	g.Go(func() error {
		log.Info("starting avatar-gateway", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("avatar-gateway stopped")
}

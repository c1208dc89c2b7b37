// Command server wires the KYC decision core and serves its HTTP API.
// Business logic lives behind the internal service packages; main only
// composes them from configuration and owns process lifecycle.
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

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"kycgate/internal/classifier"
	"kycgate/internal/compliance"
	"kycgate/internal/document"
	doccache "kycgate/internal/document/cache"
	docmem "kycgate/internal/document/store/memory"
	docpg "kycgate/internal/document/store/postgres"
	"kycgate/internal/engine"
	enginemetrics "kycgate/internal/engine/metrics"
	jwttoken "kycgate/internal/jwt_token"
	"kycgate/internal/platform/config"
	"kycgate/internal/platform/httpserver"
	"kycgate/internal/platform/logger"
	"kycgate/internal/platform/middleware"
	pgplatform "kycgate/internal/platform/postgres"
	redisplatform "kycgate/internal/platform/redis"
	"kycgate/internal/rbac"
	httptransport "kycgate/internal/transport/http"
	"kycgate/internal/vector"
	"kycgate/internal/workflow"
	wfmetrics "kycgate/internal/workflow/metrics"
	wfmem "kycgate/internal/workflow/store/memory"
	wfpg "kycgate/internal/workflow/store/postgres"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/audit/outbox"
	"kycgate/pkg/platform/audit/publisher"
	auditmem "kycgate/pkg/platform/audit/store/memory"
	auditpg "kycgate/pkg/platform/audit/store/postgres"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	// Storage. Without postgres everything runs on memory stores, which is
	// enough for local development but loses state on restart.
	var (
		auditStore  audit.Store
		auditReader httptransport.AuditReader
		wfStore     workflow.Store
		docStore    document.Store
		db          *sql.DB
	)
	if cfg.Postgres.URL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := pgplatform.Migrate(ctx, db); err != nil {
			return err
		}

		poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.URL)
		if err != nil {
			return err
		}
		poolCfg.MaxConns = cfg.Postgres.MaxConns
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		pgAudit := auditpg.New(db)
		auditStore, auditReader = pgAudit, pgAudit
		wfStore = wfpg.New(pool)
		docStore = docpg.New(pool)
		log.Info("postgres stores ready")
	} else {
		memAudit := auditmem.NewInMemoryStore()
		auditStore, auditReader = memAudit, memAudit
		wfStore = wfmem.New()
		docStore = docmem.New()
		log.Warn("POSTGRES_URL not set, using in-memory stores")
	}

	emitter := publisher.New(auditStore,
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics()),
	)

	// External AI services.
	classifierClient, err := classifier.New(cfg.Classifier)
	if err != nil {
		return err
	}
	vectorClient, err := vector.New(cfg.VectorIndex)
	if err != nil {
		return err
	}

	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	embedder := doccache.New(classifierClient, redisClient, doccache.WithLogger(log))

	// Domain services.
	aiEngine, err := engine.New(classifierClient, vectorClient, embedder,
		engine.WithLogger(log),
		engine.WithMetrics(enginemetrics.New()),
		engine.WithAuditEmitter(emitter),
		engine.WithClassifyTimeout(cfg.Classifier.Timeout),
	)
	if err != nil {
		return err
	}

	model, err := rbac.NewModel()
	if err != nil {
		return err
	}

	wf, err := workflow.New(wfStore, model,
		workflow.WithLogger(log),
		workflow.WithMetrics(wfmetrics.New()),
		workflow.WithAuditEmitter(emitter),
	)
	if err != nil {
		return err
	}

	docs, err := document.New(docStore, aiEngine, wf, embedder, vectorClient,
		document.WithLogger(log),
		document.WithAuditEmitter(emitter),
	)
	if err != nil {
		return err
	}

	comp, err := compliance.New(model,
		compliance.WithLogger(log),
		compliance.WithAuditEmitter(emitter),
	)
	if err != nil {
		return err
	}

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "kycgate", "kycgate")

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.RequestsPerMinute > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, time.Minute)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Documents:  docs,
		Workflows:  wf,
		Compliance: comp,
		Audit:      auditReader,
		Auth:       jwtService,
		RateLimit:  limiter,
		Logger:     log,
	})

	// Outbox relay. Runs only with both postgres and Kafka configured.
	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		relay, err := outbox.New(db, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic,
			outbox.WithLogger(log))
		if err != nil {
			return err
		}
		defer relay.Close()
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit relay stopped", "error", err)
			}
		}()
	}

	go sweepTimeouts(ctx, wf, cfg.TimeoutSweepInterval, log)

	srv := httpserver.New(cfg.Server.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("kycgate listening", "addr", cfg.Server.Addr)
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sweepTimeouts periodically surfaces review steps past their deadline.
// Breaches are audited and counted by the engine; escalation stays a human
// action.
func sweepTimeouts(ctx context.Context, wf *workflow.Engine, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			breaches, err := wf.CheckTimeouts(ctx)
			if err != nil {
				log.ErrorContext(ctx, "timeout sweep failed", "error", err)
				continue
			}
			if len(breaches) > 0 {
				log.WarnContext(ctx, "review steps past deadline", "count", len(breaches))
			}
		}
	}
}

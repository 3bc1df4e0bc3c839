package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"jojo/internal/audit"
	jwttoken "jojo/internal/jwt_token"
	"jojo/internal/messaging/email"
	"jojo/internal/messaging/sms"
	"jojo/internal/platform/config"
	"jojo/internal/platform/health"
	"jojo/internal/platform/kafka/producer"
	"jojo/internal/platform/logger"
	"jojo/internal/platform/mongo"
	"jojo/internal/platform/redis"
	"jojo/internal/ratelimit"
	"jojo/internal/server"
	"jojo/internal/storage/blob"
	"jojo/internal/verification/otp"
	"jojo/internal/verification/store"
	"jojo/pkg/platform/middleware/request"
)

const poolStatsInterval = 15 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, flush, err := logger.New(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer flush()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		flush()
		os.Exit(1)
	}
}

// infra holds the connections opened at startup so they can be closed in order.
type infra struct {
	mongo    *mongo.Client
	redis    *redis.Client
	producer *producer.Producer
}

func (i *infra) close(ctx context.Context, log *slog.Logger) {
	if i.producer != nil {
		if err := i.producer.Close(ctx); err != nil {
			log.Warn("kafka producer close failed", "error", err)
		}
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	}
	if i.mongo != nil {
		if err := i.mongo.Close(ctx); err != nil {
			log.Warn("mongo close failed", "error", err)
		}
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing instructor verification service",
		"addr", cfg.Server.Addr,
		"env", cfg.Server.Env,
	)

	checks := health.New(cfg.Server.Env)
	conns := &infra{}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		conns.close(closeCtx, log)
	}()

	backends, err := buildBackends(ctx, cfg, conns, checks, log)
	if err != nil {
		return err
	}

	verification := server.NewVerification(cfg, backends, prometheus.DefaultRegisterer, log)
	defer verification.Publisher.Close()

	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenTTL)
	router, err := server.NewRouter(cfg.Server, server.RouterDeps{
		Verification: verification.Handler,
		Health:       checks,
		Tokens:       jwttoken.NewJWTServiceAdapter(tokens),
		Latency:      request.NewMetrics(),
	}, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if conns.redis != nil {
		g.Go(func() error {
			ticker := time.NewTicker(poolStatsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					conns.redis.RecordPoolStats()
				}
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// buildBackends connects every configured backend and falls back to the
// in-memory adapter for the ones left unset. Validate has already rejected
// missing Mongo and Redis outside development.
func buildBackends(ctx context.Context, cfg *config.Config, conns *infra, checks *health.Handler, log *slog.Logger) (server.Backends, error) {
	b := server.InMemoryBackends(store.NewInMemory(), log)

	mc, err := mongo.Connect(ctx, cfg.Mongo)
	if err != nil {
		return b, err
	}
	if mc != nil {
		conns.mongo = mc
		records := store.NewMongo(mc.Database())
		if err := records.EnsureIndexes(ctx); err != nil {
			return b, fmt.Errorf("verification indexes: %w", err)
		}
		events := audit.NewMongoStore(mc.Database())
		if err := events.EnsureIndexes(ctx); err != nil {
			return b, fmt.Errorf("audit indexes: %w", err)
		}
		b.Records = records
		b.AuditStore = events
		checks.RegisterCheck("mongo", mc.Health)
	} else {
		log.Warn("JOJO_MONGO_URI not set, verification records are kept in memory")
	}

	rc, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return b, err
	}
	if rc != nil {
		conns.redis = rc
		b.Codes = otp.NewRedis(rc.Client)
		b.Limits = ratelimit.NewRedis(rc.Client)
		checks.RegisterCheck("redis", rc.Health)
	} else {
		log.Warn("JOJO_REDIS_URL not set, codes and send limits are kept in memory")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		p, err := producer.New(producer.Config{
			Brokers:         cfg.Kafka.Brokers,
			Retries:         3,
			DeliveryTimeout: 10 * time.Second,
			ClientID:        "instructor-verification",
		}, log)
		if err != nil {
			return b, err
		}
		conns.producer = p
		b.AuditSinks = append(b.AuditSinks, audit.NewKafkaSink(p, cfg.Kafka.AuditTopic))
		checks.RegisterCheck("kafka", p.Health)
	}

	if cfg.Email.APIKey != "" {
		b.EmailSender = email.NewResendSender(cfg.Email.APIKey, cfg.Email.From)
	} else {
		log.Warn("JOJO_RESEND_API_KEY not set, emails are logged instead of sent")
	}

	if cfg.SMS.APIKey != "" {
		b.SMSSender = sms.NewTermiiSender(cfg.SMS.APIKey, cfg.SMS.SenderID, cfg.SMS.Timeout, sms.WithBaseURL(cfg.SMS.BaseURL))
	} else {
		log.Warn("JOJO_TERMII_API_KEY not set, text messages are logged instead of sent")
	}

	if cfg.Storage.AccountName != "" {
		blobs, err := blob.NewAzureStore(cfg.Storage.AccountName, cfg.Storage.AccountKey, cfg.Storage.Container, cfg.Storage.URLTTL)
		if err != nil {
			return b, err
		}
		b.Blobs = blobs
	} else {
		log.Warn("JOJO_AZURE_ACCOUNT_NAME not set, uploads are kept in memory")
	}

	return b, nil
}

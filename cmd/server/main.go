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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"cookiegate/internal/audit"
	"cookiegate/internal/consent/handler"
	"cookiegate/internal/consent/metrics"
	"cookiegate/internal/consent/scripts"
	"cookiegate/internal/consent/service"
	"cookiegate/internal/consent/storage"
	"cookiegate/internal/consent/store"
	"cookiegate/internal/platform/config"
	"cookiegate/internal/platform/database"
	"cookiegate/internal/platform/health"
	"cookiegate/internal/platform/httpserver"
	"cookiegate/internal/platform/kafka/producer"
	"cookiegate/internal/platform/logger"
	"cookiegate/internal/platform/redis"
	"cookiegate/internal/platform/tracer"
	httptransport "cookiegate/internal/transport/http"
	"cookiegate/migrations"
	"cookiegate/pkg/platform/circuit"
	"cookiegate/pkg/platform/middleware/device"
	"cookiegate/pkg/platform/middleware/metadata"
	"cookiegate/pkg/platform/middleware/request"
	"cookiegate/pkg/platform/privacy"
)

const poolStatsInterval = 15 * time.Second

// main wires dependencies and keeps the server lifecycle small. Consent logic
// lives in internal/consent.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("cookiegate stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing cookiegate",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	healthHandler := health.New(cfg.Environment)
	var sinks []audit.PublisherOption

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	var mirror store.KeyValue
	if redisClient != nil {
		defer redisClient.Close()
		breaker := circuit.New("redis-mirror",
			circuit.WithStateChange(func(name string, from, to circuit.State) {
				log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			}),
		)
		mirror = store.NewGuarded(store.NewRedisStore(redisClient.Client, store.WithTTL(cfg.Redis.MirrorTTL)), breaker)
		healthHandler.RegisterOptional("redis", redisClient.Health)
	} else {
		log.Warn("REDIS_URL not set, device consent lookups are disabled")
	}

	pool, err := database.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if pool != nil {
		defer pool.Close()
		if err := database.Migrate(ctx, pool.DB(), migrations.FS); err != nil {
			return err
		}
		sinks = append(sinks, audit.WithSink(audit.NewPostgresStore(pool.DB())))
		healthHandler.RegisterCheck("postgres", pool.Health)
	}

	if cfg.Kafka.Brokers != "" {
		p, err := producer.New(producer.Config{
			Brokers:         cfg.Kafka.Brokers,
			Acks:            cfg.Kafka.Acks,
			Retries:         cfg.Kafka.Retries,
			DeliveryTimeout: cfg.Kafka.DeliveryTimeout,
		}, log)
		if err != nil {
			return err
		}
		defer p.Close()
		if err := p.EnsureTopic(ctx, cfg.Kafka.AuditTopic, cfg.Kafka.TopicPartitions, cfg.Kafka.ReplicationFactor); err != nil {
			log.Warn("could not ensure audit topic", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		sinks = append(sinks, audit.WithSink(audit.NewKafkaSink(p, cfg.Kafka.AuditTopic)))
		healthHandler.RegisterOptional("kafka", func(ctx context.Context) error {
			if !p.Healthy(ctx) {
				return errors.New("no reachable broker")
			}
			return nil
		})
	}

	publisher := audit.NewPublisher(append(sinks,
		audit.WithAsyncBuffer(cfg.Consent.AuditBuffer),
		audit.WithPublisherLogger(log),
	)...)
	defer publisher.Close()

	var hasher *privacy.IPHasher
	if cfg.Consent.AuditIPHashKey != "" {
		hasher, err = privacy.NewIPHasher(cfg.Consent.AuditIPHashKey)
		if err != nil {
			return fmt.Errorf("audit ip hash key: %w", err)
		}
	}

	consentMetrics := metrics.New()
	svc := service.New(
		service.WithLogger(log),
		service.WithMetrics(consentMetrics),
		service.WithTracer(tracer.NewOTel()),
		service.WithMirror(mirror),
		service.WithAuditor(publisher, audit.NewEnricher(hasher)),
		service.WithScripts(scripts.NewRegistry(scripts.Providers{
			GAMeasurementID: cfg.Scripts.GAMeasurementID,
			MetaPixelID:     cfg.Scripts.MetaPixelID,
			HotjarSiteID:    cfg.Scripts.HotjarSiteID,
			AffiliateTagURL: cfg.Scripts.AffiliateTagURL,
		})),
		service.WithStorageOptions(
			storage.WithRetention(cfg.Consent.Retention),
			storage.WithSecureCookies(cfg.Production()),
		),
	)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:  log,
		Health:  healthHandler,
		Metrics: request.NewMetrics(prometheus.DefaultRegisterer),
		Metadata: &metadata.Config{
			TrustedProxies: metadata.ParsePrefixes(cfg.TrustedProxies),
			CountryHeader:  cfg.CountryHeader,
		},
		Device:         device.Config{Secure: cfg.Production()},
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	}, handler.New(svc, log, cfg.CORSAllowedOrigin,
		handler.WithInternalToken(cfg.InternalToken),
	))

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if redisClient != nil {
		g.Go(func() error {
			ticker := time.NewTicker(poolStatsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					redisClient.RecordPoolStats()
				}
			}
		})
	}

	return g.Wait()
}

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/adapters/events"
	httpadapter "github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/adapters/http"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/adapters/verifier"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/ports"
	"github.com/viralforge/mesh/services/financial-rails/M46-collaboration-settlement-service/internal/tracing"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const serviceVersion = "1.0.0"

type storage struct {
	uow         ports.UnitOfWork
	idempotency ports.IdempotencyRepository
	eventDedup  ports.EventDedupRepository
	outbox      ports.OutboxRepository
	closeFn     func()
}

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	service    *application.Service
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	health     *health.Server
	outbox     *eventadapter.OutboxWorker
	consumer   *eventadapter.ConsumerWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	if cfg.TracingEnabled {
		if err := tracing.Init(cfg.ServiceID, serviceVersion, cfg.TracingFile); err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var closers []io.Closer
	breakdownCache := ports.BreakdownCache(cache.NewMemoryBreakdownCache())
	if cfg.RedisURL != "" {
		redisClient, redisErr := cache.Connect(ctx, cfg.RedisURL)
		if redisErr != nil {
			logger.WarnContext(ctx, "redis unavailable, using in-process breakdown cache",
				"module", "bootstrap",
				"layer", "runtime",
				"operation", "connect_redis",
				"outcome", "degraded",
				"error", redisErr,
			)
		} else {
			breakdownCache = cache.NewRedisBreakdownCache(redisClient)
			closers = append(closers, redisClient)
		}
	}

	tokens, err := security.NewHMACTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		store.closeFn()
		return nil, err
	}
	paymentVerifier, err := verifier.NewHMACVerifier(cfg.PaymentWebhookSecret)
	if err != nil {
		store.closeFn()
		return nil, err
	}

	service := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:       cfg.ServiceID,
			IdempotencyTTL:    cfg.IdempotencyTTL,
			EventDedupTTL:     cfg.EventDedupTTL,
			BreakdownCacheTTL: cfg.BreakdownCacheTTL,
		},
		UnitOfWork:  store.uow,
		Idempotency: store.idempotency,
		EventDedup:  store.eventDedup,
		Cache:       breakdownCache,
		Verifier:    paymentVerifier,
		Logger:      logger,
	})

	handler := httpadapter.NewHandler(service, tokens, logger)
	router := httpadapter.NewRouter(handler, httpadapter.RouterOptions{AllowedOrigins: cfg.CORSAllowedOrigins})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(cfg.ServiceID, healthpb.HealthCheckResponse_SERVING)

	publisher := ports.EventPublisher(eventadapter.NewLoggingPublisher(logger, cfg.TopicByEvent()))
	consumerAdapter := eventadapter.Consumer(eventadapter.NewNoopConsumer())
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.TopicByEvent())
		if pubErr != nil {
			logger.WarnContext(ctx, "kafka publisher disabled, using logging publisher", "error", pubErr)
		} else {
			publisher = kafkaPublisher
			closers = append(closers, kafkaPublisher)
		}

		kafkaConsumer, conErr := eventadapter.NewKafkaConsumer(
			cfg.KafkaBrokers,
			cfg.KafkaConsumerGroup,
			[]string{cfg.KafkaTopicPaymentVerified},
		)
		if conErr != nil {
			logger.WarnContext(ctx, "kafka consumer disabled, using noop consumer", "error", conErr)
		} else {
			consumerAdapter = kafkaConsumer
			closers = append(closers, kafkaConsumer)
		}
	}
	outbox := eventadapter.NewOutboxWorker(logger, store.outbox, publisher, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	consumer := eventadapter.NewConsumerWorker(logger, consumerAdapter, service, cfg.ConsumerPollInterval)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		service:    service,
		httpServer: httpServer,
		grpcServer: grpcServer,
		health:     healthSrv,
		outbox:     outbox,
		consumer:   consumer,
		cleanupFn: func(ctx context.Context) {
			for _, closer := range closers {
				_ = closer.Close()
			}
			store.closeFn()
			if cfg.TracingEnabled {
				_ = tracing.Shutdown(ctx)
			}
		},
	}, nil
}

func openStorage(ctx context.Context, cfg Config) (storage, error) {
	if cfg.StorageDriver == StorageDriverMemory {
		mem := memory.NewStore()
		return storage{
			uow:         mem,
			idempotency: mem.Idempotency(),
			eventDedup:  mem.EventDedup(),
			outbox:      mem.Outbox(),
			closeFn:     func() {},
		}, nil
	}
	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return storage{}, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return storage{}, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return storage{}, err
	}
	repos := postgres.NewRepositories(db)
	return storage{
		uow:         repos.UnitOfWork,
		idempotency: repos.Idempotency,
		eventDedup:  repos.EventDedup,
		outbox:      repos.Outbox,
		closeFn:     func() { _ = sqlDB.Close() },
	}, nil
}

// RunAPI serves HTTP and gRPC health. With the memory driver the relay and
// consumer run in the same process, since nothing else can see the state.
func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 4)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		r.cleanupFn(context.Background())
		return err
	}
	r.grpcLis = lis

	go func() {
		r.logger.InfoContext(ctx, "http server listening",
			"module", "bootstrap",
			"layer", "runtime",
			"operation", "run_api",
			"outcome", "start",
			"addr", r.httpServer.Addr,
		)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- err
		}
	}()
	if r.cfg.StorageDriver == StorageDriverMemory {
		r.startWorkers(ctx, errCh)
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure",
			"module", "bootstrap",
			"layer", "runtime",
			"operation", "run_api",
			"outcome", "failure",
			"error", err,
		)
	}
	r.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 2)
	r.startWorkers(ctx, errCh)

	select {
	case <-ctx.Done():
		r.cleanupFn(context.Background())
		return nil
	case err := <-errCh:
		r.cleanupFn(context.Background())
		return err
	}
}

func (r *Runtime) startWorkers(ctx context.Context, errCh chan<- error) {
	go func() {
		if err := r.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
}

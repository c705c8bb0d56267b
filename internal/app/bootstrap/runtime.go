package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/createnexxusvision/NILPOC/internal/adapters/cache"
	eventadapter "github.com/createnexxusvision/NILPOC/internal/adapters/events"
	httpadapter "github.com/createnexxusvision/NILPOC/internal/adapters/http"
	"github.com/createnexxusvision/NILPOC/internal/adapters/memory"
	"github.com/createnexxusvision/NILPOC/internal/adapters/postgres"
	"github.com/createnexxusvision/NILPOC/internal/adapters/receipts"
	"github.com/createnexxusvision/NILPOC/internal/adapters/security"
	"github.com/createnexxusvision/NILPOC/internal/adapters/treasury"
	"github.com/createnexxusvision/NILPOC/internal/application"
	"github.com/createnexxusvision/NILPOC/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("bootstrapping settlement engine", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	cleanup := func(context.Context) {}

	// Repository wiring: Postgres when a database URL is configured,
	// in-process stores otherwise. The in-process mode exists for local
	// development and has no durability.
	var repos postgres.Repositories
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		sqlDB, err := pool.DB()
		if err != nil {
			return nil, fmt.Errorf("gorm sql db: %w", err)
		}
		if err := postgres.AutoMigrate(ctx, pool); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		repos = postgres.NewRepositories(pool)
		cleanup = func(context.Context) { _ = sqlDB.Close() }
	} else {
		logger.Warn("no database configured, using in-process stores")
		repos = postgres.Repositories{
			Deals:      memory.NewDealRepository(),
			Grants:     memory.NewGrantRepository(),
			Splits:     memory.NewSplitRepository(),
			Payouts:    memory.NewPayoutRepository(),
			Accounting: memory.NewAccountingRepository(),
			PartyStats: memory.NewPartyStatsRepository(),
			Nonces:     memory.NewNonceRepository(),
			Outbox:     memory.NewOutboxRepository(),
		}
	}

	var breaker ports.CircuitBreaker
	if cfg.RedisURL != "" {
		redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			cleanup(ctx)
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cleanup(ctx)
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		breaker = cacheadapter.NewRedisCircuitBreaker(redisClient)
		prevCleanup := cleanup
		cleanup = func(ctx context.Context) {
			_ = redisClient.Close()
			prevCleanup(ctx)
		}
	} else {
		logger.Warn("no redis configured, pause flag is process local")
		breaker = cacheadapter.NewStaticCircuitBreaker()
	}

	capabilities := security.NewStaticCapabilityDirectory()
	capabilities.ParseGrantSpec(cfg.CapabilityGrants)
	signerKeys := security.NewStaticSignerKeyDirectory()
	if err := signerKeys.ParseKeySpec(cfg.SignerKeys); err != nil {
		cleanup(ctx)
		return nil, fmt.Errorf("load signer keys: %w", err)
	}

	svc, err := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:              cfg.ServiceID,
			FeeBps:                   cfg.FeeBps,
			FeeRecipient:             cfg.FeeRecipient,
			GrantsRequireAttestation: cfg.GrantsRequireAttestation,
			MaxSplitRecipients:       cfg.MaxSplitRecipients,
		},
		Deals:        repos.Deals,
		Grants:       repos.Grants,
		Splits:       repos.Splits,
		Payouts:      repos.Payouts,
		Accounting:   repos.Accounting,
		PartyStats:   repos.PartyStats,
		Nonces:       repos.Nonces,
		Outbox:       repos.Outbox,
		Treasury:     treasury.NewLedger(),
		Capabilities: capabilities,
		Breaker:      breaker,
		Minter:       receipts.NewLogMinter(logger),
		SignerKeys:   signerKeys,
		Logger:       logger,
	})
	if err != nil {
		cleanup(ctx)
		return nil, fmt.Errorf("init service: %w", err)
	}

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler, cfg.GatewayJWTSecret)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		cleanup(ctx)
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		eventadapter.NewLogPublisher(logger),
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
	)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     outbox,
		cleanupFn:  cleanup,
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

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

	r.logger.Info("outbox worker started")
	err := r.outbox.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}

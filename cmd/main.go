package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"developertok/internal/adapters"
	"developertok/internal/bootstrap"
	authDelivery "developertok/internal/delivery/auth"
	healthDelivery "developertok/internal/delivery/health"
	progressDelivery "developertok/internal/delivery/progress"
	ownMiddleware "developertok/internal/middleware"
	"developertok/internal/repository"
	authUC "developertok/internal/usecase/auth"
	progressUC "developertok/internal/usecase/progress"
)

type accountStore interface {
	authUC.AccountStorage
	healthDelivery.Pinger
}

type mainDeliveryHandler struct {
	auth     *authDelivery.AuthHandler
	progress *progressDelivery.ProgressHandler
	health   *healthDelivery.HealthHandler
	metrics  *ownMiddleware.Metrics
}

type dataBaseAdapters struct {
	redisAdapter *adapters.AdapterRedis
	mongoAdapter *adapters.AdapterMongo
}

// application is everything a running server owns. It is built once in
// main and handed down explicitly.
type application struct {
	cfg      bootstrap.Config
	log      *zap.SugaredLogger
	adapters dataBaseAdapters
	accounts accountStore
	tokens   authUC.TokenStorage
}

func main() {
	logger := NewLogger()
	defer func() { _ = logger.Sync() }()

	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Error("Failed to setup configuration", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleShutdown(cancel, logger)

	app, err := newApplication(ctx, *cfg, logger)
	if err != nil {
		logger.Errorf("Failed to initialize application: %v", err)
		return
	}
	defer app.Close()

	r := chi.NewRouter()
	handlers := initializeDeliveryHandlers(app, prometheus.NewRegistry())
	handlers.Router(r, cfg.IsLocalCors, cfg.CorsOrigins, cfg.MetricsEnabled)

	listener, err := listenWithFallback(cfg.ServerPort, cfg.PortAttempts, logger)
	if err != nil {
		logger.Errorf("Failed to listen: %v", err)
		return
	}

	server := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server forced to shutdown: %v", err)
		}
	}()

	logger.Infof("Server is running on %s", listener.Addr())
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("Server error: %v", err)
	}
	logger.Info("Server stopped")
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

func (h *mainDeliveryHandler) Router(r *chi.Mux, isLocalCors bool, corsOrigins []string, metricsEnabled bool) {
	if isLocalCors {
		r.Use(ownMiddleware.CORS(corsOrigins))
	}
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	if metricsEnabled {
		r.Use(h.metrics.Middleware)
		r.Handle("/metrics", h.metrics.Handler())
	}

	r.Get("/healthz", h.health.Live)
	r.Get("/readyz", h.health.Ready)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.auth.Register)
		r.Post("/login", h.auth.Login)
		r.Post("/logout", h.auth.Logout)

		r.Get("/user", h.auth.GetUser)
		r.Post("/user/progress", h.auth.UpdateProgress)
		r.Post("/user/lessons/complete", h.progress.CompleteLesson)
		r.Post("/user/challenges/complete", h.progress.CompleteChallenge)
		r.Post("/user/badges", h.progress.AwardBadge)
	})
}

// newApplication wires storage according to cfg: MongoDB unless development
// runs without a URI, Redis for revoked tokens when configured.
func newApplication(ctx context.Context, cfg bootstrap.Config, log *zap.SugaredLogger) (*application, error) {
	app := &application{cfg: cfg, log: log}

	if cfg.UseMemoryStore() {
		log.Info("Using in-memory account store for development")
		app.accounts = repository.NewMemoryAccountStorage()
	} else {
		mongoAdapter := adapters.NewAdapterMongo(&cfg, log)
		if err := mongoAdapter.Init(ctx); err != nil {
			return nil, fmt.Errorf("init mongo: %w", err)
		}
		app.adapters.mongoAdapter = mongoAdapter

		storage := repository.NewMongoAccountStorage(mongoAdapter.Database, log)
		if err := storage.EnsureIndexes(ctx); err != nil {
			app.Close()
			return nil, err
		}
		app.accounts = mongoAccountStore{MongoAccountStorage: storage, adapter: mongoAdapter}
	}

	if cfg.RedisUrl != "" {
		redisAdapter := adapters.NewAdapterRedis(&cfg, log)
		if err := redisAdapter.Init(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		app.adapters.redisAdapter = redisAdapter
		app.tokens = repository.NewTokenRedisStorage(redisAdapter.GetClient())
	} else {
		log.Info("REDIS_URL is empty, revoked tokens are kept in memory")
		app.tokens = repository.NewMemoryTokenStorage()
	}

	return app, nil
}

func (a *application) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.adapters.mongoAdapter != nil {
		if err := a.adapters.mongoAdapter.Close(ctx); err != nil {
			a.log.Warnf("Failed to close MongoDB: %v", err)
		}
	}
	if a.adapters.redisAdapter != nil {
		if err := a.adapters.redisAdapter.Close(ctx); err != nil {
			a.log.Warnf("Failed to close Redis: %v", err)
		}
	}
}

type mongoAccountStore struct {
	*repository.MongoAccountStorage
	adapter *adapters.AdapterMongo
}

func (s mongoAccountStore) Ping(ctx context.Context) error {
	return s.adapter.Ping(ctx)
}

func initializeDeliveryHandlers(app *application, reg *prometheus.Registry) *mainDeliveryHandler {
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tokens := authUC.NewTokenManager(app.cfg.JwtSecret, app.cfg.TokenTTL)
	authUsecase := authUC.NewAuthUsecaseHandler(app.accounts, app.tokens, tokens, app.cfg.BcryptCost, app.log)
	progressUsecase := progressUC.NewProgressUsecaseHandler(app.accounts, app.log)

	authDeliveryHandler := authDelivery.NewAuthHandler(authUsecase, app.log)

	return &mainDeliveryHandler{
		auth:     authDeliveryHandler,
		progress: progressDelivery.NewProgressHandler(progressUsecase, authDeliveryHandler, app.log),
		health:   healthDelivery.NewHealthHandler(app.accounts, app.log),
		metrics:  ownMiddleware.NewMetrics("developertok", reg),
	}
}

// listenWithFallback tries port, port+1, ... while the address is in use.
func listenWithFallback(port, attempts int, log *zap.SugaredLogger) (net.Listener, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		addr := fmt.Sprintf(":%d", port+i)
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen %s: %w", addr, err)
		}
		log.Warnf("Port %d is busy, trying port %d", port+i, port+i+1)
		lastErr = err
	}
	return nil, fmt.Errorf("no free port in %d..%d: %w", port, port+attempts-1, lastErr)
}

func handleShutdown(cancelFunc context.CancelFunc, log *zap.SugaredLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("Received shutdown signal")
	cancelFunc()
}

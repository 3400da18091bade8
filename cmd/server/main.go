package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"clinic-dashboard/internal/config"
	"clinic-dashboard/internal/grpcweb"
	"clinic-dashboard/internal/handler"
	"clinic-dashboard/internal/identity"
	"clinic-dashboard/internal/logging"
	"clinic-dashboard/internal/metrics"
	"clinic-dashboard/internal/middleware"
	"clinic-dashboard/internal/model"
	"clinic-dashboard/internal/store"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	// database
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	logger.Info("connected to postgres")

	// run migrations
	if migration, err := os.ReadFile("db/migrations/001_init.sql"); err != nil {
		logger.Warn("migration file not found, skipping", zap.Error(err))
	} else if _, err := pool.Exec(ctx, string(migration)); err != nil {
		logger.Warn("migration failed", zap.Error(err))
	} else {
		logger.Info("migration applied")
	}

	st := store.New(pool)
	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rl.Close()

	// grpc identity service
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.RateLimit(rl),
			middleware.Auth(cfg.JWTSecret, model.RoleDoctor),
		),
	)
	identity.RegisterIdentityServer(srv, identity.NewService(st))

	lis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		logger.Fatal("grpc listen", zap.Error(err))
	}
	go func() {
		logger.Info("grpc listening", zap.String("port", cfg.Port))
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc serve", zap.Error(err))
		}
	}()

	// grpc-web bridge for browser dashboards
	bridge, err := grpcweb.Dial("localhost:"+cfg.Port, logger, identity.WhoAmIMethod)
	if err != nil {
		logger.Fatal("grpc-web bridge", zap.Error(err))
	}
	defer bridge.Close()

	// rest api
	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)
	h := handler.New(st, cfg.JWTSecret,
		handler.WithTokenTTL(cfg.TokenTTL),
		handler.WithLogger(logger),
	)

	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Instrument(httpMetrics))
	h.Routes(r, middleware.RateLimitHTTP(rl))
	r.Handle("/metrics", metrics.Handler())
	r.Handle("/"+identity.ServiceName+"/*", bridge.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.WebPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http listening", zap.String("port", cfg.WebPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	srv.GracefulStop()
}

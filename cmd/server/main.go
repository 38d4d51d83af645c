// Package main wires the HTTP API and the gRPC health server.
package main

import (
	"context"
	"errors"
	"net"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"meeting-tracker/internal/auth"
	"meeting-tracker/internal/config"
	"meeting-tracker/internal/handler"
	"meeting-tracker/internal/health"
	"meeting-tracker/internal/logger"
	"meeting-tracker/internal/middleware"
	"meeting-tracker/internal/revocation"
	"meeting-tracker/internal/service"
	"meeting-tracker/internal/store"
	"meeting-tracker/internal/store/memory"
)

var (
	_ service.Store = (*store.Store)(nil)
	_ service.Store = (*memory.Store)(nil)
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.App.Name)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	st := openStore(log, cfg)
	if err := st.OnStart(ctx); err != nil {
		log.Errorw("storage start error", "backend", cfg.Storage.Backend, "error", err)
		return
	}
	defer func() {
		_ = st.OnStop(context.Background())
	}()

	var denylist revocation.Denylist = revocation.Nop{}
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Errorw("redis ping failed", "addr", cfg.Redis.Addr, "error", err)
			return
		}
		denylist = revocation.NewRedis(rdb)
		log.Infow("token denylist enabled", "addr", cfg.Redis.Addr)
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.App.Name, cfg.Auth.AccessTTL)
	svc := service.New(log, st, tokens, denylist, service.Options{
		RefreshTTL:          cfg.Auth.RefreshTTL,
		AllowedEmailDomains: cfg.App.AllowedEmailDomains,
		Location:            cfg.Location(),
		Timeout:             cfg.HTTP.RequestTimeout,
	})
	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	serv := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTP.RequestTimeout,
		WriteTimeout: cfg.HTTP.RequestTimeout,
	})
	serv.Use(recover.New())
	serv.Use(requestid.New())
	serv.Use(middleware.Auth(svc, log))
	serv.Use(middleware.RequestLogger(log))

	h := handler.New(log, svc, handler.Options{CookieSecure: cfg.Auth.CookieSecure})
	h.Register(serv.Group("/api"), limiter)

	checker := health.NewChecker(log, st, cfg.App.Name, cfg.Health.Interval)
	go checker.Run(ctx)
	grpcSrv := health.NewServer(log, checker, limiter)

	go func() {
		if err := serveGRPC(grpcSrv, cfg.GRPCAddr()); err != nil {
			log.Errorw("grpc server stopped", "error", err)
		}
	}()
	go func() {
		if err := serv.Listen(cfg.ServerAddr()); err != nil {
			log.Errorw("failed to start server", "error", err)
		}
	}()
	log.Infow("listening", "http", cfg.ServerAddr(), "grpc", cfg.GRPCAddr(), "storage", cfg.Storage.Backend)

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = serv.Shutdown()
		grpcSrv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		grpcSrv.Stop()
		log.Warnw("server shutdown timeout", "timeout", cfg.Server.ShutdownTimeout)
	}
}

func openStore(log *zap.SugaredLogger, cfg *config.Config) service.Store {
	if cfg.Storage.Backend == "memory" {
		log.Warnw("using in-memory storage; data is lost on restart")
		return memory.New()
	}
	return store.New(log, cfg.Postgres)
}

func serveGRPC(srv *grpc.Server, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

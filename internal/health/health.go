// Package health serves the gRPC health protocol. The reported status
// follows database reachability.
package health

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"meeting-tracker/internal/middleware"
)

const defaultInterval = 15 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Checker struct {
	log      *zap.SugaredLogger
	srv      *health.Server
	db       Pinger
	service  string
	interval time.Duration
}

// NewChecker starts in NOT_SERVING until the first successful check.
func NewChecker(log *zap.SugaredLogger, db Pinger, service string, interval time.Duration) *Checker {
	if interval <= 0 {
		interval = defaultInterval
	}
	c := &Checker{
		log:      log.Named("health"),
		srv:      health.NewServer(),
		db:       db,
		service:  service,
		interval: interval,
	}
	c.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return c
}

// Run checks once immediately and then on every interval until ctx ends,
// at which point every service is marked NOT_SERVING.
func (c *Checker) Run(ctx context.Context) {
	t := time.NewTicker(c.interval)
	defer t.Stop()

	c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			c.srv.Shutdown()
			return
		case <-t.C:
			c.Check(ctx)
		}
	}
}

// Check pings the database and publishes the result.
func (c *Checker) Check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.interval)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		c.log.Warnw("database unreachable", "error", err)
		c.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	c.set(healthpb.HealthCheckResponse_SERVING)
}

func (c *Checker) set(s healthpb.HealthCheckResponse_ServingStatus) {
	c.srv.SetServingStatus("", s)
	c.srv.SetServingStatus(c.service, s)
}

// NewServer builds the gRPC server with rate limiting and call logging in
// front of the health service.
func NewServer(log *zap.SugaredLogger, c *Checker, rl *middleware.RateLimiter) *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		middleware.RateLimit(rl),
		middleware.UnaryLogger(log.Named("grpc")),
	))
	healthpb.RegisterHealthServer(srv, c.srv)
	reflection.Register(srv)
	return srv
}

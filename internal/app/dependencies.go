// Package app wires the shared runtime used by the API and the poll worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/paynet-bridge/internal/config"
	"github.com/noah-isme/paynet-bridge/internal/gateway"
	"github.com/noah-isme/paynet-bridge/internal/lock"
	"github.com/noah-isme/paynet-bridge/internal/payment"
	"github.com/noah-isme/paynet-bridge/internal/poller"
	"github.com/noah-isme/paynet-bridge/internal/ratelimit"
	"github.com/noah-isme/paynet-bridge/internal/replay"
	"github.com/noah-isme/paynet-bridge/internal/resilience"
	"github.com/noah-isme/paynet-bridge/internal/session"
)

// Options toggles optional instrumentation.
type Options struct {
	RedisMetrics bool
}

// Dependencies enumerates the services shared by cmd/api and cmd/worker.
type Dependencies struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Redis      *redis.Client
	RedisConn  asynq.RedisConnOpt
	Breaker    *resilience.Breaker
	Gateway    *gateway.Transport
	Validator  *validator.Validate
	TaskClient *asynq.Client
	Scheduler  poller.Scheduler
	Payments   *payment.Service
}

// NewRedis connects to Redis with tracing (and optionally metrics) instrumentation.
func NewRedis(ctx context.Context, redisURL string, withMetrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if withMetrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// New builds the payment service and everything it depends on.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	rdb, err := NewRedis(ctx, cfg.RedisURL, opts.RedisMetrics, logger)
	if err != nil {
		return nil, err
	}
	connOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("parse asynq redis uri: %w", err)
	}

	breaker := resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRatio, cfg.CircuitOpenFor).
		WithTarget("paynet").
		WithLogger(logger)
	transport := gateway.New(cfg.Paynet.BaseURL, breaker, cfg.Paynet.Timeout, cfg.StatusRetryAttempts, cfg.RetryBaseBackoff, logger)
	taskClient := asynq.NewClient(connOpt)
	scheduler := poller.Scheduler{
		Client:      taskClient,
		Queue:       cfg.PollQueue,
		Interval:    cfg.PollInterval,
		MaxInterval: cfg.PollMaxInterval,
		Jitter:      cfg.PollJitter,
		MaxRetry:    3,
		Logger:      logger,
	}
	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := &payment.Service{
		Config:    cfg.Paynet.QueryConfig(),
		Transport: transport,
		Sessions:  session.Store{R: rdb, TTL: cfg.SessionTTL},
		Locker:    lock.Locker{R: rdb, RetryBackoff: cfg.LockRetryBackoff, MaxWait: cfg.LockTTL},
		LockTTL:   cfg.LockTTL,
		Replay:    replay.Guard{Client: rdb, TTL: cfg.ReplayTTL},
		Poller:    scheduler,
		MaxPolls:  cfg.PollMaxAttempts,
		Logger:    logger.With().Str("component", "payment").Logger(),
		Validate:  validate,
	}

	return &Dependencies{
		Config:     cfg,
		Logger:     logger,
		Redis:      rdb,
		RedisConn:  connOpt,
		Breaker:    breaker,
		Gateway:    transport,
		Validator:  validate,
		TaskClient: taskClient,
		Scheduler:  scheduler,
		Payments:   svc,
	}, nil
}

// PaymentLimiter is the sliding window guarding payment creation.
func (d *Dependencies) PaymentLimiter() ratelimit.Handler {
	return ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: d.Redis, Prefix: "paynet:rl:pay:"},
		Config: ratelimit.Config{
			Key:    ratelimit.ByClientIP("payments"),
			Window: d.Config.PaymentRateLimitWindow,
			Max:    d.Config.PaymentRateLimitMax,
		},
		OnError: func(err error) { d.Logger.Warn().Err(err).Msg("payment rate limiter unavailable") },
	}
}

// CallbackLimiter is the fixed window guarding the gateway callback endpoint.
func (d *Dependencies) CallbackLimiter() (ratelimit.Handler, error) {
	store, err := ratelimit.NewRedisStoreLimiter(d.Redis, "paynet:rl:cb", d.Config.CallbackRateLimit)
	if err != nil {
		return ratelimit.Handler{}, err
	}
	return ratelimit.Handler{
		Limiter: store,
		Config:  ratelimit.Config{Key: ratelimit.ByClientIP("callbacks"), Max: store.Limit()},
		OnError: func(err error) { d.Logger.Warn().Err(err).Msg("callback rate limiter unavailable") },
	}, nil
}

// PingRedis implements health.Checker.
func (d *Dependencies) PingRedis(ctx context.Context, timeout time.Duration) error {
	if d == nil || d.Redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Redis.Ping(ctx).Err()
}

// GatewayOpen implements health.Checker.
func (d *Dependencies) GatewayOpen() bool {
	return d != nil && d.Breaker != nil && d.Breaker.State() == resilience.Open
}

// Close releases the task client and the Redis connection.
func (d *Dependencies) Close() error {
	var errs []error
	if d.TaskClient != nil {
		errs = append(errs, d.TaskClient.Close())
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	return errors.Join(errs...)
}

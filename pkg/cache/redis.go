package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghuser/productcatalog/pkg/config"
	"github.com/ghuser/productcatalog/pkg/telemetry"
)

// sessionKeyPrefix matches the keys written by auth.RedisStore.
const sessionKeyPrefix = listingCacheKeyPrefix + ":session:"

// RedisClient is the connection shared by the session store and the listing cache.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects to cfg.RedisURL, traces every command, and verifies
// the server answers within two seconds.
func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	rdb.AddHook(tracingHook{})

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisClient{client: rdb}, nil
}

// clientOptions parses the URL and sizes the pool for the API's mix of one
// session read plus a few listing writes per request.
func clientOptions(cfg *config.Config) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if opts.ClientName == "" {
		// Shows up in CLIENT LIST next to the worker's connections.
		opts.ClientName = cfg.ServiceName
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second
	return opts, nil
}

// Ping reports whether Redis answers. Used by the /health endpoint.
func (r *RedisClient) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close shuts down the connection pool.
func (r *RedisClient) Close() error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}

// Client returns the underlying redis.Client for the session store.
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

// tracingHook opens a client span per command so cache writes made by the
// listing subscriber show up under the event that triggered them.
type tracingHook struct{}

func (tracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (tracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := telemetry.Tracer().Start(ctx, "redis."+cmd.Name(),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(commandAttrs(cmd)...),
		)
		defer span.End()

		err := next(ctx, cmd)
		recordError(span, err)
		return err
	}
}

func (tracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		names := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			names = append(names, cmd.Name())
		}
		ctx, span := telemetry.Tracer().Start(ctx, "redis.pipeline",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("db.system", "redis"),
				attribute.String("db.operation", strings.Join(names, " ")),
				attribute.Int("db.redis.pipeline_length", len(cmds)),
			),
		)
		defer span.End()

		err := next(ctx, cmds)
		recordError(span, err)
		return err
	}
}

// commandAttrs records the command and, for catalog keys, the key itself.
// Session keys are left out since they name a live session ID.
func commandAttrs(cmd redis.Cmder) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", cmd.Name()),
	}
	args := cmd.Args()
	if len(args) < 2 {
		return attrs
	}
	if key, ok := args[1].(string); ok && strings.HasPrefix(key, listingCacheKeyPrefix+":") && !strings.HasPrefix(key, sessionKeyPrefix) {
		attrs = append(attrs, attribute.String("db.redis.key", key))
	}
	return attrs
}

func recordError(span trace.Span, err error) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Package relay mirrors published frames onto Redis pub/sub so subscribers in
// other processes can follow the same topics.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

var (
	ErrEmptyConnectionURL = errors.New("empty redis connection URL")
	ErrInvalidURL         = errors.New("failed to parse redis connection string")
	ErrNotReady           = errors.New("redis did not become ready")
)

type Config struct {
	URL           string
	ChannelPrefix string
	RetryAttempts int
	RetryInterval time.Duration
}

// Redis publishes every mirrored frame to channel <prefix><topic>.
type Redis struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// Connect parses cfg.URL and pings the server, retrying with exponential backoff.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Redis, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, ErrEmptyConnectionURL
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	client := redis.NewClient(opts)

	attempt := 0
	ping := func() error {
		attempt++
		err := client.Ping(ctx).Err()
		if err != nil {
			logger.Warn("redis_ping_failed",
				"attempt", attempt,
				"addr", opts.Addr,
				"error", err.Error(),
			)
		}
		return err
	}
	if err := backoff.Retry(ping, newBackOff(ctx, cfg)); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrNotReady, attempt, err)
	}

	logger.Info("redis_relay_connected", "addr", opts.Addr, "prefix", cfg.ChannelPrefix)
	return &Redis{client: client, prefix: cfg.ChannelPrefix, logger: logger}, nil
}

func newBackOff(ctx context.Context, cfg Config) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if cfg.RetryInterval > 0 {
		b.InitialInterval = cfg.RetryInterval
	}
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Channel is the Redis channel a topic is mirrored to.
func (r *Redis) Channel(topic string) string {
	return ChannelName(r.prefix, topic)
}

func ChannelName(prefix, topic string) string {
	return prefix + topic
}

func (r *Redis) Mirror(ctx context.Context, topic string, frame []byte) error {
	if err := r.client.Publish(ctx, r.Channel(topic), frame).Err(); err != nil {
		return fmt.Errorf("failed to mirror frame to redis: %w", err)
	}
	return nil
}

// Healthcheck pings Redis.
func (r *Redis) Healthcheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Client exposes the underlying client, e.g. for subscribing in tests or tools.
func (r *Redis) Client() *redis.Client { return r.client }

func (r *Redis) Close() error {
	return r.client.Close()
}

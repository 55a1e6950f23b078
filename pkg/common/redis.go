package common

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/coldreach/autoreply/pkg/types"
	"github.com/redis/go-redis/v9"
)

const redisConnectTimeout = 10 * time.Second

// RedisClient wraps a go-redis universal client so call sites don't care
// whether we're talking to a single node or a cluster.
type RedisClient struct {
	redis.UniversalClient
}

type redisClientOptions struct {
	clientName string
}

type RedisClientOption func(*redisClientOptions)

// WithClientName sets the connection name reported to Redis
func WithClientName(name string) RedisClientOption {
	return func(o *redisClientOptions) {
		o.clientName = name
	}
}

// NewRedisClient connects to Redis and verifies the connection with a ping
func NewRedisClient(cfg types.RedisConfig, opts ...RedisClientOption) (*RedisClient, error) {
	options := &redisClientOptions{clientName: cfg.ClientName}
	for _, opt := range opts {
		opt(options)
	}

	universalOpts := &redis.UniversalOptions{
		Addrs:        cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		ClientName:   options.clientName,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	}

	if cfg.EnableTLS {
		universalOpts.TLSConfig = &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		}
	}

	var client redis.UniversalClient
	if cfg.Mode == types.RedisModeCluster {
		client = redis.NewClusterClient(universalOpts.Cluster())
	} else {
		client = redis.NewClient(universalOpts.Simple())
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{UniversalClient: client}, nil
}

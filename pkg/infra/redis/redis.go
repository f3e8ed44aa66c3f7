package redis_wrapper

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisConfig struct {
	ConnectionURL       string `yaml:"connection_url"`
	PoolSize            int    `yaml:"pool_size"`
	DialTimeoutSeconds  int    `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `yaml:"idle_timeout_seconds"`
	ConnectRetrySeconds int    `yaml:"connect_retry_seconds"` // 0 tries once
}

func newOptions(redisCfg *RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(redisCfg.ConnectionURL)
	if err != nil {
		zap.S().Debugf("parse redis url fail: %+v", err)
		return nil, err
	}

	if redisCfg.PoolSize > 0 {
		opts.PoolSize = redisCfg.PoolSize
	}
	if redisCfg.DialTimeoutSeconds > 0 {
		opts.DialTimeout = time.Duration(redisCfg.DialTimeoutSeconds) * time.Second
	}
	if redisCfg.ReadTimeoutSeconds > 0 {
		opts.ReadTimeout = time.Duration(redisCfg.ReadTimeoutSeconds) * time.Second
	}
	if redisCfg.WriteTimeoutSeconds > 0 {
		opts.WriteTimeout = time.Duration(redisCfg.WriteTimeoutSeconds) * time.Second
	}
	if redisCfg.IdleTimeoutSeconds > 0 {
		opts.ConnMaxIdleTime = time.Duration(redisCfg.IdleTimeoutSeconds) * time.Second
	}
	return opts, nil
}

// InitRedis creates a redis client and pings it, retrying with exponential
// backoff for up to connect_retry_seconds.
func InitRedis(ctx context.Context, redisCfg *RedisConfig) (*redis.Client, error) {
	opts, err := newOptions(redisCfg)
	if err != nil {
		return nil, err
	}
	redisClient := redis.NewClient(opts)

	var b backoff.BackOff = &backoff.StopBackOff{}
	if redisCfg.ConnectRetrySeconds > 0 {
		boff := backoff.NewExponentialBackOff()
		boff.MaxElapsedTime = time.Duration(redisCfg.ConnectRetrySeconds) * time.Second
		b = boff
	}

	err = backoff.Retry(func() error {
		err := redisClient.Ping(ctx).Err()
		if err != nil {
			zap.S().Warnf("ping redis %s fail: %v", opts.Addr, err)
		}
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		_ = redisClient.Close()
		return nil, err
	}

	zap.S().Debug("connect to redis successful")
	return redisClient, nil
}

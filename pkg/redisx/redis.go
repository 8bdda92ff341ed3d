package redisx

import (
	"context"
	"strings"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Address   string `json:"address" yaml:"address" mapstructure:"address"`
	Username  string `json:"username" yaml:"username" mapstructure:"username"`
	Password  string `json:"password" yaml:"password" mapstructure:"password"`
	DB        int    `json:"db" yaml:"db" mapstructure:"db"`
	RedisType string `json:"redisType" yaml:"redis-type" mapstructure:"redis-type"`
}

type Redis redis.Cmdable

func NewRedis(cfg RedisConfig) (Redis, error) {
	var redisClient Redis

	switch cfg.RedisType {
	case "standalone", "":
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})

	case "cluster":
		redisClient = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    strings.Split(cfg.Address, ","),
			Username: cfg.Username,
			Password: cfg.Password,
		})

	case "miniredis":
		// 内嵌redis，仅用于本地与测试
		s, err := miniredis.Run()
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to initial miniredis")
		}
		redisClient = redis.NewClient(&redis.Options{
			Addr: s.Addr(),
		})

	default:
		return nil, errors.Errorf("failed to initial redisx, redisx type is illegal: %s", cfg.RedisType)
	}

	err := redisClient.Ping(context.Background()).Err()
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to ping redisx")
	}
	return redisClient, nil
}

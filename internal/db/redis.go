package db

import (
	"backend-trailplan/internal/config"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis builds a client for the event fan-out backend. Redis is
// optional: with no address configured the server runs single-node and this
// returns nil.
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

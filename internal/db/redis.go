package db

import (
	"context"
	"log"
	"time"

	"backend-routetracker/internal/config"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a client for the live stream fan-out, or nil when no
// address is configured or the server does not answer. Without redis every
// replica delivers stream messages to its own websocket clients only.
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DialTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis unavailable at %s, stream stays local: %v", cfg.RedisAddr, err)
		_ = client.Close()
		return nil
	}
	return client
}

package database

import (
	"context"
	"log"
	"time"

	"api/config"

	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client

// InitRedis initializes the Redis client used as the session fast cache.
// A failed ping is only logged: the session layer degrades to store-only
// operation when the cache is unreachable.
func InitRedis() {
	Redis = redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		PoolSize: 20,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Redis.Ping(ctx).Err(); err != nil {
		log.Println("Redis unreachable, session cache degraded: ", err)
	}
}

package database

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// InitRedis connects to the Redis instance backing the notification queue
// and the token blacklist. Redis is optional infrastructure here: when it
// is unreachable the server starts anyway and both consumers degrade
// (notifications deliver inline via logs, revocation checks pass).
func InitRedis() *redis.Client {
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	addr := viper.GetString("redis.host") + ":" + viper.GetString("redis.port")
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[REDIS] Unreachable at %s, continuing without it: %v", addr, err)
		return nil
	}

	log.Printf("[REDIS] Connected to %s", addr)
	return client
}

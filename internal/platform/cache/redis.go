package cache

import (
	"context"
	"log"

	"codequest/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

// RDB backs the per-exercise ranking cache. The engine works without it
// (every read falls through to postgres), so connection failure is fatal
// only at startup where it signals misconfiguration.
var RDB *redis.Client

func ConnectRedis() {
	RDB = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	if _, err := RDB.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Could not connect to Redis: %v", err)
	}
}

func CloseRedis() {
	if RDB != nil {
		RDB.Close()
	}
}

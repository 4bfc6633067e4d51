package storage

import (
	"log"
	"os"
	"strconv"

	"github.com/go-redis/redis/v8"
)

var Redis *redis.Client

// InitializeRedis is a no-op when REDIS_URL is unset; refresh-token rotation
// and the shared rate-limit store are then unavailable and callers fall back
// to in-process behavior.
func InitializeRedis() {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		log.Println("REDIS_URL not set, skipping Redis (single-instance mode)")
		return
	}

	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			db = parsed
		}
	}

	Redis = redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})

	log.Println("Redis initialized with address:", redisURL)
}

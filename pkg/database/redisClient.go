package database

import (
	"github.com/redis/go-redis/v9"
)

// InitRedis builds the client used for API-key caching in the auth
// middleware.
func InitRedis(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "",
		DB:       0,
	})
}

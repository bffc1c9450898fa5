package infra

import (
	"context"

	"github.com/go-redis/redis/v8"
)

func NewRedisClient(host string, db int, loggerFactory *LoggerFactory) *redis.Client {
	logger := loggerFactory.Create("RedisClient").Sugar()

	return redis.NewClient(&redis.Options{
		Addr: host,
		DB:   db,
		OnConnect: func(ctx context.Context, cn *redis.Conn) error {
			logger.Infof("redis connected to host[%v] db[%v]", host, db)
			return nil
		},
	})
}

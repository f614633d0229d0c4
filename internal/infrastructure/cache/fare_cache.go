package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"flightsync-service/internal/domain/entity"
	"flightsync-service/internal/domain/repository"
	"flightsync-service/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "flightsync:fare:"

// RedisFareCache keeps fare detail responses in redis for a short TTL
type RedisFareCache struct {
	rdb    *goredis.Client
	logger logger.Logger
}

// NewRedisFareCache creates a fare cache on rdb
func NewRedisFareCache(rdb *goredis.Client, log logger.Logger) repository.FareCache {
	return &RedisFareCache{
		rdb:    rdb,
		logger: log.With("component", "fare_cache"),
	}
}

// Get returns the cached fare of key. Redis failures read as a miss.
func (c *RedisFareCache) Get(ctx context.Context, key string) (*entity.RawFare, bool) {
	raw, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.Warn("Fare cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var fare entity.RawFare
	if err := json.Unmarshal(raw, &fare); err != nil {
		c.logger.Warn("Dropping undecodable fare cache entry", "key", key, "error", err)
		return nil, false
	}
	return &fare, true
}

// Set stores fare under key for ttl
func (c *RedisFareCache) Set(ctx context.Context, key string, fare *entity.RawFare, ttl time.Duration) error {
	raw, err := json.Marshal(fare)
	if err != nil {
		return fmt.Errorf("encode fare: %w", err)
	}
	return c.rdb.Set(ctx, keyPrefix+key, raw, ttl).Err()
}

// FareKey builds the cache key of one fare detail request
func FareKey(provider string, interfaceID uint, req entity.FareRequest) string {
	return strings.Join([]string{
		provider,
		fmt.Sprint(interfaceID),
		strings.ToUpper(req.Origin) + "-" + strings.ToUpper(req.Destination),
		req.Date.Format("2006-01-02"),
		strings.ToUpper(req.FlightNumber),
		strings.ToUpper(req.ClassCode),
	}, "|")
}

// Package redis caches nearest-vehicle answers in Redis.
package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "vehiclefinder:nearest:"

// ResultCache maps (index generation, query coordinate) to the load-order
// index of the position that answered it. Keys carry the generation, so a
// rebuilt index never reads answers computed against an older tree; old keys
// simply expire.
type ResultCache struct {
	client *goredis.Client
}

// NewResultCache wraps client.
func NewResultCache(client *goredis.Client) *ResultCache {
	return &ResultCache{client: client}
}

// Open creates a client for addr. It does not contact the server.
func Open(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
}

// Key builds the cache key. Coordinates are written in their shortest exact
// form, so two keys are equal only for bit-identical queries; any rounding
// could merge queries that fall on opposite sides of a cell edge.
func Key(generation uint64, lat, lon float64) string {
	return keyPrefix + strconv.FormatUint(generation, 10) + ":" +
		strconv.FormatFloat(lat, 'g', -1, 64) + ":" +
		strconv.FormatFloat(lon, 'g', -1, 64)
}

func (c *ResultCache) Get(ctx context.Context, generation uint64, lat, lon float64) (int, bool, error) {
	v, err := c.client.Get(ctx, Key(generation, lat, lon)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	ordinal, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, err
	}
	return ordinal, true, nil
}

func (c *ResultCache) Set(ctx context.Context, generation uint64, lat, lon float64, ordinal int, ttl time.Duration) error {
	return c.client.Set(ctx, Key(generation, lat, lon), strconv.Itoa(ordinal), ttl).Err()
}

// Ping checks connectivity.
func (c *ResultCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *ResultCache) Close() error {
	return c.client.Close()
}

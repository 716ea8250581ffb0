package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

// CatalogCache holds the active milestone catalog for a short TTL. The catalog
// is read on nearly every engine operation and written rarely; everything else
// reads the store directly because staleness there risks the core invariants.
type CatalogCache interface {
	GetActive(ctx context.Context) ([]*types.MilestoneDefinition, bool)
	SetActive(ctx context.Context, defs []*types.MilestoneDefinition)
	Invalidate(ctx context.Context)
	Close() error
}

type catalogCache struct {
	log *logger.Logger
	rdb *goredis.Client
	key string
	ttl time.Duration
}

func NewCatalogCache(log *logger.Logger, ttl time.Duration) (CatalogCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	key := strings.TrimSpace(os.Getenv("REDIS_CATALOG_KEY"))
	if key == "" {
		key = "growthtrack:catalog:active"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &catalogCache{
		log: log.With("client", "CatalogCache"),
		rdb: rdb,
		key: key,
		ttl: ttl,
	}, nil
}

// GetActive returns (defs, true) on a hit. Any redis failure is logged and
// reported as a miss so callers fall through to the store.
func (c *catalogCache) GetActive(ctx context.Context) ([]*types.MilestoneDefinition, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("Catalog cache read failed", "error", err)
		}
		return nil, false
	}
	var defs []*types.MilestoneDefinition
	if err := json.Unmarshal(raw, &defs); err != nil {
		c.log.Warn("Catalog cache payload corrupt, dropping", "error", err)
		c.Invalidate(ctx)
		return nil, false
	}
	return defs, true
}

func (c *catalogCache) SetActive(ctx context.Context, defs []*types.MilestoneDefinition) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(defs)
	if err != nil {
		c.log.Warn("Catalog cache marshal failed", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("Catalog cache write failed", "error", err)
	}
}

func (c *catalogCache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, c.key).Err(); err != nil {
		c.log.Warn("Catalog cache invalidate failed", "error", err)
	}
}

func (c *catalogCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

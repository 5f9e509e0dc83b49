package ds_internal

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"csv_pii_tokenizer/common"
	"csv_pii_tokenizer/models"
)

// Cache keeps whole datasets in a single Redis node. A nil *Cache is valid
// and behaves as an always-missing cache.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache connects to cfg.RedisAddr and pings it.
func NewCache(cfg *common.Config) (*Cache, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPass,
		DialTimeout:  cfg.RedisDialTimeout,
		ReadTimeout:  cfg.RedisRWTimeout,
		WriteTimeout: cfg.RedisRWTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed (%s): %w", cfg.RedisAddr, err)
	}

	log.Infof("redis: connected in SINGLE-NODE mode (addr=%s)", cfg.RedisAddr)
	return NewCacheWithClient(client, cfg.CacheTTL), nil
}

func NewCacheWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func datasetCacheKey(id int64) string {
	return fmt.Sprintf("ds:v1:dataset:%d", id)
}

// GetDataset returns the cached dataset, or nil on a miss.
func (c *Cache) GetDataset(ctx context.Context, id int64) (*models.StoredDataset, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, datasetCacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ds models.StoredDataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("decode cached dataset %d: %w", id, err)
	}
	cacheLookups.WithLabelValues("hit").Inc()
	return &ds, nil
}

func (c *Cache) SetDataset(ctx context.Context, ds *models.StoredDataset) error {
	if c == nil || c.client == nil {
		return nil
	}
	b, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encode dataset %d: %w", ds.ID, err)
	}
	return c.client.Set(ctx, datasetCacheKey(ds.ID), b, c.ttl).Err()
}

// FillDataset caches ds only when no entry exists, so a read that raced with
// a write can never replace the newer entry. It reports whether ds was stored.
func (c *Cache) FillDataset(ctx context.Context, ds *models.StoredDataset) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	b, err := json.Marshal(ds)
	if err != nil {
		return false, fmt.Errorf("encode dataset %d: %w", ds.ID, err)
	}
	return c.client.SetNX(ctx, datasetCacheKey(ds.ID), b, c.ttl).Result()
}

func (c *Cache) InvalidateDataset(ctx context.Context, id int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, datasetCacheKey(id)).Err()
}

// PreloadFromStore loads up to limit of the most recently updated datasets
// and writes them with one pipeline.
func (c *Cache) PreloadFromStore(ctx context.Context, store *models.Store, limit int) error {
	if c == nil || c.client == nil || limit <= 0 {
		return nil
	}

	log.Info("cache: starting preload from store")

	infos, err := store.ListDatasets(ctx, limit)
	if err != nil {
		return err
	}

	pipe := c.client.Pipeline()
	n := 0
	for _, info := range infos {
		ds, err := store.GetDataset(ctx, info.ID)
		if err != nil {
			log.Warnf("cache preload: dataset %d: %v", info.ID, err)
			continue
		}
		b, err := json.Marshal(ds)
		if err != nil {
			log.Warnf("cache preload: encode dataset %d: %v", info.ID, err)
			continue
		}
		pipe.Set(ctx, datasetCacheKey(ds.ID), b, c.ttl)
		n++
	}
	if n > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("cache preload pipeline exec: %w", err)
		}
	}

	log.Infof("cache: preload complete, cached %d datasets", n)
	return nil
}

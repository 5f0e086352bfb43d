package external

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/drugshield-risk-server/internal/domain"
)

// CacheClient wraps Redis with typed caching for terminology responses.
// Name resolutions, interaction sets and label inferences each get their
// own TTL: resolved concepts are stable for hours, interaction data is
// kept deliberately short so upstream corrections surface quickly.
type CacheClient struct {
	redis          *redis.Client
	rxcuiTTL       time.Duration
	interactionTTL time.Duration
	labelTTL       time.Duration
}

// NewCacheClient creates a new cache client
func NewCacheClient(config domain.CacheConfig) (*CacheClient, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.PoolSize
	opts.PoolTimeout = config.PoolTimeout
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &CacheClient{
		redis:          client,
		rxcuiTTL:       config.RxCUITTL,
		interactionTTL: config.InteractionTTL,
		labelTTL:       config.LabelTTL,
	}, nil
}

// GetResolution retrieves a cached name resolution
func (c *CacheClient) GetResolution(ctx context.Context, name string) (Resolution, bool, error) {
	var res Resolution
	found, err := c.get(ctx, resolutionKey(name), &res)
	return res, found, err
}

// SetResolution caches a name resolution
func (c *CacheClient) SetResolution(ctx context.Context, name string, res Resolution) error {
	return c.set(ctx, resolutionKey(name), res, c.rxcuiTTL)
}

// GetInteractions retrieves a cached interaction set for a concept group
func (c *CacheClient) GetInteractions(ctx context.Context, rxcuis []string) ([]domain.InteractionRecord, bool, error) {
	var records []domain.InteractionRecord
	found, err := c.get(ctx, interactionsKey(rxcuis), &records)
	return records, found, err
}

// SetInteractions caches an interaction set for a concept group
func (c *CacheClient) SetInteractions(ctx context.Context, rxcuis []string, records []domain.InteractionRecord) error {
	return c.set(ctx, interactionsKey(rxcuis), records, c.interactionTTL)
}

// GetLabelInference retrieves cached label-derived interaction records
func (c *CacheClient) GetLabelInference(ctx context.Context, names []string) ([]domain.InteractionRecord, bool, error) {
	var records []domain.InteractionRecord
	found, err := c.get(ctx, labelKey(names), &records)
	return records, found, err
}

// SetLabelInference caches label-derived interaction records
func (c *CacheClient) SetLabelInference(ctx context.Context, names []string, records []domain.InteractionRecord) error {
	return c.set(ctx, labelKey(names), records, c.labelTTL)
}

// Close closes the Redis connection
func (c *CacheClient) Close() error {
	return c.redis.Close()
}

func (c *CacheClient) get(ctx context.Context, key string, out interface{}) (bool, error) {
	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil // Cache miss
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cache entry: %w", err)
	}

	if err := json.Unmarshal([]byte(val), out); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

func (c *CacheClient) set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

func resolutionKey(name string) string {
	return "drugshield:rxcui:" + strings.ToLower(strings.TrimSpace(name))
}

// interactionsKey is order-insensitive over the concept set.
func interactionsKey(rxcuis []string) string {
	return "drugshield:interactions:" + sortedJoin(rxcuis)
}

func labelKey(names []string) string {
	return "drugshield:labels:" + sortedJoin(names)
}

func sortedJoin(values []string) string {
	uniq := make([]string, 0, len(values))
	seen := make(map[string]bool)
	for _, v := range values {
		n := strings.ToLower(strings.TrimSpace(v))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		uniq = append(uniq, n)
	}
	sort.Strings(uniq)
	return strings.Join(uniq, ",")
}

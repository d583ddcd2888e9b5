package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"
	"github.com/therealutkarshpriyadarshi/timeline/internal/history"
	"github.com/therealutkarshpriyadarshi/timeline/internal/metrics"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// ErrLockNotHeld is returned when releasing or refreshing a lock owned by someone else
var ErrLockNotHeld = errors.New("lock not held")

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// releaseScript deletes the lock only when it still carries the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Cache provides caching functionality using Redis
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Draft Snapshot Operations

// SetDraft stores the latest committed snapshot of an open project so unsaved
// work survives a restart of the API process. Stored as zstd-compressed CBOR.
func (c *Cache) SetDraft(ctx context.Context, projectID string, snap history.Snapshot, ttl time.Duration) error {
	raw, err := history.Encode(snap)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	key := fmt.Sprintf("draft:%s", projectID)
	return c.client.Set(ctx, key, encoder.EncodeAll(raw, nil), ttl).Err()
}

// GetDraft retrieves a draft snapshot. A miss returns (nil, nil).
func (c *Cache) GetDraft(ctx context.Context, projectID string) (*history.Snapshot, error) {
	key := fmt.Sprintf("draft:%s", projectID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			metrics.RecordCacheAccess("draft", false)
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get draft from cache: %w", err)
	}
	metrics.RecordCacheAccess("draft", true)

	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress draft: %w", err)
	}

	snap, err := history.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}

	return &snap, nil
}

// DeleteDraft removes a draft once it has been persisted
func (c *Cache) DeleteDraft(ctx context.Context, projectID string) error {
	key := fmt.Sprintf("draft:%s", projectID)
	return c.client.Del(ctx, key).Err()
}

// Export Progress Operations

// SetExportProgress stores the latest progress report of an export job
func (c *Cache) SetExportProgress(ctx context.Context, p models.ExportProgress, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal export progress: %w", err)
	}

	key := fmt.Sprintf("export:progress:%s", p.JobID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetExportProgress retrieves export progress. A miss returns (nil, nil).
func (c *Cache) GetExportProgress(ctx context.Context, jobID string) (*models.ExportProgress, error) {
	key := fmt.Sprintf("export:progress:%s", jobID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			metrics.RecordCacheAccess("export_progress", false)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get export progress from cache: %w", err)
	}
	metrics.RecordCacheAccess("export_progress", true)

	var p models.ExportProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal export progress: %w", err)
	}

	return &p, nil
}

// Rate Limiting Operations

// CheckRateLimit checks if a rate limit has been exceeded
func (c *Cache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	rateLimitKey := fmt.Sprintf("ratelimit:%s", key)

	// Increment counter
	count, err := c.client.Incr(ctx, rateLimitKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	// Set expiry on first request
	if count == 1 {
		if err := c.client.Expire(ctx, rateLimitKey, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set expiry: %w", err)
		}
	}

	return count <= limit, nil
}

// Locking Operations

// AcquireLock attempts to take the lock on resource for owner. Editing sessions
// use it so a project is open in at most one API process at a time.
func (c *Cache) AcquireLock(ctx context.Context, resource, owner string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:%s", resource)
	return c.client.SetNX(ctx, key, owner, ttl).Result()
}

// RefreshLock extends a held lock
func (c *Cache) RefreshLock(ctx context.Context, resource, owner string, ttl time.Duration) error {
	key := fmt.Sprintf("lock:%s", resource)
	n, err := refreshScript.Run(ctx, c.client, []string{key}, owner, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to refresh lock: %w", err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// ReleaseLock releases a lock if owner still holds it
func (c *Cache) ReleaseLock(ctx context.Context, resource, owner string) error {
	key := fmt.Sprintf("lock:%s", resource)
	n, err := releaseScript.Run(ctx, c.client, []string{key}, owner).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Health check
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hokieplan/schedule-api/internal/models"
)

// CatalogCache shares collected section rows between requests so the same
// course in the same term is not re-collected upstream within the TTL.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCatalogCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogCache{client: client, ttl: ttl, logger: logger}
}

func catalogKey(term, courseCode string) string {
	return fmt.Sprintf("catalog:%s:%s", term, models.NormalizeCourseCode(courseCode))
}

// Get returns cached rows for the course, or ok=false on a miss. Cache
// failures degrade to a miss rather than failing the request.
func (c *CatalogCache) Get(ctx context.Context, term, courseCode string) ([]models.RawSectionRow, bool) {
	if c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, catalogKey(term, courseCode)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("catalog cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var rows []models.RawSectionRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		c.logger.Warn("catalog cache entry corrupt, dropping", zap.String("course", courseCode), zap.Error(err))
		_ = c.client.Del(ctx, catalogKey(term, courseCode)).Err()
		return nil, false
	}
	return rows, true
}

// Set stores the collected rows for one course.
func (c *CatalogCache) Set(ctx context.Context, term, courseCode string, rows []models.RawSectionRow) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		c.logger.Warn("catalog cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, catalogKey(term, courseCode), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", zap.Error(err))
	}
}

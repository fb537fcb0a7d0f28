package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/videoflix/videoflix/internal/domain/model"
	"github.com/videoflix/videoflix/internal/infrastructure/metrics"
)

// videoCacheKeyPrefix is the prefix for video cache keys in Redis.
const videoCacheKeyPrefix = "video:"

// videoJSON is the JSON representation of a Video for caching.
// Using an explicit struct avoids coupling to the domain model's layout.
type videoJSON struct {
	ID                 string               `json:"id"`
	Title              string               `json:"title"`
	Genre              string               `json:"genre"`
	Description        string               `json:"description"`
	SourcePath         string               `json:"source_path"`
	DurationSeconds    float64              `json:"duration_seconds"`
	QualityLevels      []model.QualityLevel `json:"quality_levels"`
	MasterManifestPath string               `json:"master_manifest_path"`
	PreviewPath        string               `json:"preview_path"`
	ThumbnailPath      string               `json:"thumbnail_path"`
	SpritePath         string               `json:"sprite_path"`
	CreatedAt          string               `json:"created_at"`
	UpdatedAt          string               `json:"updated_at"`
}

// RedisVideoCache implements VideoCache using Redis as the backing store.
type RedisVideoCache struct {
	client *redis.Client
}

// Compile-time verification that RedisVideoCache implements VideoCache.
var _ VideoCache = (*RedisVideoCache)(nil)

// NewRedisVideoCache creates a new Redis-backed video cache.
func NewRedisVideoCache(client *redis.Client) *RedisVideoCache {
	return &RedisVideoCache{client: client}
}

// Get retrieves a video from Redis cache.
// Returns nil, nil on cache miss.
func (c *RedisVideoCache) Get(ctx context.Context, videoID uuid.UUID) (*model.Video, error) {
	data, err := c.client.Get(ctx, c.buildKey(videoID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss).Inc()
			return nil, nil
		}
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError).Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	video, err := c.deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("deserialize video: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit).Inc()
	return video, nil
}

// Set stores a video in Redis cache with the specified TTL.
func (c *RedisVideoCache) Set(ctx context.Context, video *model.Video, ttl time.Duration) error {
	data, err := c.serialize(video)
	if err != nil {
		return fmt.Errorf("serialize video: %w", err)
	}

	if err := c.client.Set(ctx, c.buildKey(video.ID), data, ttl).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError).Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess).Inc()
	return nil
}

// Delete removes a video from Redis cache.
func (c *RedisVideoCache) Delete(ctx context.Context, videoID uuid.UUID) error {
	if err := c.client.Del(ctx, c.buildKey(videoID)).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusError).Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusSuccess).Inc()
	return nil
}

// buildKey constructs the Redis key for a video.
func (c *RedisVideoCache) buildKey(videoID uuid.UUID) string {
	return videoCacheKeyPrefix + videoID.String()
}

func (c *RedisVideoCache) serialize(video *model.Video) ([]byte, error) {
	v := videoJSON{
		ID:                 video.ID.String(),
		Title:              video.Title,
		Genre:              video.Genre,
		Description:        video.Description,
		SourcePath:         video.SourcePath,
		DurationSeconds:    video.DurationSeconds,
		QualityLevels:      video.QualityLevels,
		MasterManifestPath: video.MasterManifestPath,
		PreviewPath:        video.PreviewPath,
		ThumbnailPath:      video.ThumbnailPath,
		SpritePath:         video.SpritePath,
		CreatedAt:          video.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:          video.UpdatedAt.Format(time.RFC3339Nano),
	}
	return json.Marshal(v)
}

func (c *RedisVideoCache) deserialize(data []byte) (*model.Video, error) {
	var v videoJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(v.ID)
	if err != nil {
		return nil, fmt.Errorf("parse video ID: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, v.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &model.Video{
		ID:                 id,
		Title:              v.Title,
		Genre:              v.Genre,
		Description:        v.Description,
		SourcePath:         v.SourcePath,
		DurationSeconds:    v.DurationSeconds,
		QualityLevels:      v.QualityLevels,
		MasterManifestPath: v.MasterManifestPath,
		PreviewPath:        v.PreviewPath,
		ThumbnailPath:      v.ThumbnailPath,
		SpritePath:         v.SpritePath,
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
	}, nil
}

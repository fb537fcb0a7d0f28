package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/videoflix/videoflix/internal/domain/model"
	"github.com/videoflix/videoflix/internal/infrastructure/cache"
	"github.com/videoflix/videoflix/internal/infrastructure/metrics"
)

// CachedVideoServiceConfig holds configuration for CachedVideoService.
type CachedVideoServiceConfig struct {
	// CacheTTL is the TTL for cached video metadata.
	CacheTTL time.Duration
	// PublicBaseURL turns relative storage keys into externally resolvable
	// URLs on the way out. Purely presentational; stored paths stay relative.
	PublicBaseURL string
}

// DefaultCachedVideoServiceConfig returns the default configuration.
func DefaultCachedVideoServiceConfig() CachedVideoServiceConfig {
	return CachedVideoServiceConfig{
		CacheTTL:      5 * time.Minute,
		PublicBaseURL: "http://localhost:9000/media",
	}
}

// cachedVideoService wraps VideoService with caching and URL enrichment.
// Decorator pattern: the delegate stays oblivious to both concerns.
type cachedVideoService struct {
	delegate VideoService
	cache    cache.VideoCache
	sfGroup  singleflight.Group

	cacheTTL time.Duration
	baseURL  string
}

// NewCachedVideoService creates a caching decorator around a VideoService.
func NewCachedVideoService(
	delegate VideoService,
	videoCache cache.VideoCache,
	cfg CachedVideoServiceConfig,
) VideoService {
	return &cachedVideoService{
		delegate: delegate,
		cache:    videoCache,
		cacheTTL: cfg.CacheTTL,
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
}

// CreateVideo delegates to the underlying service.
func (s *cachedVideoService) CreateVideo(ctx context.Context, input CreateVideoInput) (*CreateVideoOutput, error) {
	return s.delegate.CreateVideo(ctx, input)
}

// TriggerProcess invalidates the cache before delegating so stale derived
// fields are not served while the pipeline reruns.
func (s *cachedVideoService) TriggerProcess(ctx context.Context, videoID uuid.UUID) error {
	if err := s.cache.Delete(ctx, videoID); err != nil {
		slog.Warn("failed to invalidate cache on trigger process",
			"video_id", videoID,
			"error", err,
		)
	}
	return s.delegate.TriggerProcess(ctx, videoID)
}

// GetVideo retrieves video information with caching and URL enrichment.
// Singleflight coalesces concurrent lookups for the same video.
func (s *cachedVideoService) GetVideo(ctx context.Context, videoID uuid.UUID) (*model.Video, error) {
	key := videoID.String()
	result, err, shared := s.sfGroup.Do(key, func() (any, error) {
		return s.getVideoWithCache(ctx, videoID)
	})

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}

	if err != nil {
		return nil, err
	}
	return s.enrichURLs(result.(*model.Video)), nil
}

// ListVideos delegates and enriches each item. List results are not cached;
// the detail cache carries the hot path.
func (s *cachedVideoService) ListVideos(ctx context.Context) ([]*model.Video, error) {
	videos, err := s.delegate.ListVideos(ctx)
	if err != nil {
		return nil, err
	}
	enriched := make([]*model.Video, len(videos))
	for i, v := range videos {
		enriched[i] = s.enrichURLs(v)
	}
	return enriched, nil
}

// DeleteVideo invalidates the cache and delegates.
func (s *cachedVideoService) DeleteVideo(ctx context.Context, videoID uuid.UUID) error {
	if err := s.cache.Delete(ctx, videoID); err != nil {
		slog.Warn("failed to invalidate cache on delete",
			"video_id", videoID,
			"error", err,
		)
	}
	return s.delegate.DeleteVideo(ctx, videoID)
}

// getVideoWithCache implements the cache-aside pattern.
func (s *cachedVideoService) getVideoWithCache(ctx context.Context, videoID uuid.UUID) (*model.Video, error) {
	video, err := s.cache.Get(ctx, videoID)
	if err != nil {
		slog.Warn("cache get failed, falling back to database",
			"video_id", videoID,
			"error", err,
		)
	}
	if video != nil {
		return video, nil
	}

	video, err = s.delegate.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, video, s.cacheTTL); err != nil {
		slog.Warn("failed to cache video",
			"video_id", videoID,
			"error", err,
		)
	}
	return video, nil
}

// enrichURLs maps the relative storage paths onto the public base URL.
// Returns a copy to avoid mutating cached data.
func (s *cachedVideoService) enrichURLs(video *model.Video) *model.Video {
	enriched := *video
	enriched.MasterManifestPath = s.absoluteURL(video.MasterManifestPath)
	enriched.PreviewPath = s.absoluteURL(video.PreviewPath)
	enriched.ThumbnailPath = s.absoluteURL(video.ThumbnailPath)
	enriched.SpritePath = s.absoluteURL(video.SpritePath)

	if len(video.QualityLevels) > 0 {
		levels := make([]model.QualityLevel, len(video.QualityLevels))
		for i, q := range video.QualityLevels {
			levels[i] = model.QualityLevel{Label: q.Label, Source: s.absoluteURL(q.Source)}
		}
		enriched.QualityLevels = levels
	}
	return &enriched
}

// absoluteURL maps "videos/foo/bar" to "{base}/videos/foo/bar".
func (s *cachedVideoService) absoluteURL(rel string) string {
	if rel == "" {
		return ""
	}
	return s.baseURL + "/" + strings.TrimLeft(rel, "/")
}

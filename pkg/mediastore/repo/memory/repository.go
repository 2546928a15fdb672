package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BBoDDoGood/smartoko-app/pkg/mediastore"
)

// Repository implements mediastore.DetectionRepository using in-memory storage.
// It is intended for tests and single-process deployments.
type Repository struct {
	mu         sync.RWMutex
	detections map[int64]*mediastore.DetectionMedia
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{
		detections: make(map[int64]*mediastore.DetectionMedia),
	}
}

// Seed inserts a detection record directly. Empty CreatedAt defaults to now.
func (r *Repository) Seed(media *mediastore.DetectionMedia) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mediaCopy := *media
	if mediaCopy.CreatedAt.IsZero() {
		mediaCopy.CreatedAt = time.Now().UTC()
	}
	r.detections[media.DetectionID] = &mediaCopy
}

func (r *Repository) UpdateMediaURLs(ctx context.Context, detectionID int64, urls mediastore.MediaURLSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.detections[detectionID]
	if !exists {
		rec = &mediastore.DetectionMedia{
			DetectionID: detectionID,
			CreatedAt:   time.Now().UTC(),
		}
		r.detections[detectionID] = rec
	}
	if urls.ImageURL != "" {
		rec.ImageURL = urls.ImageURL
	}
	if urls.ThumbnailURL != "" {
		rec.ThumbnailURL = urls.ThumbnailURL
	}
	if urls.VideoURL != "" {
		rec.VideoURL = urls.VideoURL
	}
	return nil
}

func (r *Repository) GetDetectionMedia(ctx context.Context, detectionID int64) (*mediastore.DetectionMedia, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.detections[detectionID]
	if !exists {
		return nil, mediastore.ErrDetectionNotFound
	}

	// Return a copy to avoid external modifications
	recCopy := *rec
	return &recCopy, nil
}

func (r *Repository) ListDetectionMedia(ctx context.Context, q mediastore.ListQuery) (*mediastore.MediaPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*mediastore.DetectionMedia, 0, len(r.detections))
	for _, rec := range r.detections {
		if !matchesQuery(rec, q) {
			continue
		}
		recCopy := *rec
		matched = append(matched, &recCopy)
	}

	// Newest detections first, id as tiebreaker for stable paging
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].DetectedAt.Equal(matched[j].DetectedAt) {
			return matched[i].DetectedAt.After(matched[j].DetectedAt)
		}
		return matched[i].DetectionID > matched[j].DetectionID
	})

	page, pageSize := normalizePaging(q.Page, q.PageSize)
	offset := (page - 1) * pageSize
	items := []*mediastore.DetectionMedia{}
	if offset < len(matched) {
		end := offset + pageSize
		if end > len(matched) {
			end = len(matched)
		}
		items = matched[offset:end]
	}

	return &mediastore.MediaPage{
		Items:      items,
		TotalCount: len(matched),
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

func (r *Repository) DeleteDetectionMedia(ctx context.Context, detectionID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.detections[detectionID]; !exists {
		return mediastore.ErrDetectionNotFound
	}
	delete(r.detections, detectionID)
	return nil
}

func (r *Repository) MediaStatistics(ctx context.Context) (*mediastore.MediaStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &mediastore.MediaStats{ByDevice: make(map[string]int64)}
	for _, rec := range r.detections {
		stats.TotalDetections++
		stats.TotalFiles += int64(len(rec.ArtifactURLs()))
		if rec.DeviceName != "" {
			stats.ByDevice[rec.DeviceName]++
		}
	}
	return stats, nil
}

func matchesQuery(rec *mediastore.DetectionMedia, q mediastore.ListQuery) bool {
	if q.DeviceName != "" && !strings.EqualFold(rec.DeviceName, q.DeviceName) {
		return false
	}
	switch q.Family {
	case mediastore.FamilyImage:
		if rec.ImageURL == "" && rec.ThumbnailURL == "" {
			return false
		}
	case mediastore.FamilyVideo:
		if rec.VideoURL == "" {
			return false
		}
	}
	if q.From != nil && rec.DetectedAt.Before(*q.From) {
		return false
	}
	if q.To != nil && rec.DetectedAt.After(*q.To) {
		return false
	}
	return true
}

func normalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}

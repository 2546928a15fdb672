package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BBoDDoGood/smartoko-app/pkg/mediastore"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements mediastore.DetectionRepository using PostgreSQL.
//
// Expected schema (managed by the embedding application's migrations):
//
//	CREATE TABLE detection_media (
//	    detection_id  BIGINT PRIMARY KEY,
//	    device_id     INTEGER NOT NULL DEFAULT 1,
//	    device_name   TEXT NOT NULL DEFAULT '',
//	    detected_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    image_url     TEXT NOT NULL DEFAULT '',
//	    thumbnail_url TEXT NOT NULL DEFAULT '',
//	    video_url     TEXT NOT NULL DEFAULT '',
//	    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("detection media already exists")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced detection not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return mediastore.ErrDetectionNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository) UpdateMediaURLs(ctx context.Context, detectionID int64, urls mediastore.MediaURLSet) error {
	// Upsert; empty incoming fields keep whatever is already stored.
	query := `
		INSERT INTO detection_media (detection_id, image_url, thumbnail_url, video_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (detection_id) DO UPDATE SET
			image_url     = COALESCE(NULLIF(EXCLUDED.image_url, ''), detection_media.image_url),
			thumbnail_url = COALESCE(NULLIF(EXCLUDED.thumbnail_url, ''), detection_media.thumbnail_url),
			video_url     = COALESCE(NULLIF(EXCLUDED.video_url, ''), detection_media.video_url)`

	_, err := r.db.Exec(ctx, query, detectionID, urls.ImageURL, urls.ThumbnailURL, urls.VideoURL)
	if err != nil {
		return r.handlePostgresError("UpdateMediaURLs", err)
	}
	return nil
}

func (r *Repository) GetDetectionMedia(ctx context.Context, detectionID int64) (*mediastore.DetectionMedia, error) {
	query := `
		SELECT detection_id, device_id, device_name, detected_at,
		       image_url, thumbnail_url, video_url, created_at
		FROM detection_media
		WHERE detection_id = $1`

	var media mediastore.DetectionMedia
	err := r.db.QueryRow(ctx, query, detectionID).Scan(
		&media.DetectionID,
		&media.DeviceID,
		&media.DeviceName,
		&media.DetectedAt,
		&media.ImageURL,
		&media.ThumbnailURL,
		&media.VideoURL,
		&media.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, mediastore.ErrDetectionNotFound
		}
		return nil, r.handlePostgresError("GetDetectionMedia", err)
	}
	return &media, nil
}

func (r *Repository) ListDetectionMedia(ctx context.Context, q mediastore.ListQuery) (*mediastore.MediaPage, error) {
	conditions := []string{}
	args := []interface{}{}
	argn := 0

	next := func(v interface{}) string {
		argn++
		args = append(args, v)
		return fmt.Sprintf("$%d", argn)
	}

	if q.DeviceName != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(device_name) = LOWER(%s)", next(q.DeviceName)))
	}
	switch q.Family {
	case mediastore.FamilyImage:
		conditions = append(conditions, "(image_url <> '' OR thumbnail_url <> '')")
	case mediastore.FamilyVideo:
		conditions = append(conditions, "video_url <> ''")
	}
	if q.From != nil {
		conditions = append(conditions, fmt.Sprintf("detected_at >= %s", next(*q.From)))
	}
	if q.To != nil {
		conditions = append(conditions, fmt.Sprintf("detected_at <= %s", next(*q.To)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM detection_media" + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, r.handlePostgresError("ListDetectionMedia", err)
	}

	page, pageSize := normalizePaging(q.Page, q.PageSize)
	listQuery := `
		SELECT detection_id, device_id, device_name, detected_at,
		       image_url, thumbnail_url, video_url, created_at
		FROM detection_media` + where + `
		ORDER BY detected_at DESC, detection_id DESC
		LIMIT ` + next(pageSize) + ` OFFSET ` + next((page-1)*pageSize)

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, r.handlePostgresError("ListDetectionMedia", err)
	}
	defer rows.Close()

	items := []*mediastore.DetectionMedia{}
	for rows.Next() {
		var media mediastore.DetectionMedia
		if err := rows.Scan(
			&media.DetectionID,
			&media.DeviceID,
			&media.DeviceName,
			&media.DetectedAt,
			&media.ImageURL,
			&media.ThumbnailURL,
			&media.VideoURL,
			&media.CreatedAt,
		); err != nil {
			return nil, r.handlePostgresError("ListDetectionMedia", err)
		}
		items = append(items, &media)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("ListDetectionMedia", err)
	}

	return &mediastore.MediaPage{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

func (r *Repository) DeleteDetectionMedia(ctx context.Context, detectionID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM detection_media WHERE detection_id = $1`, detectionID)
	if err != nil {
		return r.handlePostgresError("DeleteDetectionMedia", err)
	}
	if tag.RowsAffected() == 0 {
		return mediastore.ErrDetectionNotFound
	}
	return nil
}

func (r *Repository) MediaStatistics(ctx context.Context) (*mediastore.MediaStats, error) {
	stats := &mediastore.MediaStats{ByDevice: make(map[string]int64)}

	totalsQuery := `
		SELECT COUNT(*),
		       COALESCE(SUM((image_url <> '')::int + (thumbnail_url <> '')::int + (video_url <> '')::int), 0)
		FROM detection_media`
	if err := r.db.QueryRow(ctx, totalsQuery).Scan(&stats.TotalDetections, &stats.TotalFiles); err != nil {
		return nil, r.handlePostgresError("MediaStatistics", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT device_name, COUNT(*)
		FROM detection_media
		WHERE device_name <> ''
		GROUP BY device_name`)
	if err != nil {
		return nil, r.handlePostgresError("MediaStatistics", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, r.handlePostgresError("MediaStatistics", err)
		}
		stats.ByDevice[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("MediaStatistics", err)
	}

	return stats, nil
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

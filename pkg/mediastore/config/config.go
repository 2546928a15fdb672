// Package config wires the media service together from declarative settings.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BBoDDoGood/smartoko-app/pkg/mediastore"
	"github.com/BBoDDoGood/smartoko-app/pkg/mediastore/identity"
	"github.com/BBoDDoGood/smartoko-app/pkg/mediastore/repo/memory"
	repopg "github.com/BBoDDoGood/smartoko-app/pkg/mediastore/repo/postgres"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		UploadDir:    "./data/uploads",
		URLPrefix:    mediastore.DefaultURLPrefix,

		MaxImageMB: mediastore.DefaultMaxImageMB,
		MaxVideoMB: mediastore.DefaultMaxVideoMB,

		ThumbnailWidth:   mediastore.DefaultThumbnailWidth,
		ThumbnailHeight:  mediastore.DefaultThumbnailHeight,
		ThumbnailQuality: mediastore.DefaultThumbnailQuality,

		ClipBeforeSeconds: mediastore.DefaultClipBeforeSeconds,
		ClipAfterSeconds:  mediastore.DefaultClipAfterSeconds,
		ClipPresetName:    "clip_fast",

		FFmpegBin: "ffmpeg",

		Users: map[int64]string{},
	}
}

// ServerConfig represents server configuration for the media service.
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Storage layout
	UploadDir string
	URLPrefix string

	MaxImageMB int
	MaxVideoMB int

	ThumbnailWidth   int
	ThumbnailHeight  int
	ThumbnailQuality int

	// Clip extraction
	ClipBeforeSeconds int
	ClipAfterSeconds  int
	ClipPresetFile    string // optional YAML preset file
	ClipPresetName    string
	FFmpegBin         string

	// Audit log directory; empty selects the environment default.
	AuditDir string

	// Scratch directory for upload materialization; empty uses the OS temp dir.
	ScratchDir string

	// Authentication
	JWTSecret string

	// Users maps user id to role name for the static identity provider.
	Users map[int64]string
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.UploadDir == "" {
		return errors.New("upload_dir is required")
	}
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}
	if c.ClipBeforeSeconds < 0 || c.ClipAfterSeconds < 0 {
		return errors.New("clip window seconds must not be negative")
	}
	if c.ThumbnailQuality < 1 || c.ThumbnailQuality > 100 {
		return errors.New("thumbnail_quality must be between 1 and 100")
	}
	return nil
}

// BuildService creates a Service instance from the server configuration.
func (c *ServerConfig) BuildService(logger *slog.Logger) (mediastore.Service, error) {
	layout, err := mediastore.NewLayout(mediastore.LayoutConfig{
		Root:              c.UploadDir,
		URLPrefix:         c.URLPrefix,
		Environment:       c.Environment,
		MaxImageMB:        c.MaxImageMB,
		MaxVideoMB:        c.MaxVideoMB,
		ClipBeforeSeconds: c.ClipBeforeSeconds,
		ClipAfterSeconds:  c.ClipAfterSeconds,
		ThumbnailWidth:    c.ThumbnailWidth,
		ThumbnailHeight:   c.ThumbnailHeight,
		ThumbnailQuality:  c.ThumbnailQuality,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build storage layout: %w", err)
	}

	repo, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	clipper, err := c.buildClipExtractor()
	if err != nil {
		return nil, err
	}

	options := []mediastore.Option{
		mediastore.WithLayout(layout),
		mediastore.WithRepository(repo),
		mediastore.WithIdentity(identity.NewStaticFromRoles(c.Users)),
		mediastore.WithClipExtractor(clipper),
	}
	if logger != nil {
		options = append(options, mediastore.WithLogger(logger))
	}
	if c.AuditDir != "" {
		options = append(options, mediastore.WithAuditLog(mediastore.NewAuditLog(c.AuditDir, c.Environment, logger)))
	}
	if c.ScratchDir != "" {
		options = append(options, mediastore.WithScratchDir(c.ScratchDir))
	}

	return mediastore.New(options...)
}

// buildRepository creates a DetectionRepository based on the configuration.
func (c *ServerConfig) buildRepository() (mediastore.DetectionRepository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, errors.New("database_url is required for postgres")
		}
		pool, err := pgxpool.New(context.Background(), c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func (c *ServerConfig) buildClipExtractor() (mediastore.ClipExtractor, error) {
	preset := mediastore.DefaultClipPreset()
	if c.ClipPresetFile != "" {
		library, err := mediastore.LoadPresetFile(c.ClipPresetFile)
		if err != nil {
			return nil, err
		}
		p, ok := library.Get(c.ClipPresetName)
		if !ok {
			return nil, fmt.Errorf("preset %q not found in %s", c.ClipPresetName, c.ClipPresetFile)
		}
		preset = p
	}

	clipper := mediastore.NewFFmpegClipExtractor(preset)
	if c.FFmpegBin != "" {
		clipper.Bin = c.FFmpegBin
	}
	return clipper, nil
}

// PingPostgres verifies connectivity to Postgres.
func PingPostgres(databaseURL string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

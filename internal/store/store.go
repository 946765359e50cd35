// Package store persists video processing records in postgres.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Video lifecycle states.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Video is one uploaded video and the state of its highlight run.
type Video struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	RawURL       string         `gorm:"column:raw_url"`
	HighlightURL string         `gorm:"column:highlight_url"`
	Status       string         `gorm:"index"`
	Highlights   datatypes.JSON `gorm:"column:highlights"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HighlightRecord is the per-segment entry stored in the highlights column.
type HighlightRecord struct {
	StartTime       float64 `json:"start_time"`
	EndTime         float64 `json:"end_time"`
	ExcitementScore float64 `json:"excitement_score"`
}

// Store wraps the database handle.
type Store struct {
	logger zerolog.Logger
	db     *gorm.DB
}

// Open connects to postgres and migrates the schema.
func Open(logger zerolog.Logger, dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := db.AutoMigrate(&Video{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Store{
		logger: logger.With().Str("component", "store").Logger(),
		db:     db,
	}, nil
}

// Create inserts a pending record for a freshly uploaded video.
func (s *Store) Create(ctx context.Context, id uuid.UUID, rawURL string) (*Video, error) {
	v := &Video{
		ID:     id,
		RawURL: rawURL,
		Status: StatusPending,
	}
	if err := s.db.WithContext(ctx).Create(v).Error; err != nil {
		return nil, fmt.Errorf("creating video record: %w", err)
	}
	s.logger.Info().Str("video_id", id.String()).Msg("video record created")
	return v, nil
}

// Get fetches a video record by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Video, error) {
	var v Video
	if err := s.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("fetching video %s: %w", id, err)
	}
	return &v, nil
}

// UpdateStatus moves a record to a new lifecycle state.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := s.db.WithContext(ctx).Model(&Video{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("updating status for %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("video %s not found", id)
	}
	s.logger.Debug().Str("video_id", id.String()).Str("status", status).Msg("status updated")
	return nil
}

// SetResults records the detected highlights and the reel location, and marks
// the run completed.
func (s *Store) SetResults(ctx context.Context, id uuid.UUID, highlightURL string, highlights datatypes.JSON) error {
	res := s.db.WithContext(ctx).Model(&Video{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"highlight_url": highlightURL,
			"highlights":    highlights,
			"status":        StatusCompleted,
		})
	if res.Error != nil {
		return fmt.Errorf("recording results for %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("video %s not found", id)
	}
	return nil
}

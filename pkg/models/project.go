package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Project represents a saved editor project
type Project struct {
	ID              string      `json:"id" db:"id"`
	UserID          string      `json:"user_id" db:"user_id"`
	CompanyID       *string     `json:"company_id,omitempty" db:"company_id"`
	Name            string      `json:"name" db:"name"`
	Description     string      `json:"description,omitempty" db:"description"`
	ThumbnailURL    string      `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	Data            ProjectData `json:"project_data" db:"project_data"`
	Status          string      `json:"status" db:"status"`
	TotalDuration   float64     `json:"total_duration" db:"total_duration"`
	ClipCount       int         `json:"clip_count" db:"clip_count"`
	ExportedMediaID *string     `json:"exported_media_id,omitempty" db:"exported_media_id"`
	LastOpenedAt    *time.Time  `json:"last_opened_at,omitempty" db:"last_opened_at"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// ProjectData is the persisted editor state, stored as JSONB
type ProjectData struct {
	Clips         []Clip           `json:"clips"`
	TextOverlays  []TextOverlay    `json:"text_overlays"`
	Captions      []CaptionSegment `json:"captions,omitempty"`
	AudioSegments []AudioSegment   `json:"audio_segments,omitempty"`
	CaptionStyle  *CaptionStyle    `json:"caption_style,omitempty"`
	TimelineScale float64          `json:"timeline_scale"`
	Settings      *ProjectSettings `json:"settings,omitempty"`
	Version       int              `json:"version"`
}

// ProjectSettings holds output preferences
type ProjectSettings struct {
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
}

// ProjectDataVersion is the schema version written by this build
const ProjectDataVersion = 2

// Value implements driver.Valuer for database storage
func (d ProjectData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner for database retrieval
func (d *ProjectData) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported project data type %T", value)
	}

	return json.Unmarshal(bytes, d)
}

// ProjectStatus constants
const (
	ProjectStatusDraft    = "draft"
	ProjectStatusExported = "exported"
	ProjectStatusArchived = "archived"
	ProjectStatusAll      = "all"
)

// ProjectListOptions filters and orders project listings
type ProjectListOptions struct {
	Status    string
	SortBy    string // updated_at, created_at, name
	Ascending bool
	Limit     int
	Offset    int
}

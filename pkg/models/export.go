package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExportJob tracks one render of a project's committed timeline
type ExportJob struct {
	ID          string        `json:"id" db:"id"`
	ProjectID   string        `json:"project_id" db:"project_id"`
	UserID      string        `json:"user_id" db:"user_id"`
	Stage       string        `json:"stage" db:"stage"`
	Progress    float64       `json:"progress" db:"progress"`
	Message     string        `json:"message,omitempty" db:"message"`
	ErrorMsg    string        `json:"error_msg,omitempty" db:"error_msg"`
	RetryCount  int           `json:"retry_count" db:"retry_count"`
	Request     ExportRequest `json:"request" db:"request"`
	Result      *ExportResult `json:"result,omitempty" db:"result"`
	StartedAt   *time.Time    `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// ExportRequest is the serialized timeline handed to the render service.
// Field names follow the render service contract.
type ExportRequest struct {
	Clips             []ExportClip        `json:"clips"`
	TextOverlays      []ExportTextOverlay `json:"textOverlays,omitempty"`
	PreviewDimensions *Dimensions         `json:"previewDimensions,omitempty"`
	UserID            string              `json:"userId"`
	CompanyID         *string             `json:"companyId,omitempty"`
	ProjectName       string              `json:"projectName"`
}

// ExportClip is a clip as the renderer sees it
type ExportClip struct {
	ID             string      `json:"id"`
	SourceURL      string      `json:"sourceUrl"`
	SourceDuration float64     `json:"sourceDuration"`
	StartTime      float64     `json:"startTime"`
	TrimStart      float64     `json:"trimStart"`
	TrimEnd        float64     `json:"trimEnd"`
	TransitionOut  *Transition `json:"transitionOut,omitempty"`
}

// ExportTextOverlay is a text overlay as the renderer sees it
type ExportTextOverlay struct {
	ID        string          `json:"id"`
	StartTime float64         `json:"startTime"`
	Duration  float64         `json:"duration"`
	Text      string          `json:"text"`
	Position  Position        `json:"position"`
	Style     ExportTextStyle `json:"style"`
}

// ExportTextStyle mirrors TextStyle with the renderer's field names
type ExportTextStyle struct {
	FontFamily        string  `json:"fontFamily"`
	FontSize          int     `json:"fontSize"`
	FontWeight        string  `json:"fontWeight"`
	Color             string  `json:"color"`
	BackgroundColor   *string `json:"backgroundColor,omitempty"`
	BackgroundPadding *int    `json:"backgroundPadding,omitempty"`
	TextAlign         string  `json:"textAlign"`
	Opacity           float64 `json:"opacity"`
}

// Dimensions is a width/height pair in pixels
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ExportResult is the strict result schema returned by the render service
type ExportResult struct {
	Success          bool   `json:"success"`
	VideoURL         string `json:"videoUrl,omitempty"`
	StoragePath      string `json:"storagePath,omitempty"`
	FileSize         int64  `json:"fileSize,omitempty"`
	MediaFileID      string `json:"mediaFileId,omitempty"`
	ProcessingTimeMs int64  `json:"processingTimeMs,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Value implements driver.Valuer for database storage
func (r ExportRequest) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for database retrieval
func (r *ExportRequest) Scan(value interface{}) error {
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
		return fmt.Errorf("unsupported export request type %T", value)
	}

	return json.Unmarshal(bytes, r)
}

// ExportStage constants
const (
	ExportStageIdle          = "idle"
	ExportStagePreparing     = "preparing"
	ExportStageLoading       = "loading"
	ExportStageDownloading   = "downloading"
	ExportStageTrimming      = "trimming"
	ExportStageConcatenating = "concatenating"
	ExportStageFinalizing    = "finalizing"
	ExportStageUploading     = "uploading"
	ExportStageComplete      = "complete"
	ExportStageError         = "error"
)

// ExportStages lists the non-terminal stages in pipeline order
var ExportStages = []string{
	ExportStagePreparing,
	ExportStageLoading,
	ExportStageDownloading,
	ExportStageTrimming,
	ExportStageConcatenating,
	ExportStageFinalizing,
	ExportStageUploading,
}

// IsTerminalExportStage reports whether no further progress is expected
func IsTerminalExportStage(stage string) bool {
	return stage == ExportStageComplete || stage == ExportStageError
}

// ExportProgress is a progress report published while a job runs
type ExportProgress struct {
	JobID    string    `json:"job_id"`
	Stage    string    `json:"stage"`
	Progress float64   `json:"progress"`
	Message  string    `json:"message,omitempty"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// ExportStats summarizes recent export jobs
type ExportStats struct {
	Total                int64   `json:"total"`
	Completed            int64   `json:"completed"`
	Failed               int64   `json:"failed"`
	Active               int64   `json:"active"`
	AverageWaitSeconds   float64 `json:"average_wait_seconds"`
	AverageRenderSeconds float64 `json:"average_render_seconds"`
}

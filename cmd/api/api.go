package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/timeline/internal/editor"
	"github.com/therealutkarshpriyadarshi/timeline/internal/export"
	"github.com/therealutkarshpriyadarshi/timeline/internal/interaction"
	"github.com/therealutkarshpriyadarshi/timeline/internal/logging"
	"github.com/therealutkarshpriyadarshi/timeline/internal/middleware"
	"github.com/therealutkarshpriyadarshi/timeline/internal/overlay"
	"github.com/therealutkarshpriyadarshi/timeline/internal/project"
	"github.com/therealutkarshpriyadarshi/timeline/internal/timeline"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// ProjectStore is the project persistence the API needs
type ProjectStore interface {
	Create(ctx context.Context, p *models.Project) error
	Get(ctx context.Context, id, userID string) (*models.Project, error)
	List(ctx context.Context, userID string, opts models.ProjectListOptions) ([]*models.Project, error)
	UpdateDetails(ctx context.Context, id, userID, name, description string) error
	Archive(ctx context.Context, id, userID string) error
	Duplicate(ctx context.Context, id, userID, name string) (*models.Project, error)
	Delete(ctx context.Context, id, userID string) error
	Save(ctx context.Context, id, userID string, name *string, data models.ProjectData) (time.Time, error)
	ListExportJobs(ctx context.Context, projectID, userID string, limit int) ([]*models.ExportJob, error)
}

// Exporter starts render jobs and reports on them
type Exporter interface {
	Start(ctx context.Context, projectID string, req models.ExportRequest) (*models.ExportJob, error)
	Progress(ctx context.Context, jobID, userID string) (models.ExportProgress, error)
	Job(ctx context.Context, jobID, userID string) (*models.ExportJob, error)
	Retry(ctx context.Context, jobID, userID string) (*models.ExportJob, error)
}

// MediaLibrary lists a user's media and turns object keys into playable URLs
type MediaLibrary interface {
	ListMedia(ctx context.Context, prefix string) ([]models.MediaSource, error)
	ResolveMediaSources(ctx context.Context, sources []models.MediaSource) ([]models.MediaSource, error)
}

// API holds the dependencies of the HTTP handlers
type API struct {
	projects ProjectStore
	sessions *editor.Registry
	exports  Exporter
	media    MediaLibrary
	checks   map[string]func(context.Context) error
	logger   *logging.Logger
}

type routerOptions struct {
	limiter      *middleware.RateLimiter
	quota        middleware.WindowLimiter
	exportLimit  int64
	exportWindow time.Duration
}

func setupRouter(api *API, opts routerOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(api.logger), middleware.Tracing())

	// Health check
	router.GET("/health", api.healthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuth())
	if opts.limiter != nil {
		v1.Use(middleware.RateLimit(opts.limiter))
	}

	v1.GET("/media", api.listMedia)

	projects := v1.Group("/projects")
	{
		projects.POST("", api.createProject)
		projects.GET("", api.listProjects)
		projects.GET("/:id", api.getProject)
		projects.PATCH("/:id", api.updateProject)
		projects.DELETE("/:id", api.deleteProject)
		projects.POST("/:id/duplicate", api.duplicateProject)
		projects.POST("/:id/archive", api.archiveProject)
		projects.POST("/:id/sessions", api.openSession)
		projects.GET("/:id/exports", api.listProjectExports)
	}

	sessions := v1.Group("/sessions/:sid")
	sessions.Use(api.loadSession)
	{
		sessions.GET("", api.getSessionState)
		sessions.DELETE("", api.closeSession)
		sessions.POST("/save", api.saveSession)
		sessions.POST("/clear", api.clearSession)

		// Clips
		sessions.POST("/clips", api.addClips)
		sessions.DELETE("/clips/:clipId", api.deleteClip)
		sessions.POST("/clips/:clipId/trim", api.trimClip)
		sessions.POST("/clips/:clipId/split", api.splitClip)
		sessions.POST("/clips/:clipId/move", api.moveClip)
		sessions.PUT("/clips/:clipId/transition", api.setTransition)
		sessions.PUT("/clips/:clipId/volume", api.setClipVolume)
		sessions.POST("/clips/:clipId/mute", api.toggleClipMute)
		sessions.POST("/clips/:clipId/detach-audio", api.detachAudio)
		sessions.POST("/split", api.splitAtPlayhead)

		// Detached audio
		sessions.POST("/audio/:segmentId/reattach", api.reattachAudio)
		sessions.PUT("/audio/:segmentId/volume", api.setSegmentVolume)
		sessions.DELETE("/audio/:segmentId", api.deleteAudioSegment)

		// Gestures
		sessions.POST("/gestures", api.beginGesture)
		sessions.POST("/gestures/pointer", api.pointerMove)
		sessions.POST("/gestures/end", api.endGesture)
		sessions.DELETE("/gestures", api.cancelGesture)

		// Playback
		sessions.POST("/playback/play", api.play)
		sessions.POST("/playback/pause", api.pause)
		sessions.POST("/playback/toggle", api.togglePlay)
		sessions.POST("/playback/reset", api.resetPlayback)
		sessions.POST("/playback/seek", api.seek)
		sessions.POST("/playback/tick", api.tick)
		sessions.PUT("/playback/volume", api.setVolume)
		sessions.POST("/playback/retry", api.retryDegraded)

		// History
		sessions.POST("/undo", api.undo)
		sessions.POST("/redo", api.redo)

		// Text overlays
		sessions.POST("/text", api.addText)
		sessions.PATCH("/text/:overlayId", api.updateText)
		sessions.DELETE("/text/:overlayId", api.deleteText)
		sessions.POST("/text/:overlayId/duplicate", api.duplicateText)

		// Captions
		sessions.POST("/captions", api.addCaption)
		sessions.PUT("/captions/style", api.setCaptionStyle)
		sessions.PATCH("/captions/:captionId", api.updateCaption)
		sessions.DELETE("/captions/:captionId", api.deleteCaption)
		sessions.POST("/captions/:captionId/duplicate", api.duplicateCaption)

		// Zoom
		sessions.PUT("/scale", api.setScale)
		sessions.POST("/scale/in", api.zoomIn)
		sessions.POST("/scale/out", api.zoomOut)

		// Export
		if opts.quota != nil && opts.exportLimit > 0 {
			sessions.POST("/export", middleware.ExportQuota(opts.quota, opts.exportLimit, opts.exportWindow), api.startExport)
		} else {
			sessions.POST("/export", api.startExport)
		}
	}

	exports := v1.Group("/exports")
	{
		exports.GET("/:id", api.getExport)
		exports.GET("/:id/progress", api.getExportProgress)
		exports.POST("/:id/retry", api.retryExport)
	}

	return router
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	for name, check := range api.checks {
		if err := check(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"component": name,
				"error":     err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// userID reads the authenticated user; JWTAuth guarantees it is present
func userID(c *gin.Context) string {
	id, _ := middleware.GetUserID(c)
	return id
}

func statusFor(err error) int {
	var invariant *timeline.InvariantError
	switch {
	case errors.Is(err, project.ErrNotFound),
		errors.Is(err, project.ErrExportNotFound),
		errors.Is(err, export.ErrJobNotVisible),
		errors.Is(err, editor.ErrSessionNotFound),
		errors.Is(err, editor.ErrSessionClosed),
		errors.Is(err, overlay.ErrNotFound),
		errors.Is(err, timeline.ErrClipNotFound):
		return http.StatusNotFound
	case errors.Is(err, interaction.ErrGestureActive),
		errors.Is(err, interaction.ErrNoGesture),
		errors.Is(err, export.ErrNotRetryable),
		errors.Is(err, editor.ErrProjectLocked):
		return http.StatusConflict
	case timeline.IsValidation(err),
		errors.As(err, &invariant),
		errors.Is(err, interaction.ErrUnknownKind),
		errors.Is(err, overlay.ErrNoAudio),
		errors.Is(err, overlay.ErrSourceClipMissing),
		errors.Is(err, overlay.ErrEmptyID),
		errors.Is(err, editor.ErrNoMedia),
		errors.Is(err, export.ErrEmptyTimeline),
		errors.Is(err, export.ErrMissingSource),
		errors.Is(err, project.ErrEmptyName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with the status its kind maps to. Internal errors are
// logged and replaced by a generic message.
func (api *API) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		api.logger.WithRequestID(c.GetString("request_id")).ErrorWithErr("Request failed", err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

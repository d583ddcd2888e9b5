package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/timeline/internal/editor"
	"github.com/therealutkarshpriyadarshi/timeline/internal/interaction"
	"github.com/therealutkarshpriyadarshi/timeline/internal/middleware"
	"github.com/therealutkarshpriyadarshi/timeline/internal/timeline"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

const sessionContextKey = "editor_session"

// loadSession resolves the :sid path parameter to one of the caller's sessions
func (api *API) loadSession(c *gin.Context) {
	s, err := api.sessions.Get(c.Param("sid"), userID(c))
	if err != nil {
		api.respondError(c, err)
		c.Abort()
		return
	}
	c.Set(sessionContextKey, s)
	c.Next()
}

func session(c *gin.Context) *editor.Session {
	return c.MustGet(sessionContextKey).(*editor.Session)
}

// respondState answers a session command with the resulting state plus any
// command-specific fields
func respondState(c *gin.Context, s *editor.Session, extra gin.H) {
	body := gin.H{"state": s.State()}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// bind decodes the JSON body, answering 400 when it does not fit
func bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// Open session endpoint. Reopening a project returns the caller's live session.
func (api *API) openSession(c *gin.Context) {
	s, created, err := api.sessions.Open(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		api.respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"session_id": s.ID,
		"state":      s.State(),
	})
}

func (api *API) getSessionState(c *gin.Context) {
	respondState(c, session(c), nil)
}

// Close session endpoint. Pending edits are saved before the session ends.
func (api *API) closeSession(c *gin.Context) {
	if err := api.sessions.Close(c.Request.Context(), c.Param("sid"), userID(c)); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session closed"})
}

func (api *API) saveSession(c *gin.Context) {
	var req struct {
		Name *string `json:"name"`
	}
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}

	s := session(c)
	savedAt, err := s.Save(c.Request.Context(), api.projects, req.Name)
	if err != nil {
		api.respondError(c, err)
		return
	}

	respondState(c, s, gin.H{"saved_at": savedAt})
}

func (api *API) clearSession(c *gin.Context) {
	s := session(c)
	if err := s.ClearAll(); err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, nil)
}

// Add clips endpoint. Library items may carry only an object key; they are
// resolved to playable URLs before they reach the timeline.
func (api *API) addClips(c *gin.Context) {
	var req struct {
		Sources []models.MediaSource `json:"sources" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}

	sources, err := api.media.ResolveMediaSources(c.Request.Context(), req.Sources)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s := session(c)
	clips, err := s.AddClips(sources)
	if err != nil {
		api.respondError(c, err)
		return
	}

	respondState(c, s, gin.H{"clips": clips})
}

func (api *API) deleteClip(c *gin.Context) {
	s := session(c)
	if err := s.DeleteClip(c.Param("clipId")); err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, nil)
}

func (api *API) trimClip(c *gin.Context) {
	var req struct {
		Edge   string   `json:"edge" binding:"required,oneof=start end"`
		Target *float64 `json:"target" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}

	s := session(c)
	clip, err := s.TrimClip(c.Param("clipId"), timeline.Edge(req.Edge), *req.Target)
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"clip": clip})
}

func (api *API) splitClip(c *gin.Context) {
	var req struct {
		At *float64 `json:"at" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}

	s := session(c)
	first, second, err := s.SplitClip(c.Param("clipId"), *req.At)
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"clips": []models.Clip{first, second}})
}

func (api *API) splitAtPlayhead(c *gin.Context) {
	s := session(c)
	first, second, err := s.SplitAtPlayhead()
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"clips": []models.Clip{first, second}})
}

func (api *API) moveClip(c *gin.Context) {
	var req struct {
		Index *int `json:"index" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}

	s := session(c)
	if err := s.MoveClip(c.Param("clipId"), *req.Index); err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, nil)
}

func (api *API) setTransition(c *gin.Context) {
	var req struct {
		Type     string  `json:"type" binding:"required"`
		Duration float64 `json:"duration"`
	}
	if !bind(c, &req) {
		return
	}

	s := session(c)
	tr, err := s.SetTransition(c.Param("clipId"), req.Type, req.Duration)
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"transition": tr})
}

func (api *API) setClipVolume(c *gin.Context) {
	var req struct {
		Volume *float64 `json:"volume" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}

	s := session(c)
	if err := s.SetClipVolume(c.Param("clipId"), *req.Volume); err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, nil)
}

func (api *API) toggleClipMute(c *gin.Context) {
	s := session(c)
	muted, err := s.ToggleClipMute(c.Param("clipId"))
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"muted": muted})
}

func (api *API) detachAudio(c *gin.Context) {
	s := session(c)
	seg, err := s.DetachAudio(c.Param("clipId"))
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"segment": seg})
}

func (api *API) reattachAudio(c *gin.Context) {
	s := session(c)
	clip, err := s.ReattachAudio(c.Param("segmentId"))
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"clip": clip})
}

func (api *API) setSegmentVolume(c *gin.Context) {
	var req struct {
		Volume *float64 `json:"volume" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}

	s := session(c)
	seg, err := s.SetSegmentVolume(c.Param("segmentId"), *req.Volume)
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"segment": seg})
}

func (api *API) deleteAudioSegment(c *gin.Context) {
	s := session(c)
	if err := s.DeleteAudioSegment(c.Param("segmentId")); err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, nil)
}

// Begin gesture endpoint. The origin is the pointer's timeline position when
// the drag started.
func (api *API) beginGesture(c *gin.Context) {
	var req struct {
		Kind     string  `json:"kind" binding:"required"`
		EntityID string  `json:"entity_id"`
		Origin   float64 `json:"origin"`
	}
	if !bind(c, &req) {
		return
	}

	s := session(c)
	g, err := s.BeginGesture(interaction.Kind(req.Kind), req.EntityID, req.Origin)
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"gesture": g})
}

func (api *API) pointerMove(c *gin.Context) {
	var req struct {
		Time *float64 `json:"time" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}

	s := session(c)
	g, err := s.PointerMove(*req.Time)
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"gesture": g})
}

func (api *API) endGesture(c *gin.Context) {
	s := session(c)
	g, err := s.EndGesture()
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"gesture": g})
}

func (api *API) cancelGesture(c *gin.Context) {
	s := session(c)
	g, ok := s.CancelGesture()
	if !ok {
		api.respondError(c, interaction.ErrNoGesture)
		return
	}
	respondState(c, s, gin.H{"gesture": g})
}

// playbackCommand adapts a transport control that takes no arguments
func (api *API) playbackCommand(fn func(*editor.Session) (editor.State, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := fn(session(c))
		if err != nil {
			api.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": st})
	}
}

func (api *API) play(c *gin.Context) {
	api.playbackCommand((*editor.Session).Play)(c)
}

func (api *API) pause(c *gin.Context) {
	api.playbackCommand((*editor.Session).Pause)(c)
}

func (api *API) togglePlay(c *gin.Context) {
	api.playbackCommand((*editor.Session).TogglePlay)(c)
}

func (api *API) resetPlayback(c *gin.Context) {
	api.playbackCommand((*editor.Session).ResetPlayback)(c)
}

func (api *API) retryDegraded(c *gin.Context) {
	api.playbackCommand((*editor.Session).RetryDegraded)(c)
}

func (api *API) seek(c *gin.Context) {
	var req struct {
		Time *float64 `json:"time" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}

	st, err := session(c).Seek(*req.Time)
	if err != nil {
		api.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": st})
}

// Tick endpoint advances playback by delta seconds, for clients that drive
// their own frame clock instead of the server loop
func (api *API) tick(c *gin.Context) {
	var req struct {
		Delta float64 `json:"delta" binding:"gte=0"`
	}
	if !bind(c, &req) {
		return
	}

	st, err := session(c).Tick(req.Delta)
	if err != nil {
		api.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": st})
}

func (api *API) setVolume(c *gin.Context) {
	var req struct {
		Volume *float64 `json:"volume"`
		Muted  *bool    `json:"muted"`
	}
	if !bind(c, &req) {
		return
	}

	s := session(c)
	if req.Volume != nil {
		if _, err := s.SetVolume(*req.Volume); err != nil {
			api.respondError(c, err)
			return
		}
	}
	if req.Muted != nil {
		if _, err := s.SetMuted(*req.Muted); err != nil {
			api.respondError(c, err)
			return
		}
	}
	respondState(c, s, nil)
}

func (api *API) undo(c *gin.Context) {
	s := session(c)
	applied, err := s.Undo()
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"applied": applied})
}

func (api *API) redo(c *gin.Context) {
	s := session(c)
	applied, err := s.Redo()
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"applied": applied})
}

func (api *API) setScale(c *gin.Context) {
	var req struct {
		Scale *float64 `json:"scale" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}

	s := session(c)
	scale, err := s.SetScale(*req.Scale)
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"scale": scale})
}

func (api *API) zoomIn(c *gin.Context) {
	s := session(c)
	scale, err := s.ZoomIn()
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"scale": scale})
}

func (api *API) zoomOut(c *gin.Context) {
	s := session(c)
	scale, err := s.ZoomOut()
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"scale": scale})
}

// Start export endpoint. The committed timeline is serialized as it is now;
// later edits do not change the queued render.
func (api *API) startExport(c *gin.Context) {
	var req struct {
		PreviewDimensions *models.Dimensions `json:"preview_dimensions"`
	}
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}

	s := session(c)
	exportReq, err := s.ExportRequest(req.PreviewDimensions, middleware.GetCompanyID(c))
	if err != nil {
		api.respondError(c, err)
		return
	}

	job, err := api.exports.Start(c.Request.Context(), s.ProjectID, exportReq)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

func (api *API) getExport(c *gin.Context) {
	job, err := api.exports.Job(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		api.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (api *API) getExportProgress(c *gin.Context) {
	p, err := api.exports.Progress(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		api.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (api *API) retryExport(c *gin.Context) {
	job, err := api.exports.Retry(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		api.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

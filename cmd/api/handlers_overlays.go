package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/timeline/internal/overlay"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// Add text overlay endpoint. A full overlay is inserted as given; otherwise a
// default one is placed at the playhead or at the requested time.
func (api *API) addText(c *gin.Context) {
	var req struct {
		Text    string              `json:"text"`
		At      *float64            `json:"at"`
		Overlay *models.TextOverlay `json:"overlay"`
	}
	if !bind(c, &req) {
		return
	}

	s := session(c)
	var (
		o   models.TextOverlay
		err error
	)
	if req.Overlay != nil {
		o, err = s.InsertText(*req.Overlay)
	} else {
		o, err = s.AddText(req.Text, req.At)
	}
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"overlay": o})
}

func (api *API) updateText(c *gin.Context) {
	var patch overlay.TextPatch
	if !bind(c, &patch) {
		return
	}

	s := session(c)
	o, err := s.UpdateText(c.Param("overlayId"), patch)
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"overlay": o})
}

func (api *API) deleteText(c *gin.Context) {
	s := session(c)
	if err := s.DeleteText(c.Param("overlayId")); err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, nil)
}

func (api *API) duplicateText(c *gin.Context) {
	s := session(c)
	o, err := s.DuplicateText(c.Param("overlayId"))
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"overlay": o})
}

func (api *API) addCaption(c *gin.Context) {
	var req struct {
		Text string   `json:"text"`
		At   *float64 `json:"at"`
	}
	if !bind(c, &req) {
		return
	}

	s := session(c)
	caption, err := s.AddCaption(req.Text, req.At)
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"caption": caption})
}

func (api *API) updateCaption(c *gin.Context) {
	var patch overlay.CaptionPatch
	if !bind(c, &patch) {
		return
	}

	s := session(c)
	caption, err := s.UpdateCaption(c.Param("captionId"), patch)
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"caption": caption})
}

func (api *API) deleteCaption(c *gin.Context) {
	s := session(c)
	if err := s.DeleteCaption(c.Param("captionId")); err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, nil)
}

func (api *API) duplicateCaption(c *gin.Context) {
	s := session(c)
	caption, err := s.DuplicateCaption(c.Param("captionId"))
	if err != nil {
		api.respondError(c, err)
		return
	}
	respondState(c, s, gin.H{"caption": caption})
}

// Caption style applies to the whole caption track
func (api *API) setCaptionStyle(c *gin.Context) {
	var style models.CaptionStyle
	if !bind(c, &style) {
		return
	}

	s := session(c)
	if err := s.SetCaptionStyle(style); err != nil {
		api.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"caption_style": style})
}

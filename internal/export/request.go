// Package export turns a committed timeline into a render request, drives the
// render service and tracks job progress.
package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/therealutkarshpriyadarshi/timeline/internal/timeline"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

var (
	ErrEmptyTimeline     = errors.New("nothing to export: timeline has no clips")
	ErrMissingSource     = errors.New("clip has no source url")
	ErrContractViolation = errors.New("render result violates contract")
)

const defaultProjectName = "Exported Video"

// Input is the committed editor state an export is built from
type Input struct {
	Clips        []models.Clip
	TextOverlays []models.TextOverlay
	Dimensions   *models.Dimensions
	UserID       string
	CompanyID    *string
	ProjectName  string
}

// BuildRequest serializes the committed timeline in clip order. It refuses
// timelines that break the gapless or trim invariants rather than exporting
// something other than what the user sees.
func BuildRequest(in Input, minClip float64) (models.ExportRequest, error) {
	if len(in.Clips) == 0 {
		return models.ExportRequest{}, ErrEmptyTimeline
	}

	clips := timeline.SortByStart(timeline.Clone(in.Clips))
	if err := timeline.Validate(clips, minClip); err != nil {
		return models.ExportRequest{}, fmt.Errorf("cannot export: %w", err)
	}

	req := models.ExportRequest{
		Clips:       make([]models.ExportClip, 0, len(clips)),
		UserID:      in.UserID,
		CompanyID:   in.CompanyID,
		ProjectName: strings.TrimSpace(in.ProjectName),
	}
	if req.ProjectName == "" {
		req.ProjectName = defaultProjectName
	}
	if in.Dimensions != nil && in.Dimensions.Width > 0 && in.Dimensions.Height > 0 {
		d := *in.Dimensions
		req.PreviewDimensions = &d
	}

	for _, c := range clips {
		if c.SourceURL == "" {
			return models.ExportRequest{}, fmt.Errorf("clip %s: %w", c.ID, ErrMissingSource)
		}
		ec := models.ExportClip{
			ID:             c.ID,
			SourceURL:      c.SourceURL,
			SourceDuration: c.SourceDuration,
			StartTime:      c.StartTime,
			TrimStart:      c.TrimStart,
			TrimEnd:        c.TrimEnd,
		}
		if c.TransitionOut != nil {
			t := *c.TransitionOut
			ec.TransitionOut = &t
		}
		req.Clips = append(req.Clips, ec)
	}

	total := timeline.TotalDuration(clips)
	for _, o := range in.TextOverlays {
		// overlays entirely past the end would render nothing
		if o.StartTime >= total || strings.TrimSpace(o.Text) == "" {
			continue
		}
		req.TextOverlays = append(req.TextOverlays, exportOverlay(o))
	}

	return req, nil
}

func exportOverlay(o models.TextOverlay) models.ExportTextOverlay {
	style := models.ExportTextStyle{
		FontFamily: o.Style.FontFamily,
		FontSize:   o.Style.FontSize,
		FontWeight: o.Style.FontWeight,
		Color:      o.Style.Color,
		TextAlign:  o.Style.TextAlign,
		Opacity:    o.Style.Opacity,
	}
	if o.Style.BackgroundColor != "" {
		bg := o.Style.BackgroundColor
		style.BackgroundColor = &bg
		if o.Style.BackgroundPadding > 0 {
			pad := o.Style.BackgroundPadding
			style.BackgroundPadding = &pad
		}
	}

	return models.ExportTextOverlay{
		ID:        o.ID,
		StartTime: o.StartTime,
		Duration:  o.Duration,
		Text:      o.Text,
		Position:  o.Position,
		Style:     style,
	}
}

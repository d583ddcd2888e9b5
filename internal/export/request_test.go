package export

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/timeline/internal/timeline"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

func clip(id string, start, source, trimStart, trimEnd float64) models.Clip {
	return models.Clip{
		ID:             id,
		SourceURL:      "https://cdn.example.com/" + id + ".mp4",
		SourceDuration: source,
		StartTime:      start,
		TrimStart:      trimStart,
		TrimEnd:        trimEnd,
		Audio:          models.DefaultAudioInfo(),
	}
}

func TestBuildRequest(t *testing.T) {
	// out of order on purpose; the request follows timeline order
	clips := []models.Clip{
		clip("b", 4, 10, 1, 1),
		clip("a", 0, 5, 0, 1),
	}
	clips[1].TransitionOut = &models.Transition{Type: models.TransitionFade, Duration: 0.5}

	overlays := []models.TextOverlay{
		{ID: "t1", StartTime: 1, Duration: 3, Text: "Hello", Style: models.DefaultTextStyle()},
		{ID: "t2", StartTime: 20, Duration: 3, Text: "Too late", Style: models.DefaultTextStyle()},
		{ID: "t3", StartTime: 2, Duration: 3, Text: "   ", Style: models.DefaultTextStyle()},
	}
	overlays[0].Style.BackgroundColor = "#000000"
	overlays[0].Style.BackgroundPadding = 8

	req, err := BuildRequest(Input{
		Clips:        clips,
		TextOverlays: overlays,
		Dimensions:   &models.Dimensions{Width: 1920, Height: 1080},
		UserID:       "user-1",
		ProjectName:  "  Trip  ",
	}, 0.5)
	require.NoError(t, err)

	require.Len(t, req.Clips, 2)
	assert.Equal(t, "a", req.Clips[0].ID)
	assert.Equal(t, "b", req.Clips[1].ID)
	assert.Equal(t, 4.0, req.Clips[1].StartTime)
	require.NotNil(t, req.Clips[0].TransitionOut)
	assert.Equal(t, models.TransitionFade, req.Clips[0].TransitionOut.Type)

	require.Len(t, req.TextOverlays, 1)
	assert.Equal(t, "t1", req.TextOverlays[0].ID)
	require.NotNil(t, req.TextOverlays[0].Style.BackgroundColor)
	assert.Equal(t, "#000000", *req.TextOverlays[0].Style.BackgroundColor)
	require.NotNil(t, req.TextOverlays[0].Style.BackgroundPadding)
	assert.Equal(t, 8, *req.TextOverlays[0].Style.BackgroundPadding)

	assert.Equal(t, "Trip", req.ProjectName)
	assert.Equal(t, "user-1", req.UserID)
	require.NotNil(t, req.PreviewDimensions)
	assert.Equal(t, 1920, req.PreviewDimensions.Width)

	// caller's slice is untouched
	assert.Equal(t, "b", clips[0].ID)
}

func TestBuildRequestDefaults(t *testing.T) {
	req, err := BuildRequest(Input{
		Clips:      []models.Clip{clip("a", 0, 5, 0, 0)},
		Dimensions: &models.Dimensions{},
	}, 0.5)
	require.NoError(t, err)

	assert.Equal(t, "Exported Video", req.ProjectName)
	assert.Nil(t, req.PreviewDimensions)
	assert.Empty(t, req.TextOverlays)
}

func TestBuildRequestRejects(t *testing.T) {
	tests := []struct {
		name  string
		clips []models.Clip
		want  error
	}{
		{"empty", nil, ErrEmptyTimeline},
		{"missing source", []models.Clip{{ID: "a", SourceDuration: 5}}, ErrMissingSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildRequest(Input{Clips: tt.clips}, 0.5)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestBuildRequestRejectsBrokenInvariants(t *testing.T) {
	tests := []struct {
		name  string
		clips []models.Clip
	}{
		{"gap", []models.Clip{clip("a", 0, 5, 0, 0), clip("b", 6, 5, 0, 0)}},
		{"late first clip", []models.Clip{clip("a", 1, 5, 0, 0)}},
		{"over trimmed", []models.Clip{clip("a", 0, 5, 3, 2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildRequest(Input{Clips: tt.clips}, 0.5)
			require.Error(t, err)
			var inv *timeline.InvariantError
			assert.True(t, errors.As(err, &inv))
		})
	}
}

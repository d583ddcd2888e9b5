package export

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResultSuccess(t *testing.T) {
	body := []byte(`{
		"success": true,
		"videoUrl": "https://cdn.example.com/exports/u/p/j.mp4",
		"storagePath": "exports/u/p/j.mp4",
		"fileSize": 1048576,
		"mediaFileId": "media-9",
		"processingTimeMs": 4200
	}`)

	r, err := ParseResult(body)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, "exports/u/p/j.mp4", r.StoragePath)
	assert.Equal(t, int64(1048576), r.FileSize)
	assert.Equal(t, int64(4200), r.ProcessingTimeMs)
	assert.Equal(t, "media-9", r.MediaFileID)
}

func TestParseResultFailure(t *testing.T) {
	r, err := ParseResult([]byte(`{"success": false, "error": "ffmpeg exited with 1", "videoUrl": null}`))
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, "ffmpeg exited with 1", r.Error)
}

func TestParseResultViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"success": tru`},
		{"array", `[1, 2]`},
		{"unknown field", `{"success": true, "videoUrl": "x", "extra": 1}`},
		{"missing success", `{"videoUrl": "x"}`},
		{"success as string", `{"success": "true", "videoUrl": "x"}`},
		{"url as number", `{"success": true, "videoUrl": 5}`},
		{"negative size", `{"success": true, "videoUrl": "x", "fileSize": -1}`},
		{"fractional time", `{"success": true, "videoUrl": "x", "processingTimeMs": 1.5}`},
		{"success without url", `{"success": true}`},
		{"success with error", `{"success": true, "videoUrl": "x", "error": "boom"}`},
		{"failure without error", `{"success": false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResult([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrContractViolation), "got %v", err)
		})
	}
}

package export

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/timeline/internal/config"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

func TestRenderClient(t *testing.T) {
	var got models.ExportRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success": true, "videoUrl": "https://cdn/x.mp4", "fileSize": 10}`))
	}))
	defer srv.Close()

	c := NewRenderClient(config.RenderConfig{Endpoint: srv.URL, Timeout: time.Second})
	req := models.ExportRequest{
		Clips:       []models.ExportClip{{ID: "a", SourceURL: "https://cdn/a.mp4", SourceDuration: 5}},
		UserID:      "user-1",
		ProjectName: "Trip",
	}

	r, err := c.Render(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, int64(10), r.FileSize)
	assert.Equal(t, "Trip", got.ProjectName)
	require.Len(t, got.Clips, 1)
	assert.Equal(t, "https://cdn/a.mp4", got.Clips[0].SourceURL)
}

func TestRenderClientErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		violation bool
		contains  string
	}{
		{"http error with detail", http.StatusBadRequest, `{"detail": "no clips"}`, false, "no clips"},
		{"http error without body", http.StatusBadGateway, ``, false, "Bad Gateway"},
		{"contract violation", http.StatusOK, `{"ok": true}`, true, "unexpected field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewRenderClient(config.RenderConfig{Endpoint: srv.URL})
			_, err := c.Render(context.Background(), models.ExportRequest{})
			require.Error(t, err)
			assert.Equal(t, tt.violation, errors.Is(err, ErrContractViolation))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestRenderClientHonorsContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewRenderClient(config.RenderConfig{Endpoint: srv.URL, Timeout: time.Minute})
	_, err := c.Render(ctx, models.ExportRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

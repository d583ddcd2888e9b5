package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/therealutkarshpriyadarshi/timeline/internal/config"
	"github.com/therealutkarshpriyadarshi/timeline/internal/tracing"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
	"github.com/tidwall/gjson"
)

const maxResultBytes = 1 << 20

// RenderClient calls the render service's export endpoint
type RenderClient struct {
	endpoint string
	http     *http.Client
}

// NewRenderClient creates a client for cfg. Renders are slow; the timeout
// covers the whole export.
func NewRenderClient(cfg config.RenderConfig) *RenderClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &RenderClient{
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// Render submits req and waits for the strict result
func (c *RenderClient) Render(ctx context.Context, req models.ExportRequest) (models.ExportResult, error) {
	span, ctx := tracing.StartSpan(ctx, "render.export")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "clips", len(req.Clips))

	body, err := json.Marshal(req)
	if err != nil {
		return models.ExportResult{}, fmt.Errorf("failed to marshal export request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.ExportResult{}, fmt.Errorf("failed to build render request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	_ = opentracing.GlobalTracer().Inject(span.Context(), opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(httpReq.Header))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		tracing.LogError(span, err)
		return models.ExportResult{}, fmt.Errorf("render service unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBytes))
	if err != nil {
		return models.ExportResult{}, fmt.Errorf("failed to read render response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(data, "detail").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		err := fmt.Errorf("render service returned %d: %s", resp.StatusCode, msg)
		tracing.LogError(span, err)
		return models.ExportResult{}, err
	}

	result, err := ParseResult(data)
	if err != nil {
		tracing.LogError(span, err)
		return models.ExportResult{}, err
	}
	return result, nil
}

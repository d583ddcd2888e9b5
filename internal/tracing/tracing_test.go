package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/timeline/internal/config"
)

func TestInitTracerDisabled(t *testing.T) {
	tracer, closer, err := InitTracer(config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NotNil(t, tracer)
	assert.NoError(t, closer.Close())
}

func TestProjectSpan(t *testing.T) {
	mt := mocktracer.New()
	prev := opentracing.GlobalTracer()
	opentracing.SetGlobalTracer(mt)
	defer opentracing.SetGlobalTracer(prev)

	span, ctx := StartProjectSpan(context.Background(), "project.save", "proj-1")
	assert.NotNil(t, opentracing.SpanFromContext(ctx))
	SetTag(span, "clips", 3)
	LogError(span, errors.New("boom"))
	FinishSpan(span)

	finished := mt.FinishedSpans()
	require.Len(t, finished, 1)
	assert.Equal(t, "project.save", finished[0].OperationName)
	assert.Equal(t, "proj-1", finished[0].Tag("project.id"))
	assert.Equal(t, 3, finished[0].Tag("clips"))
	assert.Equal(t, true, finished[0].Tag("error"))
}

func TestNilSpanHelpers(t *testing.T) {
	assert.NotPanics(t, func() {
		FinishSpan(nil)
		LogError(nil, errors.New("ignored"))
		SetTag(nil, "k", "v")
	})
}

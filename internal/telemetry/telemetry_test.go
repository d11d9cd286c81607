package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "flushwatch", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 10*time.Second, cfg.ExportTimeout)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestExporterOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExportTimeout = 0
	assert.Equal(t, defaultExportTimeout, cfg.exportTimeout())
	// Endpoint, timeout, and the two insecure options.
	assert.Len(t, cfg.exporterOptions(), 4)

	cfg.Insecure = false
	cfg.Headers = map[string]string{"authorization": "Bearer t"}
	cfg.ExportTimeout = 3 * time.Second
	assert.Equal(t, 3*time.Second, cfg.exportTimeout())
	assert.Len(t, cfg.exporterOptions(), 3)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())
}

func TestTracerWithoutInit(t *testing.T) {
	setTracer(nil, nil, false)
	require.NotNil(t, Tracer())

	ctx, span := StartSpan(context.Background(), "test.operation")
	require.NotNil(t, ctx)
	span.End()

	assert.Equal(t, "", TraceID(ctx))
	assert.Equal(t, "", SpanID(ctx))
}

func TestSpanHelpersDoNotPanic(t *testing.T) {
	ctx := context.Background()
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
		RecordError(ctx, nil)
		RecordError(ctx, errors.New("test error"))
		SetAttributes(ctx, CacheID("a"))
	})
}

func TestNewSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), newSampler(1.0).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), newSampler(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.5).Description(), newSampler(0.5).Description())
}

func TestAttributeHelpers(t *testing.T) {
	attr := CacheID("room-1")
	assert.Equal(t, AttrCacheID, string(attr.Key))
	assert.Equal(t, "room-1", attr.Value.AsString())

	attr = FlushInterval(5 * time.Second)
	assert.Equal(t, AttrFlushInterval, string(attr.Key))
	assert.Equal(t, int64(5000), attr.Value.AsInt64())

	attr = SyncBytes(512)
	assert.Equal(t, int64(512), attr.Value.AsInt64())

	attr = SyncKind("forced")
	assert.Equal(t, "forced", attr.Value.AsString())
}

func TestStartForceSyncSpanRecorded(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	setTracer(provider.Tracer("test"), provider, true)
	defer setTracer(nil, nil, false)

	ctx, span := StartForceSyncSpan(context.Background(), "cam-1", "sync-1", CachePath("/tmp/x"))
	assert.NotEmpty(t, TraceID(ctx))
	assert.NotEmpty(t, SpanID(ctx))
	RecordError(ctx, errors.New("disk full"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, SpanForceSync, spans[0].Name())

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "cam-1", attrs[AttrCacheID])
	assert.Equal(t, "sync-1", attrs[AttrSyncID])
	assert.Equal(t, "/tmp/x", attrs[AttrCachePath])
	assert.Len(t, spans[0].Events(), 1)
}

func TestParseProfileType(t *testing.T) {
	_, err := parseProfileType("cpu")
	assert.NoError(t, err)

	_, err = parseProfileType("heap")
	assert.Error(t, err)
}

func TestInitProfilingDisabled(t *testing.T) {
	shutdown, err := InitProfiling(ProfilingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown())
	assert.False(t, IsProfilingEnabled())
}

package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"job-board-go/internal/config"
)

func TestInitProviderDisabledIsNoop(t *testing.T) {
	shutdown, err := InitProvider(context.Background(), config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestRecordErrorSetsTypeAndStatus(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordError(span, errors.New("boom"), ErrorTypeAI)
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	found := false
	for _, kv := range spans[0].Attributes() {
		if string(kv.Key) == "error.type" {
			found = true
			assert.Equal(t, "ai", kv.Value.AsString())
		}
	}
	assert.True(t, found)

	// nil 不应panic
	RecordError(nil, errors.New("x"), ErrorTypeDB)
	RecordError(span, nil, ErrorTypeDB)
}

func TestSafeAttributeValueMasksPII(t *testing.T) {
	assert.Equal(t, "ja************om", SafeAttributeValue("candidate_email", "jane@example.com", 100))
	assert.Equal(t, "张*", SafeAttributeValue("姓名", "张三", 100))
	assert.Equal(t, "abc", SafeAttributeValue("stage", "abc", 100))
}

func TestSafeAttributeValueMatchesWholeWords(t *testing.T) {
	for _, name := range []string{"match.stage", "error.message", "page", "usage_count", "filename", "tokens_total"} {
		assert.Equal(t, "abcdef", SafeAttributeValue(name, "abcdef", 100), name)
	}
	for _, name := range []string{"candidate.name", "candidateEmail", "user-phone", "id_card", "auth.token", "候选人姓名", "AGE"} {
		assert.Equal(t, "ab**ef", SafeAttributeValue(name, "abcdef", 100), name)
	}
}

func TestTruncateStringKeepsBothEnds(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "abc...xyz", TruncateString("abcdefghijklmnopqrstuvwxyz", 9))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestEndObjectSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tracer := tp.Tracer("test")

	_, failed := tracer.Start(context.Background(), "MinIO.PutObject")
	endObjectSpan(failed, fmt.Errorf("上传对象失败: %w", errors.New("connection refused")))
	_, missing := tracer.Start(context.Background(), "MinIO.GetObject")
	endObjectSpan(missing, ErrNotFound)

	spans := rec.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, codes.Error, spans[0].Status().Code)
	var errType string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "error.type" {
			errType = kv.Value.AsString()
		}
	}
	assert.Equal(t, "object_store", errType)

	assert.Equal(t, codes.Ok, spans[1].Status().Code, "对象不存在不算错误")
}

func TestResumeObjectKey(t *testing.T) {
	assert.Equal(t, "resume/u1/r1.pdf", ResumeObjectKey("u1", "r1", ".PDF"))
}

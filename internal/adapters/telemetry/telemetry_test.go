package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sw/internal/adapters/telemetry"
)

func TestNoOpTracer(t *testing.T) {
	tracer := telemetry.NewNoOpTracer()

	ctx, span := tracer.Start(context.Background(), "compile")
	require.NotNil(t, ctx)
	require.NotNil(t, span)

	n, err := span.Write([]byte("output"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	span.SetAttribute("k", "v")
	span.RecordError(assert.AnError)
	span.End()

	tracer.EmitPlan(ctx, []string{"compile"})
}

package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.NotNil(t, m)

	m.TraversalSteps.Add(3)
	m.CSMEvaluations.Inc()
	m.EthosVerdicts.WithLabelValues("Allow").Inc()
	m.AggregationFanOut.Observe(4)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	m.Unregister()
}

func TestTraversalTimer_RecordsStepsAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	defer m.Unregister()

	stop := m.TraversalTimer()
	stop(5)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewTracerProvider_DisabledIsNoOp(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), false, "")
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.GetTracer("test"))
	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewTracerProvider_EnabledWithoutEndpointFails(t *testing.T) {
	_, err := NewTracerProvider(context.Background(), true, "")
	require.Error(t, err)
}

func TestNewTracerProvider_EnabledWithEndpointSucceeds(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), true, "localhost:4317")
	require.NoError(t, err)
	assert.True(t, tp.IsEnabled())
	require.NoError(t, tp.Shutdown(context.Background()))
}

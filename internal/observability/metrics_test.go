package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestGradingEventsCountsByKind(t *testing.T) {
	counter := GradingEvents()

	before := testutil.ToFloat64(counter.WithLabelValues("answer.graded"))
	counter.WithLabelValues("answer.graded").Inc()
	counter.WithLabelValues("answer.graded").Inc()
	counter.WithLabelValues("batch.completed").Inc()

	require.Equal(t, before+2, testutil.ToFloat64(counter.WithLabelValues("answer.graded")))
	require.GreaterOrEqual(t, testutil.ToFloat64(counter.WithLabelValues("batch.completed")), float64(1))
}

func TestRegisterMetricsIsIdempotent(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	require.Same(t, Requests(), Requests())
	require.Same(t, Errors(), Errors())
	require.Same(t, Latency(), Latency())
}

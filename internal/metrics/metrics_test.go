package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	require.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestQueueDepthGauge(t *testing.T) {
	Register()

	SetQueueDepth(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(queueDepth))

	SetQueueDepth(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(queueDepth))
}

func TestCountersByLabel(t *testing.T) {
	Register()

	before := testutil.ToFloat64(processed.WithLabelValues("synced"))
	IncProcessed("synced")
	IncProcessed("synced")
	assert.Equal(t, before+2, testutil.ToFloat64(processed.WithLabelValues("synced")))

	beforeStatus := testutil.ToFloat64(statusChanges.WithLabelValues("offline"))
	IncStatus("offline")
	assert.Equal(t, beforeStatus+1, testutil.ToFloat64(statusChanges.WithLabelValues("offline")))
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	// Touch each collector so it is gathered.
	m.IncPublished()
	m.IncPublishError()
	m.IncConnectAttempt()
	m.IncConnectError()
	m.IncRetry()
	m.IncEncodeError()
	m.AddAbandoned(0)
	m.SetBufferDepth(0)
	m.ObserveDrain(time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 9)
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	require.Error(t, err)
}

func TestMetrics_Values(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.IncPublished()
	m.IncPublished()
	m.IncConnectAttempt()
	m.IncConnectError()
	m.IncRetry()
	m.AddAbandoned(4)
	m.SetBufferDepth(7)

	require.InDelta(t, 2, testutil.ToFloat64(m.published), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.connectAttempts), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.connectErrors), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.retries), 0)
	require.InDelta(t, 4, testutil.ToFloat64(m.abandoned), 0)
	require.InDelta(t, 7, testutil.ToFloat64(m.bufferDepth), 0)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	require.NotPanics(t, func() {
		m.IncPublished()
		m.IncPublishError()
		m.IncConnectAttempt()
		m.IncConnectError()
		m.IncRetry()
		m.IncEncodeError()
		m.AddAbandoned(3)
		m.SetBufferDepth(1)
		m.ObserveDrain(time.Second)
	})
}

package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-txpipeline/internal/metrics"
)

func TestServiceRecords(t *testing.T) {
	m, err := metrics.New()
	require.NoError(t, err)

	m.ObserveFeeEstimation("ok")
	m.AttemptStarted("sendToken")
	m.AttemptFinished("sendToken", "success")
	m.ObserveSigning("software", "ok", 10*time.Millisecond)
	m.SignatureCacheLookup(true)
	m.StaleResult("sendToken")

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}

	assert.Contains(t, names, "txpipeline_fee_estimations_total")
	assert.Contains(t, names, "txpipeline_pipeline_attempts_total")
	assert.Contains(t, names, "txpipeline_signer_duration_seconds")

	count, err := testutil.GatherAndCount(m.Registry, "txpipeline_pipeline_attempts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilServiceIsNoop(t *testing.T) {
	var m *metrics.Service

	assert.NotPanics(t, func() {
		m.ObserveFeeEstimation("ok")
		m.AttemptStarted("sendToken")
		m.AttemptFinished("sendToken", "success")
		m.ObserveSigning("software", "ok", time.Second)
		m.SignatureCacheLookup(false)
		m.StaleResult("sendToken")
	})
}

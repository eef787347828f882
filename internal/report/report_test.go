package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeworks/latency-probe/internal/stats"
)

func TestNewPingReport(t *testing.T) {
	rtts := []time.Duration{
		13400 * time.Microsecond,
		20 * time.Millisecond,
	}
	s := stats.Summarize(3, rtts)

	r := NewPingReport("example.com", rtts, s)

	_, err := uuid.Parse(r.ID)
	assert.NoError(t, err, "run id must be a valid uuid")

	assert.Equal(t, "example.com", r.Target)
	assert.Equal(t, 3, r.Sent)
	assert.Equal(t, 2, r.Received)
	assert.Equal(t, []float64{13.4, 20}, r.RTTs)
	assert.Equal(t, 13.4, r.Min)
	assert.Equal(t, 20.0, r.Max)
}

func TestNewTraceReport(t *testing.T) {
	perHop := []stats.HopStats{
		{
			Hop:      1,
			Hosts:    []string{"gw (10.0.0.1)"},
			Sent:     3,
			Received: 3,
			Avg:      1500 * time.Microsecond,
			Min:      time.Millisecond,
			Max:      2 * time.Millisecond,
			Median:   1500 * time.Microsecond,
		},
		{Hop: 2, Sent: 3, Loss: 100},
	}

	r := NewTraceReport("example.com", 3, true, perHop)
	assert.Equal(t, 3, r.Runs)
	assert.True(t, r.ReachedDest)
	require.Len(t, r.Hops, 2)
	assert.Equal(t, 1.5, r.Hops[0].Avg)
	assert.Equal(t, float64(100), r.Hops[1].Loss)
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trstats.json")

	r := NewTraceReport("example.com", 1, false, nil)
	require.NoError(t, Write(path, r))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded TraceReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.ID, decoded.ID)
	assert.Equal(t, "example.com", decoded.Target)
}

func TestMillisRounding(t *testing.T) {
	assert.Equal(t, 0.456, millis(456*time.Microsecond))
	assert.Equal(t, 21.334, millis(21334*time.Microsecond))
	assert.Equal(t, 0.0, millis(0))
}

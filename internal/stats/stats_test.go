package stats

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(5, nil)
	assert.Equal(t, 5, s.Sent)
	assert.Equal(t, 0, s.Received)
	assert.Equal(t, float64(100), s.Loss)
	assert.Equal(t, time.Duration(0), s.Avg)
}

func TestSummarize(t *testing.T) {
	rtts := []time.Duration{
		30 * time.Millisecond,
		10 * time.Millisecond,
		20 * time.Millisecond,
	}

	s := Summarize(4, rtts)
	assert.Equal(t, 4, s.Sent)
	assert.Equal(t, 3, s.Received)
	assert.Equal(t, float64(25), s.Loss)
	assert.Equal(t, 10*time.Millisecond, s.Min)
	assert.Equal(t, 30*time.Millisecond, s.Max)
	assert.Equal(t, 20*time.Millisecond, s.Avg)
	assert.Equal(t, 20*time.Millisecond, s.Median)
}

func TestSummarizeMedianEvenCount(t *testing.T) {
	rtts := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		40 * time.Millisecond,
	}
	s := Summarize(4, rtts)
	assert.Equal(t, 25*time.Millisecond, s.Median)
}

// Repeated measurements against a fixed 20ms path must cluster near 20ms.
func TestSummarizeClustersAroundFixedDelay(t *testing.T) {
	base := 20 * time.Millisecond
	rng := rand.New(rand.NewSource(1))

	rtts := make([]time.Duration, 10)
	for i := range rtts {
		jitter := time.Duration(rng.Int63n(int64(time.Millisecond)))
		rtts[i] = base + jitter
	}

	s := Summarize(10, rtts)
	assert.Equal(t, float64(0), s.Loss)
	assert.GreaterOrEqual(t, s.Min, base)
	assert.Less(t, s.Max, base+2*time.Millisecond)
	assert.InDelta(t, float64(base), float64(s.Avg), float64(time.Millisecond))
}

func TestPerHopOrderingAndLoss(t *testing.T) {
	obs := []HopObservation{
		{Hop: 2, Host: "10.0.0.2", RTT: 8 * time.Millisecond, Received: true},
		{Hop: 1, Host: "10.0.0.1", RTT: 3 * time.Millisecond, Received: true},
		{Hop: 3, Received: false},
		{Hop: 1, Host: "10.0.0.1", RTT: 5 * time.Millisecond, Received: true},
		{Hop: 2, Received: false},
		{Hop: 3, Received: false},
	}

	hops := PerHop(obs)
	require.Len(t, hops, 3)

	assert.Equal(t, 1, hops[0].Hop)
	assert.Equal(t, 2, hops[1].Hop)
	assert.Equal(t, 3, hops[2].Hop)

	assert.Equal(t, float64(0), hops[0].Loss)
	assert.Equal(t, 4*time.Millisecond, hops[0].Avg)
	assert.Equal(t, []string{"10.0.0.1"}, hops[0].Hosts)

	assert.Equal(t, float64(50), hops[1].Loss)

	assert.Equal(t, float64(100), hops[2].Loss)
	assert.Equal(t, time.Duration(0), hops[2].Avg)
	assert.Empty(t, hops[2].Hosts)
}

func TestPerHopDeduplicatesHosts(t *testing.T) {
	obs := []HopObservation{
		{Hop: 1, Host: "gw", RTT: time.Millisecond, Received: true},
		{Hop: 1, Host: "gw", RTT: 2 * time.Millisecond, Received: true},
		{Hop: 1, Host: "gw2", RTT: 3 * time.Millisecond, Received: true},
	}

	hops := PerHop(obs)
	require.Len(t, hops, 1)
	assert.Equal(t, []string{"gw", "gw2"}, hops[0].Hosts)
}

// Package report writes measurement results to JSON documents.
package report

import (
	"encoding/json"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/probeworks/latency-probe/internal/stats"
)

// PingReport is the JSON document for one ping run. Latencies are in
// milliseconds.
type PingReport struct {
	ID          string    `json:"id"`
	Target      string    `json:"target"`
	GeneratedAt time.Time `json:"generated_at"`
	Sent        int       `json:"sent"`
	Received    int       `json:"received"`
	Loss        float64   `json:"loss"`
	RTTs        []float64 `json:"rtts"`
	Min         float64   `json:"min"`
	Avg         float64   `json:"avg"`
	Max         float64   `json:"max"`
	Median      float64   `json:"med"`
	StdDev      float64   `json:"stddev"`
}

func NewPingReport(target string, rtts []time.Duration, s stats.PingStats) PingReport {
	r := PingReport{
		ID:          uuid.NewString(),
		Target:      target,
		GeneratedAt: time.Now().UTC(),
		Sent:        s.Sent,
		Received:    s.Received,
		Loss:        s.Loss,
		Min:         millis(s.Min),
		Avg:         millis(s.Avg),
		Max:         millis(s.Max),
		Median:      millis(s.Median),
		StdDev:      millis(s.StdDev),
	}
	for _, rtt := range rtts {
		r.RTTs = append(r.RTTs, millis(rtt))
	}
	return r
}

// HopReport is the per-hop entry of a trace report.
type HopReport struct {
	Hop   int      `json:"hop"`
	Hosts []string `json:"hosts"`
	Sent  int      `json:"sent"`
	Loss  float64  `json:"loss"`
	Avg   float64  `json:"avg"`
	Min   float64  `json:"min"`
	Max   float64  `json:"max"`
	Med   float64  `json:"med"`
}

// TraceReport is the JSON document for a trace session.
type TraceReport struct {
	ID          string      `json:"id"`
	Target      string      `json:"target"`
	GeneratedAt time.Time   `json:"generated_at"`
	Runs        int         `json:"runs"`
	ReachedDest bool        `json:"reached_dest"`
	Hops        []HopReport `json:"hops"`
}

func NewTraceReport(target string, runs int, reached bool, perHop []stats.HopStats) TraceReport {
	r := TraceReport{
		ID:          uuid.NewString(),
		Target:      target,
		GeneratedAt: time.Now().UTC(),
		Runs:        runs,
		ReachedDest: reached,
	}
	for _, h := range perHop {
		r.Hops = append(r.Hops, HopReport{
			Hop:   h.Hop,
			Hosts: h.Hosts,
			Sent:  h.Sent,
			Loss:  h.Loss,
			Avg:   millis(h.Avg),
			Min:   millis(h.Min),
			Max:   millis(h.Max),
			Med:   millis(h.Median),
		})
	}
	return r
}

// Write marshals the document to path with indentation.
func Write(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return errors.Wrap(err, "marshaling report")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "writing report to %s", path)
	}
	return nil
}

// millis converts a duration to milliseconds rounded to 3 decimals.
func millis(d time.Duration) float64 {
	ms := float64(d) / float64(time.Millisecond)
	return math.Round(ms*1000) / 1000
}

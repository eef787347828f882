package stats

import (
	"math"
	"sort"
	"time"
)

// PingStats aggregates the round trips of one ping run.
type PingStats struct {
	Sent     int           `json:"sent"`
	Received int           `json:"received"`
	Loss     float64       `json:"loss"`
	Min      time.Duration `json:"min"`
	Avg      time.Duration `json:"avg"`
	Max      time.Duration `json:"max"`
	Median   time.Duration `json:"median"`
	StdDev   time.Duration `json:"stddev"`
}

// Summarize computes aggregates over the successful round trips of a run
// of sent attempts. With no replies only Sent and Loss are meaningful.
func Summarize(sent int, rtts []time.Duration) PingStats {
	s := PingStats{
		Sent:     sent,
		Received: len(rtts),
	}
	if sent > 0 {
		s.Loss = float64(sent-len(rtts)) / float64(sent) * 100
	}
	if len(rtts) == 0 {
		return s
	}

	sorted := append([]time.Duration(nil), rtts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Median = median(sorted)

	var sum time.Duration
	for _, rtt := range sorted {
		sum += rtt
	}
	s.Avg = sum / time.Duration(len(sorted))

	var sq float64
	for _, rtt := range sorted {
		d := float64(rtt - s.Avg)
		sq += d * d
	}
	s.StdDev = time.Duration(math.Sqrt(sq / float64(len(sorted))))

	return s
}

// HopObservation is one hop measurement from a single trace run.
type HopObservation struct {
	Hop      int
	Host     string // responder name or address, "" when the hop timed out
	RTT      time.Duration
	Received bool
}

// HopStats aggregates every observation of one hop index across runs.
type HopStats struct {
	Hop      int           `json:"hop"`
	Hosts    []string      `json:"hosts"`
	Sent     int           `json:"sent"`
	Received int           `json:"received"`
	Loss     float64       `json:"loss"`
	Avg      time.Duration `json:"avg"`
	Min      time.Duration `json:"min"`
	Max      time.Duration `json:"max"`
	Median   time.Duration `json:"median"`
}

// PerHop groups observations by hop index and computes per-hop aggregates,
// ordered by hop index. Hops that never answered still appear, with all
// latency fields zero and 100% loss.
func PerHop(obs []HopObservation) []HopStats {
	byHop := make(map[int][]HopObservation)
	for _, o := range obs {
		byHop[o.Hop] = append(byHop[o.Hop], o)
	}

	hops := make([]int, 0, len(byHop))
	for hop := range byHop {
		hops = append(hops, hop)
	}
	sort.Ints(hops)

	out := make([]HopStats, 0, len(hops))
	for _, hop := range hops {
		group := byHop[hop]

		hs := HopStats{
			Hop:  hop,
			Sent: len(group),
		}

		var rtts []time.Duration
		seen := make(map[string]bool)
		for _, o := range group {
			if !o.Received {
				continue
			}
			hs.Received++
			rtts = append(rtts, o.RTT)
			if o.Host != "" && !seen[o.Host] {
				seen[o.Host] = true
				hs.Hosts = append(hs.Hosts, o.Host)
			}
		}
		hs.Loss = float64(hs.Sent-hs.Received) / float64(hs.Sent) * 100

		if len(rtts) > 0 {
			sort.Slice(rtts, func(i, j int) bool { return rtts[i] < rtts[j] })
			hs.Min = rtts[0]
			hs.Max = rtts[len(rtts)-1]
			hs.Median = median(rtts)

			var sum time.Duration
			for _, rtt := range rtts {
				sum += rtt
			}
			hs.Avg = sum / time.Duration(len(rtts))
		}

		out = append(out, hs)
	}

	return out
}

// median of an already sorted slice.
func median(sorted []time.Duration) time.Duration {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

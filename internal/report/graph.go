package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/probeworks/latency-probe/internal/stats"
)

// WritePingBoxPlot renders the latency distribution of a ping run as a
// box plot. The output format follows the file extension.
func WritePingBoxPlot(path, target string, rtts []time.Duration) error {
	if len(rtts) == 0 {
		return errors.New("no round trips to plot")
	}

	values := make(plotter.Values, len(rtts))
	for i, rtt := range rtts {
		values[i] = millis(rtt)
	}

	p := plot.New()
	p.Title.Text = "Latency BoxPlot for Ping: " + target
	p.Y.Label.Text = "Latency (ms)"

	box, err := plotter.NewBoxPlot(vg.Points(40), 0, values)
	if err != nil {
		return errors.Wrap(err, "building box plot")
	}
	p.Add(box)
	p.NominalX("Latencies")

	return errors.Wrapf(p.Save(6*vg.Inch, 4*vg.Inch, path), "saving plot to %s", path)
}

// WriteHopBoxPlot renders one latency box plot per hop, so per-hop
// overhead and bottlenecks show up individually.
func WriteHopBoxPlot(path, target string, obs []stats.HopObservation) error {
	byHop := make(map[int]plotter.Values)
	for _, o := range obs {
		if !o.Received {
			continue
		}
		byHop[o.Hop] = append(byHop[o.Hop], millis(o.RTT))
	}
	if len(byHop) == 0 {
		return errors.New("no hop latencies to plot")
	}

	hops := make([]int, 0, len(byHop))
	for hop := range byHop {
		hops = append(hops, hop)
	}
	sort.Ints(hops)

	p := plot.New()
	p.Title.Text = "Latency Distribution per Hop: " + target
	p.X.Label.Text = "Hop"
	p.Y.Label.Text = "Latency (ms)"

	labels := make([]string, 0, len(hops))
	for i, hop := range hops {
		box, err := plotter.NewBoxPlot(vg.Points(20), float64(i), byHop[hop])
		if err != nil {
			return errors.Wrapf(err, "building box plot for hop %d", hop)
		}
		p.Add(box)
		labels = append(labels, fmt.Sprintf("Hop %d", hop))
	}
	p.NominalX(labels...)

	return errors.Wrapf(p.Save(8*vg.Inch, 4*vg.Inch, path), "saving plot to %s", path)
}

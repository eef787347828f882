package measure

import (
	"context"
	"flag"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cespare/xxhash"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/probeworks/latency-probe/internal/resolve"
	"github.com/probeworks/latency-probe/internal/trace"
)

var (
	traceMaxHops  = flag.Int("trace.maxhops", 30, "max number of hops per trace")
	traceTimeout  = flag.Duration("trace.timeout", time.Second, "timeout per hop probe")
	traceInterval = flag.Duration("trace.interval", time.Minute, "interval between trace measurements")

	pathStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "network_path_status",
		Help: "whether the last trace reached its destination",
	}, []string{"target"})
	pathHops = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "network_path_hops",
		Help: "number of hops walked by the last trace",
	}, []string{"target"})
	pathHopLatency = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "network_path_hop_latency",
		Help: "per-hop latency of the last trace in microseconds",
	}, []string{"target", "hop"})
)

func startPathWorker(worker *Worker, resolver *resolve.Resolver) {
	key := fmt.Sprintf("path target=%s, targetIP=%s", worker.target, worker.targetIP)

	h := xxhash.Sum64String(key)

	randSleep := time.Duration(float64(5*time.Second) * (float64(h) / (1 << 64)))
	time.Sleep(randSleep)

	tracer := &trace.Tracer{
		Target:     worker.targetIP,
		MaxHops:    *traceMaxHops,
		Timeout:    *traceTimeout,
		Privileged: true,
		Resolver:   resolver,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())

	doTrace := func() {
		ctx, cancel := context.WithTimeout(workerCtx, *traceInterval)
		defer cancel()

		run, err := tracer.Trace(ctx)
		if err != nil {
			worker.logger.Errorf("error tracing path: %v", err)
			pathStatus.WithLabelValues(worker.target).Set(0)
			return
		}

		generatePathMetrics(run, worker)
	}

	worker.logger.Debugf("starting path measurement against %s", worker.targetIP)

	ticker := time.NewTicker(*traceInterval)
	doTrace()
	for {
		select {
		case <-ticker.C:
			doTrace()
		case <-worker.stopCh:
			worker.logger.Info("stopping path measurement")

			ticker.Stop()
			workerCancel()

			pathStatus.WithLabelValues(worker.target).Set(math.NaN())
			pathHops.WithLabelValues(worker.target).Set(math.NaN())
			return
		}
	}
}

func generatePathMetrics(run trace.Run, worker *Worker) {
	status := 0.0
	if run.ReachedDest {
		status = 1
	}
	pathStatus.WithLabelValues(worker.target).Set(status)
	pathHops.WithLabelValues(worker.target).Set(float64(len(run.Hops)))

	for _, hop := range run.Hops {
		latency := math.NaN()
		if hop.Addr != nil {
			latency = float64(hop.RTT.Microseconds())
		}
		pathHopLatency.WithLabelValues(worker.target, strconv.Itoa(hop.Index)).Set(latency)
	}
}

package measure

import (
	"context"
	"flag"
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/probeworks/latency-probe/internal/probe"
)

var (
	pingCount      = flag.Int("ping.count", 10, "echo requests per measurement")
	pingInterval   = flag.Duration("ping.interval", 250*time.Millisecond, "interval between echo requests")
	pingTimeout    = flag.Duration("ping.timeout", 2*time.Second, "timeout per echo request")
	pingPrivileged = flag.Bool("ping.privileged", true, "use raw ICMP sockets")

	latencyStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "network_latency_status",
		Help: "outcome of network_latency",
	}, []string{"target"})
	latencyDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "network_latency_duration",
		Help: "network_latency in microseconds",
	}, []string{"target"})
	latencyJitter = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "network_latency_jitter",
		Help: "network_latency jitter in microseconds",
	}, []string{"target"})
	latencyLoss = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "network_latency_loss",
		Help: "network_latency packet loss",
	}, []string{"target"})
)

func startLatencyWorker(worker *Worker) {
	key := fmt.Sprintf("target=%s, targetIP=%s", worker.target, worker.targetIP)

	h := xxhash.Sum64String(key)

	// spread workers out so they don't all fire at once
	randSleep := time.Duration(float64(5*time.Second) * (float64(h) / (1 << 64)))
	time.Sleep(randSleep)

	var (
		client = &probe.Client{
			Target:     worker.targetIP,
			Privileged: *pingPrivileged,
		}
		workerCtx, workerCancel = context.WithCancel(context.Background())

		doMeasure = func() {
			ctx, cancel := context.WithTimeout(workerCtx, *measureInterval)
			defer cancel()

			report, err := client.Run(ctx, *pingCount, *pingInterval, *pingTimeout)
			if err != nil {
				worker.logger.Errorf("error measuring latency: %v", err)
			}

			generateLatencyMetrics(report, worker)
		}
	)

	worker.logger.Debugf("starting latency measurement against %s", worker.targetIP)

	ticker := time.NewTicker(*measureInterval)
	doMeasure()
	for {
		select {
		case <-ticker.C:
			doMeasure()
		case <-worker.stopCh:
			worker.logger.Info("stopping latency measurement")

			ticker.Stop()
			workerCancel()

			unregisterLatencyMetrics(worker)
			return
		}
	}
}

func generateLatencyMetrics(report probe.Report, worker *Worker) {
	avgLatency := math.NaN()
	jitter := math.NaN()
	loss := math.NaN()
	status := 0.0

	if report.Stats.Received > 0 {
		avgLatency = float64(report.Stats.Avg.Microseconds())
		jitter = float64(report.Stats.StdDev.Microseconds())
		loss = report.Stats.Loss
		status = 1
	}

	latencyStatus.WithLabelValues(worker.target).Set(status)
	latencyDuration.WithLabelValues(worker.target).Set(avgLatency)
	latencyJitter.WithLabelValues(worker.target).Set(jitter)
	latencyLoss.WithLabelValues(worker.target).Set(loss)
}

func unregisterLatencyMetrics(worker *Worker) {
	latencyStatus.WithLabelValues(worker.target).Set(math.NaN())
	latencyDuration.WithLabelValues(worker.target).Set(math.NaN())
	latencyJitter.WithLabelValues(worker.target).Set(math.NaN())
	latencyLoss.WithLabelValues(worker.target).Set(math.NaN())
}

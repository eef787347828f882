package measure

import (
	"flag"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/probeworks/latency-probe/internal/resolve"
	"github.com/probeworks/latency-probe/pkg/logging"
)

var (
	measureTargets  = flag.String("measure.targets", "", "comma-separated hosts to measure continuously")
	measureInterval = flag.Duration("measure.interval", 15*time.Second, "interval between measurements")
	measureRescan   = flag.Duration("measure.rescan", time.Minute, "interval between target re-resolution attempts")
)

type Worker struct {
	// Target as configured
	target string
	// Resolved target address
	targetIP net.IP

	logger logging.Logger

	// Stop channel
	stopCh chan struct{}
}

var measureGlobalStopCh chan struct{}

// workerMu guards workerMap. Start's rescan loop and Stop run on
// different goroutines.
var workerMu sync.Mutex
var workerMap = make(map[string]*Worker)

// Start spawns one measurement worker per configured target and keeps
// retrying targets that do not resolve yet. Blocks until Stop.
func Start(logger logging.Logger) {
	measureGlobalStopCh = make(chan struct{})

	resolver := resolve.NewResolver()

	manageWorkers := func() {
		workerMu.Lock()
		defer workerMu.Unlock()

		for _, target := range splitTargets(*measureTargets) {
			if _, ok := workerMap[target]; ok {
				continue
			}

			ip, err := resolve.Host(target)
			if err != nil {
				logger.Warnf("target %s does not resolve, will retry: %v", target, err)
				continue
			}

			logger.Infof("starting measurement worker for %s (%s)", target, ip)
			worker := &Worker{
				target:   target,
				targetIP: ip,
				logger:   logger.With("target", target),
				stopCh:   make(chan struct{}),
			}
			workerMap[target] = worker
			go startLatencyWorker(worker)
			go startPathWorker(worker, resolver)
		}
	}

	manageWorkers()
	ticker := time.NewTicker(*measureRescan)
	for {
		select {
		case <-ticker.C:
			manageWorkers()
		case <-measureGlobalStopCh:
			ticker.Stop()
			return
		}
	}
}

func Stop() {
	logging.Info("Stopping measurement workers...")

	workerMu.Lock()
	for _, w := range workerMap {
		close(w.stopCh)
	}
	workerMu.Unlock()

	close(measureGlobalStopCh)
}

func splitTargets(raw string) []string {
	var targets []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			targets = append(targets, t)
		}
	}
	return targets
}

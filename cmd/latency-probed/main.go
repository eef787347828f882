package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/probeworks/latency-probe/internal/measure"
	"github.com/probeworks/latency-probe/internal/metrics"
	"github.com/probeworks/latency-probe/pkg/logging"
)

func main() {

	flag.Parse()
	logging.Init()

	logger := logging.NewDefaultLogger()
	logger.Infof("starting latency-probe daemon")

	// start metrics server
	go metrics.Serve()

	// start measurement workers for latency & path
	go measure.Start(logger)
	defer measure.Stop()

	// wait for termination signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

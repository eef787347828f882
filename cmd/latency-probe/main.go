package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/probeworks/latency-probe/internal/parse"
	"github.com/probeworks/latency-probe/internal/probe"
	"github.com/probeworks/latency-probe/internal/report"
	"github.com/probeworks/latency-probe/internal/resolve"
	"github.com/probeworks/latency-probe/internal/stats"
	"github.com/probeworks/latency-probe/internal/trace"
	"github.com/probeworks/latency-probe/pkg/logging"
)

const (
	exitOK          = 0
	exitUnreached   = 1
	exitInvalidHost = 2
)

func main() {
	flag.Parse()
	logging.Init()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(exitInvalidHost)
	}

	switch args[0] {
	case "ping":
		os.Exit(runPing(args[1:]))
	case "trace":
		os.Exit(runTrace(args[1:]))
	default:
		usage()
		os.Exit(exitInvalidHost)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: latency-probe [flags] <ping|trace> <host> [flags]")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// parseArgs parses flags, allowing them to follow the positional host
// argument the way the system tools do.
func parseArgs(fs *flag.FlagSet, args []string) string {
	fs.Parse(args)
	host := fs.Arg(0)
	if fs.NArg() > 1 {
		fs.Parse(fs.Args()[1:])
	}
	return host
}

func runPing(args []string) int {
	fs := flag.NewFlagSet("ping", flag.ExitOnError)
	var (
		count      = fs.Int("ping.count", 30, "number of echo requests")
		interval   = fs.Duration("ping.interval", time.Second, "interval between echo requests")
		timeout    = fs.Duration("ping.timeout", 2*time.Second, "timeout per echo request")
		privileged = fs.Bool("ping.privileged", true, "use raw ICMP sockets")
		tcpPort    = fs.Int("ping.tcp", 0, "measure TCP connect latency against this port instead of ICMP")
		output     = fs.String("output", "", "path of the JSON stats file")
		graph      = fs.String("graph", "", "path of the RTT box plot PDF")
		testDir    = fs.String("test", "", "directory of captured ping output to replay instead of probing")
	)
	host := parseArgs(fs, args)

	if *testDir != "" {
		return replayPing(*testDir, *output, *graph)
	}

	if host == "" {
		usage()
		return exitInvalidHost
	}

	ip, err := resolve.Host(host)
	if err != nil {
		fmt.Fprintf(os.Stderr, "latency-probe: %v\n", err)
		return exitInvalidHost
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := &probe.Client{Target: ip, Privileged: *privileged}

	var rep probe.Report
	if *tcpPort > 0 {
		rep, err = client.RunTCP(ctx, *tcpPort, *count, *interval, *timeout)
	} else {
		rep, err = client.Run(ctx, *count, *interval, *timeout)
	}
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "latency-probe: interrupted")
			return exitUnreached
		}
		fmt.Fprintf(os.Stderr, "latency-probe: %v\n", err)
		return exitUnreached
	}

	var rtts []time.Duration
	for i, r := range rep.Results {
		if r.Status == 1 {
			fmt.Printf("reply from %s: seq=%d time=%.3f ms\n",
				r.Responder, i+1, float64(r.RTT)/float64(time.Millisecond))
			rtts = append(rtts, r.RTT)
		} else {
			fmt.Printf("request timed out: seq=%d\n", i+1)
		}
	}
	printPingStats(host, rep.Stats)

	if *output != "" {
		if err := report.Write(*output, report.NewPingReport(host, rtts, rep.Stats)); err != nil {
			fmt.Fprintf(os.Stderr, "latency-probe: %v\n", err)
		}
	}
	if *graph != "" && len(rtts) > 0 {
		if err := report.WritePingBoxPlot(*graph, host, rtts); err != nil {
			fmt.Fprintf(os.Stderr, "latency-probe: %v\n", err)
		}
	}

	if rep.Stats.Received == 0 {
		return exitUnreached
	}
	return exitOK
}

func replayPing(dir, output, graph string) int {
	runs, err := parse.Dir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "latency-probe: %v\n", err)
		return exitInvalidHost
	}

	var allRTTs []time.Duration
	sent := 0
	for _, run := range runs {
		rtts, n, err := parse.PingOutput(run)
		if err != nil {
			logging.Errorf("skipping unparseable capture: %v", err)
			continue
		}
		allRTTs = append(allRTTs, rtts...)
		sent += n
	}

	s := stats.Summarize(sent, allRTTs)
	printPingStats(dir, s)

	if output == "" {
		output = "./pingstats.json"
	}
	if err := report.Write(output, report.NewPingReport(dir, allRTTs, s)); err != nil {
		fmt.Fprintf(os.Stderr, "latency-probe: %v\n", err)
	}
	if len(allRTTs) > 0 {
		if graph == "" {
			graph = "./pingstats.pdf"
		}
		if err := report.WritePingBoxPlot(graph, dir, allRTTs); err != nil {
			fmt.Fprintf(os.Stderr, "latency-probe: %v\n", err)
		}
	}

	if s.Received == 0 {
		return exitUnreached
	}
	return exitOK
}

func printPingStats(target string, s stats.PingStats) {
	fmt.Printf("\n--- %s ping statistics ---\n", target)
	fmt.Printf("%d sent, %d received, %.1f%% loss\n", s.Sent, s.Received, s.Loss)
	if s.Received > 0 {
		fmt.Printf("rtt min/avg/max/mdev = %.3f/%.3f/%.3f/%.3f ms\n",
			float64(s.Min)/float64(time.Millisecond),
			float64(s.Avg)/float64(time.Millisecond),
			float64(s.Max)/float64(time.Millisecond),
			float64(s.StdDev)/float64(time.Millisecond))
	}
}

func runTrace(args []string) int {
	fs := flag.NewFlagSet("trace", flag.ExitOnError)
	var (
		maxHops    = fs.Int("trace.maxhops", 30, "max number of hops")
		timeout    = fs.Duration("trace.timeout", time.Second, "timeout per hop probe")
		runs       = fs.Int("trace.runs", 1, "number of trace runs")
		runDelay   = fs.Duration("trace.rundelay", 0, "delay between runs")
		privileged = fs.Bool("trace.privileged", true, "use raw ICMP sockets")
		noResolve  = fs.Bool("trace.noresolve", false, "skip reverse lookups of responders")
		output     = fs.String("output", "", "path of the JSON stats file")
		graph      = fs.String("graph", "", "path of the per-hop RTT box plot PDF")
		testDir    = fs.String("test", "", "directory of captured traceroute output to replay instead of probing")
	)
	host := parseArgs(fs, args)

	if *testDir != "" {
		return replayTrace(*testDir, *output, *graph)
	}

	if host == "" {
		usage()
		return exitInvalidHost
	}

	ip, err := resolve.Host(host)
	if err != nil {
		fmt.Fprintf(os.Stderr, "latency-probe: %v\n", err)
		return exitInvalidHost
	}

	ctx, cancel := signalContext()
	defer cancel()

	tracer := &trace.Tracer{
		Target:     ip,
		MaxHops:    *maxHops,
		Timeout:    *timeout,
		Privileged: *privileged,
	}
	if !*noResolve {
		tracer.Resolver = resolve.NewResolver()
	}

	session := &trace.Session{
		Tracer:   tracer,
		Runs:     *runs,
		RunDelay: *runDelay,
		Logger:   logging.NewDefaultLogger(),
	}

	fmt.Printf("tracing route to %s (%s), %d hops max\n", host, ip, *maxHops)

	traceRuns, err := session.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// interrupted walks are discarded
			fmt.Fprintln(os.Stderr, "latency-probe: interrupted")
			return exitUnreached
		}
		fmt.Fprintf(os.Stderr, "latency-probe: %v\n", err)
		return exitUnreached
	}

	reached := false
	for _, run := range traceRuns {
		if run.ReachedDest {
			reached = true
		}
	}
	printHops(traceRuns[len(traceRuns)-1])

	obs := trace.Observations(traceRuns)
	if *output != "" {
		perHop := stats.PerHop(obs)
		if err := report.Write(*output, report.NewTraceReport(host, len(traceRuns), reached, perHop)); err != nil {
			fmt.Fprintf(os.Stderr, "latency-probe: %v\n", err)
		}
	}
	if *graph != "" {
		if err := report.WriteHopBoxPlot(*graph, host, obs); err != nil {
			fmt.Fprintf(os.Stderr, "latency-probe: %v\n", err)
		}
	}

	if !reached {
		return exitUnreached
	}
	return exitOK
}

func replayTrace(dir, output, graph string) int {
	runs, err := parse.Dir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "latency-probe: %v\n", err)
		return exitInvalidHost
	}

	var obs []stats.HopObservation
	parsed := 0
	for _, run := range runs {
		o, err := parse.TracerouteOutput(run)
		if err != nil {
			logging.Errorf("skipping unparseable capture: %v", err)
			continue
		}
		obs = append(obs, o...)
		parsed++
	}
	if parsed == 0 {
		fmt.Fprintln(os.Stderr, "latency-probe: no usable captures")
		return exitInvalidHost
	}

	perHop := stats.PerHop(obs)
	for _, h := range perHop {
		if h.Received == 0 {
			fmt.Printf("%2d  *\n", h.Hop)
			continue
		}
		fmt.Printf("%2d  %v  avg %.3f ms  loss %.1f%%\n",
			h.Hop, h.Hosts, float64(h.Avg)/float64(time.Millisecond), h.Loss)
	}

	if output == "" {
		output = "./trstats.json"
	}
	if err := report.Write(output, report.NewTraceReport(dir, parsed, false, perHop)); err != nil {
		fmt.Fprintf(os.Stderr, "latency-probe: %v\n", err)
	}
	if graph == "" {
		graph = "./trstats.pdf"
	}
	if err := report.WriteHopBoxPlot(graph, dir, obs); err != nil {
		fmt.Fprintf(os.Stderr, "latency-probe: %v\n", err)
	}
	return exitOK
}

func printHops(run trace.Run) {
	for _, hop := range run.Hops {
		if hop.Addr == nil {
			fmt.Printf("%2d  *\n", hop.Index)
			continue
		}

		name := hop.Addr.String()
		if hop.Name != "" {
			name = fmt.Sprintf("%s (%s)", hop.Name, hop.Addr)
		}
		fmt.Printf("%2d  %s  %.3f ms\n", hop.Index, name, float64(hop.RTT)/float64(time.Millisecond))
	}

	if !run.ReachedDest {
		fmt.Println("max hops exhausted without reaching destination")
	}
}

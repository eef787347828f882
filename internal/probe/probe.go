package probe

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	probing "github.com/prometheus-community/pro-bing"

	"github.com/probeworks/latency-probe/internal/stats"
)

// ErrUnreachable indicates the local network layer refused to send.
var ErrUnreachable = errors.New("network unreachable")

// runPinger drives a configured pinger to completion. Swapped out in
// tests so replies can be scripted.
var runPinger = func(p *probing.Pinger, ctx context.Context) error {
	return p.RunWithContext(ctx)
}

// Result is the outcome of a single echo round trip.
type Result struct {
	Status    int // 1 success, 0 failure
	Responder net.IP
	RTT       time.Duration
}

// Report covers a full ping run: every per-attempt result plus aggregates.
type Report struct {
	Target  net.IP
	Results []Result
	Stats   stats.PingStats
}

// Client measures echo latency against a single target.
type Client struct {
	Target     net.IP
	Source     net.IP
	Privileged bool
}

// Probe sends one echo request and waits up to timeout for the reply.
// A timeout is a failed Result, not an error; only local send failures
// and bad targets surface as errors. No retries.
func (c *Client) Probe(ctx context.Context, timeout time.Duration) (Result, error) {
	report, err := c.Run(ctx, 1, 0, timeout)
	if err != nil {
		return Result{}, err
	}
	return report.Results[0], nil
}

// Run sends count echo requests spaced by interval, each with the given
// timeout. Lost attempts are recorded as failed Results in sequence order.
func (c *Client) Run(ctx context.Context, count int, interval, timeout time.Duration) (Report, error) {
	if count <= 0 {
		count = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	pinger, err := probing.NewPinger(c.Target.String())
	if err != nil {
		return Report{}, errors.Wrap(err, "creating pinger")
	}
	if c.Source != nil {
		pinger.Source = c.Source.String()
	}
	pinger.SetPrivileged(c.Privileged)
	pinger.Count = count
	pinger.Interval = interval
	pinger.Timeout = time.Duration(count)*interval + timeout

	received := make(map[int]Result, count)
	pinger.OnRecv = func(pkt *probing.Packet) {
		received[pkt.Seq] = Result{
			Status:    1,
			Responder: pkt.IPAddr.IP,
			RTT:       pkt.Rtt,
		}
	}

	if err := runPinger(pinger, ctx); err != nil {
		if ctx.Err() != nil {
			return Report{}, ctx.Err()
		}
		return Report{}, errors.Wrap(ErrUnreachable, err.Error())
	}

	return buildReport(c.Target, count, timeout, received), nil
}

// buildReport lays the received replies out in sequence order, recording
// the attempts that never answered as failed Results. The pinger's run
// deadline spans the whole run, so a reply that took longer than the
// per-echo timeout is treated as lost.
func buildReport(target net.IP, count int, timeout time.Duration, received map[int]Result) Report {
	report := Report{
		Target:  target,
		Results: make([]Result, count),
	}
	rtts := make([]time.Duration, 0, count)
	for seq := 0; seq < count; seq++ {
		r, ok := received[seq]
		if !ok || r.RTT > timeout {
			continue
		}
		report.Results[seq] = r
		rtts = append(rtts, r.RTT)
	}
	report.Stats = stats.Summarize(count, rtts)

	return report
}

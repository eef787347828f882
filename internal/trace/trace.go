package trace

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/probeworks/latency-probe/internal/stats"
)

// errProbeTimeout marks a hop that never answered. The walk records the
// hop as absent and keeps going.
var errProbeTimeout = errors.New("probe timed out")

// Hop is one step of a completed walk. Addr is nil when the hop timed
// out; the index is still recorded so the sequence stays contiguous.
type Hop struct {
	Index int           `json:"hop"`
	Addr  net.IP        `json:"addr,omitempty"`
	Name  string        `json:"name,omitempty"`
	RTT   time.Duration `json:"rtt"`
	Done  bool          `json:"done"` // responder is the destination
}

// Run is the ordered hop sequence of one walk.
type Run struct {
	Target      net.IP    `json:"target"`
	Started     time.Time `json:"started"`
	Hops        []Hop     `json:"hops"`
	ReachedDest bool      `json:"reached_dest"`
}

// reply is what a transport saw for one TTL-limited probe.
type reply struct {
	from        net.IP
	rtt         time.Duration
	reachedDest bool
}

// transport issues a single probe constrained to ttl forwards and waits
// for the expiry notice or the destination's answer.
type transport interface {
	probe(ctx context.Context, ttl int, timeout time.Duration) (reply, error)
	close() error
}

// reverser resolves a responder address to a name. Optional.
type reverser interface {
	Reverse(ip net.IP) string
}

// Tracer walks the path to Target with strictly increasing hop limits.
type Tracer struct {
	Target     net.IP
	MaxHops    int
	Timeout    time.Duration
	Privileged bool
	Resolver   reverser

	// newTransport is swapped out in tests.
	newTransport func() (transport, error)
}

const (
	defaultMaxHops = 30
	defaultTimeout = time.Second
)

// Trace performs one walk. Hop measurements are sequential since hop
// semantics depend on increasing TTLs. A per-hop timeout yields an absent
// hop; cancellation returns the hops collected so far with ctx.Err().
func (t *Tracer) Trace(ctx context.Context) (Run, error) {
	maxHops := t.MaxHops
	if maxHops <= 0 {
		maxHops = defaultMaxHops
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	newTransport := t.newTransport
	if newTransport == nil {
		newTransport = func() (transport, error) {
			return newICMPTransport(t.Target, t.Privileged)
		}
	}

	tr, err := newTransport()
	if err != nil {
		return Run{}, errors.Wrap(err, "opening probe socket")
	}
	defer tr.close()

	run := Run{
		Target:  t.Target,
		Started: time.Now(),
	}

	for ttl := 1; ttl <= maxHops; ttl++ {
		if err := ctx.Err(); err != nil {
			return run, err
		}

		hop := Hop{Index: ttl}

		r, err := tr.probe(ctx, ttl, timeout)
		switch {
		case err == nil:
			hop.Addr = r.from
			hop.RTT = r.rtt
			hop.Done = r.reachedDest || r.from.Equal(t.Target)
			if t.Resolver != nil {
				hop.Name = t.Resolver.Reverse(r.from)
			}
		case errors.Is(err, errProbeTimeout):
			// absent hop, recorded as such
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return run, err
		default:
			return run, errors.Wrapf(err, "probing hop %d", ttl)
		}

		run.Hops = append(run.Hops, hop)

		if hop.Done {
			run.ReachedDest = true
			break
		}
	}

	return run, nil
}

// Observations flattens runs into per-hop samples for aggregation.
func Observations(runs []Run) []stats.HopObservation {
	var obs []stats.HopObservation
	for _, run := range runs {
		for _, hop := range run.Hops {
			o := stats.HopObservation{
				Hop:      hop.Index,
				RTT:      hop.RTT,
				Received: hop.Addr != nil,
			}
			if hop.Addr != nil {
				o.Host = hop.Addr.String()
				if hop.Name != "" {
					o.Host = hop.Name
				}
			}
			obs = append(obs, o)
		}
	}
	return obs
}

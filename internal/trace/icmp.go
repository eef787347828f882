package trace

import (
	"context"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	protocolICMP   = 1  // IPv4 ICMP proto number
	protocolICMPv6 = 58 // IPv6 ICMP proto number

	minIP4HeaderSize = 20
	ip6HeaderSize    = 40
)

// icmpTransport probes with TTL-limited ICMP echo requests over a raw
// (privileged) or datagram (unprivileged) socket.
type icmpTransport struct {
	target net.IP
	conn   *icmp.PacketConn
	v6     bool
	raw    bool
	id     int
	seq    int
	buf    []byte
}

func newICMPTransport(target net.IP, privileged bool) (*icmpTransport, error) {
	v6 := target.To4() == nil

	var network, listen string
	switch {
	case v6 && privileged:
		network, listen = "ip6:ipv6-icmp", "::"
	case v6:
		network, listen = "udp6", "::"
	case privileged:
		network, listen = "ip4:icmp", "0.0.0.0"
	default:
		network, listen = "udp4", "0.0.0.0"
	}

	conn, err := icmp.ListenPacket(network, listen)
	if err != nil {
		return nil, errors.Wrapf(err, "listening on %s", network)
	}

	return &icmpTransport{
		target: target,
		conn:   conn,
		v6:     v6,
		raw:    privileged,
		id:     os.Getpid() & 0xffff,
		buf:    make([]byte, 1500),
	}, nil
}

func (t *icmpTransport) close() error {
	return t.conn.Close()
}

// probe sends one echo request with the given hop limit and waits up to
// timeout for either the expiry notice of an intermediary or the
// destination's echo reply.
func (t *icmpTransport) probe(ctx context.Context, ttl int, timeout time.Duration) (reply, error) {
	if t.v6 {
		if err := t.conn.IPv6PacketConn().SetHopLimit(ttl); err != nil {
			return reply{}, errors.Wrap(err, "setting hop limit")
		}
	} else {
		if err := t.conn.IPv4PacketConn().SetTTL(ttl); err != nil {
			return reply{}, errors.Wrap(err, "setting ttl")
		}
	}

	t.seq++
	seq := t.seq

	echoType := icmp.Type(ipv4.ICMPTypeEcho)
	if t.v6 {
		echoType = ipv6.ICMPTypeEchoRequest
	}
	msg := icmp.Message{
		Type: echoType,
		Body: &icmp.Echo{
			ID:   t.id,
			Seq:  seq,
			Data: []byte("latency-probe"),
		},
	}

	wire, err := msg.Marshal(nil)
	if err != nil {
		return reply{}, errors.Wrap(err, "marshaling echo request")
	}

	var dst net.Addr = &net.IPAddr{IP: t.target}
	if !t.raw {
		dst = &net.UDPAddr{IP: t.target}
	}

	start := time.Now()
	if _, err := t.conn.WriteTo(wire, dst); err != nil {
		return reply{}, errors.Wrap(err, "sending probe")
	}

	deadline := start.Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	for {
		if err := ctx.Err(); err != nil {
			return reply{}, err
		}

		if err := t.conn.SetReadDeadline(deadline); err != nil {
			return reply{}, errors.Wrap(err, "setting read deadline")
		}

		n, peer, err := t.conn.ReadFrom(t.buf)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				return reply{}, errProbeTimeout
			}
			return reply{}, errors.Wrap(err, "reading reply")
		}

		r, ok := t.match(t.buf[:n], peer, seq, start)
		if !ok {
			// not an answer to this probe, keep reading
			continue
		}
		return r, nil
	}
}

// match decides whether a received packet answers the probe with the
// given sequence number.
func (t *icmpTransport) match(pkt []byte, peer net.Addr, seq int, start time.Time) (reply, bool) {
	proto := protocolICMP
	if t.v6 {
		proto = protocolICMPv6
	}

	msg, err := icmp.ParseMessage(proto, pkt)
	if err != nil {
		return reply{}, false
	}

	from := peerIP(peer)

	switch msg.Type {
	case ipv4.ICMPTypeTimeExceeded, ipv6.ICMPTypeTimeExceeded:
		body, ok := msg.Body.(*icmp.TimeExceeded)
		if !ok || !t.innerMatches(body.Data, seq) {
			return reply{}, false
		}
		return reply{from: from, rtt: time.Since(start)}, true

	case ipv4.ICMPTypeEchoReply, ipv6.ICMPTypeEchoReply:
		body, ok := msg.Body.(*icmp.Echo)
		if !ok || body.Seq != seq {
			return reply{}, false
		}
		// the kernel rewrites the ID on datagram sockets
		if t.raw && body.ID != t.id {
			return reply{}, false
		}
		return reply{from: from, rtt: time.Since(start), reachedDest: true}, true

	case ipv4.ICMPTypeDestinationUnreachable, ipv6.ICMPTypeDestinationUnreachable:
		body, ok := msg.Body.(*icmp.DstUnreach)
		if !ok || !t.innerMatches(body.Data, seq) {
			return reply{}, false
		}
		if from.Equal(t.target) {
			return reply{from: from, rtt: time.Since(start), reachedDest: true}, true
		}
		return reply{}, false
	}

	return reply{}, false
}

// innerMatches digs the original echo request out of an error payload and
// compares its sequence number.
func (t *icmpTransport) innerMatches(data []byte, seq int) bool {
	var offset int
	if t.v6 {
		offset = ip6HeaderSize
	} else {
		if len(data) < minIP4HeaderSize {
			return false
		}
		offset = int(data[0]&0x0f) << 2
	}
	if len(data) < offset+8 {
		return false
	}

	proto := protocolICMP
	if t.v6 {
		proto = protocolICMPv6
	}
	inner, err := icmp.ParseMessage(proto, data[offset:])
	if err != nil {
		return false
	}
	echo, ok := inner.Body.(*icmp.Echo)
	if !ok {
		return false
	}
	if t.raw && echo.ID != t.id {
		return false
	}
	return echo.Seq == seq
}

func peerIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.IPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	default:
		return net.ParseIP(addr.String())
	}
}

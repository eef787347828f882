package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"
)

// RunTCP measures latency by timing TCP connection establishment, for
// targets where ICMP is filtered. Each attempt dials, records the elapsed
// time and closes the connection.
func (c *Client) RunTCP(ctx context.Context, port, count int, interval, timeout time.Duration) (Report, error) {
	if count <= 0 {
		count = 1
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	received := make(map[int]Result, count)

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}

		startTime := time.Now()

		dialer := &net.Dialer{
			Timeout: timeout,
		}
		if c.Source != nil {
			dialer.LocalAddr = &net.TCPAddr{IP: c.Source}
		}

		conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(c.Target.String(), fmt.Sprintf("%d", port)))
		if err == nil {
			received[i] = Result{
				Status:    1,
				Responder: c.Target,
				RTT:       time.Since(startTime),
			}
			conn.Close()
		}

		if interval > 0 && i < count-1 {
			select {
			case <-ctx.Done():
				return Report{}, ctx.Err()
			case <-time.After(interval):
			}
		}
	}

	if len(received) == 0 {
		return buildReport(c.Target, count, timeout, nil), errors.Wrapf(ErrUnreachable, "all %d connection attempts to port %d failed", count, port)
	}

	return buildReport(c.Target, count, timeout, received), nil
}

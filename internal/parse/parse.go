// Package parse reads the text output of the system ping and traceroute
// tools, so stats can be replayed from canned captures without touching
// the network.
package parse

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/probeworks/latency-probe/internal/stats"
)

// PingOutput extracts the per-reply round-trip times from ping's output.
// Sent counts echo replies plus lines reporting a missed sequence.
func PingOutput(text string) (rtts []time.Duration, sent int, err error) {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "icmp_seq=") {
			continue
		}
		sent++

		idx := strings.Index(line, "time=")
		if idx < 0 {
			continue // timed-out or unreachable reply line
		}

		value := line[idx+len("time="):]
		if cut := strings.IndexByte(value, ' '); cut >= 0 {
			value = value[:cut]
		}

		ms, perr := strconv.ParseFloat(value, 64)
		if perr != nil {
			return nil, 0, errors.Wrapf(perr, "parsing rtt from %q", line)
		}
		rtts = append(rtts, time.Duration(ms*float64(time.Millisecond)))
	}

	if sent == 0 {
		return nil, 0, errors.New("no ping replies found in output")
	}
	return rtts, sent, nil
}

// TracerouteOutput turns one traceroute run into hop observations. A hop
// line of nothing but asterisks becomes a single absent observation; a
// responding hop yields one observation per printed latency.
func TracerouteOutput(text string) ([]stats.HopObservation, error) {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return nil, errors.New("traceroute output too short")
	}

	var obs []stats.HopObservation

	// first line is the traceroute header
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		hop, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}

		host := ""
		answered := false
		for i := 1; i < len(fields); i++ {
			switch {
			case fields[i] == "*":
				// silent probe
			case strings.HasPrefix(fields[i], "(") && strings.HasSuffix(fields[i], ")"):
				host = fmt.Sprintf("%s %s", fields[i-1], fields[i])
			case fields[i] == "ms" && i > 0:
				ms, perr := strconv.ParseFloat(fields[i-1], 64)
				if perr != nil {
					continue
				}
				answered = true
				obs = append(obs, stats.HopObservation{
					Hop:      hop,
					Host:     host,
					RTT:      time.Duration(ms * float64(time.Millisecond)),
					Received: true,
				})
			}
		}

		if !answered {
			obs = append(obs, stats.HopObservation{Hop: hop})
		}
	}

	if len(obs) == 0 {
		return nil, errors.New("no hops found in traceroute output")
	}
	return obs, nil
}

// Dir reads every regular file of a test directory in name order and
// returns their contents, one entry per captured run.
func Dir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading test directory %s", path)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	runs := make([]string, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(path, name))
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", name)
		}
		runs = append(runs, string(data))
	}
	return runs, nil
}

package parse

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pingOutput = `PING example.com (93.184.216.34) 56(84) bytes of data.
64 bytes from 93.184.216.34: icmp_seq=1 ttl=56 time=13.4 ms
64 bytes from 93.184.216.34: icmp_seq=2 ttl=56 time=21.7 ms
64 bytes from 93.184.216.34: icmp_seq=3 ttl=56 time=39.9 ms

--- example.com ping statistics ---
3 packets transmitted, 3 received, 0% packet loss, time 2003ms
rtt min/avg/max/mdev = 13.400/25.000/39.900/11.128 ms
`

func TestPingOutput(t *testing.T) {
	rtts, sent, err := PingOutput(pingOutput)
	require.NoError(t, err)

	assert.Equal(t, 3, sent)
	require.Len(t, rtts, 3)
	assert.Equal(t, 13400*time.Microsecond, rtts[0])
	assert.Equal(t, 21700*time.Microsecond, rtts[1])
	assert.Equal(t, 39900*time.Microsecond, rtts[2])
}

func TestPingOutputEmpty(t *testing.T) {
	_, _, err := PingOutput("garbage\n")
	assert.Error(t, err)
}

const tracerouteOutput = `traceroute to example.com (93.184.216.34), 30 hops max, 60 byte packets
 1  _gateway (192.168.1.1)  0.456 ms  0.389 ms  0.367 ms
 2  10.11.0.1 (10.11.0.1)  8.120 ms  8.004 ms  7.921 ms
 3  * * *
 4  93.184.216.34 (93.184.216.34)  21.334 ms  20.977 ms  21.102 ms
`

func TestTracerouteOutput(t *testing.T) {
	obs, err := TracerouteOutput(tracerouteOutput)
	require.NoError(t, err)

	// three probes per answered hop, one record for the silent hop
	require.Len(t, obs, 10)

	assert.Equal(t, 1, obs[0].Hop)
	assert.Equal(t, "_gateway (192.168.1.1)", obs[0].Host)
	assert.Equal(t, 456*time.Microsecond, obs[0].RTT)
	assert.True(t, obs[0].Received)

	silent := obs[6]
	assert.Equal(t, 3, silent.Hop)
	assert.False(t, silent.Received)
	assert.Equal(t, "", silent.Host)

	last := obs[len(obs)-1]
	assert.Equal(t, 4, last.Hop)
	assert.True(t, last.Received)
}

func TestTracerouteOutputTooShort(t *testing.T) {
	_, err := TracerouteOutput("traceroute to example.com")
	assert.Error(t, err)
}

func TestDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run2.txt"), []byte("second"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run1.txt"), []byte("first"), 0o644))

	runs, err := Dir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, runs)
}

func TestDirMissing(t *testing.T) {
	_, err := Dir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

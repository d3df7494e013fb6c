package statsd

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLine(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " portal "}
	local := map[string]string{"result": " success ", "": "ignored", "env": "stage"}

	assert.Equal(t, "fixzone.auth.login:1|c|#env:stage,result:success,service:portal",
		Line("fixzone", "auth.login", "1", "c", global, local))
	assert.Equal(t, "auth_login:2|g", Line("", " auth/login ", "2", "g", nil, nil))
	assert.Equal(t, "p.a.b:3|ms", Line("p", "..a..b..", "3", "ms", nil, nil))
	assert.Empty(t, Line("p", " ", "1", "c", nil, nil))
}

func TestDisabledClientDropsMetrics(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Enabled: false, Address: "127.0.0.1:8125"})
	require.NoError(t, err)
	assert.False(t, c.Enabled())
	c.Count("auth.login", 1, nil)
	require.NoError(t, c.Close())

	var nilClient *Client
	nilClient.Timing("x", time.Second, nil)
	assert.False(t, nilClient.Enabled())
}

func TestClientWritesUDP(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	c, err := NewClient(Config{Enabled: true, Address: pc.LocalAddr().String(), Prefix: ".fixzone.", GlobalTags: map[string]string{"app": "portal"}})
	require.NoError(t, err)
	defer c.Close()
	require.True(t, c.Enabled())

	c.Timing("auth.restore", 1500*time.Microsecond, map[string]string{"result": "success"})

	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	got := string(buf[:n])
	assert.True(t, strings.HasPrefix(got, "fixzone.auth.restore:1.5|ms"), got)
	assert.Contains(t, got, "app:portal")
}

func TestMemorySink(t *testing.T) {
	t.Parallel()

	var m Memory
	m.Count("a", 2, map[string]string{" k ": " v "})
	m.Timing("b", 250*time.Millisecond, nil)

	require.Len(t, m.Samples(), 2)
	a := m.Named("a")
	require.Len(t, a, 1)
	assert.InDelta(t, 2.0, a[0].Value, 0)
	assert.Equal(t, map[string]string{"k": "v"}, a[0].Tags)
	assert.InDelta(t, 250.0, m.Named("b")[0].Value, 0.001)
}

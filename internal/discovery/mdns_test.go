// ABOUTME: Tests for mDNS discovery
// ABOUTME: Covers entry conversion and manager lifecycle without touching the network
package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/logger"
)

func TestEntryToServer(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
		want  *ServerInfo
	}{
		{"nil", nil, nil},
		{"no port", &mdns.ServiceEntry{Name: "x", AddrV4: net.IPv4(10, 0, 0, 2)}, nil},
		{"ipv4", &mdns.ServiceEntry{Name: "src", AddrV4: net.IPv4(10, 0, 0, 2), Port: 8927}, &ServerInfo{"src", "10.0.0.2", 8927}},
		{"ipv6", &mdns.ServiceEntry{Name: "src", AddrV6: net.ParseIP("fe80::1"), Port: 8927}, &ServerInfo{"src", "fe80::1", 8927}},
		{"host only", &mdns.ServiceEntry{Name: "src", Host: "box.local.", Port: 1}, &ServerInfo{"src", "box.local.", 1}},
		{"no address", &mdns.ServiceEntry{Name: "src", Port: 1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, entryToServer(tt.entry))
		})
	}
}

func TestServerInfoAddr(t *testing.T) {
	assert.Equal(t, "10.0.0.2:8927", (&ServerInfo{Host: "10.0.0.2", Port: 8927}).Addr())
	assert.Equal(t, "[fe80::1]:80", (&ServerInfo{Host: "fe80::1", Port: 80}).Addr())
}

func TestFindHonoursContext(t *testing.T) {
	mgr := NewManager(Config{BrowseInterval: 50 * time.Millisecond, Logger: logger.NewTestLogger()})
	defer mgr.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mgr.Find(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStopWithoutStart(t *testing.T) {
	mgr := NewManager(Config{Instance: "Test Source", Port: 8927})
	mgr.Stop()
	mgr.Stop()
}

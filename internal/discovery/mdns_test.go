// ABOUTME: Tests for mDNS discovery
// ABOUTME: Tests manager defaults, TXT records and service entry parsing
package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
)

func TestNewManager(t *testing.T) {
	mgr := NewManager(Config{
		ServiceName: "Test Bridge",
		Port:        8928,
	})
	if mgr == nil {
		t.Fatal("expected manager to be created")
	}
	if mgr.config.Path != DefaultPath {
		t.Errorf("expected default path %s, got %s", DefaultPath, mgr.config.Path)
	}
	if mgr.config.Timeout != 3*time.Second {
		t.Errorf("expected default timeout 3s, got %v", mgr.config.Timeout)
	}
	mgr.Stop()
}

func TestTXTRecords(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   []string
	}{
		{"default", Config{}, []string{"path=/audiostream"}},
		{"custom path", Config{Path: "/pcm"}, []string{"path=/pcm"}},
		{"with output", Config{Output: "malgo"}, []string{"path=/audiostream", "output=malgo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewManager(tt.config).txtRecords()
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("record %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestServerFromEntry(t *testing.T) {
	entry := &mdns.ServiceEntry{
		Name:       "Living Room._audiostream._tcp.local.",
		AddrV4:     net.ParseIP("192.168.1.20").To4(),
		Port:       8928,
		InfoFields: []string{"output=oto", "path=/custom"},
	}

	server := serverFromEntry(entry)
	if server == nil {
		t.Fatal("expected server")
	}
	if server.Name != "Living Room" {
		t.Errorf("name = %q", server.Name)
	}
	if server.Addr() != "192.168.1.20:8928" {
		t.Errorf("addr = %q", server.Addr())
	}
	if server.Path != "/custom" {
		t.Errorf("path = %q", server.Path)
	}

	if serverFromEntry(&mdns.ServiceEntry{Name: "v6 only"}) != nil {
		t.Error("expected entry without IPv4 address to be skipped")
	}
}

package geo

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientAddress(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        []string
		realIP     string
		wantRemote string
		wantDirect string
	}{
		{
			name:       "public peer ignores forwarded headers",
			remoteAddr: "203.0.113.9:5123",
			xff:        []string{"10.0.0.1"},
			wantRemote: "203.0.113.9",
			wantDirect: "203.0.113.9",
		},
		{
			name:       "loopback peer without headers",
			remoteAddr: "127.0.0.1:40000",
			wantRemote: "127.0.0.1",
			wantDirect: "127.0.0.1",
		},
		{
			name:       "trusted proxy uses right-most public hop",
			remoteAddr: "10.0.0.5:443",
			xff:        []string{"198.51.100.1, 203.0.113.7, 10.0.0.4"},
			wantRemote: "203.0.113.7",
			wantDirect: "10.0.0.5",
		},
		{
			name:       "spoofed left-most entry is not trusted",
			remoteAddr: "10.0.0.5:443",
			xff:        []string{"127.0.0.1", "203.0.113.7"},
			wantRemote: "203.0.113.7",
			wantDirect: "10.0.0.5",
		},
		{
			name:       "all internal hops use left-most",
			remoteAddr: "10.0.0.5:443",
			xff:        []string{"192.168.1.20, 10.0.0.4"},
			wantRemote: "192.168.1.20",
			wantDirect: "10.0.0.5",
		},
		{
			name:       "x-real-ip from trusted proxy",
			remoteAddr: "172.16.0.2:80",
			realIP:     "203.0.113.50",
			wantRemote: "203.0.113.50",
			wantDirect: "172.16.0.2",
		},
		{
			name:       "garbage hops skipped",
			remoteAddr: "10.0.0.5:443",
			xff:        []string{"unknown, 203.0.113.7:9000"},
			wantRemote: "203.0.113.7",
			wantDirect: "10.0.0.5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			r.RemoteAddr = tt.remoteAddr
			for _, v := range tt.xff {
				r.Header.Add("X-Forwarded-For", v)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}

			remote, direct := ClientAddress(r)
			assert.Equal(t, tt.wantRemote, remote.String())
			assert.Equal(t, tt.wantDirect, direct.String())
		})
	}
}

func TestIsInternal(t *testing.T) {
	assert.True(t, IsInternal(net.ParseIP("127.0.0.1")))
	assert.True(t, IsInternal(net.ParseIP("::1")))
	assert.True(t, IsInternal(net.ParseIP("10.1.2.3")))
	assert.True(t, IsInternal(net.ParseIP("fd00::1")))
	assert.True(t, IsInternal(net.ParseIP("169.254.0.1")))
	assert.False(t, IsInternal(net.ParseIP("8.8.8.8")))
	assert.False(t, IsInternal(nil))
}

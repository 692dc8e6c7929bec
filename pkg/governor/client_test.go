package governor

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientID(t *testing.T) {
	tests := []struct {
		name       string
		trust      bool
		proxies    []string
		remoteAddr string
		xff        string
		want       string
	}{
		{
			name:       "remote address by default",
			remoteAddr: "192.0.2.10:5000",
			xff:        "203.0.113.5",
			want:       "192.0.2.10",
		},
		{
			name:       "forwarded for trusted from any peer",
			trust:      true,
			remoteAddr: "192.0.2.10:5000",
			xff:        "203.0.113.5, 10.0.0.1",
			want:       "203.0.113.5",
		},
		{
			name:       "forwarded for from trusted proxy CIDR",
			trust:      true,
			proxies:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:443",
			xff:        "203.0.113.5",
			want:       "203.0.113.5",
		},
		{
			name:       "forwarded for from untrusted peer is ignored",
			trust:      true,
			proxies:    []string{"10.0.0.1"},
			remoteAddr: "192.0.2.10:5000",
			xff:        "203.0.113.5",
			want:       "192.0.2.10",
		},
		{
			name:       "missing header falls back to remote",
			trust:      true,
			remoteAddr: "192.0.2.10:5000",
			want:       "192.0.2.10",
		},
		{
			name:       "remote address without port",
			remoteAddr: "192.0.2.10",
			want:       "192.0.2.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewClientResolver(tt.trust, tt.proxies)
			require.NoError(t, err)

			req := httptest.NewRequest("GET", "/api/vault/status", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}

			assert.Equal(t, tt.want, r.ClientID(req))
		})
	}
}

func TestNewClientResolverRejectsBadProxy(t *testing.T) {
	_, err := NewClientResolver(true, []string{"not-an-ip"})
	assert.Error(t, err)

	_, err = NewClientResolver(true, []string{"10.0.0.0/99"})
	assert.Error(t, err)
}

package governor

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ClientResolver derives the client identity the governor keys on.
// X-Forwarded-For is honoured only when the deployment says a proxy sits in
// front of the server and the connection comes from one of its addresses;
// otherwise any caller could pick a fresh identity per request.
type ClientResolver struct {
	trustForwardedFor bool
	trustedProxies    []*net.IPNet
}

// NewClientResolver creates a resolver. trustedProxies holds IPs or CIDRs;
// when it is empty and trustForwardedFor is set, every peer is trusted.
func NewClientResolver(trustForwardedFor bool, trustedProxies []string) (*ClientResolver, error) {
	r := &ClientResolver{trustForwardedFor: trustForwardedFor}

	for _, entry := range trustedProxies {
		ipNet, err := parseCIDR(entry)
		if err != nil {
			return nil, err
		}
		r.trustedProxies = append(r.trustedProxies, ipNet)
	}

	return r, nil
}

// ClientID returns the identity of the request's client
func (r *ClientResolver) ClientID(req *http.Request) string {
	remote := remoteHost(req)

	if r.trustForwardedFor && r.trustedPeer(remote) {
		if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
			// Take the first IP in the chain
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if first != "" {
				return first
			}
		}
	}

	return remote
}

func (r *ClientResolver) trustedPeer(host string) bool {
	if len(r.trustedProxies) == 0 {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	for _, ipNet := range r.trustedProxies {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

func remoteHost(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

// parseCIDR accepts a CIDR or a single address (as /32 or /128)
func parseCIDR(entry string) (*net.IPNet, error) {
	entry = strings.TrimSpace(entry)

	if !strings.Contains(entry, "/") {
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid trusted proxy address: %q", entry)
		}
		bits := 128
		if ip.To4() != nil {
			ip = ip.To4()
			bits = 32
		}
		return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
	}

	_, ipNet, err := net.ParseCIDR(entry)
	if err != nil {
		return nil, fmt.Errorf("invalid trusted proxy CIDR: %q", entry)
	}
	return ipNet, nil
}

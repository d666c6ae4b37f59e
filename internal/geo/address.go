package geo

import (
	"net"
	"net/http"
	"strings"
)

// IsInternal reports whether ip is loopback, RFC1918/ULA private, link-local
// or unspecified.
func IsInternal(ip net.IP) bool {
	if ip == nil {
		return false
	}
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsUnspecified()
}

// ClientAddress returns the address to classify (remote) and the directly
// connected peer (direct).
//
// X-Forwarded-For is honoured only when the direct peer is internal, i.e. our
// own reverse proxy. The right-most non-internal hop is taken as the client,
// since every hop to its right was appended by infrastructure we trust. When
// all hops are internal the left-most one is used. A public direct peer has
// its forwarded headers ignored.
func ClientAddress(r *http.Request) (remote, direct net.IP) {
	direct = parseHost(r.RemoteAddr)
	if direct == nil || !IsInternal(direct) {
		return direct, direct
	}

	hops := forwardedHops(r.Header.Values("X-Forwarded-For"))
	if len(hops) == 0 {
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip, direct
		}
		return direct, direct
	}

	for i := len(hops) - 1; i >= 0; i-- {
		if !IsInternal(hops[i]) {
			return hops[i], direct
		}
	}
	return hops[0], direct
}

func forwardedHops(values []string) []net.IP {
	var hops []net.IP
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if ip := parseHost(strings.TrimSpace(part)); ip != nil {
				hops = append(hops, ip)
			}
		}
	}
	return hops
}

// parseHost accepts "ip", "ip:port" and "[v6]:port".
func parseHost(s string) net.IP {
	if s == "" {
		return nil
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	return net.ParseIP(strings.Trim(s, "[]"))
}

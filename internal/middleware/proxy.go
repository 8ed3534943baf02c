package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/labstack/echo/v4"
)

// TrustedProxies makes c.RealIP() see through the reverse proxies listed in
// trustedCIDRs (TRUSTED_PROXIES).
//
// Behind a proxy every request arrives from the proxy's address, so without
// this all browsers would share one rate-limit bucket and one audit IP.
// Forwarding headers from any other peer are ignored: a browser talking to
// the server directly could otherwise name its own address and step out of
// the per-IP keypad limit.
func TrustedProxies(e *echo.Echo, trustedCIDRs []string) {
	e.IPExtractor = buildIPExtractor(parsePrefixes(trustedCIDRs))
}

// parsePrefixes skips entries that do not parse. A typo in one range must
// not take the server down, but it is logged.
func parsePrefixes(cidrs []string) []netip.Prefix {
	var out []netip.Prefix
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			slog.Warn("ignoring invalid trusted proxy range", slog.String("cidr", cidr), slog.Any("error", err))
			continue
		}
		// "10.1.2.3/8" and "10.0.0.0/8" mean the same range.
		out = append(out, p.Masked())
	}
	return out
}

// buildIPExtractor returns an extractor that reads forwarding headers only
// when the direct peer is inside a trusted range.
func buildIPExtractor(trusted []netip.Prefix) echo.IPExtractor {
	return func(req *http.Request) string {
		peer := peerIP(req.RemoteAddr)
		if !contains(trusted, peer) {
			return peer
		}

		// X-Real-IP first; nginx and most proxies set it to the client.
		if realIP := strings.TrimSpace(req.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
		// Then X-Forwarded-For. Leftmost entry is the client.
		if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
			client, _, _ := strings.Cut(xff, ",")
			if client = strings.TrimSpace(client); client != "" {
				return client
			}
		}
		return peer
	}
}

// peerIP strips the port from RemoteAddr.
func peerIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// contains reports whether ip falls in any trusted range. IPv4-mapped IPv6
// peers ("::ffff:10.0.0.1") are matched against the IPv4 ranges.
func contains(trusted []netip.Prefix, ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

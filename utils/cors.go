package utils

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

var privateRanges = []*net.IPNet{
	mustParseCIDR("10.0.0.0/8"),
	mustParseCIDR("172.16.0.0/12"),
	mustParseCIDR("192.168.0.0/16"),
	mustParseCIDR("127.0.0.0/8"),
	mustParseCIDR("169.254.0.0/16"), // link-local IPv4
	mustParseCIDR("::1/128"),
	mustParseCIDR("fe80::/10"),
	mustParseCIDR("fc00::/7"),
}

// OriginPolicy decides which browser origins may call the API. Local and
// private-network origins are always trusted; Extra adds exact origins such
// as a reverse proxy's public name.
type OriginPolicy struct {
	extra map[string]struct{}
}

// NewOriginPolicy trusts the LAN plus the listed origins.
func NewOriginPolicy(extra []string) *OriginPolicy {
	p := &OriginPolicy{extra: make(map[string]struct{}, len(extra))}
	for _, o := range extra {
		o = strings.TrimRight(strings.ToLower(strings.TrimSpace(o)), "/")
		if o != "" {
			p.extra[o] = struct{}{}
		}
	}
	return p
}

// Allowed reports whether origin may receive CORS headers.
func (p *OriginPolicy) Allowed(origin string) bool {
	if _, ok := p.extra[strings.ToLower(origin)]; ok {
		return true
	}
	return IsAllowedOrigin(origin)
}

// IsAllowedOrigin checks whether an Origin header value should be trusted.
// It allows localhost, private/RFC1918 IPs, link-local IPs, .local hostnames,
// and single-label hostnames (no dots). Public internet origins are blocked.
func IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	hostname := parsed.Hostname()
	switch {
	case hostname == "localhost", strings.HasSuffix(hostname, ".local"):
		return true
	}

	if ip := net.ParseIP(hostname); ip != nil {
		for _, n := range privateRanges {
			if n.Contains(ip) {
				return true
			}
		}
		return false
	}

	// Single-label hostnames are LAN names.
	return !strings.Contains(hostname, ".")
}

// Middleware sets CORS headers for trusted origins and answers preflights.
func (p *OriginPolicy) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && p.Allowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func mustParseCIDR(s string) *net.IPNet {
	_, network, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return network
}

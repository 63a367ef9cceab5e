package security

import (
	"net/url"
	"strings"
)

// DefaultAllowedOrigins is the allowlist used by the native-messaging host
// when none is configured.
var DefaultAllowedOrigins = []string{
	"https://github.com",
	"https://subdomain.company-internal.com",
	"nonghyup.com",
	"nhbank.com",
	"nonghyup.local",
}

// splitOrigin returns the lower-cased scheme and host of origin. A bare
// domain has no scheme.
func splitOrigin(origin string) (scheme, host string) {
	if !strings.Contains(origin, "://") {
		return "", strings.ToLower(strings.TrimSuffix(origin, "/"))
	}
	u, err := url.Parse(origin)
	if err != nil {
		return "", ""
	}
	return strings.ToLower(u.Scheme), strings.ToLower(u.Hostname())
}

// IsAllowedOrigin reports whether origin equals an allowed entry or is a
// subdomain of one. Entries may be full origins or bare domains; a full
// origin also pins the scheme.
func IsAllowedOrigin(origin string, allowed []string) bool {
	scheme, host := splitOrigin(origin)
	if host == "" {
		return false
	}

	for _, entry := range allowed {
		if origin == entry {
			return true
		}
		wantScheme, domain := splitOrigin(entry)
		if domain == "" {
			continue
		}
		if wantScheme != "" && wantScheme != scheme {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

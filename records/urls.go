package records

import (
	"net/http"
	"net/url"
	"strings"
)

// RequestOrigin returns the scheme and host the client used to reach us,
// preferring X-Forwarded-* headers set by a reverse proxy.
func RequestOrigin(r *http.Request) (scheme, host string) {
	scheme, host = "http", r.Host
	if r.TLS != nil {
		scheme = "https"
	}
	if fh := firstValue(r.Header.Get("X-Forwarded-Host")); fh != "" {
		host = fh
	}
	if fp := strings.ToLower(firstValue(r.Header.Get("X-Forwarded-Proto"))); fp == "http" || fp == "https" {
		scheme = fp
	}
	return scheme, host
}

func firstValue(h string) string {
	if i := strings.IndexByte(h, ','); i >= 0 {
		h = h[:i]
	}
	return strings.TrimSpace(h)
}

// RewriteHost swaps the host of raw for host when raw points at legacyHost.
// Any other URL, or one that fails to parse, is returned unchanged.
func RewriteHost(raw, legacyHost, scheme, host string) string {
	if raw == "" || legacyHost == "" || host == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || !strings.EqualFold(u.Host, legacyHost) {
		return raw
	}
	u.Host = host
	if scheme != "" {
		u.Scheme = scheme
	}
	return u.String()
}

// ForRequest returns copies of recs with file URLs rewritten for r.
func ForRequest(recs []Record, legacyHost string, r *http.Request) []Record {
	scheme, host := RequestOrigin(r)
	out := make([]Record, len(recs))
	for i, rec := range recs {
		rec.FileURL = RewriteHost(rec.FileURL, legacyHost, scheme, host)
		out[i] = rec
	}
	return out
}

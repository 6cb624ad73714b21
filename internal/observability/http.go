package observability

import (
	"net"
	"net/http"
	"strings"
)

// IPFromRequest extracts the client IP, honoring X-Forwarded-For when the
// service sits behind a proxy. Rate-limit buckets key on this value.
func IPFromRequest(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// Package reqdata extracts ambient visitor context from request headers.
package reqdata

import (
	"net/http"
	"strings"

	"capi-forwarder/internal/model"

	"go.uber.org/zap"
)

// ipHeaders is the priority-ordered list of headers that may carry the
// client address, platform-specific entries first.
var ipHeaders = []string{
	"X-Vercel-Forwarded-For",
	"X-Forwarded-For",
	"X-Real-IP",
	"CF-Connecting-IP",
	"X-Client-IP",
	"True-Client-IP",
}

const fallbackIP = "127.0.0.1"

// Extract pulls client IP, user-agent and the _fbc/_fbp attribution
// cookies through the given header accessor. The accessor is injected so
// extraction is testable without a live request.
func Extract(get func(string) string, log *zap.Logger) model.Visitor {
	rawCookies := get("Cookie")
	return model.Visitor{
		ClientIP:  ClientIP(get),
		UserAgent: get("User-Agent"),
		Fbc:       cookieValue(rawCookies, "_fbc", log),
		Fbp:       cookieValue(rawCookies, "_fbp", log),
	}
}

// FromRequest extracts visitor context from an incoming request.
func FromRequest(r *http.Request, log *zap.Logger) model.Visitor {
	return Extract(r.Header.Get, log)
}

// ClientIP walks the header chain and returns the first usable address.
// Comma-separated lists keep the first hop (closest to the client).
func ClientIP(get func(string) string) string {
	for _, h := range ipHeaders {
		v := strings.TrimSpace(get(h))
		if v == "" {
			continue
		}
		if i := strings.IndexByte(v, ','); i >= 0 {
			v = strings.TrimSpace(v[:i])
		}
		if v != "" {
			return v
		}
	}
	return fallbackIP
}

// cookieValue scans a raw Cookie header for the named cookie. Malformed
// pairs are logged and skipped rather than failing the extraction.
func cookieValue(header, name string, log *zap.Logger) string {
	if header == "" {
		return ""
	}
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			log.Debug("skipping malformed cookie pair", zap.String("pair", part))
			continue
		}
		if strings.TrimSpace(k) == name {
			return strings.Trim(strings.TrimSpace(v), `"`)
		}
	}
	return ""
}

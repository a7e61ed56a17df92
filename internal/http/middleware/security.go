package middleware

// Security headers. JSON routes get a deny-all Content-Security-Policy; the
// Swagger UI, the only HTML the service serves, gets a policy that lets its
// own scripts and styles load. Responses that carry account data can be
// marked no-store so proxies and browsers never keep them.

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	apiCSP  = "default-src 'none'; frame-ancestors 'none'"
	docsCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'self'"

	defaultHSTSMaxAge = 180 * 24 * time.Hour
)

// SecurityOptions configures HTTP security headers emitted by SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS emits Strict-Transport-Security for HTTPS requests only.
	// Enable when traffic is HTTPS end-to-end.
	EnableHSTS bool
	// HSTSMaxAge defaults to 180 days.
	HSTSMaxAge time.Duration

	// NoStorePrefixes lists path prefixes whose responses must not be
	// cached (Cache-Control: no-store).
	NoStorePrefixes []string
	// DocsPrefix is the path prefix of the Swagger UI, e.g. "/swagger".
	DocsPrefix string

	// EnablePolicy sends Permissions-Policy and X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool
	// Expose lists response headers browser clients may read; X-Request-ID
	// is always included when set.
	Expose []string
}

// SecurityHeaders returns a Gin middleware that adds security headers to
// each response.
//
// Always: X-Content-Type-Options: nosniff, Referrer-Policy: no-referrer, a
// Content-Security-Policy and X-Frame-Options (DENY for the API,
// SAMEORIGIN for the docs).
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		path := c.Request.URL.Path

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		if opt.DocsPrefix != "" && strings.HasPrefix(path, opt.DocsPrefix) {
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Content-Security-Policy", docsCSP)
		} else {
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", apiCSP)
		}

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		for _, p := range opt.NoStorePrefixes {
			if strings.HasPrefix(path, p) {
				h.Set("Cache-Control", "no-store")
				h.Set("Pragma", "no-cache")
				break
			}
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		expose := opt.Expose
		if h.Get("X-Request-ID") != "" {
			expose = append([]string{"X-Request-ID"}, expose...)
		}
		for _, name := range expose {
			addExpose(h, name)
		}

		c.Next()
	}
}

// addExpose appends name to Access-Control-Expose-Headers unless present.
func addExpose(h http.Header, name string) {
	const hdr = "Access-Control-Expose-Headers"
	cur := h.Get(hdr)
	switch {
	case cur == "":
		h.Set(hdr, name)
	case !strings.Contains(strings.ToLower(cur), strings.ToLower(name)):
		h.Set(hdr, cur+", "+name)
	}
}

// isHTTPS reports whether the incoming request used HTTPS either directly
// (r.TLS != nil) or via a reverse proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

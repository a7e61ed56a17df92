package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func securedRouter(opt SecurityOptions, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(pre...)
	r.Use(SecurityHeaders(opt))
	r.GET("/api/v1/accounts", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
	r.GET("/api/v1/runs", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
	r.GET("/swagger/*any", func(c *gin.Context) { c.String(http.StatusOK, "<html></html>") })
	return r
}

func get(r *gin.Engine, path string, mutate ...func(*http.Request)) http.Header {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, m := range mutate {
		m(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_APIBaseline(t *testing.T) {
	h := get(securedRouter(SecurityOptions{}), "/api/v1/runs")

	if h.Get("X-Content-Type-Options") != "nosniff" || h.Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("baseline headers missing: %#v", h)
	}
	if h.Get("X-Frame-Options") != "DENY" || h.Get("Content-Security-Policy") != apiCSP {
		t.Fatalf("api framing/csp: %#v", h)
	}
	for _, k := range []string{"Permissions-Policy", "Cache-Control", "Strict-Transport-Security", "Access-Control-Expose-Headers"} {
		if h.Get(k) != "" {
			t.Fatalf("unexpected %s: %q", k, h.Get(k))
		}
	}
}

func TestSecurityHeaders_DocsPolicy(t *testing.T) {
	h := get(securedRouter(SecurityOptions{DocsPrefix: "/swagger"}), "/swagger/index.html")
	if h.Get("X-Frame-Options") != "SAMEORIGIN" || h.Get("Content-Security-Policy") != docsCSP {
		t.Fatalf("docs framing/csp: %#v", h)
	}
}

func TestSecurityHeaders_NoStorePrefixes(t *testing.T) {
	r := securedRouter(SecurityOptions{NoStorePrefixes: []string{"/api/v1/accounts"}})

	h := get(r, "/api/v1/accounts")
	if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" {
		t.Fatalf("accounts must be no-store: %#v", h)
	}
	if h := get(r, "/api/v1/runs"); h.Get("Cache-Control") != "" {
		t.Fatalf("runs stay cacheable, got %q", h.Get("Cache-Control"))
	}
}

func TestSecurityHeaders_Policy(t *testing.T) {
	h := get(securedRouter(SecurityOptions{EnablePolicy: true}), "/api/v1/runs")
	if h.Get("Permissions-Policy") == "" || h.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("policy headers missing: %#v", h)
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	r := securedRouter(SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour})

	if h := get(r, "/api/v1/runs"); h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS must not be sent over plain HTTP")
	}
	h := get(r, "/api/v1/runs", func(req *http.Request) { req.TLS = &tls.ConnectionState{} })
	if got := h.Get("Strict-Transport-Security"); got != "max-age=3600; includeSubDomains; preload" {
		t.Fatalf("HSTS over TLS: %q", got)
	}
	h = get(r, "/api/v1/runs", func(req *http.Request) { req.Header.Set("X-Forwarded-Proto", "HTTPS") })
	if h.Get("Strict-Transport-Security") == "" {
		t.Fatalf("HSTS behind TLS-terminating proxy missing")
	}

	def := securedRouter(SecurityOptions{EnableHSTS: true})
	h = get(def, "/api/v1/runs", func(req *http.Request) { req.TLS = &tls.ConnectionState{} })
	if got := h.Get("Strict-Transport-Security"); got != "max-age=15552000; includeSubDomains; preload" {
		t.Fatalf("default max-age: %q", got)
	}
}

func TestSecurityHeaders_Expose(t *testing.T) {
	withRID := func(c *gin.Context) {
		c.Header("X-Request-ID", "rid-1")
		c.Header("Access-Control-Expose-Headers", "etag")
		c.Next()
	}
	r := securedRouter(SecurityOptions{Expose: []string{"ETag", "Idempotency-Replayed"}}, withRID)

	got := get(r, "/api/v1/runs").Get("Access-Control-Expose-Headers")
	if got != "etag, X-Request-ID, Idempotency-Replayed" {
		t.Fatalf("expose=%q", got)
	}
}

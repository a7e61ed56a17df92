package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestScrub(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"handle=acme&status=failed", "handle=acme&status=failed"},
		{"url=https://www.linkedin.com/in/jane-doe-42/", "url=[REDACTED:profile]/"},
		{"u=https%3A%2F%2Fwww.linkedin.com%2Fin%2Fjane-doe&x=1", "u=[REDACTED:profile]&x=1"},
		{"lead linkedin.com/sales/lead/ACwAA123,NAME", "lead [REDACTED:profile]"},
		{"contact a.b+tag@example.com now", "contact [REDACTED:email] now"},
		{"username=bot&password=hunter2&li_at=AQED", "username=bot&password=[REDACTED]&li_at=[REDACTED]"},
		{"run 7d0f3c36-6a1d-4e4c-9f0f-1b2c3d4e5f60", "run 7d0f3c36-6a1d-4e4c-9f0f-1b2c3d4e5f60"},
	}
	for _, tc := range cases {
		if got := scrub(tc.in); got != tc.want {
			t.Fatalf("scrub(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactingLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{" " + HeaderAPIKey + " ", ""}}))
	r.Use(APIKey("shhh"))
	r.GET("/accounts/:handle", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("inside handler")
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	req := httptest.NewRequest(http.MethodGet,
		"/accounts/acme?profile=https://www.linkedin.com/in/jane-doe&password=hunter2", nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "li_at=topsecret")
	req.Header.Set(HeaderAPIKey, "shhh")
	req.Header.Set("X-Contact", "jane@example.com")
	req.Header.Set(requestIDHeader, "rid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	e := accessEntry(t, buf, "/accounts/:handle")
	if e["level"] != "info" || e["request_id"] != "rid-1" || e["handle"] != "acme" {
		t.Fatalf("access entry: %v", e)
	}
	if e["client_id"] != fingerprint("shhh") {
		t.Fatalf("client_id = %v", e["client_id"])
	}
	if q := e["query"].(string); q != "profile=[REDACTED:profile]&password=[REDACTED]" {
		t.Fatalf("query = %q", q)
	}
	headers := e["headers"].(map[string]any)
	for _, h := range []string{"Authorization", "Cookie", "X-Api-Key"} {
		if headers[h] != redacted {
			t.Fatalf("%s not masked: %v", h, headers[h])
		}
	}
	if headers["X-Contact"] != "[REDACTED:email]" {
		t.Fatalf("X-Contact = %v", headers["X-Contact"])
	}

	out := buf.String()
	for _, leak := range []string{"shhh", "hunter2", "topsecret", "jane-doe", "jane@example.com"} {
		if strings.Contains(out, leak) {
			t.Fatalf("log leaked %q:\n%s", leak, out)
		}
	}
	if !strings.Contains(out, `"message":"inside handler"`) {
		t.Fatalf("expected request-scoped handler log, got: %s", out)
	}

	boom := httptest.NewRequest(http.MethodGet, "/boom", nil)
	boom.Header.Set(HeaderAPIKey, "shhh")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, boom)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("/boom status = %d", w.Code)
	}
	if e := accessEntry(t, buf, "/boom"); e["level"] != "error" {
		t.Fatalf("5xx entry: %v", e)
	}
}

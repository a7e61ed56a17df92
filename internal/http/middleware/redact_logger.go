package middleware

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RedactOptions configures RedactingLogger. MaskHeaders are masked in
// addition to Authorization, Cookie and Set-Cookie (case-insensitive).
type RedactOptions struct {
	MaskHeaders []string
}

const redacted = "[REDACTED]"

var (
	// LinkedIn member URLs identify the people being contacted.
	profileURLRE = regexp.MustCompile(`(?i)(https?(://|%3A%2F%2F))?([a-z]{2,3}\.)?linkedin\.com(/|%2F)(in|sales/lead|talent/profile)(/|%2F)[^\s&#?/%]+`)
	emailRE      = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// secretParamRE matches key=value query pairs whose value must not be logged.
	secretParamRE = regexp.MustCompile(`(?i)\b(password|passwd|secret|token|api_key|li_at)=[^&]*`)
)

// scrub removes contact identifiers and credentials from a log value.
func scrub(s string) string {
	if s == "" {
		return s
	}
	s = secretParamRE.ReplaceAllString(s, "$1="+redacted)
	s = profileURLRE.ReplaceAllString(s, "[REDACTED:profile]")
	return emailRE.ReplaceAllString(s, "[REDACTED:email]")
}

// RedactingLogger is the production access log. Bodies are never logged;
// the query string and request headers are, after scrubbing profile URLs,
// e-mail addresses and credentials. Account handles and run IDs are kept:
// they are operator-chosen identifiers, not personal data.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"set-cookie":    true,
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = true
		}
	}

	return accessLog(func(c *gin.Context, e *zerolog.Event) {
		headers := zerolog.Dict()
		for k, vv := range c.Request.Header {
			if masked[strings.ToLower(k)] {
				headers.Str(k, redacted)
				continue
			}
			headers.Str(k, scrub(strings.Join(vv, ", ")))
		}
		e.Str("query", scrub(c.Request.URL.RawQuery)).Dict("headers", headers)
	})
}

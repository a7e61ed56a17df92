package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey lets clients retry run and schedule creation without
// creating duplicates.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"

	defaultIdemMaxLen = 200
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~:\-]+$`)

// GetIdempotencyKey returns the key accepted by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// IsReplay reports whether the key was already used by the same client on
// the same route, i.e. the handler should return the stored resource
// instead of creating a new one.
func IsReplay(c *gin.Context) bool {
	return c.GetBool(ctxKeyIdemReplay)
}

// IdempotencyOptions bounds the accepted keys. Zero values select a 200
// character limit and the token pattern ^[A-Za-z0-9._~:-]+$.
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether (clientID, scope, key) names a stored,
// unexpired result. Scope is the route template. Errors are logged and
// treated as a miss.
type IdempotencyLookup func(ctx context.Context, clientID, scope, key string, now time.Time) (bool, error)

// IdempotencyValidator checks the Idempotency-Key of POST requests. Invalid
// keys are rejected with 400. Accepted keys are stored for the handler and,
// when lookup finds a previous result, the request is marked as a replay and
// exempted from rate limiting. Other methods pass through untouched.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdemMaxLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			reject(c, http.StatusBadRequest, "bad_request", "invalid Idempotency-Key")
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			scope := routePath(c)
			found, err := lookup(c.Request.Context(), ClientID(c), scope, key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
			}
			if found {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
				idemReplays.WithLabelValues(scope).Inc()
			}
		}
		c.Next()
	}
}

package middleware

// API-key authentication. The caller is identified by a fingerprint of the
// key so rate limits and idempotency records are partitioned per credential.

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderAPIKey carries the shared API key.
const HeaderAPIKey = "X-API-Key"

// ctxKeyClientID holds the authenticated client identity.
const ctxKeyClientID = "clientID"

// anonymousClient identifies callers when authentication is disabled.
const anonymousClient = "anonymous"

// APIKey returns middleware that rejects requests whose X-API-Key does not
// match key with 401. An empty key disables the check (open mode). Request
// paths starting with one of public are let through unauthenticated.
func APIKey(key string, public ...string) gin.HandlerFunc {
	if key == "" {
		return func(c *gin.Context) { c.Next() }
	}
	want := []byte(key)
	id := fingerprint(key)
	return func(c *gin.Context) {
		for _, p := range public {
			if strings.HasPrefix(c.Request.URL.Path, p) {
				c.Next()
				return
			}
		}
		got := []byte(c.GetHeader(HeaderAPIKey))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			reject(c, http.StatusUnauthorized, "unauthorized", "missing or invalid API key")
			return
		}
		c.Set(ctxKeyClientID, id)
		c.Next()
	}
}

// ClientID returns the caller identity set by APIKey, or "anonymous".
func ClientID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyClientID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return anonymousClient
}

// fingerprint is a short, non-reversible identifier for a key.
func fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "key:" + hex.EncodeToString(sum[:6])
}

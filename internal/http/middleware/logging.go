// Package middleware contains the Gin middleware mounted by the outreach API:
// correlation IDs, access logging, panic recovery, metrics, API-key
// authentication, idempotency, rate limiting and security headers.
//
// Access logs carry the account handle and run/schedule ID of the request
// when the route names one, so an operator can follow a single LinkedIn
// account or run across API calls and the background pipeline.
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"

	// maxQueryLogLength caps the raw query logged in debug mode.
	maxQueryLogLength = 2048
	// maxRequestIDLength bounds client-supplied correlation IDs.
	maxRequestIDLength = 128
)

// RequestID reuses a client X-Request-ID or generates a UUID, echoes it on
// the response and stores it in the Gin context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if rid == "" || len(rid) > maxRequestIDLength {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger is the development access log. Besides the outcome it records the
// raw query, user agent and referer; use RedactingLogger in production.
func Logger() gin.HandlerFunc {
	return accessLog(func(c *gin.Context, e *zerolog.Event) {
		e.Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("referer", c.Request.Referer()).
			Str("query", truncate(c.Request.URL.RawQuery, maxQueryLogLength)).
			Int64("bytes_in", c.Request.ContentLength)
	})
}

// accessLog builds the logging middleware shared by Logger and
// RedactingLogger. A request-scoped logger is attached both to the Gin
// context (see LoggerFrom) and to the request context so services reached
// through the handler log with the same correlation fields.
func accessLog(extra func(*gin.Context, *zerolog.Event)) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := routePath(c)

		l := scopedLogger(c, path)
		c.Set(loggerKey, &l)
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		e := l.WithLevel(levelFor(status, len(c.Errors) > 0)).
			Str("client_id", ClientID(c)).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size())
		if len(c.Errors) > 0 {
			e = e.Str("errors", c.Errors.String())
		}
		if IsReplay(c) {
			e = e.Bool("replay", true)
		}
		if extra != nil {
			extra(c, e)
		}
		e.Msg("request")
	}
}

// scopedLogger derives the per-request logger from the global one.
func scopedLogger(c *gin.Context, path string) zerolog.Logger {
	ctx := log.With().
		Str("request_id", c.GetString(requestIDKey)).
		Str("method", c.Request.Method).
		Str("path", path)
	if h := accountHandle(c); h != "" {
		ctx = ctx.Str("handle", h)
	}
	if id := c.Param("id"); id != "" {
		switch {
		case strings.Contains(path, "/runs/"):
			ctx = ctx.Str("run_id", id)
		case strings.Contains(path, "/schedules/"):
			ctx = ctx.Str("schedule_id", id)
		}
	}
	return ctx.Logger()
}

// accountHandle returns the handle a request addresses: the :handle route
// parameter, or the ?handle= filter on listings.
func accountHandle(c *gin.Context) string {
	if h := c.Param("handle"); h != "" {
		return h
	}
	return c.Query("handle")
}

func routePath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

func levelFor(status int, hasErrors bool) zerolog.Level {
	switch {
	case hasErrors || status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// Recovery turns a panic into the standard JSON 500 envelope and logs the
// stack with the request ID.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := c.GetString(requestIDKey)
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global logger when no
// access-log middleware ran.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

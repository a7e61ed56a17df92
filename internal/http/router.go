// Package httpapi mounts the outreach API on a Gin engine: the middleware
// chain, the health, metrics and docs endpoints, and the versioned routes for
// runs, schedules and accounts.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-outreach-backend/docs"
	"github.com/tbourn/go-outreach-backend/internal/config"
	"github.com/tbourn/go-outreach-backend/internal/http/handlers"
	"github.com/tbourn/go-outreach-backend/internal/http/middleware"
	"github.com/tbourn/go-outreach-backend/internal/repo"
)

// Deps are the application services mounted by RegisterRoutes. DB backs
// the idempotency records.
type Deps struct {
	DB        *gorm.DB
	Runs      handlers.RunService
	Schedules handlers.ScheduleService
	Accounts  handlers.AccountService
}

// idemStore keeps idempotency keys in the server database. It serves both
// the middleware lookup and the create handlers.
type idemStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// seen reports whether key is recorded for the client and route.
func (s idemStore) seen(ctx context.Context, clientID, scope, key string, now time.Time) (bool, error) {
	_, err := repo.GetIdempotency(ctx, s.db, clientID, scope, key, now)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repo.ErrNotFound):
		return false, nil
	}
	return false, err
}

// Find returns the resource created under key. Lookup failures read as a miss.
func (s idemStore) Find(ctx context.Context, clientID, scope, key string) (string, bool) {
	rec, err := repo.GetIdempotency(ctx, s.db, clientID, scope, key, time.Now().UTC())
	if err != nil {
		return "", false
	}
	return rec.ResourceID, true
}

// Remember records key for the resource just created. A concurrent request
// that recorded it first wins.
func (s idemStore) Remember(ctx context.Context, clientID, scope, key, resourceID string, status int) {
	_, err := repo.CreateIdempotency(ctx, s.db, clientID, scope, key, resourceID, status, time.Now().UTC(), s.ttl)
	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("scope", scope).Msg("remember idempotency key failed")
	}
}

// publicPaths bypass API-key authentication.
var publicPaths = []string{"/health", "/metrics", "/swagger"}

var (
	corsMethods   = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	allowHeaders  = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderAPIKey, middleware.HeaderIdempotencyKey}
	exposeHeaders = []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"}
)

const maxBodyBytes = 1 << 20

// RegisterRoutes installs the middleware chain and mounts every endpoint.
//
// Order: tracing, request id, access log, recovery, body limit, metrics,
// API key, idempotency, rate limit, CORS, security headers, gzip. The API
// key runs before idempotency and rate limiting because both key on the
// client; idempotency runs before the limiter so replays skip it.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := strings.TrimSuffix(cfg.APIBasePath, "/")

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	if cfg.GinMode == gin.DebugMode {
		r.Use(middleware.Logger())
	} else {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{middleware.HeaderAPIKey},
		}))
	}
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())

	r.Use(middleware.APIKey(cfg.Security.APIKey, publicPaths...))

	idem := idemStore{db: deps.DB, ttl: cfg.IdempotencyTTL}
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, idem.seen))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientOrIP())
	r.Use(rl.Handler())

	r.Use(corsHandlers(cfg.CORS.AllowedOrigins)...)

	// Account views carry usernames and are never cached.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		NoStorePrefixes: []string{apiBase + "/accounts"},
		DocsPrefix:      "/swagger",
		EnablePolicy:    true,
		Expose:          []string{"ETag", "Idempotency-Replayed"},
	}))

	// promhttp negotiates its own compression
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// routes take the middleware registered above them
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(deps.Runs, deps.Schedules, deps.Accounts, idem)

	api := groupWithPrefix(r, apiBase)

	api.POST("/runs", h.CreateRun)
	api.GET("/runs", h.ListRuns)
	api.GET("/runs/:id", h.GetRun)

	api.POST("/schedules", h.CreateSchedule)
	api.GET("/schedules", h.ListSchedules)
	api.GET("/schedules/:id", h.GetSchedule)
	api.DELETE("/schedules/:id", h.DeleteSchedule)
	api.POST("/schedules/:id/pause", h.PauseSchedule)
	api.POST("/schedules/:id/resume", h.ResumeSchedule)

	api.POST("/accounts", h.UpsertAccount)
	api.GET("/accounts", h.ListAccounts)
	api.GET("/accounts/:handle", h.GetAccount)
	api.DELETE("/accounts/:handle", h.DeleteAccount)
	api.POST("/accounts/:handle/resume", h.ResumeAccount)
	api.GET("/accounts/:handle/profiles", h.ListProfiles)
}

// corsHandlers allows every origin when origins is empty and otherwise only
// the listed ones. The explicit Allow-Origin is also set on requests without
// an Origin header, which gin-contrib/cors leaves alone.
func corsHandlers(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:  corsMethods,
		AllowHeaders:  allowHeaders,
		ExposeHeaders: exposeHeaders,
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	base.AllowOrigins = origins
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if o := c.GetHeader("Origin"); allowed[o] {
				c.Writer.Header().Set("Access-Control-Allow-Origin", o)
				c.Writer.Header().Add("Vary", "Origin")
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps request bodies at maxBytes; reads past it fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

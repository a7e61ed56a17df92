// Package handlers exposes the outreach REST API: runs, schedules and
// accounts.
//
// Handlers are transport-thin: they bind and check input, call application
// services through the interfaces below, and translate results and service
// errors into HTTP responses with stable error codes.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-outreach-backend/internal/domain"
	"github.com/tbourn/go-outreach-backend/internal/http/middleware"
	"github.com/tbourn/go-outreach-backend/internal/services"
	"github.com/tbourn/go-outreach-backend/internal/touchpoint"
)

//
// Service contracts (context-aware)
//

// RunService creates, dispatches and reads runs.
type RunService interface {
	// Validate parses a touchpoint input as it would be executed for handle.
	Validate(handle string, input map[string]any) (touchpoint.Input, error)
	// Create stores a pending run.
	Create(ctx context.Context, handle string, input, tags map[string]any) (*domain.Run, error)
	// Execute dispatches a pending run in the background.
	Execute(ctx context.Context, runID string) error
	Get(ctx context.Context, runID string) (*domain.Run, error)
	ListPage(ctx context.Context, handle string, status domain.RunStatus, limit, offset int) ([]domain.Run, int64, error)
	// Stats returns count and latest update of a listing, for ETags.
	Stats(ctx context.Context, handle string, status domain.RunStatus) (int64, *time.Time, error)
}

// ScheduleService manages cron schedules.
type ScheduleService interface {
	Create(ctx context.Context, handle string, input map[string]any, cron string, tags map[string]any) (*domain.Schedule, error)
	Get(ctx context.Context, id string) (*domain.Schedule, error)
	List(ctx context.Context, handle string) ([]domain.Schedule, error)
	Delete(ctx context.Context, id string) error
	Pause(ctx context.Context, id string) error
	Resume(ctx context.Context, id string) error
}

// AccountService administers accounts and reads their profile funnel.
type AccountService interface {
	Upsert(ctx context.Context, in services.AccountInput) (*domain.Account, error)
	Get(ctx context.Context, handle string) (*domain.Account, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Account, error)
	Delete(ctx context.Context, handle string) error
	Resume(ctx context.Context, handle string) error
	Profiles(ctx context.Context, handle string, state domain.ProfileState, page, pageSize int) ([]domain.Profile, int64, error)
}

// IdempotencyStore remembers which resource a keyed create produced.
// Both methods are best effort.
type IdempotencyStore interface {
	Find(ctx context.Context, clientID, scope, key string) (resourceID string, ok bool)
	Remember(ctx context.Context, clientID, scope, key, resourceID string, status int)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints. Idem may be nil.
type Handlers struct {
	runs      RunService
	schedules ScheduleService
	accounts  AccountService
	idem      IdempotencyStore
}

// New constructs a Handlers bound to the given services.
func New(runs RunService, schedules ScheduleService, accounts AccountService, idem IdempotencyStore) *Handlers {
	return &Handlers{runs: runs, schedules: schedules, accounts: accounts, idem: idem}
}

//
// Shared DTOs
//

// Pagination carries page metadata for page-numbered listings.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Helpers
//

// headerReplayed marks responses served from an idempotency record.
const headerReplayed = "Idempotency-Replayed"

// replayed returns the resource ID a previous request with the same
// Idempotency-Key created on this route, if the idempotency middleware
// flagged the request as a replay.
func (h *Handlers) replayed(c *gin.Context) (string, bool) {
	key, ok := middleware.GetIdempotencyKey(c)
	if !ok || h.idem == nil || !middleware.IsReplay(c) {
		return "", false
	}
	return h.idem.Find(c.Request.Context(), middleware.ClientID(c), c.FullPath(), key)
}

// remember records the resource created by a keyed request.
func (h *Handlers) remember(c *gin.Context, resourceID string, status int) {
	key, ok := middleware.GetIdempotencyKey(c)
	if !ok || h.idem == nil {
		return
	}
	h.idem.Remember(c.Request.Context(), middleware.ClientID(c), c.FullPath(), key, resourceID, status)
}

// checkETag sets a weak ETag and reports whether the client already has it.
func checkETag(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// queryInt parses an optional integer query parameter. The second result
// is false when the parameter is present but not an integer.
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

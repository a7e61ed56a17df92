// Run HTTP handlers.
//
// This file exposes REST endpoints for runs:
//   - POST   /runs        (validate, create and dispatch; dry_run validates only)
//   - GET    /runs        (list, newest first, ETag support)
//   - GET    /runs/{id}   (single run)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-outreach-backend/internal/domain"
	"github.com/tbourn/go-outreach-backend/internal/http/middleware"
)

const (
	defaultRunLimit = 100
	maxRunLimit     = 1000
)

// CreateRunRequest is the JSON payload for starting a run.
type CreateRunRequest struct {
	// Handle names the account that performs the touchpoint.
	Handle string `json:"handle" binding:"required" example:"alice"`
	// Touchpoint is the typed touchpoint input; it must carry "type".
	Touchpoint map[string]any `json:"touchpoint" binding:"required" swaggertype:"object"`
	// Tags are free-form labels stored with the run.
	Tags map[string]any `json:"tags,omitempty" swaggertype:"object"`
	// DryRun validates the input without creating a run.
	DryRun bool `json:"dry_run,omitempty"`
}

// DryRunResponse reports a successful validation.
type DryRunResponse struct {
	Valid          bool   `json:"valid"`
	Handle         string `json:"handle"`
	TouchpointType string `json:"touchpoint_type"`
}

// ListRunsResponse wraps a window of runs.
type ListRunsResponse struct {
	Runs   []domain.Run `json:"runs"`
	Total  int64        `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// CreateRun godoc
// @ID          createRun
// @Summary     Start a touchpoint run
// @Description Validates the touchpoint input, stores a pending run and dispatches it in the background.
// @Description With dry_run the input is only validated. A repeated Idempotency-Key replays the first run.
// @Tags        Runs
// @Accept      json
// @Produce     json
//
// @Param       X-API-Key        header  string  false "API key (when configured)"
// @Param       Idempotency-Key  header  string  false "Replay protection key"  example(2b0c7e4e-run-1)
// @Param       body             body    handlers.CreateRunRequest  true  "Run payload"
//
// @Success     201  {object}  domain.Run
// @Success     200  {object}  handlers.DryRunResponse  "Dry run or replayed request"
// @Failure     400  {object}  handlers.ErrorResponse   "Bad request or invalid touchpoint"
// @Failure     401  {object}  handlers.ErrorResponse   "Missing or invalid API key"
// @Failure     500  {object}  handlers.ErrorResponse   "Internal error"
// @Router      /runs [post]
func (h *Handlers) CreateRun(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: handle and touchpoint are required")
		return
	}

	in, err := h.runs.Validate(req.Handle, req.Touchpoint)
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	if req.DryRun {
		ok(c, http.StatusOK, DryRunResponse{Valid: true, Handle: req.Handle, TouchpointType: string(in.Base().Kind)})
		return
	}

	ctx := c.Request.Context()
	if id, found := h.replayed(c); found {
		if r, err := h.runs.Get(ctx, id); err == nil {
			c.Header(headerReplayed, "true")
			ok(c, http.StatusOK, r)
			return
		}
	}

	r, err := h.runs.Create(ctx, req.Handle, req.Touchpoint, req.Tags)
	if err != nil {
		failErr(c, err, ErrCodeCreateFailed)
		return
	}
	h.remember(c, r.RunID, http.StatusCreated)

	// A dispatch failure leaves the run pending for the poller.
	if err := h.runs.Execute(ctx, r.RunID); err != nil {
		l := middleware.LoggerFrom(c)
		l.Warn().Err(err).Str("run_id", r.RunID).Msg("dispatch failed, run left pending")
	}
	ok(c, http.StatusCreated, r)
}

// GetRun godoc
// @ID          getRun
// @Summary     Get a run
// @Tags        Runs
// @Produce     json
// @Param       id   path  string  true  "Run ID (UUID)"  format(uuid)
// @Success     200  {object} domain.Run
// @Failure     404  {object} handlers.ErrorResponse "Run not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /runs/{id} [get]
func (h *Handlers) GetRun(c *gin.Context) {
	r, err := h.runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, r)
}

// ListRuns godoc
// @ID          listRuns
// @Summary     List runs
// @Description Returns runs newest first, optionally filtered by handle and status.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Runs
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       handle         query   string  false "Account handle"
// @Param       status         query   string  false "Run status"  Enums(pending, running, completed, failed)
// @Param       limit          query   int     false "Max items"   minimum(1) maximum(1000) default(100)
// @Param       offset         query   int     false "Items to skip" minimum(0) default(0)
//
// @Success     200  {object} handlers.ListRunsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /runs [get]
func (h *Handlers) ListRuns(c *gin.Context) {
	handle := c.Query("handle")
	status := domain.RunStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be one of pending, running, completed, failed")
		return
	}
	limit, good := queryInt(c, "limit", defaultRunLimit)
	if !good || limit < 1 || limit > maxRunLimit {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxRunLimit))
		return
	}
	offset, good := queryInt(c, "offset", 0)
	if !good || offset < 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "offset must be >= 0")
		return
	}

	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if count, maxTS, err := h.runs.Stats(ctx, handle, status); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"runs:%s:%s:%d:%d:%d:%d"`, handle, status, count, ts, limit, offset)
		if checkETag(c, etag) {
			return
		}
	}

	items, total, err := h.runs.ListPage(ctx, handle, status, limit, offset)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListRunsResponse{Runs: items, Total: total, Limit: limit, Offset: offset})
}

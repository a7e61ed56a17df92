// Schedule HTTP handlers.
//
//   - POST   /schedules              (create)
//   - GET    /schedules              (list, optional ?handle=)
//   - GET    /schedules/{id}
//   - DELETE /schedules/{id}
//   - POST   /schedules/{id}/pause
//   - POST   /schedules/{id}/resume
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-outreach-backend/internal/domain"
)

// CreateScheduleRequest is the JSON payload for a new schedule.
type CreateScheduleRequest struct {
	Handle     string         `json:"handle" binding:"required" example:"alice"`
	Touchpoint map[string]any `json:"touchpoint" binding:"required" swaggertype:"object"`
	// Cron is a standard five-field expression, evaluated in UTC.
	Cron string         `json:"cron" binding:"required" example:"0 9 * * 1-5"`
	Tags map[string]any `json:"tags,omitempty" swaggertype:"object"`
}

// ListSchedulesResponse wraps a schedule listing.
type ListSchedulesResponse struct {
	Schedules []domain.Schedule `json:"schedules"`
}

// CreateSchedule godoc
// @ID          createSchedule
// @Summary     Create a schedule
// @Description Stores a touchpoint input that is turned into a pending run each time the cron expression fires.
// @Tags        Schedules
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false "Replay protection key"
// @Param       body  body  handlers.CreateScheduleRequest  true  "Schedule payload"
// @Success     201  {object}  domain.Schedule
// @Failure     400  {object}  handlers.ErrorResponse "Bad request, invalid touchpoint or cron"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /schedules [post]
func (h *Handlers) CreateSchedule(c *gin.Context) {
	var req CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: handle, touchpoint and cron are required")
		return
	}
	if _, err := h.runs.Validate(req.Handle, req.Touchpoint); err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}

	ctx := c.Request.Context()
	if id, found := h.replayed(c); found {
		if sc, err := h.schedules.Get(ctx, id); err == nil {
			c.Header(headerReplayed, "true")
			ok(c, http.StatusOK, sc)
			return
		}
	}

	sc, err := h.schedules.Create(ctx, req.Handle, req.Touchpoint, req.Cron, req.Tags)
	if err != nil {
		failErr(c, err, ErrCodeCreateFailed)
		return
	}
	h.remember(c, sc.ScheduleID, http.StatusCreated)
	ok(c, http.StatusCreated, sc)
}

// ListSchedules godoc
// @ID          listSchedules
// @Summary     List schedules
// @Tags        Schedules
// @Produce     json
// @Param       handle  query  string  false  "Account handle"
// @Success     200  {object}  handlers.ListSchedulesResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /schedules [get]
func (h *Handlers) ListSchedules(c *gin.Context) {
	items, err := h.schedules.List(c.Request.Context(), c.Query("handle"))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.Schedule{}
	}
	ok(c, http.StatusOK, ListSchedulesResponse{Schedules: items})
}

// GetSchedule godoc
// @ID          getSchedule
// @Summary     Get a schedule
// @Tags        Schedules
// @Produce     json
// @Param       id  path  string  true  "Schedule ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Schedule
// @Failure     404  {object}  handlers.ErrorResponse "Schedule not found"
// @Router      /schedules/{id} [get]
func (h *Handlers) GetSchedule(c *gin.Context) {
	sc, err := h.schedules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, sc)
}

// DeleteSchedule godoc
// @ID          deleteSchedule
// @Summary     Delete a schedule
// @Tags        Schedules
// @Param       id  path  string  true  "Schedule ID (UUID)"  format(uuid)
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse "Schedule not found"
// @Router      /schedules/{id} [delete]
func (h *Handlers) DeleteSchedule(c *gin.Context) {
	if err := h.schedules.Delete(c.Request.Context(), c.Param("id")); err != nil {
		failErr(c, err, ErrCodeUpdateFailed)
		return
	}
	noContent(c)
}

// PauseSchedule godoc
// @ID          pauseSchedule
// @Summary     Pause a schedule
// @Tags        Schedules
// @Param       id  path  string  true  "Schedule ID (UUID)"  format(uuid)
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse "Schedule not found"
// @Router      /schedules/{id}/pause [post]
func (h *Handlers) PauseSchedule(c *gin.Context) {
	if err := h.schedules.Pause(c.Request.Context(), c.Param("id")); err != nil {
		failErr(c, err, ErrCodeUpdateFailed)
		return
	}
	noContent(c)
}

// ResumeSchedule godoc
// @ID          resumeSchedule
// @Summary     Resume a schedule
// @Description Reactivates a schedule; a next run time in the past is recomputed from now.
// @Tags        Schedules
// @Param       id  path  string  true  "Schedule ID (UUID)"  format(uuid)
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse "Schedule not found"
// @Router      /schedules/{id}/resume [post]
func (h *Handlers) ResumeSchedule(c *gin.Context) {
	if err := h.schedules.Resume(c.Request.Context(), c.Param("id")); err != nil {
		failErr(c, err, ErrCodeUpdateFailed)
		return
	}
	noContent(c)
}

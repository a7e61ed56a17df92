package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-outreach-backend/internal/http/middleware"
	"github.com/tbourn/go-outreach-backend/internal/services"
	"github.com/tbourn/go-outreach-backend/internal/touchpoint"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID; quote it when reporting a failed run.
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go).
	Code    string `json:"code" example:"not_found"`
	Message string `json:"message" example:"run not found"`
}

// clientErrors maps service and touchpoint errors to their 4xx answer. Not
// found errors answer with the bare sentinel text, the others with the full
// error so validation detail reaches the caller.
var clientErrors = []struct {
	err    error
	status int
	code   string
}{
	{services.ErrRunNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrScheduleNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrAccountNotFound, http.StatusNotFound, ErrCodeNotFound},
	{touchpoint.ErrValidation, http.StatusBadRequest, ErrCodeValidation},
	{services.ErrInvalidCron, http.StatusBadRequest, ErrCodeInvalidCron},
	{services.ErrInvalidHandle, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrMissingCredentials, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidLimits, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidStatus, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidState, http.StatusBadRequest, ErrCodeBadRequest},
}

// failErr answers err with its mapped 4xx, or with 500 and serverCode.
func failErr(c *gin.Context, err error, serverCode string) {
	for _, ce := range clientErrors {
		if !errors.Is(err, ce.err) {
			continue
		}
		msg := err.Error()
		if ce.status == http.StatusNotFound {
			msg = ce.err.Error()
		}
		fail(c, ce.status, ce.code, msg)
		return
	}
	fail(c, http.StatusInternalServerError, serverCode, err.Error())
}

// fail aborts with the error envelope. 5xx answers are logged with the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		l := middleware.LoggerFrom(c)
		l.Error().Int("status", status).Str("code", code).Str("error", msg).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail lets the router answer fallbacks with the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) { c.JSON(status, body) }

func noContent(c *gin.Context) { c.Status(http.StatusNoContent) }

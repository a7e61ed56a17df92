package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-outreach-backend/internal/services"
	"github.com/tbourn/go-outreach-backend/internal/touchpoint"
)

// serveErr answers one request with failErr(err, serverCode) and returns the
// recorder plus everything logged through the request logger.
func serveErr(t *testing.T, err error, serverCode string) (*httptest.ResponseRecorder, ErrorResponse, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-1")
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/x", func(c *gin.Context) { failErr(c, err, serverCode) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return w, resp, buf.String()
}

func TestFailErr_ClientErrors(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		code    string
		message string
	}{
		{fmt.Errorf("get run r-1: %w", services.ErrRunNotFound), 404, ErrCodeNotFound, "run not found"},
		{services.ErrScheduleNotFound, 404, ErrCodeNotFound, "schedule not found"},
		{fmt.Errorf("resume: %w", services.ErrAccountNotFound), 404, ErrCodeNotFound, "account not found"},
		{fmt.Errorf("%w: Invalid touchpoint type: teleport", touchpoint.ErrValidation), 400, ErrCodeValidation, "Invalid touchpoint type: teleport"},
		{fmt.Errorf("%w: \"* * *\"", services.ErrInvalidCron), 400, ErrCodeInvalidCron, "invalid cron expression"},
		{services.ErrInvalidHandle, 400, ErrCodeBadRequest, "invalid account handle"},
		{services.ErrMissingCredentials, 400, ErrCodeBadRequest, "username and password are required"},
		{services.ErrInvalidLimits, 400, ErrCodeBadRequest, "daily limits must be >= 0"},
		{services.ErrInvalidState, 400, ErrCodeBadRequest, "invalid profile state"},
	}
	for _, tc := range cases {
		t.Run(tc.code+"/"+tc.message, func(t *testing.T) {
			w, resp, logs := serveErr(t, tc.err, ErrCodeInternal)
			if w.Code != tc.status || resp.Code != tc.code || resp.RequestID != "rid-1" {
				t.Fatalf("got %d %+v", w.Code, resp)
			}
			if !strings.Contains(resp.Message, tc.message) {
				t.Fatalf("message %q lacks %q", resp.Message, tc.message)
			}
			if logs != "" {
				t.Fatalf("4xx must not be logged: %s", logs)
			}
		})
	}
}

func TestFailErr_NotFoundHidesWrapping(t *testing.T) {
	_, resp, _ := serveErr(t, fmt.Errorf("lookup in /var/lib/outreach/server.db: %w", services.ErrRunNotFound), ErrCodeInternal)
	if resp.Message != "run not found" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestFailErr_ServerError(t *testing.T) {
	w, resp, logs := serveErr(t, errors.New("database is locked"), ErrCodeCreateFailed)
	if w.Code != http.StatusInternalServerError || resp.Code != ErrCodeCreateFailed || resp.Message != "database is locked" {
		t.Fatalf("got %d %+v", w.Code, resp)
	}
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, `"code":"create_failed"`) || !strings.Contains(logs, `"status":500`) {
		t.Fatalf("expected 5xx log, got: %s", logs)
	}
}

func TestFail_AbortsChain(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		Fail(c, http.StatusConflict, ErrCodeConflict, "schedule already exists")
	}, func(c *gin.Context) {
		t.Fatalf("handler after Fail must not run")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), `"code":"conflict"`) {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	// no request id header -> field omitted
	if strings.Contains(w.Body.String(), "request_id") {
		t.Fatalf("empty request_id should be omitted: %s", w.Body.String())
	}
}

func TestOkAndNoContent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) { ok(c, http.StatusCreated, gin.H{"run_id": "r-1", "status": "pending"}) })
	r.GET("/none", noContent)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusCreated || !strings.Contains(w.Body.String(), `"status":"pending"`) {
		t.Fatalf("ok: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/none", nil))
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("noContent: %d %q", w.Code, w.Body.String())
	}
}

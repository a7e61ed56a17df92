// Account HTTP handlers.
//
//   - POST   /accounts                     (create or update)
//   - GET    /accounts                     (list, optional ?active=true)
//   - GET    /accounts/{handle}
//   - DELETE /accounts/{handle}
//   - POST   /accounts/{handle}/resume     (clear a circuit-breaker pause)
//   - GET    /accounts/{handle}/profiles   (funnel, paginated)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-outreach-backend/internal/domain"
	"github.com/tbourn/go-outreach-backend/internal/services"
	"github.com/tbourn/go-outreach-backend/internal/utils"
)

// UpsertAccountRequest is the JSON payload for saving an account.
// Omitted optional fields keep their current value (or the default on
// create).
type UpsertAccountRequest struct {
	Handle           string  `json:"handle" binding:"required" example:"alice"`
	Username         string  `json:"username" binding:"required" example:"alice@example.com"`
	Password         string  `json:"password" binding:"required"`
	Active           *bool   `json:"active,omitempty"`
	Proxy            *string `json:"proxy,omitempty" example:"http://proxy.local:8080"`
	BookingLink      *string `json:"booking_link,omitempty"`
	DailyConnections *int    `json:"daily_connections,omitempty" example:"50"`
	DailyMessages    *int    `json:"daily_messages,omitempty" example:"20"`
}

// ListAccountsResponse wraps an account listing. Passwords are never
// serialized.
type ListAccountsResponse struct {
	Accounts []domain.Account `json:"accounts"`
}

// ListProfilesResponse wraps a page of funnel profiles.
type ListProfilesResponse struct {
	Profiles   []domain.Profile `json:"profiles"`
	Pagination Pagination       `json:"pagination"`
}

// UpsertAccount godoc
// @ID          upsertAccount
// @Summary     Create or update an account
// @Tags        Accounts
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.UpsertAccountRequest  true  "Account payload"
// @Success     201  {object}  domain.Account
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /accounts [post]
func (h *Handlers) UpsertAccount(c *gin.Context) {
	var req UpsertAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: handle, username and password are required")
		return
	}
	acc, err := h.accounts.Upsert(c.Request.Context(), services.AccountInput{
		Handle:           req.Handle,
		Username:         req.Username,
		Password:         req.Password,
		Active:           req.Active,
		Proxy:            req.Proxy,
		BookingLink:      req.BookingLink,
		DailyConnections: req.DailyConnections,
		DailyMessages:    req.DailyMessages,
	})
	if err != nil {
		failErr(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusCreated, acc)
}

// ListAccounts godoc
// @ID          listAccounts
// @Summary     List accounts
// @Tags        Accounts
// @Produce     json
// @Param       active  query  bool  false  "Only active accounts"
// @Success     200  {object}  handlers.ListAccountsResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /accounts [get]
func (h *Handlers) ListAccounts(c *gin.Context) {
	items, err := h.accounts.List(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.Account{}
	}
	ok(c, http.StatusOK, ListAccountsResponse{Accounts: items})
}

// GetAccount godoc
// @ID          getAccount
// @Summary     Get an account
// @Tags        Accounts
// @Produce     json
// @Param       handle  path  string  true  "Account handle"
// @Success     200  {object}  domain.Account
// @Failure     404  {object}  handlers.ErrorResponse "Account not found"
// @Router      /accounts/{handle} [get]
func (h *Handlers) GetAccount(c *gin.Context) {
	acc, err := h.accounts.Get(c.Request.Context(), c.Param("handle"))
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, acc)
}

// DeleteAccount godoc
// @ID          deleteAccount
// @Summary     Delete an account
// @Tags        Accounts
// @Param       handle  path  string  true  "Account handle"
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse "Account not found"
// @Router      /accounts/{handle} [delete]
func (h *Handlers) DeleteAccount(c *gin.Context) {
	if err := h.accounts.Delete(c.Request.Context(), c.Param("handle")); err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// ResumeAccount godoc
// @ID          resumeAccount
// @Summary     Resume a paused account
// @Description Clears the circuit-breaker pause and the consecutive failure count.
// @Tags        Accounts
// @Param       handle  path  string  true  "Account handle"
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse "Account not found"
// @Router      /accounts/{handle}/resume [post]
func (h *Handlers) ResumeAccount(c *gin.Context) {
	if err := h.accounts.Resume(c.Request.Context(), c.Param("handle")); err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// ListProfiles godoc
// @ID          listProfiles
// @Summary     List funnel profiles of an account
// @Tags        Accounts
// @Produce     json
// @Param       handle     path   string  true   "Account handle"
// @Param       state      query  string  false  "Funnel state"  Enums(discovered, enriched, pending, connected, completed, failed)
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(500) default(50)
// @Success     200  {object}  handlers.ListProfilesResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Account not found"
// @Router      /accounts/{handle}/profiles [get]
func (h *Handlers) ListProfiles(c *gin.Context) {
	page, size, _ := utils.PageWindow(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), services.DefaultProfilePageSize),
		services.DefaultProfilePageSize, services.MaxProfilePageSize,
	)
	state := domain.ProfileState(c.Query("state"))

	items, total, err := h.accounts.Profiles(c.Request.Context(), c.Param("handle"), state, page, size)
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, ListProfilesResponse{Profiles: items, Pagination: newPagination(page, size, total)})
}

package handlers

// Error codes of the API envelope. The generic ones mirror the HTTP status;
// the rest name what failed.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	ErrCodeValidation       = "validation_failed" // touchpoint input rejected
	ErrCodeInvalidCron      = "invalid_cron"
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeUpdateFailed     = "update_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

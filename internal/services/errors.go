// Package services holds the application logic: the run execution
// pipeline, the pending-run poller, the cron scheduler, account
// administration and the connect-follow-up campaign.
//
// Service-level errors are declared here so handlers can map them to HTTP
// results consistently.
package services

import "errors"

var (
	// ErrRunNotFound indicates that no run has the requested ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrScheduleNotFound indicates that no schedule has the requested ID.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrAccountNotFound indicates that no account has the requested handle.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidHandle is returned for handles that cannot name an account
	// (they are also used as database file names).
	ErrInvalidHandle = errors.New("invalid account handle")

	// ErrMissingCredentials is returned when an account is saved without
	// username or password.
	ErrMissingCredentials = errors.New("username and password are required")

	// ErrInvalidLimits is returned for negative daily limits.
	ErrInvalidLimits = errors.New("daily limits must be >= 0")

	// ErrInvalidCron is returned for expressions that are not standard
	// five-field cron.
	ErrInvalidCron = errors.New("invalid cron expression")

	// ErrInvalidStatus is returned when filtering runs by an unknown status.
	ErrInvalidStatus = errors.New("invalid run status")

	// ErrInvalidState is returned when filtering profiles by an unknown state.
	ErrInvalidState = errors.New("invalid profile state")
)

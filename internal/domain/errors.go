package domain

import "errors"

// Scheduler errors
var (
	// ErrNoRemoteDocument indicates a watch/sync was requested for a group
	// that has no gist yet
	ErrNoRemoteDocument = errors.New("group has no remote gist")

	// ErrAlreadyWatching indicates the group is already being watched
	ErrAlreadyWatching = errors.New("group is already being watched")

	// ErrSchedulerDisposed indicates the scheduler has shut down and
	// accepts no further starts
	ErrSchedulerDisposed = errors.New("scheduler is disposed")
)

// Remote store errors
var (
	// ErrRemoteNotFound indicates the gist does not exist
	ErrRemoteNotFound = errors.New("gist not found")

	// ErrUnauthorized indicates the token was rejected
	ErrUnauthorized = errors.New("authentication failed")

	// ErrRateLimited indicates the API rate limit was exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Config errors
var (
	// ErrInvalidGroup indicates a malformed group definition
	ErrInvalidGroup = errors.New("invalid group")

	// ErrGroupExists indicates a group with the same name already exists
	ErrGroupExists = errors.New("group already exists")

	// ErrGroupNotFound indicates the named group is not configured
	ErrGroupNotFound = errors.New("group not found")

	// ErrNoToken indicates no API token is configured
	ErrNoToken = errors.New("no API token configured")
)

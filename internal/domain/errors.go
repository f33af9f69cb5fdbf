package domain

import "errors"

// Domain errors.
var (
	// ErrWorkspaceInit is returned when the workspace base directory cannot be created.
	ErrWorkspaceInit = errors.New("workspace initialization failed")

	// ErrToolUnavailable is returned when the remux executable cannot be resolved.
	ErrToolUnavailable = errors.New("remux tool unavailable")

	// ErrEmptyURL is returned when a request carries no source URL.
	ErrEmptyURL = errors.New("source URL is empty")

	// ErrJobNotFound is returned when a job cannot be found.
	ErrJobNotFound = errors.New("job not found")

	// ErrNoJobs is returned when there are no jobs to process.
	ErrNoJobs = errors.New("no jobs available")
)

package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when a record is absent.
	ErrNotFound = errors.New("not found")
	// ErrInvalidVote rejects votes outside -1..1.
	ErrInvalidVote = errors.New("vote must be -1, 0 or 1")
	// ErrUserPaused is returned when a digest is requested for a paused user.
	ErrUserPaused = errors.New("user is paused")
	// ErrLimitTooLarge rejects ranking requests above the configured maximum.
	ErrLimitTooLarge = errors.New("limit exceeds maximum")
)

package feed

import "errors"

var (
	// ErrUnauthorized means no authenticated viewer was supplied.
	ErrUnauthorized = errors.New("feed: unauthorized")
	// ErrViewerNotFound means the viewer id has no user row (orphaned identity).
	ErrViewerNotFound = errors.New("feed: viewer not found")
	// ErrScopeDisabled marks a scope that parses but is not served yet.
	ErrScopeDisabled = errors.New("feed: scope disabled")
	// ErrInvalidScope means the scope string is not one of the known tiers.
	ErrInvalidScope = errors.New("feed: invalid scope")
	// ErrUserNotFound means a follow target does not exist.
	ErrUserNotFound = errors.New("feed: user not found")
	// ErrAlreadyFollowing means the directed edge already exists.
	ErrAlreadyFollowing = errors.New("feed: already following")
	// ErrSelfFollow rejects a user following themselves.
	ErrSelfFollow = errors.New("feed: cannot follow yourself")
	// ErrUpstream wraps identity-provider failures so callers can retry
	// them independently of validation errors.
	ErrUpstream = errors.New("feed: upstream provider failure")
)

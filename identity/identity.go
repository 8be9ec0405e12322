// Package identity adapts the user directory behind a narrow provider
// interface so feed enrichment and mention resolution never touch the user
// table directly. The production implementation is database backed; tests
// substitute fakes to exercise missing-profile paths.
package identity

import (
	"context"
	"errors"
)

// ErrProfileNotFound is returned when no profile exists for a lookup key.
var ErrProfileNotFound = errors.New("identity: profile not found")

// Profile is the public identity surface of a user: what other users see
// next to a post or a mention.
type Profile struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
	Verified  bool   `json:"verified"`
	ProgramID *uint  `json:"program_id"`
}

// MetadataPatch carries partial profile updates. Nil fields are untouched.
type MetadataPatch struct {
	Bio       *string
	AvatarURL *string
	ProgramID *uint
}

// Provider supplies profile data for enrichment and mention lookup.
type Provider interface {
	// GetUsersByIDs batch-resolves profiles. Missing ids are simply absent
	// from the result; callers decide how to treat the gap.
	GetUsersByIDs(ctx context.Context, ids []uint) ([]Profile, error)
	// GetUserByUsername returns the profile for an exact username.
	GetUserByUsername(ctx context.Context, username string) (*Profile, error)
	// SearchUsers returns profiles whose username contains the query.
	SearchUsers(ctx context.Context, query string, limit int) ([]Profile, error)
	// UpdateMetadata applies a partial profile update.
	UpdateMetadata(ctx context.Context, userID uint, patch MetadataPatch) error
}

package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kabsume/campusfeed/identity"
)

// stubProvider serves a fixed id -> username table.
type stubProvider struct {
	users map[uint]string
}

func (s *stubProvider) GetUsersByIDs(ctx context.Context, ids []uint) ([]identity.Profile, error) {
	var out []identity.Profile
	for _, id := range ids {
		if name, ok := s.users[id]; ok {
			out = append(out, identity.Profile{ID: id, Username: name})
		}
	}
	return out, nil
}

func (s *stubProvider) GetUserByUsername(ctx context.Context, username string) (*identity.Profile, error) {
	for id, name := range s.users {
		if name == username {
			return &identity.Profile{ID: id, Username: name}, nil
		}
	}
	return nil, identity.ErrProfileNotFound
}

func (s *stubProvider) SearchUsers(ctx context.Context, name string, limit int) ([]identity.Profile, error) {
	return nil, nil
}

func (s *stubProvider) UpdateMetadata(ctx context.Context, userID uint, patch identity.MetadataPatch) error {
	return identity.ErrProfileNotFound
}

func TestMentionIDs(t *testing.T) {
	assert.Empty(t, MentionIDs("no mentions here"))
	assert.Equal(t, []uint{7}, MentionIDs("hi @7!"))
	assert.ElementsMatch(t, []uint{3, 12}, MentionIDs("@3 meet @12, and @3 again"))
	// @ followed by a name is not an id token
	assert.Empty(t, MentionIDs("email me @alice"))
}

func TestRenderReplacesKnownMentions(t *testing.T) {
	m := NewMentions(&stubProvider{users: map[uint]string{7: "alice", 12: "bob"}})

	out, err := m.Render(context.Background(), "ask @7 or @12 about it")
	require.NoError(t, err)
	assert.Equal(t, "ask @alice or @bob about it", out)
}

func TestRenderKeepsUnknownMentionsVerbatim(t *testing.T) {
	m := NewMentions(&stubProvider{users: map[uint]string{7: "alice"}})

	out, err := m.Render(context.Background(), "cc @7 and @404")
	require.NoError(t, err)
	assert.Equal(t, "cc @alice and @404", out)
}

func TestRenderWithoutMentionsSkipsLookup(t *testing.T) {
	// a provider that would fail on any lookup
	m := NewMentions(&stubProvider{})

	out, err := m.Render(context.Background(), "plain text")
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)
}

func TestRenderAllSharesOneLookup(t *testing.T) {
	m := NewMentions(&stubProvider{users: map[uint]string{1: "alice", 2: "bob"}})

	out, err := m.RenderAll(context.Background(), []string{
		"hello @1",
		"hello @2 and @1",
		"nobody",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"hello @alice",
		"hello @bob and @alice",
		"nobody",
	}, out)
}

package feed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kabsume/campusfeed/models"
)

func TestFollowRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.resolver.Follow(ctx, f.alice.ID, f.bob.ID))

	following, err := f.resolver.Following(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.bob.ID}, following)

	followers, err := f.resolver.Followers(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.alice.ID}, followers)

	// edge is directed: bob does not follow alice back
	reverse, err := f.resolver.Following(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Empty(t, reverse)

	require.NoError(t, f.resolver.Unfollow(ctx, f.alice.ID, f.bob.ID))
	following, err = f.resolver.Following(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Empty(t, following)
}

func TestFollowSelfRejected(t *testing.T) {
	f := newFixture(t)

	err := f.resolver.Follow(context.Background(), f.alice.ID, f.alice.ID)
	assert.ErrorIs(t, err, ErrSelfFollow)
}

func TestFollowUnknownTarget(t *testing.T) {
	f := newFixture(t)

	err := f.resolver.Follow(context.Background(), f.alice.ID, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFollowDuplicateEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.resolver.Follow(ctx, f.alice.ID, f.bob.ID))
	err := f.resolver.Follow(ctx, f.alice.ID, f.bob.ID)
	assert.ErrorIs(t, err, ErrAlreadyFollowing)

	var count int64
	require.NoError(t, f.db.Model(&models.Follow{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUnfollowAbsentEdgeIsNoOp(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.resolver.Unfollow(context.Background(), f.alice.ID, f.bob.ID))
	assert.NoError(t, f.resolver.Unfollow(context.Background(), f.alice.ID, f.bob.ID))
}

package identity

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kabsume/campusfeed/models"
)

func newTestDirectory(t *testing.T) (*Directory, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return NewDirectory(db), db
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	u := models.User{Username: username, Bio: "bio of " + username}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func TestGetUsersByIDs(t *testing.T) {
	dir, db := newTestDirectory(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	profiles, err := dir.GetUsersByIDs(context.Background(), []uint{alice.ID, bob.ID, 9999})
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	names := []string{profiles[0].Username, profiles[1].Username}
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)

	// empty input short-circuits without a query
	profiles, err = dir.GetUsersByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestGetUserByUsername(t *testing.T) {
	dir, db := newTestDirectory(t)
	alice := seedUser(t, db, "alice")

	p, err := dir.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, p.ID)
	assert.Equal(t, "bio of alice", p.Bio)

	_, err = dir.GetUserByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestSearchUsersRanksShorterNamesFirst(t *testing.T) {
	dir, db := newTestDirectory(t)
	seedUser(t, db, "ann")
	seedUser(t, db, "annabelle")
	seedUser(t, db, "joanna")
	seedUser(t, db, "bob")

	profiles, err := dir.SearchUsers(context.Background(), "ann", 10)
	require.NoError(t, err)
	require.Len(t, profiles, 3)
	assert.Equal(t, "ann", profiles[0].Username)

	profiles, err = dir.SearchUsers(context.Background(), "ann", 2)
	require.NoError(t, err)
	assert.Len(t, profiles, 2)

	profiles, err = dir.SearchUsers(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestUpdateMetadataPartialPatch(t *testing.T) {
	dir, db := newTestDirectory(t)
	alice := seedUser(t, db, "alice")

	bio := "new bio"
	err := dir.UpdateMetadata(context.Background(), alice.ID, MetadataPatch{Bio: &bio})
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, db.First(&stored, alice.ID).Error)
	assert.Equal(t, "new bio", stored.Bio)
	// untouched fields keep their values
	assert.Equal(t, "alice", stored.Username)
	assert.Empty(t, stored.AvatarURL)

	programID := uint(3)
	require.NoError(t, dir.UpdateMetadata(context.Background(), alice.ID, MetadataPatch{ProgramID: &programID}))
	require.NoError(t, db.First(&stored, alice.ID).Error)
	require.NotNil(t, stored.ProgramID)
	assert.Equal(t, programID, *stored.ProgramID)
	assert.Equal(t, "new bio", stored.Bio)
}

func TestUpdateMetadataUnknownUser(t *testing.T) {
	dir, _ := newTestDirectory(t)

	bio := "ghost"
	err := dir.UpdateMetadata(context.Background(), 9999, MetadataPatch{Bio: &bio})
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestUpdateMetadataEmptyPatchIsNoOp(t *testing.T) {
	dir, _ := newTestDirectory(t)

	assert.NoError(t, dir.UpdateMetadata(context.Background(), 9999, MetadataPatch{}))
}

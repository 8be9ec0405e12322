package utils

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kabsume/campusfeed/models"
)

func newCleanupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PostImage{}))
	return db
}

func TestCleanStaleImages(t *testing.T) {
	db := newCleanupDB(t)
	now := time.Now()
	old := now.Add(-2 * time.Hour)

	stale := models.PostImage{PostID: 1, StoragePath: "posts/a/stale.jpg", CreatedAt: old}
	fresh := models.PostImage{PostID: 1, StoragePath: "posts/a/fresh.jpg", CreatedAt: now}
	done := models.PostImage{PostID: 1, StoragePath: "posts/a/done.jpg", CreatedAt: old, UploadedAt: &now}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&fresh).Error)
	require.NoError(t, db.Create(&done).Error)

	removed, err := CleanStaleImages(db, time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	// only the stale, never-uploaded row is gone
	var paths []string
	require.NoError(t, db.Model(&models.PostImage{}).Order("id").Pluck("storage_path", &paths).Error)
	assert.Equal(t, []string{"posts/a/fresh.jpg", "posts/a/done.jpg"}, paths)

	// a second sweep finds nothing
	removed, err = CleanStaleImages(db, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

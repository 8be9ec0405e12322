package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kabsume/campusfeed/config"
	"github.com/kabsume/campusfeed/feed"
	"github.com/kabsume/campusfeed/identity"
	"github.com/kabsume/campusfeed/middleware"
	"github.com/kabsume/campusfeed/models"
	"github.com/kabsume/campusfeed/pipeline"
)

func newUserEnv(t *testing.T) (*UserController, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.SetForTesting(config.AppConfig{
		JWTSecret:     "test-secret",
		StorageSecret: "test-secret",
		RedisHost:     "127.0.0.1",
		RedisPort:     6379,
	})

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Campus{},
		&models.College{},
		&models.Program{},
		&models.Post{},
		&models.PostImage{},
		&models.Follow{},
	))

	dir := identity.NewDirectory(db)
	resolver := feed.NewResolver(db, dir)
	return NewUserController(db, resolver, dir, pipeline.NewMentions(dir)), db
}

func newHandlerCtx(method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(method, target, nil)
	return ctx, w
}

type profileResponse struct {
	Code int `json:"code"`
	Data struct {
		FollowerCount  int64 `json:"follower_count"`
		FollowingCount int64 `json:"following_count"`
		PostCount      int64 `json:"post_count"`
	} `json:"data"`
}

func fetchProfile(t *testing.T, uc *UserController, username string) profileResponse {
	t.Helper()
	ctx, w := newHandlerCtx(http.MethodGet, "/api/v1/user/by-username/"+username)
	ctx.Params = gin.Params{{Key: "username", Value: username}}
	uc.GetUserByUsername(ctx)
	require.Equal(t, http.StatusOK, w.Code)

	var resp profileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestFollowMutationsRefreshProfileCounts(t *testing.T) {
	uc, db := newUserEnv(t)

	alice := models.User{Username: "alice"}
	bob := models.User{Username: "bob"}
	require.NoError(t, db.Create(&alice).Error)
	require.NoError(t, db.Create(&bob).Error)

	resp := fetchProfile(t, uc, "bob")
	assert.Zero(t, resp.Data.FollowerCount)

	ctx, w := newHandlerCtx(http.MethodPost, fmt.Sprintf("/api/v1/users/%d/follow", bob.ID))
	ctx.Params = gin.Params{{Key: "id", Value: fmt.Sprint(bob.ID)}}
	ctx.Set(middleware.ContextUserIDKey, alice.ID)
	uc.FollowUser(ctx)
	require.Equal(t, http.StatusOK, w.Code)

	// the edge shows up in both directions' counts right away
	resp = fetchProfile(t, uc, "bob")
	assert.EqualValues(t, 1, resp.Data.FollowerCount)
	resp = fetchProfile(t, uc, "alice")
	assert.EqualValues(t, 1, resp.Data.FollowingCount)

	ctx, w = newHandlerCtx(http.MethodDelete, fmt.Sprintf("/api/v1/users/%d/follow", bob.ID))
	ctx.Params = gin.Params{{Key: "id", Value: fmt.Sprint(bob.ID)}}
	ctx.Set(middleware.ContextUserIDKey, alice.ID)
	uc.UnfollowUser(ctx)
	require.Equal(t, http.StatusOK, w.Code)

	resp = fetchProfile(t, uc, "bob")
	assert.Zero(t, resp.Data.FollowerCount)
}

func TestProfileCountsTrackPosts(t *testing.T) {
	uc, db := newUserEnv(t)

	carol := models.User{Username: "carol"}
	require.NoError(t, db.Create(&carol).Error)
	require.NoError(t, db.Create(&models.Post{UserID: carol.ID, Content: "hello", Type: models.ScopeFollowing}).Error)

	resp := fetchProfile(t, uc, "carol")
	assert.EqualValues(t, 1, resp.Data.PostCount)
}

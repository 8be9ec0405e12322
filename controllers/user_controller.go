package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kabsume/campusfeed/feed"
	"github.com/kabsume/campusfeed/identity"
	"github.com/kabsume/campusfeed/models"
	"github.com/kabsume/campusfeed/pipeline"
	"github.com/kabsume/campusfeed/utils"
)

// UserController handles the social graph and user lookup endpoints.
type UserController struct {
	db       *gorm.DB
	resolver *feed.Resolver
	ids      identity.Provider
	mentions *pipeline.Mentions
}

// NewUserController creates a UserController.
func NewUserController(db *gorm.DB, resolver *feed.Resolver, ids identity.Provider, mentions *pipeline.Mentions) *UserController {
	return &UserController{db: db, resolver: resolver, ids: ids, mentions: mentions}
}

// SearchUsers returns profiles whose username contains the query (public).
func (u *UserController) SearchUsers(ctx *gin.Context) {
	query := strings.TrimSpace(ctx.Query("q"))
	if query == "" {
		utils.Success(ctx, gin.H{"items": []identity.Profile{}})
		return
	}

	profiles, err := u.ids.SearchUsers(ctx.Request.Context(), query, 10)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to search users")
		return
	}
	utils.Success(ctx, gin.H{"items": profiles})
}

// MentionCandidates returns users matching the partial name typed after "@".
func (u *UserController) MentionCandidates(ctx *gin.Context) {
	if _, ok := getUserID(ctx); !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	candidates, err := u.mentions.Candidates(ctx.Request.Context(), ctx.Query("name"), 8)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load mention candidates")
		return
	}
	utils.Success(ctx, gin.H{"items": candidates})
}

// FollowUser creates a follow edge from the caller to the target.
func (u *UserController) FollowUser(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	targetID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "invalid user id")
		return
	}

	if err := u.resolver.Follow(ctx.Request.Context(), userID, uint(targetID)); err != nil {
		switch {
		case errors.Is(err, feed.ErrSelfFollow):
			utils.Error(ctx, http.StatusBadRequest, 40043, "cannot follow yourself")
		case errors.Is(err, feed.ErrUserNotFound):
			utils.Error(ctx, http.StatusNotFound, 40411, "user not found")
		case errors.Is(err, feed.ErrAlreadyFollowing):
			utils.Error(ctx, http.StatusConflict, 40920, "already following this user")
		default:
			utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to follow user")
		}
		return
	}

	// The follower's following-scope feed changed shape, and both sides'
	// cached profile counts are stale
	utils.InvalidateByPrefix("cache:feed:following:user=" + strconv.Itoa(int(userID)))
	utils.InvalidateByPrefix("cache:user:public:")
	utils.Success(ctx, gin.H{"message": "followed"})
}

// UnfollowUser removes the follow edge; removing an absent edge succeeds.
func (u *UserController) UnfollowUser(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	targetID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40044, "invalid user id")
		return
	}

	if err := u.resolver.Unfollow(ctx.Request.Context(), userID, uint(targetID)); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to unfollow user")
		return
	}

	utils.InvalidateByPrefix("cache:feed:following:user=" + strconv.Itoa(int(userID)))
	utils.InvalidateByPrefix("cache:user:public:")
	utils.Success(ctx, gin.H{"message": "unfollowed"})
}

// ListFollowers returns profiles of users following the given user (public).
func (u *UserController) ListFollowers(ctx *gin.Context) {
	u.listEdgeProfiles(ctx, u.resolver.Followers)
}

// ListFollowing returns profiles the given user follows (public).
func (u *UserController) ListFollowing(ctx *gin.Context) {
	u.listEdgeProfiles(ctx, u.resolver.Following)
}

func (u *UserController) listEdgeProfiles(ctx *gin.Context, edges func(c context.Context, id uint) ([]uint, error)) {
	targetID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40045, "invalid user id")
		return
	}

	ids, err := edges(ctx.Request.Context(), uint(targetID))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to load follow edges")
		return
	}

	profiles := []identity.Profile{}
	if len(ids) > 0 {
		profiles, err = u.ids.GetUsersByIDs(ctx.Request.Context(), ids)
		if err != nil {
			utils.Error(ctx, http.StatusBadGateway, 50221, "identity provider unavailable")
			return
		}
	}
	utils.Success(ctx, gin.H{"items": profiles, "count": len(profiles)})
}

// GetUserByUsername returns a public profile with follow counts.
func (u *UserController) GetUserByUsername(ctx *gin.Context) {
	uname := strings.TrimSpace(ctx.Param("username"))
	if uname == "" {
		utils.Error(ctx, http.StatusBadRequest, 40051, "missing username")
		return
	}

	if b, ok := utils.CacheGetBytes("cache:user:public:uname:" + uname); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	profile, err := u.ids.GetUserByUsername(ctx.Request.Context(), uname)
	if err != nil {
		if errors.Is(err, identity.ErrProfileNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40411, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to get user")
		return
	}

	var followerCount, followingCount, postCount int64
	_ = u.db.Model(&models.Follow{}).Where("followee_id = ?", profile.ID).Count(&followerCount).Error
	_ = u.db.Model(&models.Follow{}).Where("follower_id = ?", profile.ID).Count(&followingCount).Error
	_ = u.db.Model(&models.Post{}).Where("user_id = ?", profile.ID).Count(&postCount).Error

	payload := gin.H{
		"user":            profile,
		"follower_count":  followerCount,
		"following_count": followingCount,
		"post_count":      postCount,
	}
	utils.CacheSetJSON("cache:user:public:uname:"+uname, utils.WrapPayload(payload), time.Hour)
	utils.Success(ctx, payload)
}

// UpdateProgram attaches the caller to a program during onboarding.
func (u *UserController) UpdateProgram(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		ProgramID uint `json:"program_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40046, "invalid request payload")
		return
	}

	var program models.Program
	if err := u.db.First(&program, req.ProgramID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40413, "program not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to load program")
		return
	}

	if err := u.ids.UpdateMetadata(ctx.Request.Context(), userID, identity.MetadataPatch{ProgramID: &program.ID}); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50046, "failed to update program")
		return
	}

	// Program and college scoped feeds for this user changed shape, and the
	// cached public profile still carries the old program
	utils.InvalidateByPrefix("cache:feed:program:user=" + strconv.Itoa(int(userID)))
	utils.InvalidateByPrefix("cache:feed:college:user=" + strconv.Itoa(int(userID)))
	utils.InvalidateByPrefix("cache:user:public:")
	utils.Success(ctx, gin.H{"message": "program updated", "program": program})
}

// ListPrograms returns the full campus/college/program hierarchy for the
// onboarding picker (public).
func (u *UserController) ListPrograms(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes("cache:programs:all"); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var campuses []models.Campus
	var colleges []models.College
	var programs []models.Program
	if err := u.db.Find(&campuses).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50047, "failed to load campuses")
		return
	}
	if err := u.db.Find(&colleges).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50047, "failed to load colleges")
		return
	}
	if err := u.db.Find(&programs).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50047, "failed to load programs")
		return
	}

	payload := gin.H{"campuses": campuses, "colleges": colleges, "programs": programs}
	utils.CacheSetJSON("cache:programs:all", utils.WrapPayload(payload), time.Hour)
	utils.Success(ctx, payload)
}

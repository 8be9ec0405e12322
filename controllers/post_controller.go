package controllers

import (
	"errors"
	"fmt"
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
	"github.com/kabsume/campusfeed/storage"
	"github.com/kabsume/campusfeed/utils"
)

const feedCacheTTL = 5 * time.Minute

// PostController wires the feed resolver and submission pipeline to HTTP.
type PostController struct {
	db       *gorm.DB
	resolver *feed.Resolver
	pipe     *pipeline.Pipeline
	mentions *pipeline.Mentions
	signer   *storage.Signer
	store    *storage.DiskStore
	ids      identity.Provider
}

// NewPostController creates a PostController.
func NewPostController(db *gorm.DB, resolver *feed.Resolver, pipe *pipeline.Pipeline, mentions *pipeline.Mentions, signer *storage.Signer, store *storage.DiskStore, ids identity.Provider) *PostController {
	return &PostController{
		db:       db,
		resolver: resolver,
		pipe:     pipe,
		mentions: mentions,
		signer:   signer,
		store:    store,
		ids:      ids,
	}
}

// feedItem is a resolved post with mention tokens rendered for display.
type feedItem struct {
	feed.Post
	RenderedContent string `json:"rendered_content"`
}

// CreatePost validates and persists a post, returning one signed upload
// descriptor per declared image. The client uploads image bytes directly
// against the descriptors; a failed upload never unwinds the post.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		Content string   `json:"content" binding:"required"`
		Type    string   `json:"type"`
		Images  []string `json:"images"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	result, err := p.pipe.Submit(ctx.Request.Context(), pipeline.SubmitInput{
		ViewerID: userID,
		Scope:    feed.Scope(req.Type),
		Content:  req.Content,
		Images:   req.Images,
	})
	if err != nil {
		var ve *pipeline.ValidationError
		switch {
		case errors.As(err, &ve):
			utils.FieldError(ctx, 40021, ve.Field, ve.Message)
		case errors.Is(err, feed.ErrUnauthorized):
			utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		default:
			utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create post")
		}
		return
	}

	utils.InvalidateByPrefix("cache:feed:")
	utils.InvalidateByPrefix("cache:user:" + strconv.Itoa(int(userID)) + ":posts:")
	// Public profile carries a post count
	utils.InvalidateByPrefix("cache:user:public:")

	utils.Success(ctx, result)
}

// GetFeed returns one page of the viewer's feed for the requested scope.
func (p *PostController) GetFeed(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	scope, err := feed.ParseScope(strings.TrimSpace(ctx.Query("type")))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid feed type")
		return
	}
	page, _ := parsePagination(ctx.Query("page"), "")

	cacheKey := fmt.Sprintf("cache:feed:%s:user=%d:page=%d", scope, userID, page)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	posts, err := p.resolver.Resolve(ctx.Request.Context(), userID, scope, page)
	if err != nil {
		switch {
		case errors.Is(err, feed.ErrUnauthorized):
			utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		case errors.Is(err, feed.ErrViewerNotFound):
			utils.Error(ctx, http.StatusNotFound, 40412, "viewer not found")
		case errors.Is(err, feed.ErrScopeDisabled):
			utils.Error(ctx, http.StatusBadRequest, 40023, "feed type not available yet")
		case errors.Is(err, feed.ErrUpstream):
			utils.Error(ctx, http.StatusBadGateway, 50221, "identity provider unavailable")
		default:
			utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to resolve feed")
		}
		return
	}

	items, err := p.renderItems(ctx, posts)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50221, "identity provider unavailable")
		return
	}

	payload := gin.H{
		"items": items,
		"pagination": gin.H{
			"page":      page,
			"page_size": feed.PageSize,
		},
	}
	utils.CacheSetJSON(cacheKey, utils.WrapPayload(payload), feedCacheTTL)
	utils.Success(ctx, payload)
}

// GetPost returns a single post with images and author (public).
func (p *PostController) GetPost(ctx *gin.Context) {
	postID := ctx.Param("id")

	if b, ok := utils.CacheGetBytes("cache:post:detail:" + postID); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var post models.Post
	if err := p.db.Preload("Images", "uploaded_at IS NOT NULL").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post")
		return
	}

	items, err := p.renderItems(ctx, []feed.Post{{Post: post}})
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50221, "identity provider unavailable")
		return
	}
	if len(items) == 0 {
		// Author gone from the directory: treat like an absent post
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}

	payload := gin.H{"post": items[0]}
	utils.CacheSetJSON("cache:post:detail:"+postID, utils.WrapPayload(payload), time.Hour)
	utils.Success(ctx, payload)
}

// ListUserPosts returns posts created by a specific user (public).
func (p *PostController) ListUserPosts(ctx *gin.Context) {
	userID := strings.TrimSpace(ctx.Param("id"))
	if userID == "" {
		utils.Error(ctx, http.StatusBadRequest, 40060, "missing user id")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	cacheKey := fmt.Sprintf("cache:user:%s:posts:page=%d:size=%d", userID, page, pageSize)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var posts []models.Post
	var total int64
	q := p.db.Where("user_id = ?", userID).Preload("Images", "uploaded_at IS NOT NULL").Order("created_at DESC, id DESC")
	if err := q.Model(&models.Post{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to count user posts")
		return
	}
	if err := q.Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to list user posts")
		return
	}

	raw := make([]feed.Post, len(posts))
	for i, post := range posts {
		raw[i] = feed.Post{Post: post}
	}
	items, err := p.renderItems(ctx, raw)
	if err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50221, "identity provider unavailable")
		return
	}

	payload := gin.H{
		"items":      items,
		"pagination": paginationPayload(page, pageSize, total),
	}
	utils.CacheSetJSON(cacheKey, utils.WrapPayload(payload), time.Hour)
	utils.Success(ctx, payload)
}

// UpdatePost lets the author edit their post's content.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	postID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid post id")
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}

	post, err := p.pipe.Update(ctx.Request.Context(), userID, uint(postID), req.Content)
	if err != nil {
		var ve *pipeline.ValidationError
		switch {
		case errors.As(err, &ve):
			utils.FieldError(ctx, 40025, ve.Field, ve.Message)
		case errors.Is(err, pipeline.ErrNotFound):
			utils.Error(ctx, http.StatusNotFound, 40403, "post not found")
		default:
			utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to update post")
		}
		return
	}

	utils.InvalidateByPrefix("cache:feed:")
	utils.InvalidateByPrefix("cache:post:detail:" + ctx.Param("id"))
	utils.InvalidateByPrefix("cache:user:" + strconv.Itoa(int(userID)) + ":posts:")

	utils.Success(ctx, gin.H{"post": post})
}

// DeletePost soft-deletes the author's own post.
func (p *PostController) DeletePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	postID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40026, "invalid post id")
		return
	}

	if err := p.pipe.Delete(ctx.Request.Context(), userID, uint(postID)); err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40404, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to delete post")
		return
	}

	utils.InvalidateByPrefix("cache:feed:")
	utils.InvalidateByPrefix("cache:post:detail:" + ctx.Param("id"))
	utils.InvalidateByPrefix("cache:user:" + strconv.Itoa(int(userID)) + ":posts:")
	// Public profile carries a post count
	utils.InvalidateByPrefix("cache:user:public:")

	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// UploadImage accepts an image upload authorized by a signed descriptor.
// The token is the credential; no session is required, mirroring a storage
// provider's signed-URL semantics. Each image succeeds or fails alone.
func (p *PostController) UploadImage(ctx *gin.Context) {
	objectPath := strings.TrimPrefix(ctx.Param("path"), "/")
	token := ctx.Query("token")
	if objectPath == "" || token == "" {
		utils.Error(ctx, http.StatusBadRequest, 40030, "missing path or token")
		return
	}

	if err := p.signer.Verify(objectPath, token); err != nil {
		switch {
		case errors.Is(err, storage.ErrTokenExpired):
			utils.Error(ctx, http.StatusForbidden, 40310, "upload token expired")
		default:
			utils.Error(ctx, http.StatusForbidden, 40311, "invalid upload token")
		}
		return
	}

	url, err := p.store.Save(objectPath, ctx.Request.Body)
	if err != nil {
		if errors.Is(err, storage.ErrObjectTooLarge) {
			utils.Error(ctx, http.StatusBadRequest, 40031, "image exceeds size limit")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to store image")
		return
	}

	image, err := p.pipe.MarkUploaded(ctx.Request.Context(), objectPath)
	if err != nil {
		// The bytes landed but the row is gone (descriptor outlived its
		// post or cleaner removed it); drop the orphan.
		_ = p.store.Remove(objectPath)
		utils.Error(ctx, http.StatusNotFound, 40405, "no image slot for this path")
		return
	}

	utils.InvalidateByPrefix("cache:feed:")
	utils.InvalidateByPrefix("cache:post:detail:" + strconv.Itoa(int(image.PostID)))

	utils.Success(ctx, gin.H{"url": url, "path": objectPath})
}

// renderItems enriches raw posts with author profiles when missing and
// renders mention tokens into display text.
func (p *PostController) renderItems(ctx *gin.Context, posts []feed.Post) ([]feedItem, error) {
	// Fill author profiles for posts that came from plain queries
	var missing []uint
	for _, post := range posts {
		if post.Author.ID == 0 {
			missing = append(missing, post.UserID)
		}
	}
	if len(missing) > 0 {
		profiles, err := p.ids.GetUsersByIDs(ctx.Request.Context(), utils.UniqueUint(missing))
		if err != nil {
			return nil, err
		}
		byID := make(map[uint]identity.Profile, len(profiles))
		for _, profile := range profiles {
			byID[profile.ID] = profile
		}
		filled := posts[:0]
		for _, post := range posts {
			if post.Author.ID == 0 {
				profile, ok := byID[post.UserID]
				if !ok {
					if utils.Sugar != nil {
						utils.Sugar.Warnf("post %d author %d missing from identity provider, excluding", post.ID, post.UserID)
					}
					continue
				}
				post.Author = profile
			}
			filled = append(filled, post)
		}
		posts = filled
	}

	contents := make([]string, len(posts))
	for i, post := range posts {
		contents[i] = post.Content
	}
	rendered, err := p.mentions.RenderAll(ctx.Request.Context(), contents)
	if err != nil {
		return nil, err
	}

	items := make([]feedItem, len(posts))
	for i, post := range posts {
		items[i] = feedItem{Post: post, RenderedContent: rendered[i]}
	}
	return items, nil
}

// Package pipeline orchestrates post submission: validate content, persist
// the post row, then mint one signed upload descriptor per declared image.
// Text commits independently of image outcome: a post may end up with fewer
// uploaded images than it declared, and that is by design, not an error.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/kabsume/campusfeed/feed"
	"github.com/kabsume/campusfeed/models"
	"github.com/kabsume/campusfeed/storage"
	"github.com/kabsume/campusfeed/utils"
)

// MaxContentLength caps post content, counted in runes.
const MaxContentLength = 512

// ErrNotFound means the referenced post is absent or not owned by the caller.
var ErrNotFound = errors.New("pipeline: post not found")

// ValidationError carries a field-level message back to the form input that
// caused it. Raised before any state is mutated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// SubmitInput is one post submission. Images are the client-declared file
// names; the server generates the storage paths.
type SubmitInput struct {
	ViewerID uint
	Scope    feed.Scope
	Content  string
	Images   []string
}

// SubmitResult returns the persisted post and the signed upload descriptors,
// one per declared image, in declaration order. The caller uploads each
// image directly against its descriptor; the server does not wait.
type SubmitResult struct {
	Post       models.Post          `json:"post"`
	SignedURLs []storage.Descriptor `json:"signed_urls"`
}

// Pipeline persists posts and mints upload descriptors.
type Pipeline struct {
	db     *gorm.DB
	signer *storage.Signer
}

// New creates a Pipeline.
func New(db *gorm.DB, signer *storage.Signer) *Pipeline {
	return &Pipeline{db: db, signer: signer}
}

// Submit validates and persists a post. Validation and authorization happen
// before any write; once the post row commits, per-image descriptor minting
// cannot undo it.
func (p *Pipeline) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if in.ViewerID == 0 {
		return nil, feed.ErrUnauthorized
	}

	content, err := validateContent(in.Content)
	if err != nil {
		return nil, err
	}

	scope, err := feed.ParseScope(in.Scope.String())
	if err != nil {
		return nil, &ValidationError{Field: "type", Message: "unknown post type"}
	}

	db := p.db.WithContext(ctx)

	post := models.Post{
		UserID:  in.ViewerID,
		Content: content,
		Type:    scope.String(),
	}
	if err := db.Create(&post).Error; err != nil {
		return nil, fmt.Errorf("persist post: %w", err)
	}

	descriptors := make([]storage.Descriptor, 0, len(in.Images))
	for i, name := range in.Images {
		objectPath := p.signer.NewObjectPath() + "/" + safeImageName(name)
		image := models.PostImage{
			PostID:      post.ID,
			StoragePath: objectPath,
			Position:    i,
		}
		if err := db.Create(&image).Error; err != nil {
			// The post already committed; surface the partial failure and
			// keep whatever descriptors were minted so far.
			if utils.Sugar != nil {
				utils.Sugar.Warnf("pipeline: image row %d for post %d failed: %v", i, post.ID, err)
			}
			continue
		}
		post.Images = append(post.Images, image)
		descriptors = append(descriptors, p.signer.Mint(objectPath))
	}

	return &SubmitResult{Post: post, SignedURLs: descriptors}, nil
}

// MarkUploaded stamps the image row once its descriptor was consumed.
// Each image succeeds or fails on its own; nothing rolls back the post.
func (p *Pipeline) MarkUploaded(ctx context.Context, objectPath string) (*models.PostImage, error) {
	var image models.PostImage
	err := p.db.WithContext(ctx).Where("storage_path = ?", objectPath).First(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load image row: %w", err)
	}
	now := time.Now()
	image.UploadedAt = &now
	if err := p.db.WithContext(ctx).Model(&image).Update("uploaded_at", now).Error; err != nil {
		return nil, fmt.Errorf("mark image uploaded: %w", err)
	}
	return &image, nil
}

// Update edits the content of the caller's own post. Posts not owned by the
// caller look identical to absent ones.
func (p *Pipeline) Update(ctx context.Context, viewerID, postID uint, content string) (*models.Post, error) {
	if viewerID == 0 {
		return nil, feed.ErrUnauthorized
	}
	clean, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	db := p.db.WithContext(ctx)
	var post models.Post
	if err := db.Where("id = ? AND user_id = ?", postID, viewerID).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load post: %w", err)
	}

	post.Content = clean
	if err := db.Model(&post).Update("content", clean).Error; err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return &post, nil
}

// Delete soft-deletes the caller's own post. The row stays; DeletedAt hides
// it from every feed query.
func (p *Pipeline) Delete(ctx context.Context, viewerID, postID uint) error {
	if viewerID == 0 {
		return feed.ErrUnauthorized
	}
	db := p.db.WithContext(ctx)
	var post models.Post
	if err := db.Where("id = ? AND user_id = ?", postID, viewerID).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load post: %w", err)
	}
	if err := db.Delete(&post).Error; err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

func validateContent(raw string) (string, error) {
	content := strings.TrimSpace(utils.Sanitize(raw))
	if content == "" {
		return "", &ValidationError{Field: "content", Message: "post cannot be empty"}
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", &ValidationError{Field: "content", Message: fmt.Sprintf("post cannot be longer than %d characters", MaxContentLength)}
	}
	return content, nil
}

// safeImageName keeps only the base name of a client-declared file name so
// descriptor paths cannot traverse directories.
func safeImageName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "image"
	}
	return base
}

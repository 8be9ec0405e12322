package models

import (
	"time"

	"gorm.io/gorm"
)

// Feed scope values stored in Post.Type.
const (
	ScopeFollowing = "following"
	ScopeProgram   = "program"
	ScopeCollege   = "college"
	ScopeCampus    = "campus"
	ScopeAll       = "all"
)

// Post is a short user-authored message. Posts are soft deleted via
// DeletedAt and never removed physically; only the author may delete or
// edit, and edits touch Content alone.
type Post struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index;not null" json:"user_id"`
	Content   string         `gorm:"size:512;not null" json:"content"`
	Type      string         `gorm:"size:16;not null;default:'following'" json:"type"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	User      User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Images    []PostImage    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"images"`
}

// PostImage records a declared attachment. The row is created when the post
// is submitted and its signed upload descriptor is minted; UploadedAt stays
// nil until the client actually consumes the descriptor, so a post can live
// with fewer uploaded images than it declared.
type PostImage struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	PostID      uint       `gorm:"index;not null" json:"post_id"`
	StoragePath string     `gorm:"size:255;not null" json:"storage_path"`
	Position    int        `gorm:"not null;default:0" json:"position"`
	UploadedAt  *time.Time `json:"uploaded_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

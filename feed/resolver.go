// Package feed computes which posts a viewer may see. Each visibility
// scope maps to a pure author-set builder over the follow graph or the
// program/college hierarchy; the resolver then pages matching posts and
// enriches authors through the identity provider.
package feed

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kabsume/campusfeed/identity"
	"github.com/kabsume/campusfeed/models"
	"github.com/kabsume/campusfeed/utils"
)

// PageSize is fixed: offset pagination with (page-1)*PageSize. Offset drift
// under concurrent inserts is accepted; there is no cursor.
const PageSize = 10

// Post is a feed entry: the stored post plus the author profile resolved
// through the identity provider at read time.
type Post struct {
	models.Post
	Author identity.Profile `json:"author"`
}

// Resolver computes viewer-scoped feed pages.
type Resolver struct {
	db  *gorm.DB
	ids identity.Provider
}

// NewResolver creates a Resolver over the DB and identity provider.
func NewResolver(db *gorm.DB, ids identity.Provider) *Resolver {
	return &Resolver{db: db, ids: ids}
}

// Resolve returns page of posts visible to the viewer under the scope,
// newest first with id as tie-break. The viewer is validated before any
// feed query runs.
func (r *Resolver) Resolve(ctx context.Context, viewerID uint, scope Scope, page int) ([]Post, error) {
	if viewerID == 0 {
		return nil, ErrUnauthorized
	}
	if page < 1 {
		page = 1
	}

	db := r.db.WithContext(ctx)

	var viewer models.User
	if err := db.First(&viewer, viewerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrViewerNotFound
		}
		return nil, fmt.Errorf("load viewer: %w", err)
	}

	authors, err := authorsForScope(db, viewer, scope)
	if err != nil {
		return nil, err
	}

	// Only consumed descriptors: a declared image whose upload never
	// happened has no bytes behind its storage path.
	query := db.Model(&models.Post{}).
		Preload("Images", "uploaded_at IS NOT NULL").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * PageSize).
		Limit(PageSize)
	if authors != nil {
		query = query.Where("user_id IN ?", authors)
	}

	var posts []models.Post
	if err := query.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}

	return r.enrich(ctx, posts)
}

// authorsForScope dispatches the scope to its author-set builder.
// A nil author set means no author restriction at all.
func authorsForScope(db *gorm.DB, viewer models.User, scope Scope) ([]uint, error) {
	switch scope {
	case ScopeAll:
		return allAuthors(db, viewer)
	case ScopeFollowing:
		return followingAuthors(db, viewer)
	case ScopeProgram:
		return programAuthors(db, viewer)
	case ScopeCollege:
		return collegeAuthors(db, viewer)
	case ScopeCampus:
		return campusAuthors(db, viewer)
	default:
		return nil, ErrInvalidScope
	}
}

// allAuthors places no restriction: every non-deleted post globally.
func allAuthors(db *gorm.DB, viewer models.User) ([]uint, error) {
	return nil, nil
}

// followingAuthors is the viewer plus everyone the viewer follows. With
// zero follow edges the set degenerates to the viewer alone; that is a
// valid feed, not an error.
func followingAuthors(db *gorm.DB, viewer models.User) ([]uint, error) {
	var followees []uint
	err := db.Model(&models.Follow{}).
		Where("follower_id = ?", viewer.ID).
		Pluck("followee_id", &followees).Error
	if err != nil {
		return nil, fmt.Errorf("load follow edges: %w", err)
	}
	return utils.UniqueUint(append([]uint{viewer.ID}, followees...)), nil
}

// programAuthors is the viewer plus every user sharing the viewer's
// program. A viewer still onboarding (no program) sees only themselves.
func programAuthors(db *gorm.DB, viewer models.User) ([]uint, error) {
	if viewer.ProgramID == nil {
		return []uint{viewer.ID}, nil
	}
	var peers []uint
	err := db.Model(&models.User{}).
		Where("program_id = ?", *viewer.ProgramID).
		Pluck("id", &peers).Error
	if err != nil {
		return nil, fmt.Errorf("load program peers: %w", err)
	}
	return utils.UniqueUint(append([]uint{viewer.ID}, peers...)), nil
}

// collegeAuthors walks one hierarchy level up: viewer's program -> its
// college -> every program in that college -> every user in those programs.
func collegeAuthors(db *gorm.DB, viewer models.User) ([]uint, error) {
	if viewer.ProgramID == nil {
		return []uint{viewer.ID}, nil
	}
	var program models.Program
	if err := db.First(&program, *viewer.ProgramID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []uint{viewer.ID}, nil
		}
		return nil, fmt.Errorf("load viewer program: %w", err)
	}

	var programIDs []uint
	err := db.Model(&models.Program{}).
		Where("college_id = ?", program.CollegeID).
		Pluck("id", &programIDs).Error
	if err != nil {
		return nil, fmt.Errorf("load college programs: %w", err)
	}

	var peers []uint
	if len(programIDs) > 0 {
		err = db.Model(&models.User{}).
			Where("program_id IN ?", programIDs).
			Pluck("id", &peers).Error
		if err != nil {
			return nil, fmt.Errorf("load college peers: %w", err)
		}
	}
	return utils.UniqueUint(append([]uint{viewer.ID}, peers...)), nil
}

// campusAuthors is deferred: the scope exists in the data model but is not
// served. Callers get an explicit error instead of an undefined feed.
func campusAuthors(db *gorm.DB, viewer models.User) ([]uint, error) {
	return nil, ErrScopeDisabled
}

// enrich attaches identity profiles to posts by batch lookup. A post whose
// author is missing from the provider response points at a data consistency
// problem; it is logged and excluded rather than served half-formed.
func (r *Resolver) enrich(ctx context.Context, posts []models.Post) ([]Post, error) {
	if len(posts) == 0 {
		return []Post{}, nil
	}

	authorIDs := make([]uint, 0, len(posts))
	for _, p := range posts {
		authorIDs = append(authorIDs, p.UserID)
	}

	profiles, err := r.ids.GetUsersByIDs(ctx, utils.UniqueUint(authorIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	byID := make(map[uint]identity.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		profile, ok := byID[p.UserID]
		if !ok {
			if utils.Sugar != nil {
				utils.Sugar.Warnf("feed: post %d author %d missing from identity provider, excluding", p.ID, p.UserID)
			}
			continue
		}
		out = append(out, Post{Post: p, Author: profile})
	}
	return out, nil
}

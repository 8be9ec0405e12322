package feed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kabsume/campusfeed/identity"
	"github.com/kabsume/campusfeed/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
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
	return db
}

// fixture builds one campus with two colleges:
//
//	campus -> college1 -> programA (alice, bob), programB (carol)
//	       -> college2 -> programC (dave)
//	eve has no program yet.
type fixture struct {
	db       *gorm.DB
	resolver *Resolver

	programA, programB, programC models.Program

	alice, bob, carol, dave, eve models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	f := &fixture{db: db, resolver: NewResolver(db, identity.NewDirectory(db))}

	campus := models.Campus{Slug: "main", Name: "Main Campus"}
	require.NoError(t, db.Create(&campus).Error)
	college1 := models.College{CampusID: campus.ID, Slug: "ceit", Name: "Engineering and IT"}
	college2 := models.College{CampusID: campus.ID, Slug: "cas", Name: "Arts and Sciences"}
	require.NoError(t, db.Create(&college1).Error)
	require.NoError(t, db.Create(&college2).Error)

	f.programA = models.Program{CollegeID: college1.ID, Slug: "bscs", Name: "Computer Science"}
	f.programB = models.Program{CollegeID: college1.ID, Slug: "bsit", Name: "Information Technology"}
	f.programC = models.Program{CollegeID: college2.ID, Slug: "bsbio", Name: "Biology"}
	require.NoError(t, db.Create(&f.programA).Error)
	require.NoError(t, db.Create(&f.programB).Error)
	require.NoError(t, db.Create(&f.programC).Error)

	f.alice = f.newUser(t, "alice", &f.programA.ID)
	f.bob = f.newUser(t, "bob", &f.programA.ID)
	f.carol = f.newUser(t, "carol", &f.programB.ID)
	f.dave = f.newUser(t, "dave", &f.programC.ID)
	f.eve = f.newUser(t, "eve", nil)

	return f
}

func (f *fixture) newUser(t *testing.T, username string, programID *uint) models.User {
	t.Helper()
	u := models.User{Username: username, ProgramID: programID}
	require.NoError(t, f.db.Create(&u).Error)
	return u
}

func (f *fixture) newPost(t *testing.T, author models.User, content string, createdAt time.Time) models.Post {
	t.Helper()
	p := models.Post{UserID: author.ID, Content: content, Type: models.ScopeFollowing, CreatedAt: createdAt}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func authorIDs(posts []Post) []uint {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.UserID)
	}
	return ids
}

func TestResolveRequiresViewer(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.Resolve(context.Background(), 0, ScopeAll, 1)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestResolveOrphanedViewer(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.Resolve(context.Background(), 9999, ScopeAll, 1)
	assert.ErrorIs(t, err, ErrViewerNotFound)
}

func TestFollowingScopeWithoutEdgesIsOwnPostsOnly(t *testing.T) {
	f := newFixture(t)
	base := time.Now().Add(-time.Hour)
	f.newPost(t, f.alice, "older", base)
	f.newPost(t, f.alice, "newer", base.Add(time.Minute))
	f.newPost(t, f.bob, "not visible", base.Add(2*time.Minute))

	posts, err := f.resolver.Resolve(context.Background(), f.alice.ID, ScopeFollowing, 1)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "newer", posts[0].Content)
	assert.Equal(t, "older", posts[1].Content)
	for _, p := range posts {
		assert.Equal(t, f.alice.ID, p.UserID)
	}
}

func TestFollowingScopeIncludesFolloweePosts(t *testing.T) {
	f := newFixture(t)
	base := time.Now().Add(-time.Hour)
	f.newPost(t, f.bob, "from bob", base)
	f.newPost(t, f.dave, "from dave", base.Add(time.Minute))

	require.NoError(t, f.resolver.Follow(context.Background(), f.alice.ID, f.bob.ID))

	posts, err := f.resolver.Resolve(context.Background(), f.alice.ID, ScopeFollowing, 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "from bob", posts[0].Content)
	assert.Equal(t, "bob", posts[0].Author.Username)
}

func TestEmptyFollowingFeedIsEmptyNotError(t *testing.T) {
	f := newFixture(t)

	posts, err := f.resolver.Resolve(context.Background(), f.eve.ID, ScopeFollowing, 1)
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestProgramScopeIsExactProgramSet(t *testing.T) {
	f := newFixture(t)
	base := time.Now().Add(-time.Hour)
	f.newPost(t, f.alice, "alice post", base)
	f.newPost(t, f.bob, "bob post", base.Add(time.Minute))
	f.newPost(t, f.carol, "carol post", base.Add(2*time.Minute))
	f.newPost(t, f.dave, "dave post", base.Add(3*time.Minute))

	posts, err := f.resolver.Resolve(context.Background(), f.alice.ID, ScopeProgram, 1)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.ElementsMatch(t, []uint{f.alice.ID, f.bob.ID}, authorIDs(posts))
}

func TestProgramScopeWithoutProgramIsSelfOnly(t *testing.T) {
	f := newFixture(t)
	base := time.Now().Add(-time.Hour)
	f.newPost(t, f.eve, "eve post", base)
	f.newPost(t, f.alice, "alice post", base.Add(time.Minute))

	posts, err := f.resolver.Resolve(context.Background(), f.eve.ID, ScopeProgram, 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, f.eve.ID, posts[0].UserID)
}

func TestCollegeScopeIsSupersetOfProgramScope(t *testing.T) {
	f := newFixture(t)
	base := time.Now().Add(-time.Hour)
	f.newPost(t, f.alice, "alice post", base)
	f.newPost(t, f.bob, "bob post", base.Add(time.Minute))
	f.newPost(t, f.carol, "carol post", base.Add(2*time.Minute))
	f.newPost(t, f.dave, "dave post", base.Add(3*time.Minute))

	programPosts, err := f.resolver.Resolve(context.Background(), f.alice.ID, ScopeProgram, 1)
	require.NoError(t, err)
	collegePosts, err := f.resolver.Resolve(context.Background(), f.alice.ID, ScopeCollege, 1)
	require.NoError(t, err)

	// carol's program shares alice's college, dave's does not
	assert.ElementsMatch(t, []uint{f.alice.ID, f.bob.ID, f.carol.ID}, authorIDs(collegePosts))
	collegeSet := map[uint]bool{}
	for _, p := range collegePosts {
		collegeSet[p.ID] = true
	}
	for _, p := range programPosts {
		assert.True(t, collegeSet[p.ID], "college scope must contain every program scope post")
	}
}

func TestCampusScopeIsDisabled(t *testing.T) {
	f := newFixture(t)

	_, err := f.resolver.Resolve(context.Background(), f.alice.ID, ScopeCampus, 1)
	assert.ErrorIs(t, err, ErrScopeDisabled)
}

func TestAllScopeSeesEveryAuthor(t *testing.T) {
	f := newFixture(t)
	base := time.Now().Add(-time.Hour)
	f.newPost(t, f.alice, "a", base)
	f.newPost(t, f.dave, "d", base.Add(time.Minute))
	f.newPost(t, f.eve, "e", base.Add(2*time.Minute))

	posts, err := f.resolver.Resolve(context.Background(), f.carol.ID, ScopeAll, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{f.alice.ID, f.dave.ID, f.eve.ID}, authorIDs(posts))
}

func TestSoftDeletedPostsNeverAppear(t *testing.T) {
	f := newFixture(t)
	base := time.Now().Add(-time.Hour)
	kept := f.newPost(t, f.alice, "kept", base)
	deleted := f.newPost(t, f.alice, "deleted", base.Add(time.Minute))
	require.NoError(t, f.db.Delete(&deleted).Error)

	for _, scope := range []Scope{ScopeAll, ScopeFollowing, ScopeProgram, ScopeCollege} {
		posts, err := f.resolver.Resolve(context.Background(), f.alice.ID, scope, 1)
		require.NoError(t, err, "scope %s", scope)
		require.Len(t, posts, 1, "scope %s", scope)
		assert.Equal(t, kept.ID, posts[0].ID, "scope %s", scope)
	}

	// Row is retained physically
	var count int64
	require.NoError(t, f.db.Unscoped().Model(&models.Post{}).Where("id = ?", deleted.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPaginationAndTieBreak(t *testing.T) {
	f := newFixture(t)
	at := time.Now().Add(-time.Hour).Truncate(time.Second)
	// 15 posts sharing one timestamp: ordering falls back to id descending
	for i := 0; i < 15; i++ {
		f.newPost(t, f.alice, fmt.Sprintf("post-%d", i), at)
	}

	page1, err := f.resolver.Resolve(context.Background(), f.alice.ID, ScopeAll, 1)
	require.NoError(t, err)
	require.Len(t, page1, PageSize)

	page2, err := f.resolver.Resolve(context.Background(), f.alice.ID, ScopeAll, 2)
	require.NoError(t, err)
	require.Len(t, page2, 5)

	var prev uint
	for i, p := range append(page1, page2...) {
		if i > 0 {
			assert.Less(t, p.ID, prev, "ids must strictly descend across pages")
		}
		prev = p.ID
	}

	page3, err := f.resolver.Resolve(context.Background(), f.alice.ID, ScopeAll, 3)
	require.NoError(t, err)
	assert.Empty(t, page3)
}

func TestFeedAttachesOnlyUploadedImages(t *testing.T) {
	f := newFixture(t)
	post := f.newPost(t, f.alice, "two declared, one uploaded", time.Now().Add(-time.Hour))

	now := time.Now()
	uploaded := models.PostImage{PostID: post.ID, StoragePath: "posts/a/one.jpg", Position: 0, UploadedAt: &now}
	pending := models.PostImage{PostID: post.ID, StoragePath: "posts/a/two.jpg", Position: 1}
	require.NoError(t, f.db.Create(&uploaded).Error)
	require.NoError(t, f.db.Create(&pending).Error)

	posts, err := f.resolver.Resolve(context.Background(), f.alice.ID, ScopeAll, 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Len(t, posts[0].Images, 1)
	assert.Equal(t, "posts/a/one.jpg", posts[0].Images[0].StoragePath)
	assert.NotNil(t, posts[0].Images[0].UploadedAt)
}

// missingAuthorProvider drops one user id from every batch response, acting
// like an identity provider that lost a profile.
type missingAuthorProvider struct {
	identity.Provider
	missing uint
}

func (m *missingAuthorProvider) GetUsersByIDs(ctx context.Context, ids []uint) ([]identity.Profile, error) {
	profiles, err := m.Provider.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := profiles[:0]
	for _, p := range profiles {
		if p.ID != m.missing {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestEnrichmentExcludesAuthorsUnknownToProvider(t *testing.T) {
	f := newFixture(t)
	base := time.Now().Add(-time.Hour)
	f.newPost(t, f.alice, "resolvable", base)
	f.newPost(t, f.bob, "orphaned author", base.Add(time.Minute))

	resolver := NewResolver(f.db, &missingAuthorProvider{
		Provider: identity.NewDirectory(f.db),
		missing:  f.bob.ID,
	})

	posts, err := resolver.Resolve(context.Background(), f.alice.ID, ScopeAll, 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, f.alice.ID, posts[0].UserID)
}

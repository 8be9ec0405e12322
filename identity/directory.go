package identity

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kabsume/campusfeed/models"
)

// Directory is the database backed Provider.
type Directory struct {
	db *gorm.DB
}

// NewDirectory creates a Directory over the given DB handle.
func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

var _ Provider = (*Directory)(nil)

// GetUsersByIDs batch-resolves profiles by primary key.
func (d *Directory) GetUsersByIDs(ctx context.Context, ids []uint) ([]Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, toProfile(u))
	}
	return profiles, nil
}

// GetUserByUsername returns the profile for an exact username.
func (d *Directory) GetUserByUsername(ctx context.Context, username string) (*Profile, error) {
	var user models.User
	if err := d.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	p := toProfile(user)
	return &p, nil
}

// SearchUsers returns profiles whose username contains the query, shortest
// usernames first so exact-ish matches rank ahead of long ones.
func (d *Directory) SearchUsers(ctx context.Context, query string, limit int) ([]Profile, error) {
	if query == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	var users []models.User
	err := d.db.WithContext(ctx).
		Where("username LIKE ?", "%"+query+"%").
		Order("LENGTH(username) ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, toProfile(u))
	}
	return profiles, nil
}

// UpdateMetadata applies a partial profile update. Only non-nil fields touch
// the row.
func (d *Directory) UpdateMetadata(ctx context.Context, userID uint, patch MetadataPatch) error {
	updates := map[string]interface{}{}
	if patch.Bio != nil {
		updates["bio"] = *patch.Bio
	}
	if patch.AvatarURL != nil {
		updates["avatar_url"] = *patch.AvatarURL
	}
	if patch.ProgramID != nil {
		updates["program_id"] = *patch.ProgramID
	}
	if len(updates) == 0 {
		return nil
	}
	res := d.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func toProfile(u models.User) Profile {
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		Bio:       u.Bio,
		Verified:  u.Verified,
		ProgramID: u.ProgramID,
	}
}

package feed

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kabsume/campusfeed/models"
)

// Follow creates the directed edge follower -> followee. The edge is a
// single row guarded by a unique index, so there is no dual-write to keep
// consistent: the insert itself is the duplicate check, which also covers
// two racing followers. The transaction exists so the target-exists check
// and the insert see the same state.
func (r *Resolver) Follow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == 0 {
		return ErrUnauthorized
	}
	if followerID == followeeID {
		return ErrSelfFollow
	}

	db := r.db.WithContext(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		var target models.User
		if err := tx.First(&target, followeeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("load followee: %w", err)
		}

		if err := tx.Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyFollowing
			}
			return fmt.Errorf("create follow edge: %w", err)
		}
		return nil
	})
}

// Unfollow removes the directed edge. Deleting an absent edge is a no-op,
// so repeated unfollows succeed.
func (r *Resolver) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == 0 {
		return ErrUnauthorized
	}
	err := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{}).Error
	if err != nil {
		return fmt.Errorf("delete follow edge: %w", err)
	}
	return nil
}

// Followers returns ids of users following userID.
func (r *Resolver) Followers(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("followee_id = ?", userID).
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("load followers: %w", err)
	}
	return ids, nil
}

// Following returns ids of users that userID follows.
func (r *Resolver) Following(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("followee_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("load following: %w", err)
	}
	return ids, nil
}

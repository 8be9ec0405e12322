package models

import "time"

// Follow is a single directed edge: the follower's feed includes the
// followee's posts under the following scope. A unique index over the pair
// rejects duplicate edges; both columns are indexed separately so the edge
// can be queried efficiently in either direction.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"index;uniqueIndex:idx_follow_edge;not null" json:"follower_id"`
	FolloweeID uint      `gorm:"index;uniqueIndex:idx_follow_edge;not null" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

package domain

import "time"

// Follow is a row of the user_follow junction table. UserID is the follower,
// FollowID the followed user. A pair is stored at most once.
type Follow struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id" gorm:"notNull;uniqueIndex:idx_user_follow_pair"`
	FollowID  int       `json:"follow_id" gorm:"notNull;uniqueIndex:idx_user_follow_pair;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name used by gorm.
func (Follow) TableName() string { return "user_follow" }

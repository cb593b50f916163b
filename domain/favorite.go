package domain

import "time"

// Favorite is a row of the favorites junction table, linking a User to a Micropost.
type Favorite struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id" gorm:"notNull;uniqueIndex:idx_favorites_pair"`
	MicropostID int       `json:"micropost_id" gorm:"notNull;uniqueIndex:idx_favorites_pair;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides the table name used by gorm.
func (Favorite) TableName() string { return "favorites" }

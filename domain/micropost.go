package domain

import (
	"context"
	"time"
)

// MaxContentLength is the maximum number of characters of a Micropost.
const MaxContentLength = 255

// Micropost is a short post written by a User. Microposts are the targets of favorites.
type Micropost struct {
	ID      int    `json:"id"`
	UserID  int    `json:"user_id" gorm:"notNull;index"`
	User    *User  `json:"user,omitempty"`
	Content string `json:"content" gorm:"notNull;size:255"`

	// Favorited expresses whether the authenticated viewer favorites this micropost.
	Favorited bool `json:"favorited" gorm:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MicropostService is a set of methods to manipulate and work with the Micropost model.
type MicropostService interface {
	ByID(ctx context.Context, id int) (*Micropost, error)
	ByIDs(ctx context.Context, ids []int) ([]Micropost, error)
	Create(ctx context.Context, post *Micropost) error
	Delete(ctx context.Context, post *Micropost) error
	// Feed returns the microposts of the user and of everyone the user follows, newest first.
	Feed(ctx context.Context, userID int, page Page) ([]Micropost, error)
	CountByUser(ctx context.Context, userID int) (int64, error)
}

// Page limits the size of a listing.
type Page struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

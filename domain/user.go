package domain

import (
	"context"
	"time"
)

// User is the acting entity of every relationship. Users follow other users
// and favorite microposts. Password and Remember only ever live in memory;
// the database stores their hashes.
type User struct {
	ID           int    `json:"id"`
	Name         string `json:"name" gorm:"notNull"`
	Email        string `json:"email" gorm:"notNull;uniqueIndex"`
	Password     string `json:"password,omitempty" gorm:"-"`
	PasswordHash string `json:"-" gorm:"notNull"`
	Remember     string `json:"-" gorm:"-"`
	RememberHash string `json:"-" gorm:"notNull;uniqueIndex"`

	// Counts is only set when a profile is displayed.
	Counts *RelationshipCounts `json:"counts,omitempty" gorm:"-"`
	// IsFollowing expresses whether the authenticated viewer follows this user.
	IsFollowing bool `json:"is_following" gorm:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RelationshipCounts holds the numbers shown on a user's profile.
type RelationshipCounts struct {
	Microposts int64 `json:"microposts"`
	Followings int64 `json:"followings"`
	Followers  int64 `json:"followers"`
	Favorites  int64 `json:"favorites"`
}

// UserService is a set of methods to manipulate and work with the User model.
type UserService interface {
	ByID(ctx context.Context, id int) (*User, error)
	ByIDs(ctx context.Context, ids []int) ([]User, error)
	ByRemember(ctx context.Context, token string) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	MakeRememberToken() (string, error)
}

// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a registered account.
type User struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Username       string    `gorm:"not null" json:"username"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	Password       string    `gorm:"not null" json:"-"`
	ProfilePicture string    `json:"profilePicture"`
	Followers      []string  `gorm:"serializer:json" json:"followers"`
	Followings     []string  `gorm:"serializer:json" json:"followings"`
	IsAdmin        bool      `gorm:"not null" json:"isAdmin"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when the caller did not set one.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Normalize replaces nil follow sets so they serialize as empty lists.
func (u *User) Normalize() {
	if u.Followers == nil {
		u.Followers = []string{}
	}
	if u.Followings == nil {
		u.Followings = []string{}
	}
}

// Summary returns the public author projection attached to posts.
func (u *User) Summary() *AuthorSummary {
	return &AuthorSummary{
		ID:             u.ID,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
	}
}

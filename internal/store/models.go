package store

import "time"

type Admin struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"size:255;uniqueIndex;not null"`
	Password  string `gorm:"size:255;not null"`
	IsActive  bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID         uint    `gorm:"primaryKey"`
	TelegramID int64   `gorm:"uniqueIndex;not null"`
	Username   *string `gorm:"size:255"`
	FirstName  *string `gorm:"size:255"`
	LastName   *string `gorm:"size:255"`
	PhotoURL   *string `gorm:"size:1024"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TelegramProfile is the profile snapshot Telegram sent with the current
// launch. Empty strings mean the field was absent.
type TelegramProfile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	PhotoURL   string
}

func newUser(p TelegramProfile) User {
	return User{
		TelegramID: p.TelegramID,
		Username:   optional(p.Username),
		FirstName:  optional(p.FirstName),
		LastName:   optional(p.LastName),
		PhotoURL:   optional(p.PhotoURL),
	}
}

// merge refreshes the mutable profile fields. A field Telegram left out
// keeps its stored value.
func (u *User) merge(p TelegramProfile) {
	u.Username = prefer(p.Username, u.Username)
	u.FirstName = prefer(p.FirstName, u.FirstName)
	u.LastName = prefer(p.LastName, u.LastName)
	u.PhotoURL = prefer(p.PhotoURL, u.PhotoURL)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func prefer(s string, old *string) *string {
	if s == "" {
		return old
	}
	return &s
}

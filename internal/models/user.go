package models

import "time"

// User represents a platform account. Credits are a whole-number internal
// currency; the credits column is only ever mutated inside a booking engine
// transaction, or once by the signup grant.
type User struct {
	ID           int64      `json:"id" db:"id"`
	Pseudo       string     `json:"pseudo" db:"pseudo"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         string     `json:"role" db:"role"` // user, employee, admin
	Credits      int64      `json:"credits" db:"credits"`
	AvatarURL    string     `json:"avatar_url,omitempty" db:"avatar_url"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

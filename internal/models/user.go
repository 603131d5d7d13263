package models

import "time"

// User represents a user in the local auth system
type User struct {
	ID                  string    `bson:"_id" json:"id"`
	Email               string    `bson:"email" json:"email"`
	Name                string    `bson:"name,omitempty" json:"name,omitempty"`
	PasswordHash        string    `bson:"passwordHash,omitempty" json:"-"`      // Argon2id hash, never exposed in API
	Role                string    `bson:"role,omitempty" json:"role,omitempty"` // "admin" or "user"
	RefreshTokenVersion int       `bson:"refreshTokenVersion" json:"-"`
	CreatedAt           time.Time `bson:"createdAt" json:"created_at"`
	LastLoginAt         time.Time `bson:"lastLoginAt" json:"last_login_at"`
}

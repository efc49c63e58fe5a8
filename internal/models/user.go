// Package models contains data structures for the application's domain models.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// User represents a user account in the Mingle application.
// The password field holds the bcrypt hash, never the cleartext; it is
// excluded from JSON, and read paths hand out the Profile projection
// instead of the record itself.
type User struct {
	ID        string    `gorm:"primaryKey;size:24" json:"id"`
	Username  string    `gorm:"unique;not null" json:"username"`
	Email     string    `gorm:"unique;not null" json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// DeriveUserID deterministically derives a user id from the username.
// The id is a 24-character hex digest, so the same username always maps
// to the same id.
func DeriveUserID(username string) string {
	sum := sha256.Sum256([]byte(username))
	return hex.EncodeToString(sum[:12])
}

// Follow represents a single follow edge: follower follows followee.
// One row carries both directions of the relationship, so follower and
// following lists can never diverge.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID string    `gorm:"size:24;not null;uniqueIndex:idx_follow_edge" json:"follower_id"`
	FolloweeID string    `gorm:"size:24;not null;uniqueIndex:idx_follow_edge" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`

	// Relationships
	Follower User `gorm:"foreignKey:FollowerID" json:"follower,omitempty"`
	Followee User `gorm:"foreignKey:FolloweeID" json:"followee,omitempty"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

// Profile is the sanitized read projection of a user: account fields
// without the password hash, plus the social and content id lists.
type Profile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Followers   []string  `json:"followers"`
	Following   []string  `json:"following"`
	Posts       []string  `json:"posts"`
	TaggedPosts []string  `json:"tagged_posts"`
	Likes       []string  `json:"likes"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuthResult is the outcome of a successful authentication: the caller's
// sanitized profile plus a freshly issued bearer token.
type AuthResult struct {
	Profile
	Token string `json:"token"`
}

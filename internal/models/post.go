package models

import "time"

// Post represents a published post.
type Post struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	AuthorID  string    `gorm:"size:24;not null;index" json:"author_id"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Author User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}

// UserPost is one entry of a user's authored-posts list.
// Rows are ordered by creation time, matching publication order.
type UserPost struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:24;not null;uniqueIndex:idx_user_post" json:"user_id"`
	PostID    string    `gorm:"size:36;not null;uniqueIndex:idx_user_post" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (UserPost) TableName() string {
	return "user_posts"
}

// PostTag is one entry of a user's taggedPosts list: the user was
// mentioned on the post.
type PostTag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:24;not null;uniqueIndex:idx_post_tag" json:"user_id"`
	PostID    string    `gorm:"size:36;not null;uniqueIndex:idx_post_tag" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (PostTag) TableName() string {
	return "post_tags"
}

// Like is one entry of a user's likes list.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:24;not null;uniqueIndex:idx_like" json:"user_id"`
	PostID    string    `gorm:"size:36;not null;uniqueIndex:idx_like" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Like) TableName() string {
	return "likes"
}

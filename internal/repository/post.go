package repository

import (
	"context"
	"errors"

	"mingle/internal/cache"
	"mingle/internal/models"
	"mingle/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines persistence operations for posts and the
// per-user post membership lists (authored, tagged, liked).
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error

	AddAuthored(ctx context.Context, userID, postID string) error
	RemoveAuthored(ctx context.Context, userID, postID string) error
	AuthoredPostIDs(ctx context.Context, userID string) ([]string, error)

	AddTag(ctx context.Context, userID, postID string) error
	RemoveTag(ctx context.Context, userID, postID string) error
	TaggedPostIDs(ctx context.Context, userID string) ([]string, error)

	AddLike(ctx context.Context, userID, postID string) error
	RemoveLike(ctx context.Context, userID, postID string) error
	LikedPostIDs(ctx context.Context, userID string) ([]string, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) CreatePost(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("insert", "posts")()
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Post already exists")
		}
		return models.NewStoreError(err)
	}
	return nil
}

func (r *postRepository) GetPost(ctx context.Context, id string) (*models.Post, error) {
	defer observability.TrackQuery("select", "posts")()
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewStoreError(err)
	}
	return &post, nil
}

// DeletePost removes the post and, in the same transaction, every
// membership row referencing it, so no authored, tagged, or likes list
// can keep a dead post id. Affected users' cache entries are dropped.
func (r *postRepository) DeletePost(ctx context.Context, id string) error {
	defer observability.TrackQuery("delete", "posts")()
	var touched []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var authors, taggedUsers, likers []string
		if err := tx.Model(&models.UserPost{}).Where("post_id = ?", id).
			Pluck("user_id", &authors).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.PostTag{}).Where("post_id = ?", id).
			Pluck("user_id", &taggedUsers).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Like{}).Where("post_id = ?", id).
			Pluck("user_id", &likers).Error; err != nil {
			return err
		}
		touched = append(touched, authors...)
		touched = append(touched, taggedUsers...)
		touched = append(touched, likers...)

		if err := tx.Where("post_id = ?", id).Delete(&models.UserPost{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Post{}).Error
	})
	if err != nil {
		return models.NewStoreError(err)
	}
	for _, uid := range touched {
		cache.InvalidateUser(ctx, uid)
	}
	return nil
}

func (r *postRepository) AddAuthored(ctx context.Context, userID, postID string) error {
	defer observability.TrackQuery("insert", "user_posts")()
	entry := &models.UserPost{UserID: userID, PostID: postID}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Already recorded; membership is a set.
			return nil
		}
		return models.NewStoreError(err)
	}
	cache.InvalidateUser(ctx, userID)
	return nil
}

func (r *postRepository) RemoveAuthored(ctx context.Context, userID, postID string) error {
	defer observability.TrackQuery("delete", "user_posts")()
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.UserPost{}).Error; err != nil {
		return models.NewStoreError(err)
	}
	cache.InvalidateUser(ctx, userID)
	return nil
}

func (r *postRepository) AuthoredPostIDs(ctx context.Context, userID string) ([]string, error) {
	defer observability.TrackQuery("select", "user_posts")()
	ids := []string{}
	if err := r.db.WithContext(ctx).Model(&models.UserPost{}).
		Where("user_id = ?", userID).
		Order("created_at").
		Pluck("post_id", &ids).Error; err != nil {
		return nil, models.NewStoreError(err)
	}
	return ids, nil
}

func (r *postRepository) AddTag(ctx context.Context, userID, postID string) error {
	defer observability.TrackQuery("insert", "post_tags")()
	tag := &models.PostTag{UserID: userID, PostID: postID}
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil
		}
		return models.NewStoreError(err)
	}
	cache.InvalidateUser(ctx, userID)
	return nil
}

func (r *postRepository) RemoveTag(ctx context.Context, userID, postID string) error {
	defer observability.TrackQuery("delete", "post_tags")()
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.PostTag{}).Error; err != nil {
		return models.NewStoreError(err)
	}
	cache.InvalidateUser(ctx, userID)
	return nil
}

func (r *postRepository) TaggedPostIDs(ctx context.Context, userID string) ([]string, error) {
	defer observability.TrackQuery("select", "post_tags")()
	ids := []string{}
	if err := r.db.WithContext(ctx).Model(&models.PostTag{}).
		Where("user_id = ?", userID).
		Order("created_at").
		Pluck("post_id", &ids).Error; err != nil {
		return nil, models.NewStoreError(err)
	}
	return ids, nil
}

func (r *postRepository) AddLike(ctx context.Context, userID, postID string) error {
	defer observability.TrackQuery("insert", "likes")()
	like := &models.Like{UserID: userID, PostID: postID}
	if err := r.db.WithContext(ctx).Create(like).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil
		}
		return models.NewStoreError(err)
	}
	cache.InvalidateUser(ctx, userID)
	return nil
}

func (r *postRepository) RemoveLike(ctx context.Context, userID, postID string) error {
	defer observability.TrackQuery("delete", "likes")()
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{}).Error; err != nil {
		return models.NewStoreError(err)
	}
	cache.InvalidateUser(ctx, userID)
	return nil
}

func (r *postRepository) LikedPostIDs(ctx context.Context, userID string) ([]string, error) {
	defer observability.TrackQuery("select", "likes")()
	ids := []string{}
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ?", userID).
		Order("created_at").
		Pluck("post_id", &ids).Error; err != nil {
		return nil, models.NewStoreError(err)
	}
	return ids, nil
}

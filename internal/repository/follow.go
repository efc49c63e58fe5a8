package repository

import (
	"context"
	"errors"

	"mingle/internal/cache"
	"mingle/internal/models"
	"mingle/internal/observability"

	"gorm.io/gorm"
)

// FollowRepository defines persistence operations for the follow graph.
type FollowRepository interface {
	CreateEdge(ctx context.Context, followerID, followeeID string) error
	DeleteEdge(ctx context.Context, followerID, followeeID string) error
	EdgeExists(ctx context.Context, followerID, followeeID string) (bool, error)
	FollowerIDs(ctx context.Context, userID string) ([]string, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository returns a new FollowRepository implementation.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) CreateEdge(ctx context.Context, followerID, followeeID string) error {
	defer observability.TrackQuery("insert", "follows")()
	edge := &models.Follow{FollowerID: followerID, FolloweeID: followeeID}
	if err := r.db.WithContext(ctx).Create(edge).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Already following this user")
		}
		return models.NewStoreError(err)
	}
	cache.InvalidateUser(ctx, followerID)
	cache.InvalidateUser(ctx, followeeID)
	return nil
}

// DeleteEdge removes the edge between the two users. Removing an edge
// that does not exist is a no-op.
func (r *followRepository) DeleteEdge(ctx context.Context, followerID, followeeID string) error {
	defer observability.TrackQuery("delete", "follows")()
	if err := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{}).Error; err != nil {
		return models.NewStoreError(err)
	}
	cache.InvalidateUser(ctx, followerID)
	cache.InvalidateUser(ctx, followeeID)
	return nil
}

func (r *followRepository) EdgeExists(ctx context.Context, followerID, followeeID string) (bool, error) {
	defer observability.TrackQuery("select", "follows")()
	var edge models.Follow
	err := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		First(&edge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, models.NewStoreError(err)
	}
	return true, nil
}

func (r *followRepository) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	defer observability.TrackQuery("select", "follows")()
	ids := []string{}
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("followee_id = ?", userID).
		Order("created_at").
		Pluck("follower_id", &ids).Error; err != nil {
		return nil, models.NewStoreError(err)
	}
	return ids, nil
}

func (r *followRepository) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	defer observability.TrackQuery("select", "follows")()
	ids := []string{}
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Order("created_at").
		Pluck("followee_id", &ids).Error; err != nil {
		return nil, models.NewStoreError(err)
	}
	return ids, nil
}

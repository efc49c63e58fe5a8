package service

import (
	"context"
	"strings"

	"mingle/internal/models"
	"mingle/internal/repository"

	"github.com/google/uuid"
)

// PostService stores posts and drives the user-side fan-out for tags.
type PostService struct {
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	userService *UserService
}

// CreatePostInput carries the fields for publishing a post.
type CreatePostInput struct {
	AuthorUsername string
	Content        string
	TaggedUserIDs  []string
}

// NewPostService returns a new PostService.
func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository, userService *UserService) *PostService {
	return &PostService{
		postRepo:    postRepo,
		userRepo:    userRepo,
		userService: userService,
	}
}

// CreatePost stores the post and adds it to the author's posts list and
// every tagged user's taggedPosts list. A partial fan-out failure is
// returned after the post itself is stored.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("Post content is required")
	}

	author, err := s.userRepo.GetByUsername(ctx, in.AuthorUsername)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, models.NewNotFoundError("User", in.AuthorUsername)
	}

	post := &models.Post{
		ID:       uuid.New().String(),
		AuthorID: author.ID,
		Content:  in.Content,
	}
	if err := s.postRepo.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	if err := s.userService.AddPostToUser(ctx, in.AuthorUsername, in.TaggedUserIDs, post.ID); err != nil {
		return post, err
	}
	return post, nil
}

// DeletePost removes the post and all list entries referencing it. The
// membership cleanup is keyed by the stored rows, never by a
// client-supplied tag list. Only the author may delete their post.
func (s *PostService) DeletePost(ctx context.Context, callerID, postID string) error {
	post, err := s.postRepo.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != callerID {
		return models.NewUnauthorizedError("You can only delete your own posts")
	}
	return s.postRepo.DeletePost(ctx, postID)
}

// LikePost adds the post to the user's likes list. Liking twice is a no-op.
func (s *PostService) LikePost(ctx context.Context, userID, postID string) error {
	if _, err := s.postRepo.GetPost(ctx, postID); err != nil {
		return err
	}
	return s.postRepo.AddLike(ctx, userID, postID)
}

// UnlikePost removes the post from the user's likes list.
func (s *PostService) UnlikePost(ctx context.Context, userID, postID string) error {
	if _, err := s.postRepo.GetPost(ctx, postID); err != nil {
		return err
	}
	return s.postRepo.RemoveLike(ctx, userID, postID)
}

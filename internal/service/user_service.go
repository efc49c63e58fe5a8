// Package service implements the application's business logic.
package service

import (
	"context"
	"fmt"
	"sync"

	"mingle/internal/auth"
	"mingle/internal/cache"
	"mingle/internal/models"
	"mingle/internal/observability"
	"mingle/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// UserService orchestrates user accounts, authentication, the follow
// graph, and the post membership lists.
type UserService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	postRepo   repository.PostRepository
	signer     *auth.TokenSigner
}

// CreateUserInput carries the fields for registering a user.
type CreateUserInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// UpdateUserInput carries the fields for updating a user. An empty
// password leaves the stored hash untouched.
type UpdateUserInput struct {
	Username  string
	FirstName string
	LastName  string
	Password  string
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository, followRepo repository.FollowRepository, postRepo repository.PostRepository, signer *auth.TokenSigner) *UserService {
	return &UserService{
		userRepo:   userRepo,
		followRepo: followRepo,
		postRepo:   postRepo,
		signer:     signer,
	}
}

// Authenticate verifies the email/password pair. A failed match resolves
// to (nil, nil), not an error; callers branch on presence. Only
// store-level failures surface as errors.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		observability.AuthAttempts.WithLabelValues("unknown_email").Inc()
		return nil, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		observability.AuthAttempts.WithLabelValues("bad_password").Inc()
		return nil, nil
	}

	profile, err := s.buildProfile(ctx, user)
	if err != nil {
		return nil, err
	}

	token, err := s.signer.Sign(user.ID, user.Username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	observability.AuthAttempts.WithLabelValues("success").Inc()
	return &models.AuthResult{Profile: *profile, Token: token}, nil
}

// List returns sanitized profiles for all users in the given window.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]models.Profile, error) {
	users, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	profiles := make([]models.Profile, 0, len(users))
	for i := range users {
		p, err := s.buildProfile(ctx, &users[i])
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

// Count returns the total number of user accounts, so paginated list
// callers can tell how far the window is from the full sequence.
func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.userRepo.Count(ctx)
}

// GetByID returns the sanitized profile for the given user.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	key := cache.ProfileKey(id)

	err := cache.Aside(ctx, key, &profile, cache.ProfileTTL, func() error {
		user, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		p, err := s.buildProfile(ctx, user)
		if err != nil {
			return err
		}
		profile = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Create registers a new user. Username uniqueness is checked first,
// then email, each as its own round-trip, preserving which conflict the
// caller sees. The record id derives deterministically from the
// username, and only the bcrypt hash of the password is stored.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.Profile, error) {
	existing, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError(fmt.Sprintf("Username %q is already taken", in.Username))
	}

	existing, err = s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError(fmt.Sprintf("Email %q is already taken", in.Email))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		ID:        models.DeriveUserID(in.Username),
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  string(hash),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.buildProfile(ctx, user)
}

// Update applies the given changes to the user. A changed username is
// checked for conflicts before anything is written; the password hash
// is replaced only when a new password was supplied.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*models.Profile, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Username != "" && in.Username != user.Username {
		existing, err := s.userRepo.GetByUsername(ctx, in.Username)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, models.NewConflictError(fmt.Sprintf("Username %q is already taken", in.Username))
		}
		user.Username = in.Username
	}

	user.FirstName = in.FirstName
	user.LastName = in.LastName

	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		user.Password = string(hash)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return s.buildProfile(ctx, user)
}

// Delete hard-deletes the user and all references pointing at it.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.userRepo.Delete(ctx, id)
}

// Follow adds a follow edge from follower to followee. Both users must
// exist; a missing party is an explicit not-found failure. The single
// edge row keeps follower and following lists symmetric by construction.
func (s *UserService) Follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return models.NewValidationError("Cannot follow yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, followerID); err != nil {
		return err
	}
	if _, err := s.userRepo.GetByID(ctx, followeeID); err != nil {
		return err
	}
	return s.followRepo.CreateEdge(ctx, followerID, followeeID)
}

// Unfollow removes the follow edge from follower to followee. Removing
// an edge that does not exist is a no-op, so unfollow after unfollow is
// harmless.
func (s *UserService) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if _, err := s.userRepo.GetByID(ctx, followerID); err != nil {
		return err
	}
	if _, err := s.userRepo.GetByID(ctx, followeeID); err != nil {
		return err
	}
	return s.followRepo.DeleteEdge(ctx, followerID, followeeID)
}

// AddPostToUser records the post on the publisher's authored list, then
// fans out to every tagged user's taggedPosts list concurrently. All
// per-user failures are collected; a partial failure reports exactly
// which tagged users could not be updated.
func (s *UserService) AddPostToUser(ctx context.Context, publisherUsername string, taggedUserIDs []string, postID string) error {
	publisher, err := s.userRepo.GetByUsername(ctx, publisherUsername)
	if err != nil {
		return err
	}
	if publisher == nil {
		return models.NewNotFoundError("User", publisherUsername)
	}

	if err := s.postRepo.AddAuthored(ctx, publisher.ID, postID); err != nil {
		return err
	}

	return s.fanout(ctx, "add_tag", postID, taggedUserIDs, s.postRepo.AddTag)
}

// RemovePostFromUser is the exact inverse of AddPostToUser, keyed by the
// publisher's id. Removal is idempotent over absence.
func (s *UserService) RemovePostFromUser(ctx context.Context, publisherID string, taggedUserIDs []string, postID string) error {
	if _, err := s.userRepo.GetByID(ctx, publisherID); err != nil {
		return err
	}

	if err := s.postRepo.RemoveAuthored(ctx, publisherID, postID); err != nil {
		return err
	}

	return s.fanout(ctx, "remove_tag", postID, taggedUserIDs, s.postRepo.RemoveTag)
}

// fanout runs op for every tagged user concurrently and aggregates the
// failures. Processing never halts on an individual failure.
func (s *UserService) fanout(ctx context.Context, name, postID string, taggedUserIDs []string, op func(context.Context, string, string) error) error {
	if len(taggedUserIDs) == 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures = make(map[string]error)
	)

	for _, userID := range taggedUserIDs {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			if err := op(ctx, userID, postID); err != nil {
				observability.TagFanoutFailures.WithLabelValues(name).Inc()
				mu.Lock()
				failures[userID] = err
				mu.Unlock()
			}
		}(userID)
	}
	wg.Wait()

	if len(failures) > 0 {
		return models.NewPartialFanoutError(&models.FanoutError{
			Op:       name,
			PostID:   postID,
			Failures: failures,
		})
	}
	return nil
}

// buildProfile assembles the sanitized read projection of the user:
// account fields without the hash, plus the social and content id lists.
func (s *UserService) buildProfile(ctx context.Context, user *models.User) (*models.Profile, error) {
	followers, err := s.followRepo.FollowerIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	following, err := s.followRepo.FollowingIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	posts, err := s.postRepo.AuthoredPostIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	tagged, err := s.postRepo.TaggedPostIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	likes, err := s.postRepo.LikedPostIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &models.Profile{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Followers:   followers,
		Following:   following,
		Posts:       posts,
		TaggedPosts: tagged,
		Likes:       likes,
		CreatedAt:   user.CreatedAt,
	}, nil
}

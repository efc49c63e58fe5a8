// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"mingle/internal/models"
	"mingle/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// Options controls how much demo data is generated.
type Options struct {
	Users        int
	FollowsPer   int
	PostsPerUser int
	TagsPerPost  int
	Password     string
}

// DefaultOptions returns a reasonable demo data set size.
func DefaultOptions() Options {
	return Options{
		Users:        25,
		FollowsPer:   5,
		PostsPerUser: 3,
		TagsPerPost:  2,
		Password:     "Mingle-demo1",
	}
}

// Run populates the database with fake users, a follow graph, and
// tagged posts, driving the same service paths the API uses.
func Run(ctx context.Context, users *service.UserService, posts *service.PostService, opts Options) error {
	gofakeit.Seed(0)

	created := make([]*models.Profile, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		username := fmt.Sprintf("%s%d", gofakeit.Username(), i)
		profile, err := users.Create(ctx, service.CreateUserInput{
			Username:  username,
			Email:     fmt.Sprintf("%d.%s", i, gofakeit.Email()),
			FirstName: gofakeit.FirstName(),
			LastName:  gofakeit.LastName(),
			Password:  opts.Password,
		})
		if err != nil {
			return fmt.Errorf("seed user %d: %w", i, err)
		}
		created = append(created, profile)
	}
	log.Printf("Seeded %d users", len(created))

	for _, p := range created {
		for j := 0; j < opts.FollowsPer; j++ {
			target := created[rand.Intn(len(created))]
			if target.ID == p.ID {
				continue
			}
			if err := users.Follow(ctx, p.ID, target.ID); err != nil && !models.IsConflict(err) {
				return fmt.Errorf("seed follow %s -> %s: %w", p.ID, target.ID, err)
			}
		}
	}

	postCount := 0
	for _, p := range created {
		for j := 0; j < opts.PostsPerUser; j++ {
			tagged := make([]string, 0, opts.TagsPerPost)
			for k := 0; k < opts.TagsPerPost; k++ {
				target := created[rand.Intn(len(created))]
				if target.ID != p.ID {
					tagged = append(tagged, target.ID)
				}
			}
			if _, err := posts.CreatePost(ctx, service.CreatePostInput{
				AuthorUsername: p.Username,
				Content:        gofakeit.Paragraph(1, 3, 8, "\n"),
				TaggedUserIDs:  tagged,
			}); err != nil {
				return fmt.Errorf("seed post for %s: %w", p.Username, err)
			}
			postCount++
		}
	}
	log.Printf("Seeded %d posts", postCount)

	return nil
}

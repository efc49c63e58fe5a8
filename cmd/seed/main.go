// Command seed populates the database with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"mingle/internal/auth"
	"mingle/internal/config"
	"mingle/internal/database"
	"mingle/internal/repository"
	"mingle/internal/seed"
	"mingle/internal/service"
)

func main() {
	userCount := flag.Int("users", 25, "number of users to create")
	postsPer := flag.Int("posts", 3, "posts per user")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	signer := auth.NewTokenSigner(cfg.JWTSecret)
	userService := service.NewUserService(userRepo, followRepo, postRepo, signer)
	postService := service.NewPostService(postRepo, userRepo, userService)

	opts := seed.DefaultOptions()
	opts.Users = *userCount
	opts.PostsPerUser = *postsPer

	if err := seed.Run(context.Background(), userService, postService, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Println("Seeding complete")
}

package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"mingle/internal/auth"
	"mingle/internal/config"
	"mingle/internal/database"
	"mingle/internal/middleware"
	"mingle/internal/models"
	"mingle/internal/repository"
	"mingle/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "server-test-secret-long-enough-for-hmac"

// newTestApp wires the full route surface onto an in-memory database.
// The prometheus middleware is left out so repeated test setups do not
// fight over the default metrics registry.
func newTestApp(t *testing.T) (*fiber.App, *Server) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		Port:      "8480",
		JWTSecret: testJWTSecret,
		Env:       "test",
	}
	middleware.InitMiddleware(cfg)

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	signer := auth.NewTokenSigner(cfg.JWTSecret)
	userService := service.NewUserService(userRepo, followRepo, postRepo, signer)
	postService := service.NewPostService(postRepo, userRepo, userService)

	srv := &Server{
		config:      cfg,
		db:          db,
		userRepo:    userRepo,
		followRepo:  followRepo,
		postRepo:    postRepo,
		userService: userService,
		postService: postService,
	}

	app := fiber.New()
	srv.SetupRoutes(app)
	return app, srv
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func register(t *testing.T, app *fiber.App, username string) models.Profile {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/users", "", fiber.Map{
		"username": username,
		"email":    username + "@example.com",
		"password": "Sup3rsecret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[models.Profile](t, resp)
}

func authenticate(t *testing.T, app *fiber.App, username string) models.AuthResult {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/users/authenticate", "", fiber.Map{
		"email":    username + "@example.com",
		"password": "Sup3rsecret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[models.AuthResult](t, resp)
}

func TestRegister(t *testing.T) {
	app, _ := newTestApp(t)

	profile := register(t, app, "alice")
	assert.Equal(t, models.DeriveUserID("alice"), profile.ID)
	assert.Equal(t, "alice", profile.Username)
	assert.Empty(t, profile.Followers)
}

func TestRegister_Validation(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/users", "", fiber.Map{
		"username": "alice",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/users", "", fiber.Map{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "weak",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/users", "", fiber.Map{
		"username": "not a valid name!",
		"email":    "alice@example.com",
		"password": "Sup3rsecret",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	app, _ := newTestApp(t)

	register(t, app, "alice")

	resp := doJSON(t, app, http.MethodPost, "/api/users", "", fiber.Map{
		"username": "alice",
		"email":    "second@example.com",
		"password": "Sup3rsecret",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	body := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, "CONFLICT", body.Code)
}

func TestAuthenticate(t *testing.T) {
	app, _ := newTestApp(t)

	register(t, app, "alice")

	result := authenticate(t, app, "alice")
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, models.DeriveUserID("alice"), result.ID)
}

func TestAuthenticate_BadCredentialsIsEmptyOK(t *testing.T) {
	app, _ := newTestApp(t)

	register(t, app, "alice")

	resp := doJSON(t, app, http.MethodPost, "/api/users/authenticate", "", fiber.Map{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, string(b), "failed authentication resolves to an empty body")
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/api/users/u1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFollowFlow(t *testing.T) {
	app, _ := newTestApp(t)

	alice := register(t, app, "alice")
	bob := register(t, app, "bob")
	token := authenticate(t, app, "alice").Token

	resp := doJSON(t, app, http.MethodPost, "/api/users/"+alice.ID+"/follow/"+bob.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The follow shows up on both profiles.
	resp = doJSON(t, app, http.MethodGet, "/api/users/"+bob.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bobProfile := decode[models.Profile](t, resp)
	assert.Equal(t, []string{alice.ID}, bobProfile.Followers)

	// Following twice conflicts.
	resp = doJSON(t, app, http.MethodPost, "/api/users/"+alice.ID+"/follow/"+bob.ID, token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Following a missing user is an explicit 404.
	resp = doJSON(t, app, http.MethodPost, "/api/users/"+alice.ID+"/follow/000000000000000000000000", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Only the owner can manage their follow list.
	resp = doJSON(t, app, http.MethodPost, "/api/users/"+bob.ID+"/follow/"+alice.ID, token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/users/"+alice.ID+"/unfollow/"+bob.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Unfollowing again stays a no-op.
	resp = doJSON(t, app, http.MethodPost, "/api/users/"+alice.ID+"/unfollow/"+bob.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestUpdateUser(t *testing.T) {
	app, _ := newTestApp(t)

	alice := register(t, app, "alice")
	bob := register(t, app, "bob")
	token := authenticate(t, app, "alice").Token

	resp := doJSON(t, app, http.MethodPut, "/api/users/"+alice.ID, token, fiber.Map{
		"first_name": "Alice",
		"last_name":  "Smith",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[models.Profile](t, resp)
	assert.Equal(t, "Alice", updated.FirstName)

	// Updating somebody else's account is forbidden.
	resp = doJSON(t, app, http.MethodPut, "/api/users/"+bob.ID, token, fiber.Map{
		"first_name": "Eve",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Renaming onto a taken username conflicts.
	resp = doJSON(t, app, http.MethodPut, "/api/users/"+alice.ID, token, fiber.Map{
		"username": "bob",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDeleteUser(t *testing.T) {
	app, _ := newTestApp(t)

	alice := register(t, app, "alice")
	register(t, app, "bob")
	aliceToken := authenticate(t, app, "alice").Token
	bobToken := authenticate(t, app, "bob").Token

	resp := doJSON(t, app, http.MethodDelete, "/api/users/"+alice.ID, aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/users/"+alice.ID, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPostFlow(t *testing.T) {
	app, _ := newTestApp(t)

	alice := register(t, app, "alice")
	bob := register(t, app, "bob")
	aliceToken := authenticate(t, app, "alice").Token
	bobToken := authenticate(t, app, "bob").Token

	resp := doJSON(t, app, http.MethodPost, "/api/posts/", aliceToken, fiber.Map{
		"author_username": "alice",
		"content":         "hello world",
		"tagged_user_ids": []string{bob.ID},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decode[models.Post](t, resp)
	assert.Equal(t, alice.ID, post.AuthorID)

	// The post appears on the author's and the tagged user's profiles.
	resp = doJSON(t, app, http.MethodGet, "/api/users/"+alice.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{post.ID}, decode[models.Profile](t, resp).Posts)

	resp = doJSON(t, app, http.MethodGet, "/api/users/"+bob.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{post.ID}, decode[models.Profile](t, resp).TaggedPosts)

	// Likes round-trip.
	resp = doJSON(t, app, http.MethodPost, "/api/posts/"+post.ID+"/like", bobToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = doJSON(t, app, http.MethodGet, "/api/users/"+bob.ID, aliceToken, nil)
	assert.Equal(t, []string{post.ID}, decode[models.Profile](t, resp).Likes)
	resp = doJSON(t, app, http.MethodDelete, "/api/posts/"+post.ID+"/like", bobToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = doJSON(t, app, http.MethodPost, "/api/posts/"+post.ID+"/like", bobToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Only the author can delete their post.
	resp = doJSON(t, app, http.MethodDelete, "/api/posts/"+post.ID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/api/posts/"+post.ID, aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The delete request names no tagged users, yet every list entry
	// referencing the post is gone.
	resp = doJSON(t, app, http.MethodGet, "/api/users/"+bob.ID, aliceToken, nil)
	bobAfter := decode[models.Profile](t, resp)
	assert.Empty(t, bobAfter.TaggedPosts)
	assert.Empty(t, bobAfter.Likes)
	resp = doJSON(t, app, http.MethodGet, "/api/users/"+alice.ID, aliceToken, nil)
	assert.Empty(t, decode[models.Profile](t, resp).Posts)
}

func TestListUsers_TotalCountHeader(t *testing.T) {
	app, _ := newTestApp(t)

	register(t, app, "alice")
	register(t, app, "bob")
	token := authenticate(t, app, "alice").Token

	resp := doJSON(t, app, http.MethodGet, "/api/users?limit=1", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2", resp.Header.Get("X-Total-Count"))
	assert.Len(t, decode[[]models.Profile](t, resp), 1)
}

func TestHealthEndpoints(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "healthy", body["db"])
	assert.Equal(t, "unavailable", body["redis"])
}

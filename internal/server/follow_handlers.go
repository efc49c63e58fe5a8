package server

import (
	"mingle/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Follow handles POST /api/users/:id/follow/:toFollowId
func (s *Server) Follow(c *fiber.Ctx) error {
	id, err := s.parseParam(c, "id")
	if err != nil {
		return nil
	}
	toFollowID, err := s.parseParam(c, "toFollowId")
	if err != nil {
		return nil
	}
	if id != callerID(c) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("You can only manage your own follow list"))
	}

	if err := s.userService.Follow(c.Context(), id, toFollowID); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Unfollow handles POST /api/users/:id/unfollow/:toFollowId
func (s *Server) Unfollow(c *fiber.Ctx) error {
	id, err := s.parseParam(c, "id")
	if err != nil {
		return nil
	}
	toFollowID, err := s.parseParam(c, "toFollowId")
	if err != nil {
		return nil
	}
	if id != callerID(c) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("You can only manage your own follow list"))
	}

	if err := s.userService.Unfollow(c.Context(), id, toFollowID); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

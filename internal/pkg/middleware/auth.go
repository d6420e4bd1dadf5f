package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/churnaizer/churnaizer/app/models"
	"github.com/churnaizer/churnaizer/app/repository"
	"github.com/churnaizer/churnaizer/internal/pkg/session"
	"github.com/churnaizer/churnaizer/internal/pkg/usercontext"
)

// RequireSession authenticates dashboard requests carrying a bearer
// session token issued by the login endpoint.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authorization required"})
		}

		ownerUUID, err := session.Lookup(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid authorization"})
		}

		repo := repository.GetGlobalFactory().GetUserRepository()
		user, err := repo.GetByUUID(ownerUUID)
		if err != nil {
			log.Warnf("session owner lookup failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid authorization"})
		}
		if user.Status != models.STATUS_ACTIVE {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "User inactive"})
		}

		c.Locals(usercontext.ContextKey, usercontext.UserContext{
			UserID:     user.ID,
			OwnerUUID:  user.UUID,
			Name:       user.Name,
			IsLoggedIn: true,
		})
		c.Locals(usercontext.KeyUserID, user.ID)
		c.Locals(usercontext.KeyOwnerID, user.UUID)

		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

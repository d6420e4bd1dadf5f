package usercontext

import "github.com/gofiber/fiber/v2"

// Shared Locals keys used across controllers and middlewares
const (
	ContextKey = "USER_CONTEXT"
	KeyUserID  = "user_id"
	KeyOwnerID = "owner_id"
)

// UserContext represents the authenticated owner for a request
type UserContext struct {
	UserID     uint   `json:"user_id"`
	OwnerUUID  string `json:"owner_uuid"`
	Name       string `json:"name"`
	IsLoggedIn bool   `json:"is_logged_in"`
}

// GetUserContext retrieves the user context from fiber context.
// Returns a default anonymous context if none is set.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(ContextKey); ctx != nil {
		return ctx.(UserContext)
	}
	return UserContext{IsLoggedIn: false}
}

// IsLoggedIn checks if the current request carries an authenticated owner
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetOwnerUUID returns the current owner's UUID, or empty if anonymous
func GetOwnerUUID(c *fiber.Ctx) string {
	return GetUserContext(c).OwnerUUID
}

package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/churnaizer/churnaizer/app/controllers"
	"github.com/churnaizer/churnaizer/internal/pkg/middleware"
)

// APIServer implements the public v1 API surface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// Pong is the ping response body
type Pong struct {
	Ping string `json:"ping"`
}

// PostTrack ingests a real-time tracking batch. Authentication is the
// API key carried in the request itself, not a session, so no
// middleware is attached here.
func (s *APIServer) PostTrack(c *fiber.Ctx) error {
	return controllers.HandleTrack(c)
}

// PostCSVImport ingests a parsed CSV batch for the logged-in owner.
func (s *APIServer) PostCSVImport(c *fiber.Ctx) error {
	return controllers.HandleCSVImport(c)
}

// RegisterHandlers attaches the v1 routes to the given router group.
// Session-protected routes share one RequireSession instance.
func RegisterHandlers(router fiber.Router, s *APIServer) {
	requireSession := middleware.RequireSession()

	router.Get("/ping", s.GetPing)

	// Ingestion
	router.Post("/track", s.PostTrack)
	router.Post("/ingest/csv", requireSession, s.PostCSVImport)

	// Owner accounts and sessions
	router.Post("/auth/register", controllers.HandleRegister)
	router.Post("/auth/login", controllers.HandleLogin)
	router.Post("/auth/logout", requireSession, controllers.HandleLogout)

	// API key management
	router.Get("/keys", requireSession, controllers.HandleListAPIKeys)
	router.Post("/keys", requireSession, controllers.HandleCreateAPIKey)
	router.Delete("/keys/:id", requireSession, controllers.HandleDeleteAPIKey)

	// Dashboard
	router.Get("/stats", requireSession, controllers.HandleGetStats)
	router.Get("/users", requireSession, controllers.HandleListUsers)

	// Outbound retention email
	router.Post("/email/send", requireSession, controllers.HandleSendEmail)
}

package controllers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/churnaizer/churnaizer/internal/pkg/jobqueue"
)

var emailValidate = validator.New()

type sendEmailRequest struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	HTML    string `json:"html" validate:"required"`
}

// HandleSendEmail queues a retention email for async delivery. The job
// id is returned so the caller can correlate delivery logs.
func HandleSendEmail(c *fiber.Ctx) error {
	var req sendEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON in request body"})
	}
	if err := emailValidate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "to, subject and html are required; to must be a valid email address"})
	}

	jobID, err := jobqueue.GetManager().EnqueueRetentionEmail(req.To, req.Subject, req.HTML)
	if err != nil {
		log.Errorf("failed to enqueue retention email to %s: %v", req.To, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to queue email"})
	}

	return c.JSON(fiber.Map{"status": "queued", "job_id": jobID})
}

package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/churnaizer/churnaizer/app/models"
	"github.com/churnaizer/churnaizer/app/repository"
	"github.com/churnaizer/churnaizer/internal/pkg/usercontext"
)

type createAPIKeyRequest struct {
	Name string `json:"name"`
}

// HandleListAPIKeys returns the owner's keys with masked key material.
func HandleListAPIKeys(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	repo := repository.GetGlobalFactory().GetAPIKeyRepository()
	keys, err := repo.ListByOwner(userCtx.OwnerUUID)
	if err != nil {
		log.Errorf("failed to list api keys for %s: %v", userCtx.OwnerUUID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load API keys"})
	}

	items := make([]fiber.Map, 0, len(keys))
	for _, key := range keys {
		items = append(items, fiber.Map{
			"id":           key.ID,
			"name":         key.Name,
			"key":          key.MaskedKey(),
			"is_active":    key.IsActive,
			"last_used_at": key.LastUsedAt,
			"created_at":   key.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{"keys": items})
}

// HandleCreateAPIKey generates a new key. The full key material is
// returned exactly once, in this response.
func HandleCreateAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req createAPIKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON in request body"})
	}
	if req.Name == "" {
		req.Name = "Default Key"
	}

	raw, err := models.GenerateAPIKey()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate key"})
	}

	key := &models.APIKey{
		OwnerID:  userCtx.OwnerUUID,
		Key:      raw,
		Name:     req.Name,
		IsActive: true,
	}
	repo := repository.GetGlobalFactory().GetAPIKeyRepository()
	if err := repo.Create(key); err != nil {
		log.Errorf("failed to create api key for %s: %v", userCtx.OwnerUUID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create API key"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         key.ID,
		"name":       key.Name,
		"key":        raw,
		"is_active":  key.IsActive,
		"created_at": key.CreatedAt,
	})
}

// HandleDeleteAPIKey deactivates a key; the row stays for auditing.
func HandleDeleteAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid key id"})
	}

	repo := repository.GetGlobalFactory().GetAPIKeyRepository()
	if err := repo.Deactivate(userCtx.OwnerUUID, uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "API key not found"})
		}
		log.Errorf("failed to deactivate api key %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete API key"})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

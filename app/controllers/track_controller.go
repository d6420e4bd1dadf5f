package controllers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/churnaizer/churnaizer/app/repository"
	"github.com/churnaizer/churnaizer/internal/pkg/env"
)

const missingAPIKeyMessage = "API key is required. Include it in X-API-Key header or api_key field in request body."

// HandleTrack ingests real-time tracking signals from the SDK. Accepts
// a single record object or an array for batch; record-level failures
// are reported in the results array, the response status stays 200.
//
// The body is parsed before authentication so malformed JSON yields
// 400 rather than 401, and because the API key may travel in the body.
func HandleTrack(c *fiber.Ctx) error {
	var payload any
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON in request body"})
	}

	single, isObject := payload.(map[string]any)

	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey == "" && isObject {
		apiKey = bodyAPIKey(single)
	}
	if apiKey == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"code":    fiber.StatusUnauthorized,
			"message": missingAPIKeyMessage,
		})
	}

	ownerID, apiKeyID, err := resolveAPIKey(apiKey)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"code":    fiber.StatusUnauthorized,
			"message": "Unauthorized",
		})
	}

	var records []any
	switch v := payload.(type) {
	case []any:
		records = v
	case map[string]any:
		records = []any{v}
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid data format"})
	}

	outcome := getChurnService().ProcessTrackingBatch(c.UserContext(), ownerID, apiKeyID, c.Get("User-Agent"), records)

	return c.JSON(fiber.Map{
		"status":    "ok",
		"processed": outcome.Processed,
		"failed":    outcome.Failed,
		"total":     len(outcome.Results),
		"results":   outcome.Results,
	})
}

func bodyAPIKey(body map[string]any) string {
	for _, field := range []string{"api_key", "apiKey"} {
		if value, ok := body[field].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// resolveAPIKey validates a key against the ALLOWED_API_KEYS env
// allow-list when set, otherwise against the persisted active-key
// table, and returns the owner it belongs to.
func resolveAPIKey(apiKey string) (string, *uint, error) {
	if allowed := strings.TrimSpace(env.GetEnv("ALLOWED_API_KEYS", "")); allowed != "" {
		for _, key := range strings.Split(allowed, ",") {
			if strings.TrimSpace(key) == apiKey {
				return env.GetEnv("DEFAULT_OWNER_ID", "env-validated-user"), nil, nil
			}
		}
		return "", nil, errors.New("api key not in allow-list")
	}

	repo := repository.GetGlobalFactory().GetAPIKeyRepository()
	key, err := repo.GetActiveByKey(apiKey)
	if err != nil {
		return "", nil, err
	}

	// Refresh last-used timestamp best-effort.
	if err := repo.Touch(key.ID); err != nil {
		log.Warnf("failed to update api key usage timestamp for key %d: %v", key.ID, err)
	}

	return key.OwnerID, &key.ID, nil
}

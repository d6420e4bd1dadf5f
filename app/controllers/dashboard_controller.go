package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/churnaizer/churnaizer/app/repository"
	"github.com/churnaizer/churnaizer/internal/pkg/statistics"
	"github.com/churnaizer/churnaizer/internal/pkg/usercontext"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// HandleGetStats serves the dashboard overview numbers.
func HandleGetStats(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	overview, err := statistics.GetOverview(userCtx.OwnerUUID)
	if err != nil {
		log.Errorf("failed to compute overview for %s: %v", userCtx.OwnerUUID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load statistics"})
	}

	return c.JSON(overview)
}

// HandleListUsers returns a page of the owner's tracked users with their
// latest scores.
func HandleListUsers(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	page := parsePositiveInt(c.Query("page"), 1)
	pageSize := parsePositiveInt(c.Query("page_size"), defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	offset := (page - 1) * pageSize

	repo := repository.GetGlobalFactory().GetUserDataRepository()
	rows, err := repo.ListByOwner(userCtx.OwnerUUID, offset, pageSize)
	if err != nil {
		log.Errorf("failed to list users for %s: %v", userCtx.OwnerUUID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load users"})
	}
	total, err := repo.CountByOwner(userCtx.OwnerUUID)
	if err != nil {
		log.Errorf("failed to count users for %s: %v", userCtx.OwnerUUID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load users"})
	}

	items := make([]fiber.Map, 0, len(rows))
	for _, row := range rows {
		items = append(items, fiber.Map{
			"user_id":             row.UserID,
			"email":               row.Email,
			"name":                row.Name,
			"plan":                row.Plan,
			"churn_probability":   row.ChurnScore,
			"risk_level":          row.RiskLevel,
			"lifecycle_stage":     row.UserStage,
			"understanding_score": row.UnderstandingScore,
			"churn_reason":        row.ChurnReason,
			"action_recommended":  row.ActionRecommended,
			"last_login":          row.LastLogin,
			"source":              row.Source,
			"updated_at":          row.UpdatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"users":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

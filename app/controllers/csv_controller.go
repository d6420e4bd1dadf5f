package controllers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/churnaizer/churnaizer/internal/pkg/s3archive"
	"github.com/churnaizer/churnaizer/internal/pkg/usercontext"
)

const defaultCSVFilename = "csv-upload.csv"

type csvImportRequest struct {
	Data     []map[string]any `json:"data"`
	Filename string           `json:"filename"`
}

// HandleCSVImport ingests a batch of parsed CSV rows for the
// authenticated owner. Rows fail individually; the response always
// carries the full per-row ledger with HTTP 200.
func HandleCSVImport(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authorization required"})
	}

	var req csvImportRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid data format"})
	}
	if len(req.Data) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid data format"})
	}

	filename := req.Filename
	if filename == "" {
		filename = defaultCSVFilename
	}

	// Archive the raw payload best-effort; the fiber body buffer is
	// reused after the handler returns, so copy it first.
	rawBody := append([]byte(nil), c.Body()...)
	go s3archive.Archive(userCtx.OwnerUUID, rawBody)

	outcome := getChurnService().ProcessCSVBatch(c.UserContext(), userCtx.OwnerUUID, req.Data, filename)

	return c.JSON(outcome)
}

package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnaizer/churnaizer/app/models"
	"github.com/churnaizer/churnaizer/internal/pkg/churn"
	"github.com/churnaizer/churnaizer/internal/pkg/usercontext"
)

func setupCSVTest(t *testing.T, loggedIn bool) (*fiber.App, *memoryUserDataRepo, *memoryAuditRepo) {
	t.Helper()

	users := newMemoryUserDataRepo()
	audit := &memoryAuditRepo{}
	SetChurnService(churn.NewService(users, audit, nil, nil))
	t.Cleanup(func() { SetChurnService(nil) })

	app := fiber.New()
	app.Post("/api/v1/ingest/csv", func(c *fiber.Ctx) error {
		if loggedIn {
			c.Locals(usercontext.ContextKey, usercontext.UserContext{
				UserID:     1,
				OwnerUUID:  "owner-test",
				Name:       "Owner",
				IsLoggedIn: true,
			})
		}
		return c.Next()
	}, HandleCSVImport)
	return app, users, audit
}

func csvRow(email string) map[string]any {
	return map[string]any{
		"customer_email":              email,
		"customer_name":               "Jane",
		"plan":                        "Free",
		"monthly_revenue":             "0",
		"number_of_logins_last30days": "2",
		"email_opens_last30days":      "1",
		"support_tickets_opened":      "0",
		"billing_status":              "active",
	}
}

func TestHandleCSVImport(t *testing.T) {
	app, users, audit := setupCSVTest(t, true)

	resp := postJSON(t, app, "/api/v1/ingest/csv", map[string]any{
		"filename": "customers.csv",
		"data": []map[string]any{
			csvRow("a@example.com"),
			{"customer_email": "broken@example.com"},
		},
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(2), body["rows_processed"])
	assert.Equal(t, float64(1), body["rows_success"])
	assert.Equal(t, float64(1), body["rows_failed"])
	assert.Equal(t, "1 rows processed successfully, 1 failed", body["message"])

	details := body["error_details"].([]any)
	require.Len(t, details, 1)
	detail := details[0].(map[string]any)
	assert.Equal(t, float64(2), detail["row"])
	assert.Equal(t, "broken@example.com", detail["user_id"])

	row, err := users.GetByOwnerAndUser("owner-test", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.SourceCSV, row.Source)

	require.Len(t, audit.uploads, 1)
	assert.Equal(t, "customers.csv", audit.uploads[0].Filename)
}

func TestHandleCSVImportDefaultFilename(t *testing.T) {
	app, _, audit := setupCSVTest(t, true)

	resp := postJSON(t, app, "/api/v1/ingest/csv", map[string]any{
		"data": []map[string]any{csvRow("a@example.com")},
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, audit.uploads, 1)
	assert.Equal(t, defaultCSVFilename, audit.uploads[0].Filename)
}

func TestHandleCSVImportRequiresLogin(t *testing.T) {
	app, _, _ := setupCSVTest(t, false)

	resp := postJSON(t, app, "/api/v1/ingest/csv", map[string]any{
		"data": []map[string]any{csvRow("a@example.com")},
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleCSVImportEmptyData(t *testing.T) {
	app, _, _ := setupCSVTest(t, true)

	for _, payload := range []any{
		map[string]any{"data": []map[string]any{}},
		map[string]any{},
	} {
		resp := postJSON(t, app, "/api/v1/ingest/csv", payload, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "Invalid data format", body["error"])
	}
}

func TestHandleCSVImportMalformedJSON(t *testing.T) {
	app, _, _ := setupCSVTest(t, true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/csv", strings.NewReader("[broken"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

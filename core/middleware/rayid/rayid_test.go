package rayid

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp() *fiber.App {
	app := fiber.New()
	app.Use(New())
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("ray_id").(string))
	})
	return app
}

func TestRayIDGenerated(t *testing.T) {
	app := testApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))

	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(HeaderName))
}

func TestRayIDHonorsInboundHeader(t *testing.T) {
	app := testApp()

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set(HeaderName, "trace-123")
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, "trace-123", resp.Header.Get(HeaderName))
}

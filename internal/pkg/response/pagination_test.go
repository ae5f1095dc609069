package response

import (
	"net/http/httptest"
	"testing"

	"envios-backend/internal/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseQuery(t *testing.T, query string) (int, int, error) {
	t.Helper()
	var page, limit int
	var parseErr error

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		page, limit, parseErr = ParsePageLimit(c)
		return c.SendStatus(fiber.StatusOK)
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/"+query, nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return page, limit, parseErr
}

func TestParsePageLimit_Defaults(t *testing.T) {
	page, limit, err := parseQuery(t, "")
	require.NoError(t, err)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)
}

func TestParsePageLimit_Explicit(t *testing.T) {
	page, limit, err := parseQuery(t, "?page=3&limit=50")
	require.NoError(t, err)
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, limit)

	page, limit, err = parseQuery(t, "?limit=100")
	require.NoError(t, err)
	assert.Equal(t, 1, page)
	assert.Equal(t, 100, limit)
}

func TestParsePageLimit_OutOfRangeIsAnError(t *testing.T) {
	for _, q := range []string{"?page=0", "?page=-1", "?page=abc", "?limit=0", "?limit=101", "?limit=abc"} {
		_, _, err := parseQuery(t, q)
		require.Error(t, err, "query %s", q)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "query %s", q)
	}
}

func TestNewListMeta(t *testing.T) {
	meta := NewListMeta(2, 20, 45)
	assert.Equal(t, 2, meta.Page)
	assert.Equal(t, 20, meta.Limit)
	assert.EqualValues(t, 45, meta.Total)
	assert.Equal(t, 3, meta.TotalPages)

	// An empty listing still reports one page.
	meta = NewListMeta(1, 20, 0)
	assert.Equal(t, 1, meta.TotalPages)

	meta = NewListMeta(1, 20, 40)
	assert.Equal(t, 2, meta.TotalPages)
}

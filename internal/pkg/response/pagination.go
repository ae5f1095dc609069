package response

import (
	"strconv"

	"envios-backend/internal/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// ListMeta is the pagination metadata attached to every list response.
type ListMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewListMeta computes totalPages from total and limit.
func NewListMeta(page, limit int, total int64) ListMeta {
	pages := int((total + int64(limit) - 1) / int64(limit))
	if pages < 1 {
		pages = 1
	}
	return ListMeta{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// ParsePageLimit reads page/limit query params. Missing params default to
// page 1 / limit 20; explicit values outside page >= 1, limit in [1,100]
// are a validation error rather than silently clamped.
func ParsePageLimit(c *fiber.Ctx) (page, limit int, err error) {
	page, limit = 1, defaultLimit
	if raw := c.Query("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, apperr.Validation("page must be a positive integer")
		}
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxLimit {
			return 0, 0, apperr.Validation("limit must be between 1 and 100")
		}
	}
	return page, limit, nil
}

package reports

import (
	"envios-backend/internal/pkg/apperr"
	"envios-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

// GET /api/v1/reports/dashboard
func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	data, err := h.Service.Dashboard(c.Context())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Dashboard fetched successfully", data, nil)
}

// GET /api/v1/reports/history?page=&limit= (admin)
func (h *Handlers) GetHistory(c *fiber.Ctx) error {
	page, limit, err := response.ParsePageLimit(c)
	if err != nil {
		return response.FromError(c, err)
	}
	rows, total, err := h.Service.ListHistory(c.Context(), page, limit)
	if err != nil {
		return response.FromError(c, err)
	}
	meta := response.NewListMeta(page, limit, total)
	return response.Success(c, "History fetched successfully", rows, meta)
}

// GET /api/v1/reports/history/:historical_period_id (admin)
func (h *Handlers) GetHistoryDetail(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("historical_period_id"))
	if err != nil {
		return response.FromError(c, apperr.Validation("Invalid historical_period_id format"))
	}
	detail, err := h.Service.GetHistory(c.Context(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Historical period fetched successfully", detail, nil)
}

package periods

import (
	"encoding/json"
	"time"

	"envios-backend/internal/archive"
	"envios-backend/internal/middleware"
	"envios-backend/internal/pkg/apperr"
	"envios-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service  *Service
	Archiver *archive.Service
}

type createPeriodBody struct {
	TotalCapacity decimal.Decimal `json:"total_capacity"`
	SendDate      string          `json:"send_date"`
}

// POST /api/v1/periods/create-period (admin)
func (h *Handlers) CreatePeriod(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var body createPeriodBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.FromError(c, apperr.Validation("Invalid request body"))
	}
	sendDate, err := parseDate(body.SendDate)
	if err != nil {
		return response.FromError(c, err)
	}
	period, err := h.Service.CreatePeriod(c.Context(), CreatePeriodInput{
		TotalCapacity: body.TotalCapacity,
		SendDate:      sendDate,
		ActorEmail:    actor.Email,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Period created successfully", period, nil)
}

// GET /api/v1/periods/get-all-periods?active=&page=&limit=
func (h *Handlers) GetAllPeriods(c *fiber.Ctx) error {
	page, limit, err := response.ParsePageLimit(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var activeFilter *bool
	switch c.Query("active") {
	case "true":
		v := true
		activeFilter = &v
	case "false":
		v := false
		activeFilter = &v
	case "":
	default:
		return response.FromError(c, apperr.Validation("active must be true or false"))
	}
	periods, total, err := h.Service.ListPeriods(c.Context(), activeFilter, page, limit)
	if err != nil {
		return response.FromError(c, err)
	}
	meta := response.NewListMeta(page, limit, total)
	return response.Success(c, "Periods fetched successfully", periods, meta)
}

// GET /api/v1/periods/get-period/:period_id
func (h *Handlers) GetPeriod(c *fiber.Ctx) error {
	periodID, err := parseUUIDParam(c, "period_id")
	if err != nil {
		return response.FromError(c, err)
	}
	period, err := h.Service.GetPeriod(c.Context(), periodID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Period fetched successfully", period, nil)
}

type updatePeriodBody struct {
	TotalCapacity *decimal.Decimal `json:"total_capacity"`
	SendDate      *string          `json:"send_date"`
}

// PATCH /api/v1/periods/update-period/:period_id (admin)
func (h *Handlers) UpdatePeriod(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	periodID, err := parseUUIDParam(c, "period_id")
	if err != nil {
		return response.FromError(c, err)
	}
	var body updatePeriodBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.FromError(c, apperr.Validation("Invalid request body"))
	}
	in := UpdatePeriodInput{TotalCapacity: body.TotalCapacity, ActorEmail: actor.Email}
	if body.SendDate != nil {
		sendDate, err := parseDate(*body.SendDate)
		if err != nil {
			return response.FromError(c, err)
		}
		in.SendDate = &sendDate
	}
	period, err := h.Service.UpdatePeriod(c.Context(), periodID, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Period updated successfully", period, nil)
}

// POST /api/v1/periods/close-period/:period_id (admin) — irreversible archival.
func (h *Handlers) ClosePeriod(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	periodID, err := parseUUIDParam(c, "period_id")
	if err != nil {
		return response.FromError(c, err)
	}
	result, err := h.Archiver.ClosePeriod(c.Context(), periodID, actor.Email)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Period closed and archived successfully", result, nil)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, apperr.Validation("Date is required (YYYY-MM-DD)")
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, apperr.Validation("Invalid date format, expected YYYY-MM-DD")
	}
	return t, nil
}

func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid " + name + " format")
	}
	return id, nil
}

package reservations

import (
	"encoding/json"
	"time"

	"envios-backend/internal/allocation"
	"envios-backend/internal/middleware"
	"envios-backend/internal/pkg/apperr"
	"envios-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service   *Service
	Allocator *allocation.Service
}

type createReservationBody struct {
	Weight           decimal.Decimal `json:"weight"`
	Date             string          `json:"date"`
	DestinationState string          `json:"destination_state"`
	Notes            string          `json:"notes"`
	PeriodID         *string         `json:"period_id"`
}

// POST /api/v1/reservations/create-reservation — runs the allocation planner.
func (h *Handlers) CreateReservation(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var body createReservationBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.FromError(c, apperr.Validation("Invalid request body"))
	}
	date, err := parseDate(body.Date)
	if err != nil {
		return response.FromError(c, err)
	}
	var periodID *uuid.UUID
	if body.PeriodID != nil && *body.PeriodID != "" {
		id, err := uuid.Parse(*body.PeriodID)
		if err != nil {
			return response.FromError(c, apperr.Validation("Invalid period_id format"))
		}
		periodID = &id
	}

	result, err := h.Allocator.Allocate(c.Context(), allocation.AllocateInput{
		UserID:           actor.UserID,
		Weight:           body.Weight,
		Date:             date,
		DestinationState: body.DestinationState,
		Notes:            body.Notes,
		PeriodID:         periodID,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	// Common case: one row. A split returns the ordered siblings and a
	// message naming how the weight was divided.
	if len(result.Reservations) == 1 {
		return response.SuccessCreated(c, result.Message, result.Reservations[0], nil)
	}
	return response.SuccessCreated(c, result.Message, result.Reservations, nil)
}

// GET /api/v1/reservations/get-reservations?period_id=&status=&user_id=&page=&limit=
func (h *Handlers) GetReservations(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	page, limit, err := response.ParsePageLimit(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var filters ListFilters
	if raw := c.Query("period_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return response.FromError(c, apperr.Validation("Invalid period_id format"))
		}
		filters.PeriodID = &id
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return response.FromError(c, apperr.Validation("Invalid user_id format"))
		}
		filters.UserID = &id
	}
	filters.Status = c.Query("status")

	rows, total, err := h.Service.ListReservations(c.Context(), actor, filters, page, limit)
	if err != nil {
		return response.FromError(c, err)
	}
	meta := response.NewListMeta(page, limit, total)
	return response.Success(c, "Reservations fetched successfully", rows, meta)
}

// GET /api/v1/reservations/get-reservation/:reservation_id
func (h *Handlers) GetReservation(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	reservationID, err := parseUUIDParam(c, "reservation_id")
	if err != nil {
		return response.FromError(c, err)
	}
	r, err := h.Service.GetReservation(c.Context(), actor, reservationID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Reservation fetched successfully", r, nil)
}

type updateReservationBody struct {
	Weight           *decimal.Decimal `json:"weight"`
	Notes            *string          `json:"notes"`
	DestinationState *string          `json:"destination_state"`
}

// PATCH /api/v1/reservations/update-reservation/:reservation_id
func (h *Handlers) UpdateReservation(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	reservationID, err := parseUUIDParam(c, "reservation_id")
	if err != nil {
		return response.FromError(c, err)
	}
	var body updateReservationBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.FromError(c, apperr.Validation("Invalid request body"))
	}
	r, err := h.Service.UpdateReservation(c.Context(), actor, reservationID, UpdateInput{
		Weight:           body.Weight,
		Notes:            body.Notes,
		DestinationState: body.DestinationState,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Reservation updated successfully", r, nil)
}

// DELETE /api/v1/reservations/delete-reservation/:reservation_id
func (h *Handlers) DeleteReservation(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	reservationID, err := parseUUIDParam(c, "reservation_id")
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Service.DeleteReservation(c.Context(), actor, reservationID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Reservation deleted successfully", nil, nil)
}

type updateStatusBody struct {
	Status string `json:"status"`
}

// PATCH /api/v1/reservations/update-status/:reservation_id
func (h *Handlers) UpdateStatus(c *fiber.Ctx) error {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return response.FromError(c, err)
	}
	reservationID, err := parseUUIDParam(c, "reservation_id")
	if err != nil {
		return response.FromError(c, err)
	}
	var body updateStatusBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return response.FromError(c, apperr.Validation("Invalid request body"))
	}
	if body.Status == "" {
		return response.FromError(c, apperr.Validation("status is required"))
	}
	r, err := h.Service.UpdateStatus(c.Context(), actor, reservationID, body.Status)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Reservation status updated successfully", r, nil)
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

package reservations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"envios-backend/internal/allocation"
	"envios-backend/internal/constants"
	"envios-backend/internal/middleware"
	"envios-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func localsFor(u *models.User) map[string]interface{} {
	return map[string]interface{}{
		"user_id":  u.UserID.String(),
		"fullname": u.Fullname,
		"email":    u.Email,
		"role":     u.Role,
	}
}

func newTestApp(db *gorm.DB, user map[string]interface{}) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		if user != nil {
			c.Locals("user", user)
		}
		return c.Next()
	})
	h := &Handlers{Service: newService(db), Allocator: &allocation.Service{DB: db}}
	grp := app.Group("/api/v1/reservations", middleware.RequireAuth())
	grp.Post("/create-reservation", h.CreateReservation)
	grp.Get("/get-reservations", h.GetReservations)
	grp.Get("/get-reservation/:reservation_id", h.GetReservation)
	grp.Patch("/update-reservation/:reservation_id", h.UpdateReservation)
	grp.Delete("/delete-reservation/:reservation_id", h.DeleteReservation)
	grp.Patch("/update-status/:reservation_id", h.UpdateStatus)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed), "body: %s", raw)
	}
	return resp, parsed
}

func TestCreateReservationHandler_SingleRow(t *testing.T) {
	db := setupDB(t)
	u := createUser(t, db, "owner@example.com", constants.Customer)
	createPeriod(t, db, "100")
	app := newTestApp(db, localsFor(u))

	resp, body := doJSON(t, app, "POST", "/api/v1/reservations/create-reservation", fiber.Map{
		"weight":            40,
		"date":              "2026-09-01",
		"destination_state": "Zulia",
		"notes":             "boxes",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Reservation created successfully", body["message"])

	// Single row comes back as an object, not an array.
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "single allocation returns one object")
	assert.Equal(t, constants.StatusPending, data["status"])
	assert.Equal(t, u.UserID.String(), data["user_id"])
}

func TestCreateReservationHandler_Split(t *testing.T) {
	db := setupDB(t)
	u := createUser(t, db, "owner@example.com", constants.Customer)
	first := models.CapacityPeriod{TotalCapacity: dec("30"), SendDate: date("2026-09-10"), Active: true}
	second := models.CapacityPeriod{TotalCapacity: dec("50"), SendDate: date("2026-10-10"), Active: true}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)
	app := newTestApp(db, localsFor(u))

	resp, body := doJSON(t, app, "POST", "/api/v1/reservations/create-reservation", fiber.Map{
		"weight":            60,
		"date":              "2026-09-01",
		"destination_state": "Zulia",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Contains(t, body["message"], "split across 2 periods")

	rows, ok := body["data"].([]interface{})
	require.True(t, ok, "split allocation returns the sibling rows")
	assert.Len(t, rows, 2)
}

func TestCreateReservationHandler_Validation(t *testing.T) {
	db := setupDB(t)
	u := createUser(t, db, "owner@example.com", constants.Customer)
	createPeriod(t, db, "100")
	app := newTestApp(db, localsFor(u))

	resp, _ := doJSON(t, app, "POST", "/api/v1/reservations/create-reservation", fiber.Map{
		"weight": 0, "date": "2026-09-01", "destination_state": "Zulia",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, "POST", "/api/v1/reservations/create-reservation", fiber.Map{
		"weight": 10, "destination_state": "Zulia",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, "POST", "/api/v1/reservations/create-reservation", fiber.Map{
		"weight": 10, "date": "2026-09-01", "destination_state": "Zulia", "period_id": "not-a-uuid",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateReservationHandler_CapacityConflict(t *testing.T) {
	db := setupDB(t)
	u := createUser(t, db, "owner@example.com", constants.Customer)
	createPeriod(t, db, "50")
	app := newTestApp(db, localsFor(u))

	resp, body := doJSON(t, app, "POST", "/api/v1/reservations/create-reservation", fiber.Map{
		"weight": 80, "date": "2026-09-01", "destination_state": "Zulia",
	})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	errObj := body["error"].(map[string]interface{})
	details := errObj["details"].(map[string]interface{})
	assert.Equal(t, "50.00", details["satisfiable"])
	assert.Equal(t, "30.00", details["shortfall"])
}

func TestGetReservationsHandler_Pagination(t *testing.T) {
	db := setupDB(t)
	u := createUser(t, db, "owner@example.com", constants.Customer)
	p := createPeriod(t, db, "100")
	for i := 0; i < 3; i++ {
		createReservation(t, db, u.UserID, p.PeriodID, "5", constants.StatusPending)
	}
	app := newTestApp(db, localsFor(u))

	resp, body := doJSON(t, app, "GET", "/api/v1/reservations/get-reservations?limit=2", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	meta := body["metadata"].(map[string]interface{})
	assert.EqualValues(t, 3, meta["total"])
	assert.EqualValues(t, 2, meta["totalPages"])
	assert.Len(t, body["data"].([]interface{}), 2)
}

func TestUpdateStatusHandler(t *testing.T) {
	db := setupDB(t)
	owner := createUser(t, db, "owner@example.com", constants.Customer)
	admin := createUser(t, db, "admin@example.com", constants.Admin)
	p := createPeriod(t, db, "100")
	r := createReservation(t, db, owner.UserID, p.PeriodID, "10", constants.StatusPending)
	target := fmt.Sprintf("/api/v1/reservations/update-status/%s", r.ReservationID)

	// Customer cannot confirm.
	customerApp := newTestApp(db, localsFor(owner))
	resp, _ := doJSON(t, customerApp, "PATCH", target, fiber.Map{"status": constants.StatusConfirmed})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Admin confirms; the stamp shows up in the response.
	adminApp := newTestApp(db, localsFor(admin))
	resp, body := doJSON(t, adminApp, "PATCH", target, fiber.Map{"status": constants.StatusConfirmed})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, constants.StatusConfirmed, data["status"])
	assert.NotNil(t, data["confirmed_at"])

	// Same status again is a conflict.
	resp, _ = doJSON(t, adminApp, "PATCH", target, fiber.Map{"status": constants.StatusConfirmed})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// Skipping a step is a conflict too.
	resp, _ = doJSON(t, adminApp, "PATCH", target, fiber.Map{"status": constants.StatusDelivered})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// Missing status field.
	resp, _ = doJSON(t, adminApp, "PATCH", target, fiber.Map{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDeleteReservationHandler(t *testing.T) {
	db := setupDB(t)
	owner := createUser(t, db, "owner@example.com", constants.Customer)
	other := createUser(t, db, "other@example.com", constants.Customer)
	p := createPeriod(t, db, "100")
	r := createReservation(t, db, owner.UserID, p.PeriodID, "10", constants.StatusPending)
	target := fmt.Sprintf("/api/v1/reservations/delete-reservation/%s", r.ReservationID)

	otherApp := newTestApp(db, localsFor(other))
	resp, _ := doJSON(t, otherApp, "DELETE", target, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	ownerApp := newTestApp(db, localsFor(owner))
	resp, _ = doJSON(t, ownerApp, "DELETE", target, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, ownerApp, "DELETE", target, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

package allocation

import (
	"context"
	"testing"
	"time"

	"envios-backend/internal/constants"
	"envios-backend/internal/database"
	"envios-backend/internal/models"
	"envios-backend/internal/pkg/apperr"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	u := models.User{Fullname: "Test User", Email: "user@example.com", PasswordHash: "x", Role: constants.Customer}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func createPeriod(t *testing.T, db *gorm.DB, capacity string, sendDate time.Time) *models.CapacityPeriod {
	t.Helper()
	p := models.CapacityPeriod{TotalCapacity: dec(capacity), SendDate: sendDate, Active: true}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

func countReservations(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Reservation{}).Count(&n).Error)
	return n
}

func TestAllocate_SinglePeriod(t *testing.T) {
	db := setupDB(t)
	u := createUser(t, db)
	p := createPeriod(t, db, "100", date("2026-09-10"))
	svc := &Service{DB: db}

	res, err := svc.Allocate(context.Background(), AllocateInput{
		UserID:           u.UserID,
		Weight:           dec("40"),
		Date:             date("2026-09-01"),
		DestinationState: "Zulia",
		Notes:            "boxes",
	})
	require.NoError(t, err)
	require.Len(t, res.Reservations, 1)

	r := res.Reservations[0]
	assert.Equal(t, p.PeriodID, r.PeriodID)
	assert.Equal(t, constants.StatusPending, r.Status)
	assert.True(t, r.Weight.Equal(dec("40")))
	assert.Equal(t, "boxes", r.Notes)
	assert.Equal(t, "Reservation created successfully", res.Message)
	assert.EqualValues(t, 1, countReservations(t, db))
}

func TestAllocate_SplitAcrossPeriods(t *testing.T) {
	db := setupDB(t)
	u := createUser(t, db)
	p1 := createPeriod(t, db, "30", date("2026-09-10"))
	p2 := createPeriod(t, db, "50", date("2026-10-10"))
	svc := &Service{DB: db}

	res, err := svc.Allocate(context.Background(), AllocateInput{
		UserID:           u.UserID,
		Weight:           dec("60"),
		Date:             date("2026-09-01"),
		DestinationState: "Zulia",
		Notes:            "boxes",
	})
	require.NoError(t, err)
	require.Len(t, res.Reservations, 2)

	first, second := res.Reservations[0], res.Reservations[1]
	assert.Equal(t, p1.PeriodID, first.PeriodID)
	assert.True(t, first.Weight.Equal(dec("30")))
	assert.Equal(t, "boxes", first.Notes)

	assert.Equal(t, p2.PeriodID, second.PeriodID)
	assert.True(t, second.Weight.Equal(dec("30")))
	assert.Equal(t, "boxes (part 2 of 2)", second.Notes)

	assert.Contains(t, res.Message, "split across 2 periods")
}

func TestAllocate_ShortfallCreatesNothing(t *testing.T) {
	db := setupDB(t)
	u := createUser(t, db)
	createPeriod(t, db, "30", date("2026-09-10"))
	createPeriod(t, db, "50", date("2026-10-10"))
	svc := &Service{DB: db}

	_, err := svc.Allocate(context.Background(), AllocateInput{
		UserID:           u.UserID,
		Weight:           dec("100"),
		Date:             date("2026-09-01"),
		DestinationState: "Zulia",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindCapacityExceeded, apperr.KindOf(err))
	assert.EqualValues(t, 0, countReservations(t, db), "failed allocation must not leave partial rows")
}

func TestAllocate_ExplicitPeriodNeverSpans(t *testing.T) {
	db := setupDB(t)
	u := createUser(t, db)
	p1 := createPeriod(t, db, "30", date("2026-09-10"))
	createPeriod(t, db, "100", date("2026-10-10"))
	svc := &Service{DB: db}

	// Fits in the chosen period.
	res, err := svc.Allocate(context.Background(), AllocateInput{
		UserID:           u.UserID,
		Weight:           dec("25"),
		Date:             date("2026-09-01"),
		DestinationState: "Zulia",
		PeriodID:         &p1.PeriodID,
	})
	require.NoError(t, err)
	require.Len(t, res.Reservations, 1)
	assert.Equal(t, p1.PeriodID, res.Reservations[0].PeriodID)

	// Does not fit: the other period's free capacity is not consulted.
	_, err = svc.Allocate(context.Background(), AllocateInput{
		UserID:           u.UserID,
		Weight:           dec("10"),
		Date:             date("2026-09-01"),
		DestinationState: "Zulia",
		PeriodID:         &p1.PeriodID,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindCapacityExceeded, apperr.KindOf(err))
	assert.EqualValues(t, 1, countReservations(t, db))
}

func TestAllocate_ClosedExplicitPeriod(t *testing.T) {
	db := setupDB(t)
	u := createUser(t, db)
	p := models.CapacityPeriod{TotalCapacity: dec("100"), SendDate: date("2026-09-10"), Active: false}
	require.NoError(t, db.Create(&p).Error)
	svc := &Service{DB: db}

	_, err := svc.Allocate(context.Background(), AllocateInput{
		UserID:           u.UserID,
		Weight:           dec("10"),
		Date:             date("2026-09-01"),
		DestinationState: "Zulia",
		PeriodID:         &p.PeriodID,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestAllocate_NoPeriodForDate(t *testing.T) {
	db := setupDB(t)
	u := createUser(t, db)
	createPeriod(t, db, "100", date("2026-09-10"))
	svc := &Service{DB: db}

	_, err := svc.Allocate(context.Background(), AllocateInput{
		UserID:           u.UserID,
		Weight:           dec("10"),
		Date:             date("2026-12-01"), // after every send date
		DestinationState: "Zulia",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestAllocate_InputValidation(t *testing.T) {
	db := setupDB(t)
	u := createUser(t, db)
	createPeriod(t, db, "100", date("2026-09-10"))
	svc := &Service{DB: db}

	_, err := svc.Allocate(context.Background(), AllocateInput{
		UserID: u.UserID, Weight: dec("0"), Date: date("2026-09-01"), DestinationState: "Zulia",
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Allocate(context.Background(), AllocateInput{
		UserID: u.UserID, Weight: dec("10"), Date: date("2026-09-01"),
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

// Sequential fill: with capacity 75 and one hundred 1.00 lb requests, exactly
// 75 succeed and the committed total equals the capacity.
func TestAllocate_FillsToCapacityExactly(t *testing.T) {
	db := setupDB(t)
	u := createUser(t, db)
	p := createPeriod(t, db, "75", date("2026-09-10"))
	svc := &Service{DB: db}

	succeeded := 0
	for i := 0; i < 100; i++ {
		_, err := svc.Allocate(context.Background(), AllocateInput{
			UserID:           u.UserID,
			Weight:           dec("1.00"),
			Date:             date("2026-09-01"),
			DestinationState: "Zulia",
		})
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, apperr.KindCapacityExceeded, apperr.KindOf(err))
		}
	}
	assert.Equal(t, 75, succeeded)

	var weights []decimal.Decimal
	require.NoError(t, db.Model(&models.Reservation{}).
		Where("period_id = ?", p.PeriodID).
		Pluck("weight", &weights).Error)
	total := decimal.Zero
	for _, w := range weights {
		total = total.Add(w)
	}
	assert.True(t, total.Equal(dec("75")), "committed %s", total)
}

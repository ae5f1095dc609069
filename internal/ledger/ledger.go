// Package ledger answers how much capacity remains in a period. It has no
// side effects; every query runs inside the caller's transaction so the
// read is consistent with the write that follows it.
package ledger

import (
	"time"

	"envios-backend/internal/constants"
	"envios-backend/internal/models"
	"envios-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate applies a locking read on dialects that support SELECT ... FOR UPDATE.
// SQLite (tests) has no row locks; its writer lock serializes transactions instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// LockPeriod loads one period with a locking read. With activeOnly, an
// inactive period is reported as not found, same as a missing one.
func LockPeriod(tx *gorm.DB, periodID uuid.UUID, activeOnly bool) (*models.CapacityPeriod, error) {
	var period models.CapacityPeriod
	q := forUpdate(tx).Where("period_id = ?", periodID)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.First(&period).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Period not found")
		}
		return nil, err
	}
	return &period, nil
}

// LockActivePeriods loads all active periods whose send date is on/after
// fromDate, ordered ascending by send date, with locking reads. This is the
// candidate set the allocator walks.
func LockActivePeriods(tx *gorm.DB, fromDate time.Time) ([]models.CapacityPeriod, error) {
	var periods []models.CapacityPeriod
	err := forUpdate(tx).
		Where("active = ? AND send_date >= ?", true, fromDate).
		Order("send_date ASC").
		Find(&periods).Error
	if err != nil {
		return nil, err
	}
	return periods, nil
}

// CommittedWeight sums the weights of non-cancelled reservations in the
// period. exclude, when non-nil, leaves that reservation out of the sum
// (used when re-checking a weight edit against its own period).
func CommittedWeight(tx *gorm.DB, periodID uuid.UUID, exclude *uuid.UUID) (decimal.Decimal, error) {
	q := tx.Model(&models.Reservation{}).
		Where("period_id = ? AND status <> ?", periodID, constants.StatusCancelled)
	if exclude != nil {
		q = q.Where("reservation_id <> ?", *exclude)
	}
	var weights []decimal.Decimal
	if err := q.Pluck("weight", &weights).Error; err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(w)
	}
	return sum, nil
}

// Remaining computes the period's remaining capacity:
// totalCapacity - sum(weight of non-cancelled reservations).
func Remaining(tx *gorm.DB, period *models.CapacityPeriod) (decimal.Decimal, error) {
	committed, err := CommittedWeight(tx, period.PeriodID, nil)
	if err != nil {
		return decimal.Zero, err
	}
	return period.TotalCapacity.Sub(committed), nil
}

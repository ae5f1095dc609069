package reservations

import (
	"context"
	"fmt"
	"time"

	"envios-backend/internal/ledger"
	"envios-backend/internal/middleware"
	"envios-backend/internal/models"
	"envios-backend/internal/pkg/apperr"
	"envios-backend/internal/status"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	DB      *gorm.DB
	Machine *status.Machine
}

// ListFilters narrows a reservation listing. Customers are always scoped to
// their own rows regardless of UserID.
type ListFilters struct {
	PeriodID *uuid.UUID
	Status   string
	UserID   *uuid.UUID
}

func (s *Service) ListReservations(ctx context.Context, actor middleware.Actor, f ListFilters, page, limit int) ([]models.Reservation, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Reservation{})
	if !actor.IsAdmin() {
		q = q.Where("user_id = ?", actor.UserID)
	} else if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.PeriodID != nil {
		q = q.Where("period_id = ?", *f.PeriodID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(err, "Failed to fetch reservations")
	}
	var rows []models.Reservation
	if err := q.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, apperr.Wrap(err, "Failed to fetch reservations")
	}
	return rows, total, nil
}

func (s *Service) GetReservation(ctx context.Context, actor middleware.Actor, reservationID uuid.UUID) (*models.Reservation, error) {
	var r models.Reservation
	if err := s.DB.WithContext(ctx).Where("reservation_id = ?", reservationID).First(&r).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Reservation not found")
		}
		return nil, apperr.Wrap(err, "Failed to fetch reservation")
	}
	if !actor.IsAdmin() && r.UserID != actor.UserID {
		return nil, apperr.PermissionDenied("You do not have access to this reservation")
	}
	return &r, nil
}

type UpdateInput struct {
	Weight           *decimal.Decimal
	Notes            *string
	DestinationState *string
}

// UpdateReservation lets the owner (or an admin) change weight, notes or
// destination while the reservation is not in a terminal state.
//
// A weight change is re-checked against the reservation's current period
// only, excluding its own committed weight; it never re-splits across other
// periods. An increase beyond that single period's remaining capacity is
// rejected outright.
func (s *Service) UpdateReservation(ctx context.Context, actor middleware.Actor, reservationID uuid.UUID, in UpdateInput) (*models.Reservation, error) {
	if in.Weight == nil && in.Notes == nil && in.DestinationState == nil {
		return nil, apperr.Validation("Nothing to update")
	}

	var updated *models.Reservation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Reservation
		if err := tx.Where("reservation_id = ?", reservationID).First(&r).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("Reservation not found")
			}
			return err
		}
		if !actor.IsAdmin() && r.UserID != actor.UserID {
			return apperr.PermissionDenied("You do not have access to this reservation")
		}
		if status.IsTerminal(r.Status) {
			return apperr.Validation("Cannot modify a reservation with final status")
		}

		if in.Weight != nil {
			newWeight := in.Weight.Round(2)
			if newWeight.LessThanOrEqual(decimal.Zero) {
				return apperr.Validation("Weight must be greater than zero")
			}
			period, err := ledger.LockPeriod(tx, r.PeriodID, false)
			if err != nil {
				return err
			}
			committed, err := ledger.CommittedWeight(tx, r.PeriodID, &r.ReservationID)
			if err != nil {
				return err
			}
			available := period.TotalCapacity.Sub(committed)
			if newWeight.GreaterThan(available) {
				return apperr.CapacityExceeded(
					fmt.Sprintf("Only %s lb available in this period", available.StringFixed(2)),
					map[string]interface{}{
						"requested": newWeight.StringFixed(2),
						"available": available.StringFixed(2),
					})
			}
			r.Weight = newWeight
		}
		if in.Notes != nil {
			r.Notes = *in.Notes
		}
		if in.DestinationState != nil {
			if *in.DestinationState == "" {
				return apperr.Validation("Destination state cannot be empty")
			}
			r.DestinationState = *in.DestinationState
		}

		if err := tx.Save(&r).Error; err != nil {
			return err
		}
		updated = &r
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to update reservation")
	}
	return updated, nil
}

// DeleteReservation removes a reservation. Owners can only delete while the
// reservation has not reached a final status; admins can always delete.
func (s *Service) DeleteReservation(ctx context.Context, actor middleware.Actor, reservationID uuid.UUID) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Reservation
		if err := tx.Where("reservation_id = ?", reservationID).First(&r).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("Reservation not found")
			}
			return err
		}
		if !actor.IsAdmin() {
			if r.UserID != actor.UserID {
				return apperr.PermissionDenied("You do not have access to this reservation")
			}
			if status.IsTerminal(r.Status) {
				return apperr.Validation("Cannot delete a reservation with final status")
			}
		}
		return tx.Delete(&r).Error
	})
	return apperr.Wrap(err, "Failed to delete reservation")
}

// UpdateStatus runs the requested transition through the status machine and
// persists the result. Owners and admins may attempt transitions; the
// machine decides which ones each role is allowed.
func (s *Service) UpdateStatus(ctx context.Context, actor middleware.Actor, reservationID uuid.UUID, newStatus string) (*models.Reservation, error) {
	var updated *models.Reservation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Reservation
		if err := tx.Where("reservation_id = ?", reservationID).First(&r).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("Reservation not found")
			}
			return err
		}
		if !actor.IsAdmin() && r.UserID != actor.UserID {
			return apperr.PermissionDenied("You do not have access to this reservation")
		}
		if err := s.Machine.Transition(&r, newStatus, actor.Role, time.Now()); err != nil {
			return err
		}
		if err := tx.Save(&r).Error; err != nil {
			return err
		}
		updated = &r
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to update reservation status")
	}
	return updated, nil
}

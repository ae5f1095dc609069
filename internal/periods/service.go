package periods

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"envios-backend/internal/ledger"
	"envios-backend/internal/models"
	"envios-backend/internal/pkg/apperr"
	"envios-backend/internal/status"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// PeriodWithUsage is a period plus its derived capacity figures.
type PeriodWithUsage struct {
	models.CapacityPeriod
	ReservedWeight  decimal.Decimal `json:"reserved_weight"`
	RemainingWeight decimal.Decimal `json:"remaining_weight"`
}

type CreatePeriodInput struct {
	TotalCapacity decimal.Decimal
	SendDate      time.Time
	ActorEmail    string
}

// CreatePeriod opens a new capacity window. The send date must be today or later.
func (s *Service) CreatePeriod(ctx context.Context, in CreatePeriodInput) (*models.CapacityPeriod, error) {
	if in.TotalCapacity.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.Validation("Total capacity must be greater than zero")
	}
	today := status.DateOnly(time.Now())
	if in.SendDate.Before(today) {
		return nil, apperr.Validation("Send date cannot be in the past")
	}

	period := models.CapacityPeriod{
		TotalCapacity: in.TotalCapacity.Round(2),
		SendDate:      in.SendDate,
		Active:        true,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&period).Error; err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]interface{}{
			"total_capacity": period.TotalCapacity,
			"send_date":      period.SendDate.Format("2006-01-02"),
		})
		return tx.Create(&models.PeriodEvent{
			PeriodID:   period.PeriodID,
			EventType:  "CREATED",
			ActorEmail: &in.ActorEmail,
			EventData:  datatypes.JSON(payload),
		}).Error
	})
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to create period")
	}
	return &period, nil
}

// ListPeriods returns periods ordered by send date with usage figures,
// optionally filtered on the active flag.
func (s *Service) ListPeriods(ctx context.Context, activeFilter *bool, page, limit int) ([]PeriodWithUsage, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.CapacityPeriod{})
	if activeFilter != nil {
		q = q.Where("active = ?", *activeFilter)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(err, "Failed to fetch periods")
	}
	var periods []models.CapacityPeriod
	if err := q.Order("send_date ASC").Offset((page - 1) * limit).Limit(limit).Find(&periods).Error; err != nil {
		return nil, 0, apperr.Wrap(err, "Failed to fetch periods")
	}

	out := make([]PeriodWithUsage, 0, len(periods))
	for i := range periods {
		withUsage, err := s.usage(s.DB.WithContext(ctx), &periods[i])
		if err != nil {
			return nil, 0, apperr.Wrap(err, "Failed to fetch periods")
		}
		out = append(out, *withUsage)
	}
	return out, total, nil
}

// GetPeriod returns one period with usage figures.
func (s *Service) GetPeriod(ctx context.Context, periodID uuid.UUID) (*PeriodWithUsage, error) {
	var period models.CapacityPeriod
	if err := s.DB.WithContext(ctx).Where("period_id = ?", periodID).First(&period).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Period not found")
		}
		return nil, apperr.Wrap(err, "Failed to fetch period")
	}
	withUsage, err := s.usage(s.DB.WithContext(ctx), &period)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to fetch period")
	}
	return withUsage, nil
}

type UpdatePeriodInput struct {
	TotalCapacity *decimal.Decimal
	SendDate      *time.Time
	ActorEmail    string
}

// UpdatePeriod adjusts a period's capacity and/or send date. Capacity can be
// reduced only down to the currently committed non-cancelled weight; going
// below it is rejected with the committed figure in the error.
func (s *Service) UpdatePeriod(ctx context.Context, periodID uuid.UUID, in UpdatePeriodInput) (*models.CapacityPeriod, error) {
	if in.TotalCapacity == nil && in.SendDate == nil {
		return nil, apperr.Validation("Nothing to update")
	}

	var period *models.CapacityPeriod
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		period, err = ledger.LockPeriod(tx, periodID, false)
		if err != nil {
			return err
		}
		if !period.Active {
			return apperr.Validation("Cannot update a closed period")
		}

		changes := map[string]interface{}{}
		if in.TotalCapacity != nil {
			newTotal := in.TotalCapacity.Round(2)
			if newTotal.LessThanOrEqual(decimal.Zero) {
				return apperr.Validation("Total capacity must be greater than zero")
			}
			committed, err := ledger.CommittedWeight(tx, periodID, nil)
			if err != nil {
				return err
			}
			if newTotal.LessThan(committed) {
				return apperr.Validation(fmt.Sprintf(
					"Cannot reduce capacity to %s lb: %s lb are already reserved",
					newTotal.StringFixed(2), committed.StringFixed(2)))
			}
			period.TotalCapacity = newTotal
			changes["total_capacity"] = newTotal
		}
		if in.SendDate != nil {
			today := status.DateOnly(time.Now())
			if in.SendDate.Before(today) {
				return apperr.Validation("Send date cannot be in the past")
			}
			period.SendDate = *in.SendDate
			changes["send_date"] = in.SendDate.Format("2006-01-02")
		}

		if err := tx.Save(period).Error; err != nil {
			return err
		}
		payload, _ := json.Marshal(changes)
		return tx.Create(&models.PeriodEvent{
			PeriodID:   period.PeriodID,
			EventType:  "UPDATED",
			ActorEmail: &in.ActorEmail,
			EventData:  datatypes.JSON(payload),
		}).Error
	})
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to update period")
	}
	return period, nil
}

func (s *Service) usage(db *gorm.DB, period *models.CapacityPeriod) (*PeriodWithUsage, error) {
	committed, err := ledger.CommittedWeight(db, period.PeriodID, nil)
	if err != nil {
		return nil, err
	}
	return &PeriodWithUsage{
		CapacityPeriod:  *period,
		ReservedWeight:  committed,
		RemainingWeight: period.TotalCapacity.Sub(committed),
	}, nil
}

package allocation

import (
	"context"
	"fmt"
	"time"

	"envios-backend/internal/constants"
	"envios-backend/internal/ledger"
	"envios-backend/internal/models"
	"envios-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopspring/decimal"
)

// Service commits allocation plans. Planning (BuildPlan) is pure; the
// service wraps it in a transaction whose ledger reads lock the candidate
// periods, so two concurrent requests cannot both see the same capacity as
// free. A plan that cannot be fully satisfied creates zero rows.
type Service struct {
	DB *gorm.DB
}

type AllocateInput struct {
	UserID           uuid.UUID
	Weight           decimal.Decimal
	Date             time.Time
	DestinationState string
	Notes            string
	PeriodID         *uuid.UUID // explicit period choice; nil means all active periods from Date on
}

type AllocateResult struct {
	Reservations []models.Reservation
	Plan         *Plan
	Message      string
}

// Allocate converts "reserve Weight lb starting Date" into one or more
// pending reservation rows, or fails without creating anything.
func (s *Service) Allocate(ctx context.Context, in AllocateInput) (*AllocateResult, error) {
	weight := in.Weight.Round(2)
	if weight.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.Validation("Weight must be greater than zero")
	}
	if in.DestinationState == "" {
		return nil, apperr.Validation("Destination state is required")
	}

	var created []models.Reservation
	var plan *Plan
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var periods []models.CapacityPeriod
		if in.PeriodID != nil {
			period, err := ledger.LockPeriod(tx, *in.PeriodID, true)
			if err != nil {
				return err
			}
			periods = []models.CapacityPeriod{*period}
		} else {
			var err error
			periods, err = ledger.LockActivePeriods(tx, in.Date)
			if err != nil {
				return err
			}
		}

		candidates := make([]Candidate, 0, len(periods))
		for i := range periods {
			remaining, err := ledger.Remaining(tx, &periods[i])
			if err != nil {
				return err
			}
			candidates = append(candidates, Candidate{
				PeriodID:  periods[i].PeriodID,
				SendDate:  periods[i].SendDate,
				Remaining: remaining,
			})
		}

		p, err := BuildPlan(weight, in.Date, candidates)
		if err != nil {
			return err
		}
		plan = p

		total := len(p.Entries)
		for i, e := range p.Entries {
			r := models.Reservation{
				UserID:           in.UserID,
				PeriodID:         e.PeriodID,
				Weight:           e.Weight,
				Date:             e.Date,
				DestinationState: in.DestinationState,
				Notes:            annotateNotes(in.Notes, i, total),
				Status:           constants.StatusPending,
			}
			if err := tx.Create(&r).Error; err != nil {
				return err
			}
			created = append(created, r)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to create reservation")
	}

	return &AllocateResult{
		Reservations: created,
		Plan:         plan,
		Message:      plan.Summary(),
	}, nil
}

// annotateNotes appends "part N of M" to the notes of sibling rows beyond
// the first, so a split request stays traceable.
func annotateNotes(notes string, index, total int) string {
	if total <= 1 || index == 0 {
		return notes
	}
	suffix := fmt.Sprintf("part %d of %d", index+1, total)
	if notes == "" {
		return suffix
	}
	return notes + " (" + suffix + ")"
}

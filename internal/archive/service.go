// Package archive closes a capacity period irreversibly: snapshot, copy,
// purge, deactivate — all inside one transaction. There is no reopen path.
package archive

import (
	"context"
	"encoding/json"
	"time"

	"envios-backend/internal/constants"
	"envios-backend/internal/ledger"
	"envios-backend/internal/models"
	"envios-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// CloseResult summarizes a completed archival for the caller.
type CloseResult struct {
	HistoricalPeriod     models.HistoricalPeriod `json:"historical_period"`
	ArchivedReservations int                     `json:"archived_reservations"`
}

// ClosePeriod archives a period: one HistoricalPeriod row with aggregates
// computed over non-cancelled reservations, one HistoricalReservation row
// per reservation (cancelled included — history is an audit trail, not a
// capacity snapshot), then deletes the live reservations and flips the
// period inactive. Any failure rolls the whole operation back, leaving the
// period exactly as it was.
func (s *Service) ClosePeriod(ctx context.Context, periodID uuid.UUID, actorEmail string) (*CloseResult, error) {
	var result CloseResult

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		period, err := ledger.LockPeriod(tx, periodID, false)
		if err != nil {
			return err
		}
		if !period.Active {
			return apperr.Validation("Period is already closed")
		}

		var reservations []models.Reservation
		if err := tx.Preload("User").Where("period_id = ?", periodID).Find(&reservations).Error; err != nil {
			return err
		}

		reserved := decimal.Zero
		activeCount := 0
		owners := make(map[uuid.UUID]struct{})
		for i := range reservations {
			if reservations[i].Status == constants.StatusCancelled {
				continue
			}
			reserved = reserved.Add(reservations[i].Weight)
			activeCount++
			owners[reservations[i].UserID] = struct{}{}
		}

		historical := models.HistoricalPeriod{
			PeriodID:          period.PeriodID,
			TotalCapacity:     period.TotalCapacity,
			ReservedWeight:    reserved,
			AvailableWeight:   period.TotalCapacity.Sub(reserved),
			ReservationCount:  activeCount,
			DistinctUserCount: len(owners),
			SendDate:          period.SendDate,
			ArchivedAt:        time.Now().UTC(),
		}
		if err := tx.Create(&historical).Error; err != nil {
			return err
		}

		for i := range reservations {
			r := &reservations[i]
			snapshot := models.HistoricalReservation{
				HistoricalPeriodID:    historical.HistoricalPeriodID,
				OriginalReservationID: r.ReservationID,
				OwnerName:             r.User.Fullname,
				OwnerEmail:            r.User.Email,
				Weight:                r.Weight,
				Date:                  r.Date,
				DestinationState:      r.DestinationState,
				Notes:                 r.Notes,
				Status:                r.Status,
				PeriodSendDate:        period.SendDate,
			}
			if err := tx.Create(&snapshot).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("period_id = ?", periodID).Delete(&models.Reservation{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.CapacityPeriod{}).
			Where("period_id = ?", periodID).
			Update("active", false).Error; err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"total_capacity":      historical.TotalCapacity,
			"reserved_weight":     historical.ReservedWeight,
			"available_weight":    historical.AvailableWeight,
			"reservation_count":   historical.ReservationCount,
			"distinct_user_count": historical.DistinctUserCount,
		})
		if err := tx.Create(&models.PeriodEvent{
			PeriodID:   period.PeriodID,
			EventType:  "CLOSED",
			ActorEmail: &actorEmail,
			EventData:  datatypes.JSON(payload),
		}).Error; err != nil {
			return err
		}

		result = CloseResult{
			HistoricalPeriod:     historical,
			ArchivedReservations: len(reservations),
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to close period")
	}
	return &result, nil
}

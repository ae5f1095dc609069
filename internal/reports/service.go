// Package reports holds the read-only projections over the ledger and the
// archive. No invariant logic lives here.
package reports

import (
	"context"

	"envios-backend/internal/ledger"
	"envios-backend/internal/models"
	"envios-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// DashboardPeriod is one open period with its derived figures.
type DashboardPeriod struct {
	models.CapacityPeriod
	ReservedWeight  decimal.Decimal `json:"reserved_weight"`
	RemainingWeight decimal.Decimal `json:"remaining_weight"`
}

// Dashboard summarizes the live state: every open period with remaining
// capacity, plus overall totals.
type Dashboard struct {
	OpenPeriods      []DashboardPeriod `json:"open_periods"`
	TotalCapacity    decimal.Decimal   `json:"total_capacity"`
	TotalReserved    decimal.Decimal   `json:"total_reserved"`
	TotalRemaining   decimal.Decimal   `json:"total_remaining"`
	LiveReservations int64             `json:"live_reservations"`
	ArchivedPeriods  int64             `json:"archived_periods"`
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	db := s.DB.WithContext(ctx)

	var periods []models.CapacityPeriod
	if err := db.Where("active = ?", true).Order("send_date ASC").Find(&periods).Error; err != nil {
		return nil, apperr.Wrap(err, "Failed to build dashboard")
	}

	out := &Dashboard{
		OpenPeriods:    make([]DashboardPeriod, 0, len(periods)),
		TotalCapacity:  decimal.Zero,
		TotalReserved:  decimal.Zero,
		TotalRemaining: decimal.Zero,
	}
	for i := range periods {
		committed, err := ledger.CommittedWeight(db, periods[i].PeriodID, nil)
		if err != nil {
			return nil, apperr.Wrap(err, "Failed to build dashboard")
		}
		remaining := periods[i].TotalCapacity.Sub(committed)
		out.OpenPeriods = append(out.OpenPeriods, DashboardPeriod{
			CapacityPeriod:  periods[i],
			ReservedWeight:  committed,
			RemainingWeight: remaining,
		})
		out.TotalCapacity = out.TotalCapacity.Add(periods[i].TotalCapacity)
		out.TotalReserved = out.TotalReserved.Add(committed)
		out.TotalRemaining = out.TotalRemaining.Add(remaining)
	}

	if err := db.Model(&models.Reservation{}).Count(&out.LiveReservations).Error; err != nil {
		return nil, apperr.Wrap(err, "Failed to build dashboard")
	}
	if err := db.Model(&models.HistoricalPeriod{}).Count(&out.ArchivedPeriods).Error; err != nil {
		return nil, apperr.Wrap(err, "Failed to build dashboard")
	}
	return out, nil
}

// ListHistory returns archived periods, newest first.
func (s *Service) ListHistory(ctx context.Context, page, limit int) ([]models.HistoricalPeriod, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.HistoricalPeriod{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(err, "Failed to fetch history")
	}
	var rows []models.HistoricalPeriod
	if err := q.Order("archived_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, apperr.Wrap(err, "Failed to fetch history")
	}
	return rows, total, nil
}

// HistoryDetail is one archived period with its reservation snapshots.
type HistoryDetail struct {
	models.HistoricalPeriod
	Reservations []models.HistoricalReservation `json:"reservations"`
}

func (s *Service) GetHistory(ctx context.Context, historicalPeriodID uuid.UUID) (*HistoryDetail, error) {
	var period models.HistoricalPeriod
	if err := s.DB.WithContext(ctx).Where("historical_period_id = ?", historicalPeriodID).First(&period).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Historical period not found")
		}
		return nil, apperr.Wrap(err, "Failed to fetch history")
	}
	var reservations []models.HistoricalReservation
	if err := s.DB.WithContext(ctx).
		Where("historical_period_id = ?", historicalPeriodID).
		Order("created_at ASC").
		Find(&reservations).Error; err != nil {
		return nil, apperr.Wrap(err, "Failed to fetch history")
	}
	return &HistoryDetail{HistoricalPeriod: period, Reservations: reservations}, nil
}

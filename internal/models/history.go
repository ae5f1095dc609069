package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// HistoricalPeriod is the immutable snapshot written once when a period is
// closed. Aggregates (reserved/available/counts) are computed over
// non-cancelled reservations only.
type HistoricalPeriod struct {
	HistoricalPeriodID uuid.UUID       `gorm:"column:historical_period_id;type:uuid;primaryKey" json:"historical_period_id"`
	PeriodID           uuid.UUID       `gorm:"column:period_id;type:uuid;not null;index" json:"period_id"`
	TotalCapacity      decimal.Decimal `gorm:"column:total_capacity;type:decimal(12,2);not null" json:"total_capacity"`
	ReservedWeight     decimal.Decimal `gorm:"column:reserved_weight;type:decimal(12,2);not null" json:"reserved_weight"`
	AvailableWeight    decimal.Decimal `gorm:"column:available_weight;type:decimal(12,2);not null" json:"available_weight"`
	ReservationCount   int             `gorm:"column:reservation_count;not null" json:"reservation_count"`
	DistinctUserCount  int             `gorm:"column:distinct_user_count;not null" json:"distinct_user_count"`
	SendDate           time.Time       `gorm:"column:send_date;type:date;not null" json:"send_date"`
	ArchivedAt         time.Time       `gorm:"column:archived_at;not null" json:"archived_at"`
	CreatedAt          time.Time       `json:"createdAt"`
}

func (HistoricalPeriod) TableName() string {
	return "HistoricalPeriods"
}

func (h *HistoricalPeriod) BeforeCreate(tx *gorm.DB) error {
	if h.HistoricalPeriodID == uuid.Nil {
		h.HistoricalPeriodID = uuid.New()
	}
	return nil
}

// HistoricalReservation is the audit copy of one reservation at archival
// time. Every reservation of the closed period gets a row, cancelled ones
// included. Owner name/email are denormalized because the live user row may
// change (or disappear) later.
type HistoricalReservation struct {
	HistoricalReservationID uuid.UUID       `gorm:"column:historical_reservation_id;type:uuid;primaryKey" json:"historical_reservation_id"`
	HistoricalPeriodID      uuid.UUID       `gorm:"column:historical_period_id;type:uuid;not null;index" json:"historical_period_id"`
	OriginalReservationID   uuid.UUID       `gorm:"column:original_reservation_id;type:uuid;not null" json:"original_reservation_id"`
	OwnerName               string          `gorm:"column:owner_name;not null" json:"owner_name"`
	OwnerEmail              string          `gorm:"column:owner_email;not null" json:"owner_email"`
	Weight                  decimal.Decimal `gorm:"column:weight;type:decimal(12,2);not null" json:"weight"`
	Date                    time.Time       `gorm:"column:date;type:date;not null" json:"date"`
	DestinationState        string          `gorm:"column:destination_state;not null" json:"destination_state"`
	Notes                   string          `gorm:"column:notes" json:"notes"`
	Status                  string          `gorm:"column:status;type:varchar(20);not null" json:"status"`
	PeriodSendDate          time.Time       `gorm:"column:period_send_date;type:date;not null" json:"period_send_date"`
	CreatedAt               time.Time       `json:"createdAt"`
}

func (HistoricalReservation) TableName() string {
	return "HistoricalReservations"
}

func (h *HistoricalReservation) BeforeCreate(tx *gorm.DB) error {
	if h.HistoricalReservationID == uuid.Nil {
		h.HistoricalReservationID = uuid.New()
	}
	return nil
}

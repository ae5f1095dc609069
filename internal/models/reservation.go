package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Reservation is a user's claim on some poundage within a period. One user
// request may produce several sibling rows when the allocator splits the
// weight across periods. Rows are hard-deleted when their period is archived
// (an equivalent HistoricalReservation is written first).
//
// ConfirmedAt/ShippedAt/DeliveredAt are calendar dates stamped exactly once,
// when the matching status transition happens.
type Reservation struct {
	ReservationID    uuid.UUID       `gorm:"column:reservation_id;type:uuid;primaryKey" json:"reservation_id"`
	UserID           uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	User             User            `gorm:"foreignKey:UserID;references:UserID" json:"-"`
	PeriodID         uuid.UUID       `gorm:"column:period_id;type:uuid;not null;index" json:"period_id"`
	Weight           decimal.Decimal `gorm:"column:weight;type:decimal(12,2);not null" json:"weight"`
	Date             time.Time       `gorm:"column:date;type:date;not null" json:"date"`
	DestinationState string          `gorm:"column:destination_state;not null" json:"destination_state"`
	Notes            string          `gorm:"column:notes" json:"notes"`
	Status           string          `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	ConfirmedAt      *time.Time      `gorm:"column:confirmed_at;type:date" json:"confirmed_at"`
	ShippedAt        *time.Time      `gorm:"column:shipped_at;type:date" json:"shipped_at"`
	DeliveredAt      *time.Time      `gorm:"column:delivered_at;type:date" json:"delivered_at"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func (Reservation) TableName() string {
	return "Reservations"
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ReservationID == uuid.Nil {
		r.ReservationID = uuid.New()
	}
	return nil
}

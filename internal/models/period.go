package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CapacityPeriod is a shipment capacity window: a total poundage and a send
// date. Several periods can be open at once; the allocator orders them by
// send date. Closing a period flips Active to false and moves its
// reservations into history; rows are never physically deleted while active.
type CapacityPeriod struct {
	PeriodID      uuid.UUID       `gorm:"column:period_id;type:uuid;primaryKey" json:"period_id"`
	TotalCapacity decimal.Decimal `gorm:"column:total_capacity;type:decimal(12,2);not null" json:"total_capacity"`
	SendDate      time.Time       `gorm:"column:send_date;type:date;not null" json:"send_date"`
	Active        bool            `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (CapacityPeriod) TableName() string {
	return "CapacityPeriods"
}

func (p *CapacityPeriod) BeforeCreate(tx *gorm.DB) error {
	if p.PeriodID == uuid.Nil {
		p.PeriodID = uuid.New()
	}
	return nil
}

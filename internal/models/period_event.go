package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PeriodEvent is an audit row recording a period mutation (CREATED, UPDATED,
// CLOSED), written in the same transaction as the mutation itself.
type PeriodEvent struct {
	EventID    uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	PeriodID   uuid.UUID      `gorm:"column:period_id;type:uuid;not null;index" json:"period_id"`
	EventType  string         `gorm:"column:event_type;type:varchar(20);not null" json:"event_type"`
	ActorEmail *string        `gorm:"column:actor_email" json:"actor_email"`
	EventData  datatypes.JSON `gorm:"column:event_data;type:json" json:"event_data"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func (PeriodEvent) TableName() string {
	return "PeriodEvents"
}

func (e *PeriodEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}

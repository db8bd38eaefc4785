package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/popspot-backend/pkg/enums"
	"github.com/angelmondragon/popspot-backend/pkg/types"
)

// Collaboration is a partnership request sent to a store owner.
type Collaboration struct {
	ID                uuid.UUID                 `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID           uuid.UUID                 `gorm:"column:store_id;type:uuid;not null"`
	RequesterID       uuid.UUID                 `gorm:"column:requester_id;type:uuid;not null"`
	Title             string                    `gorm:"column:title;not null"`
	Description       string                    `gorm:"column:description;not null"`
	CollaborationType enums.CollaborationType   `gorm:"column:collaboration_type;type:collaboration_type;not null"`
	ContactEmail      string                    `gorm:"column:contact_email;not null"`
	ContactPhone      *string                   `gorm:"column:contact_phone"`
	BudgetRange       *string                   `gorm:"column:budget_range"`
	PreferredDates    types.StringMap           `gorm:"column:preferred_dates;type:jsonb"`
	Status            enums.CollaborationStatus `gorm:"column:status;type:collaboration_status;not null;default:'pending'"`
	CreatedAt         time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/angelmondragon/popspot-backend/pkg/enums"
	"github.com/angelmondragon/popspot-backend/pkg/types"
)

// PopupStore is a time-boxed store listing owned by SellerID.
type PopupStore struct {
	ID           uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID     uuid.UUID          `gorm:"column:seller_id;type:uuid;not null"`
	Name         string             `gorm:"column:name;not null"`
	Description  *string            `gorm:"column:description"`
	Category     string             `gorm:"column:category;not null"`
	Location     string             `gorm:"column:location;not null"`
	Latitude     *float64           `gorm:"column:latitude"`
	Longitude    *float64           `gorm:"column:longitude"`
	StartDate    types.Date         `gorm:"column:start_date;type:date;not null"`
	EndDate      types.Date         `gorm:"column:end_date;type:date;not null"`
	OpeningHours types.StringMap    `gorm:"column:opening_hours;type:jsonb"`
	ContactInfo  *types.ContactInfo `gorm:"column:contact_info;type:jsonb"`
	Images       pq.StringArray     `gorm:"column:images;type:text[];not null;default:'{}'"`
	Tags         pq.StringArray     `gorm:"column:tags;type:text[];not null;default:'{}'"`
	Status       enums.StoreStatus  `gorm:"column:status;type:store_status;not null;default:'draft'"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (PopupStore) TableName() string { return "popup_stores" }

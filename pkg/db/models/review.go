package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Review struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID   uuid.UUID      `gorm:"column:store_id;type:uuid;not null"`
	UserID    uuid.UUID      `gorm:"column:user_id;type:uuid;not null"`
	Rating    int            `gorm:"column:rating;not null"`
	Comment   *string        `gorm:"column:comment"`
	Images    pq.StringArray `gorm:"column:images;type:text[];not null;default:'{}'"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

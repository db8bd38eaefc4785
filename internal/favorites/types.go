package favorites

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/angelmondragon/popspot-backend/pkg/enums"
	"github.com/angelmondragon/popspot-backend/pkg/types"
)

// StatusDTO reports whether the caller has favorited a store.
type StatusDTO struct {
	Favorited  bool       `json:"favorited"`
	FavoriteID *uuid.UUID `json:"favorite_id,omitempty"`
}

// StoreSummary is the store excerpt shown in the favorites list.
type StoreSummary struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	Category    string            `json:"category"`
	Location    string            `json:"location"`
	Images      []string          `json:"images"`
	Status      enums.StoreStatus `json:"status"`
	StartDate   types.Date        `json:"start_date"`
	EndDate     types.Date        `json:"end_date"`
}

type FavoriteDTO struct {
	ID        uuid.UUID    `json:"id"`
	StoreID   uuid.UUID    `json:"store_id"`
	CreatedAt time.Time    `json:"created_at"`
	Store     StoreSummary `json:"store"`
}

type favoriteRecord struct {
	ID               uuid.UUID
	StoreID          uuid.UUID
	CreatedAt        time.Time
	StoreName        string
	StoreDescription *string
	StoreCategory    string
	StoreLocation    string
	StoreImages      pq.StringArray
	StoreStatus      enums.StoreStatus
	StoreStartDate   types.Date
	StoreEndDate     types.Date
}

func (r favoriteRecord) toDTO() FavoriteDTO {
	images := []string{}
	if r.StoreImages != nil {
		images = append(images, r.StoreImages...)
	}
	return FavoriteDTO{
		ID:        r.ID,
		StoreID:   r.StoreID,
		CreatedAt: r.CreatedAt,
		Store: StoreSummary{
			ID:          r.StoreID,
			Name:        r.StoreName,
			Description: r.StoreDescription,
			Category:    r.StoreCategory,
			Location:    r.StoreLocation,
			Images:      images,
			Status:      r.StoreStatus,
			StartDate:   r.StoreStartDate,
			EndDate:     r.StoreEndDate,
		},
	}
}

package stores

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/popspot-backend/pkg/db/models"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	"github.com/angelmondragon/popspot-backend/pkg/maps"
	"github.com/angelmondragon/popspot-backend/pkg/pagination"
	"github.com/angelmondragon/popspot-backend/pkg/types"
)

// ListParams are the store list query options. Zero values take the list
// defaults: page 1, 12 per page, published stores running today, newest first.
type ListParams struct {
	Page       int
	PageSize   int
	Category   string
	Status     string
	DateFilter enums.DateFilter
	Location   string
	StartDate  *types.Date
	EndDate    *types.Date
	Search     string
	Tags       []string
	SortBy     enums.StoreSort
	UserLat    *float64
	UserLng    *float64

	// Viewer sees their own unpublished stores in addition to published ones.
	Viewer *uuid.UUID
}

// StoreDTO is the list and detail payload of a pop-up store.
type StoreDTO struct {
	ID            uuid.UUID           `json:"id"`
	SellerID      uuid.UUID           `json:"seller_id"`
	Name          string              `json:"name"`
	Description   *string             `json:"description"`
	Category      string              `json:"category"`
	Location      string              `json:"location"`
	Latitude      *float64            `json:"latitude"`
	Longitude     *float64            `json:"longitude"`
	StartDate     types.Date          `json:"start_date"`
	EndDate       types.Date          `json:"end_date"`
	OpeningHours  types.StringMap     `json:"opening_hours"`
	ContactInfo   *types.ContactInfo  `json:"contact_info"`
	Images        []string            `json:"images"`
	Tags          []string            `json:"tags"`
	Status        enums.StoreStatus   `json:"status"`
	DisplayStatus enums.DisplayStatus `json:"display_status"`
	DistanceKm    *float64            `json:"distance_km,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// StoreDetailDTO adds map links to a single store.
type StoreDetailDTO struct {
	StoreDTO
	Map maps.Links `json:"map"`
}

// ListResult is one page of stores. Tag filtering and distance sorting run on
// the fetched page, so Stores may hold fewer rows than PageSize while Total
// and TotalPages describe the unfiltered query.
type ListResult struct {
	Stores []StoreDTO `json:"stores"`
	pagination.Meta
}

// CreateStoreInput is the request body for a new store.
type CreateStoreInput struct {
	Name         string             `json:"name" validate:"required,notblank,max=100"`
	Description  *string            `json:"description" validate:"omitempty,max=5000"`
	Category     string             `json:"category" validate:"required,notblank,max=50"`
	Location     string             `json:"location" validate:"required,notblank,max=200"`
	Latitude     *float64           `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64           `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	StartDate    types.Date         `json:"start_date"`
	EndDate      types.Date         `json:"end_date"`
	OpeningHours map[string]string  `json:"opening_hours"`
	ContactInfo  *types.ContactInfo `json:"contact_info"`
	Images       []string           `json:"images" validate:"omitempty,dive,url"`
	Tags         []string           `json:"tags" validate:"omitempty,max=20,dive,max=30"`
	Status       string             `json:"status" validate:"omitempty,oneof=draft published"`
}

// UpdateStoreInput is a partial update; nil fields are left untouched.
type UpdateStoreInput struct {
	Name         *string            `json:"name" validate:"omitempty,notblank,max=100"`
	Description  *string            `json:"description" validate:"omitempty,max=5000"`
	Category     *string            `json:"category" validate:"omitempty,notblank,max=50"`
	Location     *string            `json:"location" validate:"omitempty,notblank,max=200"`
	Latitude     *float64           `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64           `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	StartDate    *types.Date        `json:"start_date"`
	EndDate      *types.Date        `json:"end_date"`
	OpeningHours map[string]string  `json:"opening_hours"`
	ContactInfo  *types.ContactInfo `json:"contact_info"`
	Images       []string           `json:"images" validate:"omitempty,dive,url"`
	Tags         []string           `json:"tags" validate:"omitempty,max=20,dive,max=30"`
	Status       *string            `json:"status" validate:"omitempty,oneof=draft published ended"`
}

func FromModel(m models.PopupStore, today types.Date) StoreDTO {
	return StoreDTO{
		ID:            m.ID,
		SellerID:      m.SellerID,
		Name:          m.Name,
		Description:   m.Description,
		Category:      m.Category,
		Location:      m.Location,
		Latitude:      m.Latitude,
		Longitude:     m.Longitude,
		StartDate:     m.StartDate,
		EndDate:       m.EndDate,
		OpeningHours:  m.OpeningHours,
		ContactInfo:   m.ContactInfo,
		Images:        nonNil(m.Images),
		Tags:          nonNil(m.Tags),
		Status:        m.Status,
		DisplayStatus: DisplayStatus(m.StartDate, m.EndDate, today),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return append([]string(nil), values...)
}

package collaborations

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/popspot-backend/pkg/enums"
	"github.com/angelmondragon/popspot-backend/pkg/types"
)

// CreateInput is the collaboration request form.
type CreateInput struct {
	Title             string            `json:"title" validate:"required,notblank,max=200"`
	Description       string            `json:"description" validate:"required,notblank,max=5000"`
	CollaborationType string            `json:"collaboration_type" validate:"required,oneof=joint sponsorship space_sharing event other"`
	ContactEmail      string            `json:"contact_email" validate:"required,email"`
	ContactPhone      *string           `json:"contact_phone" validate:"omitempty,max=30"`
	BudgetRange       *string           `json:"budget_range" validate:"omitempty,max=100"`
	PreferredDates    map[string]string `json:"preferred_dates"`
}

// ListFilter narrows the caller's visible requests.
type ListFilter struct {
	StoreID     *uuid.UUID
	RequesterID *uuid.UUID
	Status      *enums.CollaborationStatus
}

type Requester struct {
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}

type CollaborationDTO struct {
	ID                uuid.UUID                 `json:"id"`
	StoreID           uuid.UUID                 `json:"store_id"`
	StoreName         string                    `json:"store_name,omitempty"`
	RequesterID       uuid.UUID                 `json:"requester_id"`
	Title             string                    `json:"title"`
	Description       string                    `json:"description"`
	CollaborationType enums.CollaborationType   `json:"collaboration_type"`
	ContactEmail      string                    `json:"contact_email"`
	ContactPhone      *string                   `json:"contact_phone"`
	BudgetRange       *string                   `json:"budget_range"`
	PreferredDates    types.StringMap           `json:"preferred_dates"`
	Status            enums.CollaborationStatus `json:"status"`
	Requester         *Requester                `json:"requester,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

type collaborationRecord struct {
	ID                 uuid.UUID
	StoreID            uuid.UUID
	StoreName          string
	RequesterID        uuid.UUID
	Title              string
	Description        string
	CollaborationType  enums.CollaborationType
	ContactEmail       string
	ContactPhone       *string
	BudgetRange        *string
	PreferredDates     types.StringMap
	Status             enums.CollaborationStatus
	RequesterUsername  *string
	RequesterAvatarURL *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (r collaborationRecord) toDTO() CollaborationDTO {
	dto := CollaborationDTO{
		ID:                r.ID,
		StoreID:           r.StoreID,
		StoreName:         r.StoreName,
		RequesterID:       r.RequesterID,
		Title:             r.Title,
		Description:       r.Description,
		CollaborationType: r.CollaborationType,
		ContactEmail:      r.ContactEmail,
		ContactPhone:      r.ContactPhone,
		BudgetRange:       r.BudgetRange,
		PreferredDates:    r.PreferredDates,
		Status:            r.Status,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.RequesterUsername != nil {
		dto.Requester = &Requester{Username: *r.RequesterUsername, AvatarURL: r.RequesterAvatarURL}
	}
	return dto
}

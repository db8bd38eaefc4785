package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/popspot-backend/pkg/db/models"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	"github.com/angelmondragon/popspot-backend/pkg/pagination"
)

// DefaultPageSize is the review page size when none is requested.
const DefaultPageSize = 10

// ListParams selects a page of reviews for a store. Rating 0 means every rating.
type ListParams struct {
	Rating   int
	Sort     enums.ReviewSort
	Page     int
	PageSize int
	// Viewer lets a seller read reviews of their own unpublished store.
	Viewer *uuid.UUID
}

// Author is the profile excerpt shown next to a review.
type Author struct {
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}

type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	StoreID   uuid.UUID `json:"store_id"`
	UserID    uuid.UUID `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment"`
	Images    []string  `json:"images"`
	Author    *Author   `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListResult struct {
	Reviews []ReviewDTO `json:"reviews"`
	pagination.Meta
}

// RatingSummary aggregates every review of a store. Average is nil when the
// store has no reviews.
type RatingSummary struct {
	Average      *float64      `json:"average"`
	Count        int64         `json:"count"`
	Distribution map[int]int64 `json:"distribution"`
}

type CreateReviewInput struct {
	Rating  int      `json:"rating" validate:"required,gte=1,lte=5"`
	Comment *string  `json:"comment" validate:"omitempty,max=2000"`
	Images  []string `json:"images" validate:"omitempty,max=5,dive,url"`
}

type UpdateReviewInput struct {
	Rating  *int     `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Comment *string  `json:"comment" validate:"omitempty,max=2000"`
	Images  []string `json:"images" validate:"omitempty,max=5,dive,url"`
}

// reviewRecord is a review row joined with its author's profile.
type reviewRecord struct {
	models.Review
	AuthorUsername  *string
	AuthorAvatarURL *string
}

func FromModel(m models.Review) ReviewDTO {
	images := []string{}
	if m.Images != nil {
		images = append(images, m.Images...)
	}
	return ReviewDTO{
		ID:        m.ID,
		StoreID:   m.StoreID,
		UserID:    m.UserID,
		Rating:    m.Rating,
		Comment:   m.Comment,
		Images:    images,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (r reviewRecord) toDTO() ReviewDTO {
	dto := FromModel(r.Review)
	if r.AuthorUsername != nil {
		dto.Author = &Author{Username: *r.AuthorUsername, AvatarURL: r.AuthorAvatarURL}
	}
	return dto
}

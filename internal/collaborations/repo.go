package collaborations

import (
	"context"

	"github.com/angelmondragon/popspot-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// InsertIfAbsent writes the request unless the requester already asked this store.
func (r *Repository) InsertIfAbsent(ctx context.Context, c *models.Collaboration) (bool, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}, {Name: "requester_id"}},
			DoNothing: true,
		}).
		Create(c)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListVisible returns requests the viewer sent or received as store owner.
func (r *Repository) ListVisible(ctx context.Context, viewer uuid.UUID, filter ListFilter) ([]collaborationRecord, error) {
	q := r.db.WithContext(ctx).
		Table("collaborations c").
		Select(`c.id, c.store_id, s.name AS store_name, c.requester_id, c.title, c.description,
  c.collaboration_type, c.contact_email, c.contact_phone, c.budget_range, c.preferred_dates,
  c.status, c.created_at, c.updated_at,
  p.username AS requester_username, p.avatar_url AS requester_avatar_url`).
		Joins("JOIN popup_stores s ON s.id = c.store_id").
		Joins("LEFT JOIN profiles p ON p.id = c.requester_id").
		Where("(c.requester_id = ? OR s.seller_id = ?)", viewer, viewer)

	if filter.StoreID != nil {
		q = q.Where("c.store_id = ?", *filter.StoreID)
	}
	if filter.RequesterID != nil {
		q = q.Where("c.requester_id = ?", *filter.RequesterID)
	}
	if filter.Status != nil {
		q = q.Where("c.status = ?", *filter.Status)
	}

	var records []collaborationRecord
	err := q.Order("c.created_at DESC").Order("c.id DESC").Scan(&records).Error
	return records, err
}

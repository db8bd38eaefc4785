package favorites

import (
	"context"

	"github.com/angelmondragon/popspot-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository encapsulates favorites persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Find returns the user's favorite for a store.
func (r *Repository) Find(ctx context.Context, userID, storeID uuid.UUID) (*models.Favorite, error) {
	var fav models.Favorite
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND store_id = ?", userID, storeID).
		First(&fav).Error
	if err != nil {
		return nil, err
	}
	return &fav, nil
}

// DeletePair removes the user's favorite for a store and reports how many rows went away.
func (r *Repository) DeletePair(ctx context.Context, userID, storeID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND store_id = ?", userID, storeID).
		Delete(&models.Favorite{})
	return res.RowsAffected, res.Error
}

// InsertIfAbsent adds a favorite and ignores duplicates.
func (r *Repository) InsertIfAbsent(ctx context.Context, fav *models.Favorite) (bool, error) {
	if fav.ID == uuid.Nil {
		fav.ID = uuid.New()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "store_id"}},
			DoNothing: true,
		}).
		Create(fav)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListWithStores returns the user's favorites joined with store fields, newest first.
func (r *Repository) ListWithStores(ctx context.Context, userID uuid.UUID) ([]favoriteRecord, error) {
	var records []favoriteRecord
	err := r.db.WithContext(ctx).
		Table("favorites f").
		Select(`f.id, f.store_id, f.created_at,
  s.name AS store_name, s.description AS store_description, s.category AS store_category,
  s.location AS store_location, s.images AS store_images, s.status AS store_status,
  s.start_date AS store_start_date, s.end_date AS store_end_date`).
		Joins("JOIN popup_stores s ON s.id = f.store_id").
		Where("f.user_id = ?", userID).
		Order("f.created_at DESC").
		Order("f.id DESC").
		Scan(&records).Error
	return records, err
}

// DeleteOwned removes a favorite by id when it belongs to userID.
func (r *Repository) DeleteOwned(ctx context.Context, id, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Favorite{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

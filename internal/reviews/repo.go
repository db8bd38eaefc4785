package reviews

import (
	"context"

	"github.com/angelmondragon/popspot-backend/pkg/db/models"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles review persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns one page of a store's reviews with author profiles, plus the
// exact number of reviews matching the rating filter.
func (r *Repository) List(ctx context.Context, storeID uuid.UUID, p ListParams) ([]reviewRecord, int64, error) {
	base := r.db.WithContext(ctx).
		Table("reviews").
		Where("reviews.store_id = ?", storeID)
	if p.Rating > 0 {
		base = base.Where("reviews.rating = ?", p.Rating)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := base.Session(&gorm.Session{}).
		Select("reviews.*, p.username AS author_username, p.avatar_url AS author_avatar_url").
		Joins("LEFT JOIN profiles p ON p.id = reviews.user_id")
	switch p.Sort {
	case enums.ReviewSortRatingHigh:
		page = page.Order("reviews.rating DESC")
	case enums.ReviewSortRatingLow:
		page = page.Order("reviews.rating ASC")
	}

	var records []reviewRecord
	err := page.
		Order("reviews.created_at DESC").
		Order("reviews.id DESC").
		Offset((p.Page - 1) * p.PageSize).
		Limit(p.PageSize).
		Scan(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// RatingCounts returns the number of reviews per rating value for a store.
func (r *Repository) RatingCounts(ctx context.Context, storeID uuid.UUID) (map[int]int64, error) {
	var rows []struct {
		Rating int
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("rating, COUNT(*) AS total").
		Where("store_id = ?", storeID).
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[int]int64, len(rows))
	for _, row := range rows {
		counts[row.Rating] = row.Total
	}
	return counts, nil
}

// FindByStoreAndUser loads a user's review of a store.
func (r *Repository) FindByStoreAndUser(ctx context.Context, storeID, userID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND user_id = ?", storeID, userID).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// InsertIfAbsent writes the review unless the user already reviewed the store.
// It reports whether a row was written.
func (r *Repository) InsertIfAbsent(ctx context.Context, review *models.Review) (bool, error) {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(review)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateOwned updates a review written by userID.
func (r *Repository) UpdateOwned(ctx context.Context, id, userID uuid.UUID, updates map[string]any) (*models.Review, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// DeleteOwned removes a review written by userID.
func (r *Repository) DeleteOwned(ctx context.Context, id, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Review{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

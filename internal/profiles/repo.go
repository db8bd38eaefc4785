package profiles

import (
	"context"

	"github.com/angelmondragon/popspot-backend/pkg/db/models"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists profile rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a profiles repository to the given DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads the profile whose id equals the user id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// InsertIfAbsent writes the profile unless a row with the same id exists.
// It reports whether this call created the row.
func (r *Repository) InsertIfAbsent(ctx context.Context, profile *models.Profile) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(profile)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Update applies column updates and returns the reloaded row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Profile, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

// UpdateRole changes the stored role of a profile.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role enums.ProfileRole) (*models.Profile, error) {
	return r.Update(ctx, id, map[string]any{"role": role})
}

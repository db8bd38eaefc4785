package stores

import (
	"context"
	"strings"

	"github.com/angelmondragon/popspot-backend/pkg/db/models"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	"github.com/angelmondragon/popspot-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const favoriteCountExpr = "(SELECT COUNT(*) FROM favorites f WHERE f.store_id = popup_stores.id)"

// Repository handles popup_stores persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a store repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// listQuery is ListParams after defaults were applied.
type listQuery struct {
	ListParams
	status enums.StoreStatus
	today  types.Date
	offset int
}

// List returns one page of stores and the exact total of matching rows.
func (r *Repository) List(ctx context.Context, q listQuery) ([]models.PopupStore, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.PopupStore{})
	base = applyVisibility(base, q.Viewer)

	if q.status != "" {
		base = base.Where("status = ?", q.status)
	}
	if q.Category != "" {
		base = base.Where("category = ?", q.Category)
	}
	if q.Location != "" {
		base = base.Where("LOWER(location) LIKE ? ESCAPE '\\'", likePattern(q.Location))
	}
	base = applyDateWindow(base, q.DateFilter, q.today)
	if q.StartDate != nil {
		base = base.Where("start_date >= ?", *q.StartDate)
	}
	if q.EndDate != nil {
		base = base.Where("end_date <= ?", *q.EndDate)
	}
	if q.Search != "" {
		pattern := likePattern(q.Search)
		base = base.Where(
			"(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(location) LIKE ? ESCAPE '\\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\\')",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := base.Session(&gorm.Session{})
	if q.SortBy == enums.StoreSortPopular {
		page = page.Order(favoriteCountExpr + " DESC")
	}
	var rows []models.PopupStore
	err := page.
		Order("created_at DESC").
		Order("id DESC").
		Offset(q.offset).
		Limit(q.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// FindByID loads a store regardless of status.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PopupStore, error) {
	var store models.PopupStore
	if err := r.db.WithContext(ctx).First(&store, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// ListBySeller returns every store owned by the seller, newest first.
func (r *Repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.PopupStore, error) {
	var rows []models.PopupStore
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// Create inserts a new store.
func (r *Repository) Create(ctx context.Context, store *models.PopupStore) error {
	if store.ID == uuid.Nil {
		store.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(store).Error
}

// UpdateOwned applies updates to a store owned by sellerID. A store that does
// not exist and a store owned by someone else both yield gorm.ErrRecordNotFound.
func (r *Repository) UpdateOwned(ctx context.Context, id, sellerID uuid.UUID, updates map[string]any) (*models.PopupStore, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PopupStore{}).
		Where("id = ? AND seller_id = ?", id, sellerID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

// DeleteOwned removes a store owned by sellerID.
func (r *Repository) DeleteOwned(ctx context.Context, id, sellerID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND seller_id = ?", id, sellerID).
		Delete(&models.PopupStore{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func applyVisibility(q *gorm.DB, viewer *uuid.UUID) *gorm.DB {
	if viewer == nil || *viewer == uuid.Nil {
		return q.Where("status = ?", enums.StoreStatusPublished)
	}
	return q.Where("(status = ? OR seller_id = ?)", enums.StoreStatusPublished, *viewer)
}

// likePattern lower-cases the term and escapes LIKE wildcards.
func likePattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(term))
	return "%" + escaped + "%"
}

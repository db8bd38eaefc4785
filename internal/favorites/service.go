package favorites

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/popspot-backend/pkg/db/models"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes the favorite toggle and the caller's favorites list.
type Service interface {
	Status(ctx context.Context, actor, storeID uuid.UUID) (*StatusDTO, error)
	Toggle(ctx context.Context, actor, storeID uuid.UUID) (*StatusDTO, error)
	List(ctx context.Context, actor uuid.UUID) ([]FavoriteDTO, error)
	Remove(ctx context.Context, actor, favoriteID uuid.UUID) error
}

type favoriteRepository interface {
	Find(ctx context.Context, userID, storeID uuid.UUID) (*models.Favorite, error)
	DeletePair(ctx context.Context, userID, storeID uuid.UUID) (int64, error)
	InsertIfAbsent(ctx context.Context, fav *models.Favorite) (bool, error)
	ListWithStores(ctx context.Context, userID uuid.UUID) ([]favoriteRecord, error)
	DeleteOwned(ctx context.Context, id, userID uuid.UUID) error
}

type storeLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.PopupStore, error)
}

// ServiceParams groups dependencies for the favorites service.
type ServiceParams struct {
	Repo   favoriteRepository
	Stores storeLookup
}

type service struct {
	repo   favoriteRepository
	stores storeLookup
}

// NewService builds a favorites service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("favorites repository is required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("store repository is required")
	}
	return &service{repo: params.Repo, stores: params.Stores}, nil
}

func (s *service) Status(ctx context.Context, actor, storeID uuid.UUID) (*StatusDTO, error) {
	if actor == uuid.Nil {
		return &StatusDTO{}, nil
	}
	fav, err := s.repo.Find(ctx, actor, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &StatusDTO{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load favorite")
	}
	return &StatusDTO{Favorited: true, FavoriteID: &fav.ID}, nil
}

// Toggle removes the favorite when present, otherwise adds it. Each branch is
// a single statement, so concurrent toggles never leave duplicate rows.
func (s *service) Toggle(ctx context.Context, actor, storeID uuid.UUID) (*StatusDTO, error) {
	if actor == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	if err := s.requireVisibleStore(ctx, actor, storeID); err != nil {
		return nil, err
	}

	removed, err := s.repo.DeletePair(ctx, actor, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove favorite")
	}
	if removed > 0 {
		return &StatusDTO{Favorited: false}, nil
	}

	fav := &models.Favorite{UserID: actor, StoreID: storeID}
	created, err := s.repo.InsertIfAbsent(ctx, fav)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add favorite")
	}
	if !created {
		return s.Status(ctx, actor, storeID)
	}
	return &StatusDTO{Favorited: true, FavoriteID: &fav.ID}, nil
}

func (s *service) List(ctx context.Context, actor uuid.UUID) ([]FavoriteDTO, error) {
	if actor == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	records, err := s.repo.ListWithStores(ctx, actor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list favorites")
	}
	out := make([]FavoriteDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.toDTO())
	}
	return out, nil
}

func (s *service) Remove(ctx context.Context, actor, favoriteID uuid.UUID) error {
	if actor == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	if err := s.repo.DeleteOwned(ctx, favoriteID, actor); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "favorite not found or no permission")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove favorite")
	}
	return nil
}

func (s *service) requireVisibleStore(ctx context.Context, actor, storeID uuid.UUID) error {
	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}
	if store.Status != enums.StoreStatusPublished && store.SellerID != actor {
		return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	return nil
}

package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/popspot-backend/pkg/db"
	"github.com/angelmondragon/popspot-backend/pkg/db/models"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
	"github.com/angelmondragon/popspot-backend/pkg/maps"
	"github.com/angelmondragon/popspot-backend/pkg/pagination"
	"github.com/angelmondragon/popspot-backend/pkg/sanitize"
	"github.com/angelmondragon/popspot-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	// MaxImages caps the gallery of a single store.
	MaxImages = 10

	notOwnedMessage = "store not found or no permission"
)

// Service exposes store listing and seller-scoped mutations.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Get(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) (*StoreDetailDTO, error)
	ListMine(ctx context.Context, actor uuid.UUID) ([]StoreDTO, error)
	Create(ctx context.Context, actor uuid.UUID, input CreateStoreInput) (*StoreDTO, error)
	Update(ctx context.Context, actor, id uuid.UUID, input UpdateStoreInput) (*StoreDTO, error)
	Delete(ctx context.Context, actor, id uuid.UUID) error
}

type storeRepository interface {
	List(ctx context.Context, q listQuery) ([]models.PopupStore, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PopupStore, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.PopupStore, error)
	Create(ctx context.Context, store *models.PopupStore) error
	UpdateOwned(ctx context.Context, id, sellerID uuid.UUID, updates map[string]any) (*models.PopupStore, error)
	DeleteOwned(ctx context.Context, id, sellerID uuid.UUID) error
}

type profileEnsurer interface {
	Ensure(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

type linkBuilder interface {
	For(location string, lat, lng *float64) maps.Links
}

type geocoder interface {
	Geocode(ctx context.Context, query string) (*maps.Place, error)
}

// ServiceParams bundles store service dependencies. Links and Geocoder are
// optional; without a geocoder stores keep whatever coordinates were sent.
type ServiceParams struct {
	Repo     storeRepository
	Profiles profileEnsurer
	Links    linkBuilder
	Geocoder geocoder
	Logger   *logger.Logger
	Clock    Clock
}

type service struct {
	repo     storeRepository
	profiles profileEnsurer
	links    linkBuilder
	geocoder geocoder
	logg     *logger.Logger
	now      Clock
}

// NewService constructs the store service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("store repository is required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile service is required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{
		repo:     params.Repo,
		profiles: params.Profiles,
		links:    params.Links,
		geocoder: params.Geocoder,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) today() types.Date {
	return types.DateOf(s.now())
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	q, err := s.normalize(params)
	if err != nil {
		return nil, err
	}
	rows, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stores")
	}

	stores := make([]StoreDTO, 0, len(rows))
	for _, row := range rows {
		stores = append(stores, FromModel(row, q.today))
	}
	stores = filterByTags(stores, q.Tags)
	if q.SortBy == enums.StoreSortDistance && q.UserLat != nil && q.UserLng != nil {
		sortByDistance(stores, *q.UserLat, *q.UserLng)
	}

	return &ListResult{
		Stores: stores,
		Meta:   pagination.BuildMeta(pagination.Params{Page: q.Page, Limit: q.PageSize}, total),
	}, nil
}

func (s *service) normalize(params ListParams) (listQuery, error) {
	page := pagination.Params{Page: params.Page, Limit: params.PageSize}.Normalize(pagination.DefaultLimit)
	params.Page, params.PageSize = page.Page, page.Limit

	q := listQuery{ListParams: params, today: s.today(), offset: page.Offset()}

	switch status := strings.TrimSpace(params.Status); status {
	case "":
		q.status = enums.StoreStatusPublished
	case "all":
	default:
		parsed, err := enums.ParseStoreStatus(status)
		if err != nil {
			return listQuery{}, pkgerrors.New(pkgerrors.CodeValidation, "status must be one of draft, published, ended, all")
		}
		q.status = parsed
	}

	if q.DateFilter == "" {
		q.DateFilter = enums.DateFilterOngoing
	}
	if !q.DateFilter.IsValid() {
		return listQuery{}, pkgerrors.New(pkgerrors.CodeValidation, "dateFilter must be one of all, upcoming, ongoing, ended")
	}
	if q.SortBy == "" {
		q.SortBy = enums.StoreSortLatest
	}
	if _, err := enums.ParseStoreSort(string(q.SortBy)); err != nil {
		return listQuery{}, pkgerrors.New(pkgerrors.CodeValidation, "sortBy must be one of latest, popular, distance")
	}
	if q.StartDate != nil && q.EndDate != nil && q.EndDate.Before(*q.StartDate) {
		return listQuery{}, pkgerrors.New(pkgerrors.CodeValidation, "endDate must not be before startDate")
	}
	q.Category = strings.TrimSpace(q.Category)
	q.Location = strings.TrimSpace(q.Location)
	q.Search = strings.TrimSpace(q.Search)
	return q, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, viewer *uuid.UUID) (*StoreDetailDTO, error) {
	store, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}
	if store.Status != enums.StoreStatusPublished && (viewer == nil || *viewer != store.SellerID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}

	detail := &StoreDetailDTO{StoreDTO: FromModel(*store, s.today())}
	if s.links != nil {
		detail.Map = s.links.For(store.Location, store.Latitude, store.Longitude)
	}
	return detail, nil
}

func (s *service) ListMine(ctx context.Context, actor uuid.UUID) ([]StoreDTO, error) {
	rows, err := s.repo.ListBySeller(ctx, actor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list my stores")
	}
	today := s.today()
	out := make([]StoreDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row, today))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, actor uuid.UUID, input CreateStoreInput) (*StoreDTO, error) {
	store, err := buildStore(input)
	if err != nil {
		return nil, err
	}
	if _, err := s.profiles.Ensure(ctx, actor); err != nil {
		return nil, err
	}
	store.SellerID = actor
	if store.Latitude == nil || store.Longitude == nil {
		s.fillCoordinates(ctx, store)
	}

	if err := s.repo.Create(ctx, store); err != nil {
		if db.IsPolicyViolation(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "not allowed to create stores").
				WithHint("make sure your profile exists before creating a store")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create store")
	}
	dto := FromModel(*store, s.today())
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actor, id uuid.UUID, input UpdateStoreInput) (*StoreDTO, error) {
	updates, err := s.buildUpdates(ctx, actor, id, input)
	if err != nil {
		return nil, err
	}
	store, err := s.repo.UpdateOwned(ctx, id, actor, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, notOwnedMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update store")
	}
	dto := FromModel(*store, s.today())
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, actor, id uuid.UUID) error {
	if err := s.repo.DeleteOwned(ctx, id, actor); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, notOwnedMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete store")
	}
	return nil
}

func (s *service) fillCoordinates(ctx context.Context, store *models.PopupStore) {
	if s.geocoder == nil {
		return
	}
	place, err := s.geocoder.Geocode(ctx, store.Location)
	if err != nil {
		if !errors.Is(err, maps.ErrNoMatch) {
			s.logg.Warn(s.logg.WithField(ctx, "location", store.Location), "geocoding store location failed: "+err.Error())
		}
		return
	}
	lat, lng := place.Location.Latitude, place.Location.Longitude
	store.Latitude, store.Longitude = &lat, &lng
}

func buildStore(input CreateStoreInput) (*models.PopupStore, error) {
	name := sanitize.String(input.Name, 100)
	category := sanitize.String(input.Category, 50)
	location := sanitize.String(input.Location, 200)
	switch {
	case name == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case category == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	case location == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location is required")
	case input.StartDate.IsZero():
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start_date is required")
	case input.EndDate.IsZero():
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_date is required")
	case input.EndDate.Before(input.StartDate):
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_date must be on or after start_date")
	}
	if err := validateCoordinates(input.Latitude, input.Longitude); err != nil {
		return nil, err
	}
	images, err := cleanImages(input.Images)
	if err != nil {
		return nil, err
	}

	status := enums.StoreStatusDraft
	if input.Status != "" {
		parsed, err := enums.ParseStoreStatus(input.Status)
		if err != nil || parsed == enums.StoreStatusEnded {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be draft or published")
		}
		status = parsed
	}

	return &models.PopupStore{
		Name:         name,
		Description:  sanitize.Optional(input.Description, 5000),
		Category:     category,
		Location:     location,
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		StartDate:    input.StartDate,
		EndDate:      input.EndDate,
		OpeningHours: cleanHours(input.OpeningHours),
		ContactInfo:  cleanContact(input.ContactInfo),
		Images:       pq.StringArray(images),
		Tags:         pq.StringArray(sanitize.List(input.Tags, 30)),
		Status:       status,
	}, nil
}

func (s *service) buildUpdates(ctx context.Context, actor, id uuid.UUID, input UpdateStoreInput) (map[string]any, error) {
	updates := map[string]any{}
	setText := func(column string, value *string, maxLen int) error {
		if value == nil {
			return nil
		}
		cleaned := sanitize.String(*value, maxLen)
		if cleaned == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, column+" must not be empty")
		}
		updates[column] = cleaned
		return nil
	}
	if err := setText("name", input.Name, 100); err != nil {
		return nil, err
	}
	if err := setText("category", input.Category, 50); err != nil {
		return nil, err
	}
	if err := setText("location", input.Location, 200); err != nil {
		return nil, err
	}
	if input.Description != nil {
		updates["description"] = sanitize.Optional(input.Description, 5000)
	}
	if err := validateCoordinates(input.Latitude, input.Longitude); err != nil {
		return nil, err
	}
	if input.Latitude != nil {
		updates["latitude"] = *input.Latitude
	}
	if input.Longitude != nil {
		updates["longitude"] = *input.Longitude
	}
	if input.OpeningHours != nil {
		updates["opening_hours"] = cleanHours(input.OpeningHours)
	}
	if input.ContactInfo != nil {
		updates["contact_info"] = cleanContact(input.ContactInfo)
	}
	if input.Images != nil {
		images, err := cleanImages(input.Images)
		if err != nil {
			return nil, err
		}
		updates["images"] = pq.StringArray(images)
	}
	if input.Tags != nil {
		updates["tags"] = pq.StringArray(sanitize.List(input.Tags, 30))
	}
	if input.Status != nil {
		status, err := enums.ParseStoreStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be draft, published or ended")
		}
		updates["status"] = status
	}

	if input.StartDate != nil || input.EndDate != nil {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil || current.SellerID != actor {
			if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, notOwnedMessage)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
		}
		start, end := current.StartDate, current.EndDate
		if input.StartDate != nil {
			start = *input.StartDate
			updates["start_date"] = start
		}
		if input.EndDate != nil {
			end = *input.EndDate
			updates["end_date"] = end
		}
		if start.IsZero() || end.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "start_date and end_date must be valid dates")
		}
		if end.Before(start) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_date must be on or after start_date")
		}
	}

	if loc, ok := updates["location"].(string); ok && input.Latitude == nil && input.Longitude == nil && s.geocoder != nil {
		located := &models.PopupStore{Location: loc}
		s.fillCoordinates(ctx, located)
		if located.Latitude != nil {
			updates["latitude"] = *located.Latitude
			updates["longitude"] = *located.Longitude
		}
	}

	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	return updates, nil
}

func validateCoordinates(lat, lng *float64) error {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return pkgerrors.New(pkgerrors.CodeValidation, "latitude must be between -90 and 90")
	}
	if lng != nil && (*lng < -180 || *lng > 180) {
		return pkgerrors.New(pkgerrors.CodeValidation, "longitude must be between -180 and 180")
	}
	return nil
}

func cleanImages(images []string) ([]string, error) {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if trimmed := strings.TrimSpace(img); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) > MaxImages {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("a store can have at most %d images", MaxImages))
	}
	return out, nil
}

func cleanHours(hours map[string]string) types.StringMap {
	if len(hours) == 0 {
		return nil
	}
	out := make(types.StringMap, len(hours))
	for day, value := range hours {
		key := sanitize.String(day, 20)
		if key == "" {
			continue
		}
		out[key] = sanitize.String(value, 100)
	}
	return out
}

func cleanContact(info *types.ContactInfo) *types.ContactInfo {
	if info == nil {
		return nil
	}
	cleaned := &types.ContactInfo{
		Phone:     sanitize.Optional(info.Phone, 30),
		Email:     sanitize.Optional(info.Email, 254),
		Instagram: sanitize.Optional(info.Instagram, 100),
		Facebook:  sanitize.Optional(info.Facebook, 200),
	}
	if cleaned.IsZero() {
		return nil
	}
	return cleaned
}

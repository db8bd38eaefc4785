package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/popspot-backend/pkg/db"
	"github.com/angelmondragon/popspot-backend/pkg/db/models"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/pagination"
	"github.com/angelmondragon/popspot-backend/pkg/sanitize"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	// MaxImages caps the photos attached to one review.
	MaxImages        = 5
	maxCommentLength = 2000

	duplicateMessage = "you have already reviewed this store; edit your existing review instead"
	notOwnedMessage  = "review not found or no permission"
)

type Service interface {
	List(ctx context.Context, storeID uuid.UUID, params ListParams) (*ListResult, error)
	Rating(ctx context.Context, storeID uuid.UUID, viewer *uuid.UUID) (*RatingSummary, error)
	Mine(ctx context.Context, actor, storeID uuid.UUID) (*ReviewDTO, error)
	Create(ctx context.Context, actor, storeID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error)
	Update(ctx context.Context, actor, id uuid.UUID, input UpdateReviewInput) (*ReviewDTO, error)
	Delete(ctx context.Context, actor, id uuid.UUID) error
}

type reviewRepository interface {
	List(ctx context.Context, storeID uuid.UUID, p ListParams) ([]reviewRecord, int64, error)
	RatingCounts(ctx context.Context, storeID uuid.UUID) (map[int]int64, error)
	FindByStoreAndUser(ctx context.Context, storeID, userID uuid.UUID) (*models.Review, error)
	InsertIfAbsent(ctx context.Context, review *models.Review) (bool, error)
	UpdateOwned(ctx context.Context, id, userID uuid.UUID, updates map[string]any) (*models.Review, error)
	DeleteOwned(ctx context.Context, id, userID uuid.UUID) error
}

type storeLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.PopupStore, error)
}

type profileEnsurer interface {
	Ensure(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

type ServiceParams struct {
	Repo     reviewRepository
	Stores   storeLookup
	Profiles profileEnsurer
}

type service struct {
	repo     reviewRepository
	stores   storeLookup
	profiles profileEnsurer
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("review repository is required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("store repository is required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile service is required")
	}
	return &service{repo: params.Repo, stores: params.Stores, profiles: params.Profiles}, nil
}

func (s *service) List(ctx context.Context, storeID uuid.UUID, params ListParams) (*ListResult, error) {
	if params.Rating < 0 || params.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "filter must be all or a rating from 1 to 5")
	}
	if params.Sort == "" {
		params.Sort = enums.ReviewSortLatest
	}
	if _, err := enums.ParseReviewSort(string(params.Sort)); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sort must be one of latest, rating_high, rating_low")
	}
	if err := s.requireVisibleStore(ctx, storeID, params.Viewer); err != nil {
		return nil, err
	}
	page := pagination.Params{Page: params.Page, Limit: params.PageSize}.Normalize(DefaultPageSize)
	params.Page, params.PageSize = page.Page, page.Limit

	records, total, err := s.repo.List(ctx, storeID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}
	out := make([]ReviewDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.toDTO())
	}
	return &ListResult{Reviews: out, Meta: pagination.BuildMeta(page, total)}, nil
}

func (s *service) Rating(ctx context.Context, storeID uuid.UUID, viewer *uuid.UUID) (*RatingSummary, error) {
	if err := s.requireVisibleStore(ctx, storeID, viewer); err != nil {
		return nil, err
	}
	counts, err := s.repo.RatingCounts(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load rating")
	}
	return summarize(counts), nil
}

func summarize(counts map[int]int64) *RatingSummary {
	summary := &RatingSummary{Distribution: map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	sum := decimal.Zero
	for rating, n := range counts {
		if rating < 1 || rating > 5 {
			continue
		}
		summary.Distribution[rating] = n
		summary.Count += n
		sum = sum.Add(decimal.NewFromInt(int64(rating) * n))
	}
	if summary.Count > 0 {
		avg := sum.DivRound(decimal.NewFromInt(summary.Count), 4).Round(1).InexactFloat64()
		summary.Average = &avg
	}
	return summary
}

func (s *service) Mine(ctx context.Context, actor, storeID uuid.UUID) (*ReviewDTO, error) {
	review, err := s.repo.FindByStoreAndUser(ctx, storeID, actor)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
	}
	dto := FromModel(*review)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, actor, storeID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	images, err := cleanImages(input.Images)
	if err != nil {
		return nil, err
	}
	if err := s.requireVisibleStore(ctx, storeID, nil); err != nil {
		return nil, err
	}
	if _, err := s.profiles.Ensure(ctx, actor); err != nil {
		return nil, err
	}

	review := &models.Review{
		StoreID: storeID,
		UserID:  actor,
		Rating:  input.Rating,
		Comment: sanitize.Optional(input.Comment, maxCommentLength),
		Images:  pq.StringArray(images),
	}
	created, err := s.repo.InsertIfAbsent(ctx, review)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, duplicateMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create review")
	}
	if !created {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, duplicateMessage)
	}
	dto := FromModel(*review)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actor, id uuid.UUID, input UpdateReviewInput) (*ReviewDTO, error) {
	updates := map[string]any{}
	if input.Rating != nil {
		if *input.Rating < 1 || *input.Rating > 5 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
		}
		updates["rating"] = *input.Rating
	}
	if input.Comment != nil {
		updates["comment"] = sanitize.Optional(input.Comment, maxCommentLength)
	}
	if input.Images != nil {
		images, err := cleanImages(input.Images)
		if err != nil {
			return nil, err
		}
		updates["images"] = pq.StringArray(images)
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}

	review, err := s.repo.UpdateOwned(ctx, id, actor, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, notOwnedMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update review")
	}
	dto := FromModel(*review)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, actor, id uuid.UUID) error {
	if err := s.repo.DeleteOwned(ctx, id, actor); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, notOwnedMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete review")
	}
	return nil
}

// requireVisibleStore passes published stores, and unpublished ones only for
// their seller. A nil viewer sees published stores only.
func (s *service) requireVisibleStore(ctx context.Context, storeID uuid.UUID, viewer *uuid.UUID) error {
	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}
	if store.Status != enums.StoreStatusPublished && (viewer == nil || *viewer != store.SellerID) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
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
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("a review can have at most %d images", MaxImages))
	}
	return out, nil
}

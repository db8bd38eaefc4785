package collaborations

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/popspot-backend/pkg/db"
	"github.com/angelmondragon/popspot-backend/pkg/db/models"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
	"github.com/angelmondragon/popspot-backend/pkg/sanitize"
	"github.com/angelmondragon/popspot-backend/pkg/types"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	duplicateMessage = "you have already sent a collaboration request to this store (one per store)"

	// Migration creates the collaborations table.
	Migration = "00006_collaborations.sql"
)

var validate = validator.New()

type Service interface {
	Create(ctx context.Context, actor, storeID uuid.UUID, input CreateInput) (*CollaborationDTO, error)
	List(ctx context.Context, actor uuid.UUID, filter ListFilter) ([]CollaborationDTO, error)
}

type collaborationRepository interface {
	InsertIfAbsent(ctx context.Context, c *models.Collaboration) (bool, error)
	ListVisible(ctx context.Context, viewer uuid.UUID, filter ListFilter) ([]collaborationRecord, error)
}

type storeLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.PopupStore, error)
}

type profileEnsurer interface {
	Ensure(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

type ServiceParams struct {
	Repo     collaborationRepository
	Stores   storeLookup
	Profiles profileEnsurer
	Logger   *logger.Logger
}

type service struct {
	repo     collaborationRepository
	stores   storeLookup
	profiles profileEnsurer
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("collaboration repository is required")
	}
	if params.Stores == nil {
		return nil, fmt.Errorf("store repository is required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile service is required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{repo: params.Repo, stores: params.Stores, profiles: params.Profiles, logg: params.Logger}, nil
}

func (s *service) Create(ctx context.Context, actor, storeID uuid.UUID, input CreateInput) (*CollaborationDTO, error) {
	if actor == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	collab, err := buildCollaboration(input)
	if err != nil {
		return nil, err
	}

	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, s.mapDBError(ctx, err)
	}
	if store.Status != enums.StoreStatusPublished {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	if _, err := s.profiles.Ensure(ctx, actor); err != nil {
		return nil, err
	}

	collab.StoreID = storeID
	collab.RequesterID = actor
	created, err := s.repo.InsertIfAbsent(ctx, collab)
	if err != nil {
		return nil, s.mapDBError(ctx, err)
	}
	if !created {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, duplicateMessage)
	}

	dto := collaborationRecord{
		ID:                collab.ID,
		StoreID:           collab.StoreID,
		StoreName:         store.Name,
		RequesterID:       collab.RequesterID,
		Title:             collab.Title,
		Description:       collab.Description,
		CollaborationType: collab.CollaborationType,
		ContactEmail:      collab.ContactEmail,
		ContactPhone:      collab.ContactPhone,
		BudgetRange:       collab.BudgetRange,
		PreferredDates:    collab.PreferredDates,
		Status:            collab.Status,
		CreatedAt:         collab.CreatedAt,
		UpdatedAt:         collab.UpdatedAt,
	}.toDTO()
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor uuid.UUID, filter ListFilter) ([]CollaborationDTO, error) {
	if actor == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	records, err := s.repo.ListVisible(ctx, actor, filter)
	if err != nil {
		return nil, s.mapDBError(ctx, err)
	}
	out := make([]CollaborationDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.toDTO())
	}
	return out, nil
}

// mapDBError turns database failures into errors a requester can act on.
func (s *service) mapDBError(ctx context.Context, err error) error {
	switch {
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, duplicateMessage)
	case db.IsPolicyViolation(err):
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "not allowed to create collaboration requests").
			WithHint("check the database permissions for the collaborations table")
	case db.IsMissingRelation(err):
		s.logg.Error(ctx, "collaborations table is missing", err)
		return pkgerrors.Wrap(pkgerrors.CodeMissingSchema, err, "collaborations table does not exist").
			WithDetails(map[string]any{
				"migration": Migration,
				"steps": []string{
					"run `migrate up` against the application database",
					"confirm migration " + Migration + " is listed as applied by `migrate status`",
					"retry the request",
				},
			})
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create collaboration request")
	}
}

func buildCollaboration(input CreateInput) (*models.Collaboration, error) {
	title := sanitize.String(input.Title, 200)
	description := sanitize.String(input.Description, 5000)
	switch {
	case title == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	case description == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	kind := enums.CollaborationType(input.CollaborationType)
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collaboration_type must be one of joint, sponsorship, space_sharing, event, other")
	}
	if err := validate.Var(input.ContactEmail, "required,email"); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact_email must be a valid email address")
	}

	var dates types.StringMap
	if len(input.PreferredDates) > 0 {
		dates = make(types.StringMap, len(input.PreferredDates))
		for k, v := range input.PreferredDates {
			if key := sanitize.String(k, 50); key != "" {
				dates[key] = sanitize.String(v, 100)
			}
		}
	}

	return &models.Collaboration{
		Title:             title,
		Description:       description,
		CollaborationType: kind,
		ContactEmail:      input.ContactEmail,
		ContactPhone:      sanitize.Optional(input.ContactPhone, 30),
		BudgetRange:       sanitize.Optional(input.BudgetRange, 100),
		PreferredDates:    dates,
		Status:            enums.CollaborationStatusPending,
	}, nil
}

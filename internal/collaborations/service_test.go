package collaborations

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/popspot-backend/internal/stores"
	"github.com/angelmondragon/popspot-backend/pkg/db/dbtest"
	"github.com/angelmondragon/popspot-backend/pkg/db/models"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/types"
)

type stubProfiles struct{}

func (stubProfiles) Ensure(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	return &models.Profile{ID: id}, nil
}

func newService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		Stores:   stores.NewRepository(db),
		Profiles: stubProfiles{},
	})
	require.NoError(t, err)
	return svc
}

func seedStore(t *testing.T, db *gorm.DB, status enums.StoreStatus) models.PopupStore {
	t.Helper()
	store := models.PopupStore{
		ID:        uuid.New(),
		SellerID:  uuid.New(),
		Name:      "성수 팝업",
		Category:  "fashion",
		Location:  "seoul",
		StartDate: types.NewDate(2026, 5, 1),
		EndDate:   types.NewDate(2026, 5, 31),
		Images:    pq.StringArray{},
		Tags:      pq.StringArray{},
		Status:    status,
	}
	require.NoError(t, db.Create(&store).Error)
	return store
}

func validInput() CreateInput {
	phone := "010-1234-5678"
	return CreateInput{
		Title:             "공동 기획 제안",
		Description:       "브랜드 협업을 제안드립니다.",
		CollaborationType: "joint",
		ContactEmail:      "brand@example.com",
		ContactPhone:      &phone,
		PreferredDates:    map[string]string{"start": "2026-05-10"},
	}
}

func TestCreateOncePerStore(t *testing.T) {
	db := dbtest.Open(t)
	svc := newService(t, db)
	store := seedStore(t, db, enums.StoreStatusPublished)
	actor := uuid.New()

	created, err := svc.Create(context.Background(), actor, store.ID, validInput())
	require.NoError(t, err)
	assert.Equal(t, enums.CollaborationStatusPending, created.Status)
	assert.Equal(t, actor, created.RequesterID)
	assert.Equal(t, "성수 팝업", created.StoreName)

	_, err = svc.Create(context.Background(), actor, store.ID, validInput())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	assert.Equal(t, duplicateMessage, pkgerrors.MessageOf(err))
}

func TestCreateValidation(t *testing.T) {
	db := dbtest.Open(t)
	svc := newService(t, db)
	store := seedStore(t, db, enums.StoreStatusPublished)
	draft := seedStore(t, db, enums.StoreStatusDraft)

	cases := map[string]func(*CreateInput){
		"blank title":  func(in *CreateInput) { in.Title = "  " },
		"blank desc":   func(in *CreateInput) { in.Description = "<p></p>" },
		"bad type":     func(in *CreateInput) { in.CollaborationType = "barter" },
		"bad email":    func(in *CreateInput) { in.ContactEmail = "not-an-email" },
		"missing mail": func(in *CreateInput) { in.ContactEmail = "" },
	}
	for name, mutate := range cases {
		in := validInput()
		mutate(&in)
		_, err := svc.Create(context.Background(), uuid.New(), store.ID, in)
		if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}

	_, err := svc.Create(context.Background(), uuid.New(), draft.ID, validInput())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = svc.Create(context.Background(), uuid.Nil, store.ID, validInput())
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}

func TestCreateReportsMissingTable(t *testing.T) {
	db := dbtest.OpenWithout(t, "collaborations")
	svc := newService(t, db)
	store := seedStore(t, db, enums.StoreStatusPublished)

	_, err := svc.Create(context.Background(), uuid.New(), store.ID, validInput())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeMissingSchema, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, Migration, details["migration"])
	assert.NotEmpty(t, details["steps"])
}

func TestListVisibleToRequesterAndOwner(t *testing.T) {
	db := dbtest.Open(t)
	svc := newService(t, db)
	store := seedStore(t, db, enums.StoreStatusPublished)
	other := seedStore(t, db, enums.StoreStatusPublished)
	requester := uuid.New()
	require.NoError(t, db.Create(&models.Profile{ID: requester, Username: "brand", Role: enums.ProfileRoleUser}).Error)

	_, err := svc.Create(context.Background(), requester, store.ID, validInput())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), requester, other.ID, validInput())
	require.NoError(t, err)

	mine, err := svc.List(context.Background(), requester, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	received, err := svc.List(context.Background(), store.SellerID, ListFilter{})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, store.ID, received[0].StoreID)
	require.NotNil(t, received[0].Requester)
	assert.Equal(t, "brand", received[0].Requester.Username)
	assert.Equal(t, "2026-05-10", received[0].PreferredDates["start"])

	pending := enums.CollaborationStatusPending
	filtered, err := svc.List(context.Background(), requester, ListFilter{StoreID: &other.ID, Status: &pending})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, other.ID, filtered[0].StoreID)

	stranger, err := svc.List(context.Background(), uuid.New(), ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, stranger)
}

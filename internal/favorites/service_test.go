package favorites

import (
	"context"
	"sync"
	"testing"
	"time"

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

func setup(t *testing.T) (*gorm.DB, Service) {
	t.Helper()
	db := dbtest.Open(t)
	svc, err := NewService(ServiceParams{Repo: NewRepository(db), Stores: stores.NewRepository(db)})
	require.NoError(t, err)
	return db, svc
}

func seedStore(t *testing.T, db *gorm.DB, name string, status enums.StoreStatus) models.PopupStore {
	t.Helper()
	store := models.PopupStore{
		ID:        uuid.New(),
		SellerID:  uuid.New(),
		Name:      name,
		Category:  "fashion",
		Location:  "seoul",
		StartDate: types.NewDate(2026, 5, 1),
		EndDate:   types.NewDate(2026, 5, 31),
		Images:    pq.StringArray{"https://cdn.example.com/1.png"},
		Tags:      pq.StringArray{},
		Status:    status,
	}
	require.NoError(t, db.Create(&store).Error)
	return store
}

func TestToggleFlipsState(t *testing.T) {
	db, svc := setup(t)
	store := seedStore(t, db, "a", enums.StoreStatusPublished)
	actor := uuid.New()
	ctx := context.Background()

	status, err := svc.Status(ctx, actor, store.ID)
	require.NoError(t, err)
	assert.False(t, status.Favorited)

	on, err := svc.Toggle(ctx, actor, store.ID)
	require.NoError(t, err)
	assert.True(t, on.Favorited)
	require.NotNil(t, on.FavoriteID)

	status, err = svc.Status(ctx, actor, store.ID)
	require.NoError(t, err)
	assert.True(t, status.Favorited)
	assert.Equal(t, *on.FavoriteID, *status.FavoriteID)

	off, err := svc.Toggle(ctx, actor, store.ID)
	require.NoError(t, err)
	assert.False(t, off.Favorited)
	assert.Nil(t, off.FavoriteID)
}

func TestToggleRequiresLoginAndVisibleStore(t *testing.T) {
	db, svc := setup(t)
	draft := seedStore(t, db, "draft", enums.StoreStatusDraft)

	_, err := svc.Toggle(context.Background(), uuid.Nil, draft.ID)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
	assert.Equal(t, "login required", pkgerrors.MessageOf(err))

	_, err = svc.Toggle(context.Background(), uuid.New(), draft.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = svc.Toggle(context.Background(), uuid.New(), uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	on, err := svc.Toggle(context.Background(), draft.SellerID, draft.ID)
	require.NoError(t, err)
	assert.True(t, on.Favorited)
}

func TestConcurrentTogglesKeepOneRow(t *testing.T) {
	db, svc := setup(t)
	store := seedStore(t, db, "a", enums.StoreStatusPublished)
	actor := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Toggle(context.Background(), actor, store.ID)
		}()
	}
	wg.Wait()

	var count int64
	require.NoError(t, db.Model(&models.Favorite{}).Where("user_id = ? AND store_id = ?", actor, store.ID).Count(&count).Error)
	assert.LessOrEqual(t, count, int64(1))
}

func TestListAndRemove(t *testing.T) {
	db, svc := setup(t)
	first := seedStore(t, db, "first", enums.StoreStatusPublished)
	second := seedStore(t, db, "second", enums.StoreStatusPublished)
	actor := uuid.New()
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Favorite{ID: uuid.New(), UserID: actor, StoreID: first.ID, CreatedAt: time.Now().Add(-time.Hour)}).Error)
	latest := models.Favorite{ID: uuid.New(), UserID: actor, StoreID: second.ID, CreatedAt: time.Now()}
	require.NoError(t, db.Create(&latest).Error)
	require.NoError(t, db.Create(&models.Favorite{ID: uuid.New(), UserID: uuid.New(), StoreID: first.ID}).Error)

	list, err := svc.List(ctx, actor)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Store.Name)
	assert.Equal(t, []string{"https://cdn.example.com/1.png"}, list[0].Store.Images)
	assert.Equal(t, types.NewDate(2026, 5, 1).String(), list[0].Store.StartDate.String())

	err = svc.Remove(ctx, uuid.New(), latest.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	require.NoError(t, svc.Remove(ctx, actor, latest.ID))

	list, err = svc.List(ctx, actor)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "first", list[0].Store.Name)
}

package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/popspot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
	"github.com/angelmondragon/popspot-backend/pkg/types"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return body.Error
}

func TestStoreListParsesQuery(t *testing.T) {
	svc := &stubStores{}
	req := httptest.NewRequest(http.MethodGet,
		"/stores?page=2&pageSize=20&category=food&status=all&dateFilter=upcoming&startDate=2025-03-01&tags=art,%20vintage&tags=music&sortBy=distance&userLat=37.5&userLng=127.0&search=pop", nil)
	w := httptest.NewRecorder()

	StoreList(svc, logger.Nop())(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	p := svc.listParams
	if p.Page != 2 || p.PageSize != 20 || p.Category != "food" || p.Status != "all" || p.Search != "pop" {
		t.Fatalf("unexpected params %+v", p)
	}
	if p.DateFilter != enums.DateFilterUpcoming || p.SortBy != enums.StoreSortDistance {
		t.Fatalf("unexpected enums %+v", p)
	}
	if p.StartDate == nil || p.StartDate.String() != "2025-03-01" || p.EndDate != nil {
		t.Fatalf("unexpected dates %+v / %+v", p.StartDate, p.EndDate)
	}
	if len(p.Tags) != 3 || p.Tags[1] != "vintage" {
		t.Fatalf("unexpected tags %v", p.Tags)
	}
	if p.UserLat == nil || *p.UserLat != 37.5 || p.UserLng == nil {
		t.Fatalf("expected coordinates, got %v %v", p.UserLat, p.UserLng)
	}
	if p.Viewer != nil {
		t.Fatalf("anonymous request must not carry a viewer")
	}
}

func TestStoreListDefaults(t *testing.T) {
	svc := &stubStores{}
	w := httptest.NewRecorder()
	StoreList(svc, logger.Nop())(w, httptest.NewRequest(http.MethodGet, "/stores", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.listParams.Page != 1 || svc.listParams.PageSize != 12 {
		t.Fatalf("unexpected defaults %+v", svc.listParams)
	}
}

func TestStoreListRejectsBadQuery(t *testing.T) {
	cases := map[string]string{
		"page size": "/stores?pageSize=51",
		"status":    "/stores?status=archived",
		"date":      "/stores?dateFilter=tomorrow",
		"sort":      "/stores?sortBy=random",
		"latitude":  "/stores?userLat=91",
		"startDate": "/stores?startDate=03-01-2025",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			StoreList(&stubStores{}, logger.Nop())(w, httptest.NewRequest(http.MethodGet, target, nil))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if got := decodeError(t, w).Code; got != string(pkgerrors.CodeValidation) {
				t.Fatalf("expected validation code, got %s", got)
			}
		})
	}
}

func TestStoreGetPassesViewer(t *testing.T) {
	svc := &stubStores{}
	viewer := uuid.New()
	id := uuid.New()
	req := withURLParam(withActor(httptest.NewRequest(http.MethodGet, "/stores/"+id.String(), nil), viewer), "storeId", id.String())
	w := httptest.NewRecorder()

	StoreGet(svc, logger.Nop())(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.viewer == nil || *svc.viewer != viewer {
		t.Fatalf("expected viewer %s, got %v", viewer, svc.viewer)
	}
}

func TestStoreGetInvalidID(t *testing.T) {
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/stores/nope", nil), "storeId", "nope")
	w := httptest.NewRecorder()
	StoreGet(&stubStores{}, logger.Nop())(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	id := uuid.New()
	svc := &stubStores{err: pkgerrors.New(pkgerrors.CodeNotFound, "store not found")}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/stores/"+id.String(), nil), "storeId", id.String())
	w := httptest.NewRecorder()
	StoreGet(svc, logger.Nop())(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if msg := decodeError(t, w).Message; msg != "store not found" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestStoreCreate(t *testing.T) {
	body := `{"name":"Cafe","category":"food","location":"Seoul","start_date":"2025-03-01","end_date":"2025-03-10"}`

	t.Run("anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		StoreCreate(&stubStores{}, logger.Nop())(w, httptest.NewRequest(http.MethodPost, "/stores", strings.NewReader(body)))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("created", func(t *testing.T) {
		svc := &stubStores{}
		req := withActor(httptest.NewRequest(http.MethodPost, "/stores", strings.NewReader(body)), uuid.New())
		w := httptest.NewRecorder()
		StoreCreate(svc, logger.Nop())(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		if svc.created == nil || svc.created.Name != "Cafe" {
			t.Fatalf("unexpected input %+v", svc.created)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		req := withActor(httptest.NewRequest(http.MethodPost, "/stores", strings.NewReader(`{"name":"x","owner":"me"}`)), uuid.New())
		w := httptest.NewRecorder()
		StoreCreate(&stubStores{}, logger.Nop())(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestStoreDelete(t *testing.T) {
	svc := &stubStores{}
	id := uuid.New()
	req := withURLParam(withActor(httptest.NewRequest(http.MethodDelete, "/stores/"+id.String(), nil), uuid.New()), "storeId", id.String())
	w := httptest.NewRecorder()
	StoreDelete(svc, logger.Nop())(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if svc.deleted != id {
		t.Fatalf("expected delete of %s, got %s", id, svc.deleted)
	}
}

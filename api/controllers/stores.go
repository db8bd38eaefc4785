package controllers

import (
	"net/http"

	"github.com/angelmondragon/popspot-backend/api/responses"
	"github.com/angelmondragon/popspot-backend/api/validators"
	"github.com/angelmondragon/popspot-backend/internal/stores"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
	"github.com/angelmondragon/popspot-backend/pkg/pagination"
	"github.com/angelmondragon/popspot-backend/pkg/types"
)

const (
	maxFilterLen = 100
	maxSearchLen = 200
)

// StoreList handles GET /stores. Tag filtering and distance sorting apply to
// the fetched page only.
func StoreList(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parseStoreListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Viewer = optionalActor(r)

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseStoreListParams(r *http.Request) (stores.ListParams, error) {
	var params stores.ListParams
	var err error

	if params.Page, err = validators.ParseQueryInt(r, "page", 1, 1, 100000); err != nil {
		return params, err
	}
	if params.PageSize, err = validators.ParseQueryInt(r, "pageSize", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
		return params, err
	}
	params.Category = validators.QueryString(r, "category", maxFilterLen)
	params.Location = validators.QueryString(r, "location", maxFilterLen)
	params.Search = validators.QueryString(r, "search", maxSearchLen)
	params.Tags = validators.ParseQueryList(r, "tags")

	if raw := validators.QueryString(r, "status", maxFilterLen); raw != "" {
		if raw != "all" {
			if _, err := enums.ParseStoreStatus(raw); err != nil {
				return params, invalidQuery("status", err)
			}
		}
		params.Status = raw
	}
	if raw := validators.QueryString(r, "dateFilter", maxFilterLen); raw != "" {
		filter, err := enums.ParseDateFilter(raw)
		if err != nil {
			return params, invalidQuery("dateFilter", err)
		}
		params.DateFilter = filter
	}
	if raw := validators.QueryString(r, "sortBy", maxFilterLen); raw != "" {
		sort, err := enums.ParseStoreSort(raw)
		if err != nil {
			return params, invalidQuery("sortBy", err)
		}
		params.SortBy = sort
	}

	if params.StartDate, err = queryDate(r, "startDate"); err != nil {
		return params, err
	}
	if params.EndDate, err = queryDate(r, "endDate"); err != nil {
		return params, err
	}

	if params.UserLat, err = validators.ParseQueryFloat(r, "userLat", -90, 90); err != nil {
		return params, err
	}
	if params.UserLng, err = validators.ParseQueryFloat(r, "userLng", -180, 180); err != nil {
		return params, err
	}
	return params, nil
}

func queryDate(r *http.Request, key string) (*types.Date, error) {
	t, err := validators.ParseQueryDate(r, key)
	if err != nil || t == nil {
		return nil, err
	}
	d := types.DateOf(*t)
	return &d, nil
}

func invalidQuery(field string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field).
		WithDetails(map[string]any{"field": field})
}

func StoreGet(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store, err := svc.Get(r.Context(), id, optionalActor(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store)
	}
}

func StoreListMine(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListMine(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func StoreCreate(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input stores.CreateStoreInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, store)
	}
}

func StoreUpdate(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input stores.UpdateStoreInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store, err := svc.Update(r.Context(), actor, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store)
	}
}

func StoreDelete(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

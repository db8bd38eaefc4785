package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/popspot-backend/api/responses"
	"github.com/angelmondragon/popspot-backend/api/validators"
	"github.com/angelmondragon/popspot-backend/internal/collaborations"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
)

// CollaborationList handles GET /collaborations?storeId=&requesterId=&status=.
func CollaborationList(svc collaborations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter, err := parseCollaborationFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func parseCollaborationFilter(r *http.Request) (collaborations.ListFilter, error) {
	var filter collaborations.ListFilter
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("storeId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, invalidQuery("storeId", err)
		}
		filter.StoreID = &id
	}
	if raw := strings.TrimSpace(q.Get("requesterId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, invalidQuery("requesterId", err)
		}
		filter.RequesterID = &id
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := enums.ParseCollaborationStatus(raw)
		if err != nil {
			return filter, invalidQuery("status", err)
		}
		filter.Status = &status
	}
	return filter, nil
}

func CollaborationCreate(svc collaborations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := pathUUID(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input collaborations.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		collab, err := svc.Create(r.Context(), actor, storeID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, collab)
	}
}

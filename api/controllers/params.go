package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/popspot-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
)

func requireActor(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.ActorID(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	return id, nil
}

// optionalActor is nil for anonymous requests.
func optionalActor(r *http.Request) *uuid.UUID {
	id, ok := middleware.ActorID(r.Context())
	if !ok {
		return nil
	}
	return &id
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name).
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

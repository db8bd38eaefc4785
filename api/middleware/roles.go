package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/popspot-backend/api/responses"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
	"github.com/google/uuid"
)

// RoleResolver reads the stored role of a user.
type RoleResolver func(ctx context.Context, userID uuid.UUID) (enums.ProfileRole, error)

// RequireRole gates a route on the caller's stored profile role, so a role
// change applies on the next request instead of the next token refresh. With
// a nil resolver the role carried by the access token is used.
func RequireRole(role enums.ProfileRole, resolve RoleResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			current := enums.ProfileRole(RoleFromContext(ctx))
			if resolve != nil {
				actor, ok := ActorID(ctx)
				if !ok {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required"))
					return
				}
				stored, err := resolve(ctx, actor)
				if err != nil {
					responses.WriteError(ctx, logg, w, err)
					return
				}
				current = stored
			}
			if current != role {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "only "+string(role)+" accounts can do this"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithRole(ctx, string(current))))
		})
	}
}

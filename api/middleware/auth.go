package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/popspot-backend/api/responses"
	"github.com/angelmondragon/popspot-backend/api/validators"
	pkgAuth "github.com/angelmondragon/popspot-backend/pkg/auth"
	"github.com/angelmondragon/popspot-backend/pkg/auth/session"
	"github.com/angelmondragon/popspot-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
)

// SessionResolver answers whether an access session is still live.
type SessionResolver interface {
	Resolve(ctx context.Context, userID, accessID string) (session.Snapshot, error)
}

// Auth requires a live session. The token comes from the bearer header or the
// session cookie and is checked against the process session tracker.
func Auth(cfg config.JWTConfig, cookieName string, tracker SessionResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, cookieName, tracker, logg, true)
}

// OptionalAuth seeds the caller identity when a live session is presented and
// lets anonymous requests through unchanged.
func OptionalAuth(cfg config.JWTConfig, cookieName string, tracker SessionResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, cookieName, tracker, logg, false)
}

func authenticate(cfg config.JWTConfig, cookieName string, tracker SessionResolver, logg *logger.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reject := func(err error) {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				responses.WriteError(r.Context(), logg, w, err)
			}

			token, err := validators.AccessToken(r, cookieName)
			if err != nil {
				reject(pkgerrors.New(pkgerrors.CodeUnauthorized, "login required"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				reject(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			userID := claims.UserID.String()

			if tracker != nil {
				snap, err := tracker.Resolve(r.Context(), userID, claims.AccessID())
				if err != nil {
					if required {
						responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
						return
					}
					next.ServeHTTP(w, r)
					return
				}
				if !snap.Authenticated() {
					reject(pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired, please sign in again"))
					return
				}
			}

			ctx := context.WithValue(r.Context(), ctxUserID, userID)
			ctx = context.WithValue(ctx, ctxRole, string(claims.Role))
			ctx = context.WithValue(ctx, ctxAccessID, claims.AccessID())
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    userID,
					"actor_role": string(claims.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

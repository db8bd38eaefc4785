package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/popspot-backend/api/controllers"
	"github.com/angelmondragon/popspot-backend/api/middleware"
	"github.com/angelmondragon/popspot-backend/api/responses"
	"github.com/angelmondragon/popspot-backend/internal/auth"
	"github.com/angelmondragon/popspot-backend/internal/collaborations"
	"github.com/angelmondragon/popspot-backend/internal/favorites"
	"github.com/angelmondragon/popspot-backend/internal/media"
	"github.com/angelmondragon/popspot-backend/internal/profiles"
	"github.com/angelmondragon/popspot-backend/internal/reviews"
	"github.com/angelmondragon/popspot-backend/internal/stores"
	"github.com/angelmondragon/popspot-backend/pkg/config"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
	"github.com/angelmondragon/popspot-backend/pkg/metrics"
)

// Store is the Redis surface the HTTP layer needs for rate limits and
// idempotency.
type Store interface {
	middleware.IdempotencyStore
	middleware.RateLimitStore
}

// Dependencies are the wired services behind the HTTP surface.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTPMetrics
	Store    Store
	Sessions middleware.SessionResolver
	Ready    map[string]controllers.Pinger

	Auth           auth.Service
	Stores         stores.Service
	Reviews        reviews.Service
	Favorites      favorites.Service
	Collaborations collaborations.Service
	Profiles       profiles.Service
	Media          media.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	cookie := controllers.CookieSettings{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.Metrics),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	signInPolicy := middleware.NewAuthRateLimitPolicy("signin", cfg.RateLimit.SignInWindow, cfg.RateLimit.SignInLimit, cfg.RateLimit.SignInLimit)
	signUpPolicy := middleware.NewAuthRateLimitPolicy("signup", cfg.RateLimit.SignInWindow, cfg.RateLimit.SignInLimit, cfg.RateLimit.SignInLimit)
	resetPolicy := middleware.NewAuthRateLimitPolicy("password-reset", cfg.RateLimit.ResetWindow, cfg.RateLimit.ResetLimit, cfg.RateLimit.ResetLimit)

	optionalAuth := middleware.OptionalAuth(cfg.JWT, cfg.Session.CookieName, deps.Sessions, logg)
	requireAuth := middleware.Auth(cfg.JWT, cfg.Session.CookieName, deps.Sessions, logg)
	idempotency := middleware.Idempotency(deps.Store, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.NotFound(apiNotFound(logg))
		r.MethodNotAllowed(apiMethodNotAllowed(logg))

		// Browser navigations cannot send the apikey header.
		r.Get("/auth/kakao", controllers.AuthKakao(deps.Auth, cfg.Session.CookieSecure, logg))
		r.Get("/auth/kakao/callback", controllers.AuthKakaoCallback(deps.Auth, cookie, cfg.App.FrontendURL, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKey(cfg.Public.APIKey, logg))

			r.Get("/config", controllers.PublicConfig(cfg))

			r.Route("/auth", func(r chi.Router) {
				r.With(middleware.AuthRateLimit(signUpPolicy, deps.Store, logg)).Post("/signup", controllers.AuthSignUp(deps.Auth, logg))
				r.With(middleware.AuthRateLimit(signInPolicy, deps.Store, logg)).Post("/signin", controllers.AuthSignIn(deps.Auth, cookie, logg))
				r.Post("/signout", controllers.AuthSignOut(deps.Auth, cookie, logg))
				r.Post("/refresh", controllers.AuthRefresh(deps.Auth, cookie, logg))
				r.Get("/session", controllers.AuthSession(deps.Auth, cookie, logg))
				r.With(middleware.AuthRateLimit(resetPolicy, deps.Store, logg)).Post("/password/reset", controllers.AuthPasswordReset(deps.Auth, logg))
				r.Post("/password/update", controllers.AuthPasswordUpdate(deps.Auth, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(optionalAuth)
				r.Get("/stores", controllers.StoreList(deps.Stores, logg))
				r.Get("/stores/{storeId}", controllers.StoreGet(deps.Stores, logg))
				r.Get("/stores/{storeId}/reviews", controllers.ReviewList(deps.Reviews, logg))
				r.Get("/stores/{storeId}/rating", controllers.ReviewRating(deps.Reviews, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, idempotency)

				r.Get("/stores/mine", controllers.StoreListMine(deps.Stores, logg))
				r.Post("/stores", controllers.StoreCreate(deps.Stores, logg))
				r.Patch("/stores/{storeId}", controllers.StoreUpdate(deps.Stores, logg))
				r.Delete("/stores/{storeId}", controllers.StoreDelete(deps.Stores, logg))

				r.Get("/stores/{storeId}/reviews/mine", controllers.ReviewMine(deps.Reviews, logg))
				r.Post("/stores/{storeId}/reviews", controllers.ReviewCreate(deps.Reviews, logg))
				r.Patch("/reviews/{reviewId}", controllers.ReviewUpdate(deps.Reviews, logg))
				r.Delete("/reviews/{reviewId}", controllers.ReviewDelete(deps.Reviews, logg))

				r.Get("/stores/{storeId}/favorite", controllers.FavoriteStatus(deps.Favorites, logg))
				r.Post("/stores/{storeId}/favorite", controllers.FavoriteToggle(deps.Favorites, logg))
				r.Get("/favorites", controllers.FavoriteList(deps.Favorites, logg))
				r.Delete("/favorites/{favoriteId}", controllers.FavoriteRemove(deps.Favorites, logg))

				r.Get("/collaborations", controllers.CollaborationList(deps.Collaborations, logg))
				r.Post("/stores/{storeId}/collaborations", controllers.CollaborationCreate(deps.Collaborations, logg))

				r.Get("/profile", controllers.ProfileGet(deps.Profiles, logg))
				r.Patch("/profile", controllers.ProfileUpdate(deps.Profiles, logg))
				r.Put("/profile/username", controllers.ProfileUsername(deps.Profiles, logg))
				r.Put("/profile/avatar", controllers.ProfileAvatar(deps.Profiles, logg))
				r.With(middleware.RequireRole(enums.ProfileRoleAdmin, storedRole(deps.Profiles), logg)).
					Put("/profiles/{profileId}/role", controllers.ProfileRole(deps.Profiles, logg))

				r.Post("/images", controllers.ImageUpload(deps.Media, logg))
				r.Delete("/images", controllers.ImageDelete(deps.Media, logg))
			})
		})
	})

	NewPages(cfg.App.StaticDir, cfg.Session.CookieName, logg).Register(r)
	return r
}

func apiNotFound(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	}
}

func apiMethodNotAllowed(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "method not allowed").
			WithDetails(map[string]any{"method": r.Method}))
	}
}

func storedRole(svc profiles.Service) middleware.RoleResolver {
	if svc == nil {
		return nil
	}
	return func(ctx context.Context, userID uuid.UUID) (enums.ProfileRole, error) {
		profile, err := svc.Get(ctx, userID)
		if err != nil {
			return "", err
		}
		return profile.Role, nil
	}
}

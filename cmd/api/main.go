package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/popspot-backend/api/controllers"
	"github.com/angelmondragon/popspot-backend/api/routes"
	"github.com/angelmondragon/popspot-backend/internal/auth"
	"github.com/angelmondragon/popspot-backend/internal/collaborations"
	"github.com/angelmondragon/popspot-backend/internal/favorites"
	"github.com/angelmondragon/popspot-backend/internal/media"
	"github.com/angelmondragon/popspot-backend/internal/profiles"
	"github.com/angelmondragon/popspot-backend/internal/reviews"
	"github.com/angelmondragon/popspot-backend/internal/stores"
	"github.com/angelmondragon/popspot-backend/internal/users"
	"github.com/angelmondragon/popspot-backend/pkg/auth/session"
	"github.com/angelmondragon/popspot-backend/pkg/config"
	"github.com/angelmondragon/popspot-backend/pkg/db"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
	"github.com/angelmondragon/popspot-backend/pkg/mailer"
	"github.com/angelmondragon/popspot-backend/pkg/maps"
	"github.com/angelmondragon/popspot-backend/pkg/metrics"
	"github.com/angelmondragon/popspot-backend/pkg/migrate"
	"github.com/angelmondragon/popspot-backend/pkg/redis"
	"github.com/angelmondragon/popspot-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	storageClient, err := gcs.NewClient(ctx, cfg.Storage, logg)
	if err != nil {
		return err
	}

	mailSender, err := mailer.New(cfg.Mail, logg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	events, err := session.NewRedisEvents(redisClient, cfg.Session.EventsChannel, logg)
	if err != nil {
		return err
	}
	sessionManager, err := session.NewManager(redisClient, cfg.JWT, events)
	if err != nil {
		return err
	}
	tracker := session.NewTracker(sessionManager, cfg.Session.TrackerReconfirmWindow, logg).
		RetainAnonymous(cfg.JWT.AccessTokenTTL())
	stream, err := events.Subscribe(ctx)
	if err != nil {
		return err
	}
	go tracker.Run(ctx, stream)

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)

	profileService, err := profiles.NewService(profiles.ServiceParams{
		Repo:   profiles.NewRepository(gormDB),
		Users:  userRepo,
		Events: events,
		Logger: logg,
	})
	if err != nil {
		return err
	}

	var kakao auth.KakaoProvider
	if cfg.FeatureFlags.KakaoLogin && cfg.Kakao.Enabled() {
		if kakao, err = auth.NewKakaoProvider(ctx, cfg.Kakao); err != nil {
			return err
		}
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Users:       userRepo,
		Profiles:    profileService,
		Sessions:    sessionManager,
		Tracker:     tracker,
		Resets:      redisClient,
		Mailer:      mailSender,
		Kakao:       kakao,
		JWT:         cfg.JWT,
		Password:    cfg.Password,
		Session:     cfg.Session,
		FrontendURL: cfg.App.FrontendURL,
		Metrics:     metrics.NewSessionMetrics(registry),
		Logger:      logg,
	})
	if err != nil {
		return err
	}

	storeRepo := stores.NewRepository(gormDB)
	storeParams := stores.ServiceParams{
		Repo:     storeRepo,
		Profiles: profileService,
		Links:    maps.NewLinkBuilder(cfg.Maps),
		Logger:   logg,
	}
	if cfg.Maps.APIKey != "" {
		geocoder, err := maps.NewClient(cfg.Maps.APIKey)
		if err != nil {
			return err
		}
		storeParams.Geocoder = geocoder
	}
	storeService, err := stores.NewService(storeParams)
	if err != nil {
		return err
	}

	reviewService, err := reviews.NewService(reviews.ServiceParams{
		Repo:     reviews.NewRepository(gormDB),
		Stores:   storeRepo,
		Profiles: profileService,
	})
	if err != nil {
		return err
	}

	favoriteService, err := favorites.NewService(favorites.ServiceParams{
		Repo:   favorites.NewRepository(gormDB),
		Stores: storeRepo,
	})
	if err != nil {
		return err
	}

	collaborationService, err := collaborations.NewService(collaborations.ServiceParams{
		Repo:     collaborations.NewRepository(gormDB),
		Stores:   storeRepo,
		Profiles: profileService,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	mediaService, err := media.NewService(media.ServiceParams{
		Storage: storageClient,
		Limits: media.Limits{
			MaxImages:    cfg.Storage.MaxImages,
			MaxFileBytes: cfg.Storage.MaxFileBytes,
			SpoolDir:     cfg.Storage.SpoolDir,
		},
		Metrics: metrics.NewUploadMetrics(registry),
		Logger:  logg,
	})
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Dependencies{
		Config:   cfg,
		Logger:   logg,
		Gatherer: registry,
		Metrics:  metrics.NewHTTPMetrics(registry),
		Store:    redisClient,
		Sessions: tracker,
		Ready: map[string]controllers.Pinger{
			"db":      dbClient,
			"redis":   redisClient,
			"storage": storageClient,
		},
		Auth:           authService,
		Stores:         storeService,
		Reviews:        reviewService,
		Favorites:      favoriteService,
		Collaborations: collaborationService,
		Profiles:       profileService,
		Media:          mediaService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":   cfg.App.Env,
		"addr":  addr,
		"kakao": kakao != nil,
		"maps":  cfg.Maps.APIKey != "",
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

package profiles

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/popspot-backend/pkg/auth/session"
	"github.com/angelmondragon/popspot-backend/pkg/db/models"
	"github.com/angelmondragon/popspot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
	"github.com/angelmondragon/popspot-backend/pkg/sanitize"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	minUsernameLength = 2
	maxUsernameLength = 50
)

// Service exposes profile reads, lazy provisioning and updates.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error)
	Ensure(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error)
	UpdateUsername(ctx context.Context, userID uuid.UUID, username string) (*ProfileDTO, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (*ProfileDTO, error)
	UpdateRole(ctx context.Context, actorID, targetID uuid.UUID, role enums.ProfileRole) (*ProfileDTO, error)
}

type profileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	InsertIfAbsent(ctx context.Context, profile *models.Profile) (bool, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Profile, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.ProfileRole) (*models.Profile, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type service struct {
	repo   profileRepository
	users  userLookup
	events session.Publisher
	logger *logger.Logger
}

// ServiceParams bundles the profile service dependencies. Events is optional;
// when set, profile changes are announced as USER_UPDATED.
type ServiceParams struct {
	Repo   profileRepository
	Users  userLookup
	Events session.Publisher
	Logger *logger.Logger
}

// NewService constructs a profile service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("profile repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{repo: params.Repo, users: params.Users, events: params.Events, logger: params.Logger}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error) {
	profile, err := s.Ensure(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(profile), nil
}

// Ensure returns the caller's profile, inserting a default one when absent.
// The row is re-read after the insert so callers never proceed on a profile
// that is not visible yet.
func (s *service) Ensure(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	profile, err := s.repo.FindByID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load profile")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	created, err := s.repo.InsertIfAbsent(ctx, &models.Profile{
		ID:       userID,
		Username: DefaultUsername(userID, user.Email, user.Username),
		Role:     enums.ProfileRoleUser,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "profile provisioning failed")
	}
	if created && s.logger != nil {
		s.logger.Info(s.logger.WithUserID(ctx, userID.String()), "profile provisioned")
	}

	profile, err = s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "profile provisioning failed").
			WithHint("the profile row was not visible after insert; retry the request")
	}
	return profile, nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error) {
	if _, err := s.Ensure(ctx, userID); err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if input.Username != nil {
		username, err := normalizeUsername(*input.Username)
		if err != nil {
			return nil, err
		}
		updates["username"] = username
	}
	if input.AvatarURL != nil {
		avatar, err := normalizeAvatar(*input.AvatarURL)
		if err != nil {
			return nil, err
		}
		updates["avatar_url"] = avatar
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	return s.apply(ctx, userID, updates)
}

func (s *service) UpdateUsername(ctx context.Context, userID uuid.UUID, username string) (*ProfileDTO, error) {
	return s.Update(ctx, userID, UpdateProfileInput{Username: &username})
}

func (s *service) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatarURL string) (*ProfileDTO, error) {
	return s.Update(ctx, userID, UpdateProfileInput{AvatarURL: &avatarURL})
}

func (s *service) UpdateRole(ctx context.Context, actorID, targetID uuid.UUID, role enums.ProfileRole) (*ProfileDTO, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	actor, err := s.Ensure(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.ProfileRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can change roles")
	}
	profile, err := s.repo.UpdateRole(ctx, targetID, role)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update role")
	}
	s.announce(ctx, targetID)
	return FromModel(profile), nil
}

func (s *service) apply(ctx context.Context, userID uuid.UUID, updates map[string]any) (*ProfileDTO, error) {
	profile, err := s.repo.Update(ctx, userID, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	s.announce(ctx, userID)
	return FromModel(profile), nil
}

// announce tells every process the user changed. The write already landed,
// so a publish failure is only logged.
func (s *service) announce(ctx context.Context, userID uuid.UUID) {
	if s.events == nil {
		return
	}
	ev := session.Event{Type: session.EventUserUpdated, UserID: userID.String()}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn(s.logger.WithField(s.logger.WithUserID(ctx, userID.String()), "error", err.Error()), "profile update event failed")
	}
}

// DefaultUsername picks the provisioning username: sign-up metadata first,
// then the email local part, then user_ plus the first eight id characters.
func DefaultUsername(id uuid.UUID, email string, metadata *string) string {
	if metadata != nil {
		if name := sanitize.String(*metadata, maxUsernameLength); utf8.RuneCountInString(name) >= minUsernameLength {
			return name
		}
	}
	if at := strings.Index(email, "@"); at > 0 {
		if local := sanitize.String(email[:at], maxUsernameLength); local != "" {
			return local
		}
	}
	return "user_" + id.String()[:8]
}

func normalizeUsername(raw string) (string, error) {
	username := sanitize.String(raw, maxUsernameLength)
	if utf8.RuneCountInString(username) < minUsernameLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "username must be at least 2 characters")
	}
	return username, nil
}

func normalizeAvatar(raw string) (*string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "avatar_url must be an http(s) url")
	}
	return &trimmed, nil
}

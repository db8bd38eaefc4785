package media

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
	"github.com/angelmondragon/popspot-backend/pkg/metrics"
	"github.com/google/uuid"
)

// UploadRequest is one multipart submission: images kept from an earlier
// upload plus new files to stage and write.
type UploadRequest struct {
	Folder   string
	Existing []string
	Files    []FileInput
}

type UploadResult struct {
	URLs      []string        `json:"urls"`
	Uploaded  []UploadedImage `json:"uploaded"`
	Rejected  []string        `json:"rejected,omitempty"`
	MaxImages int             `json:"max_images"`
}

// Service exposes image upload semantics for store and review images.
type Service interface {
	NewBatch() *Batch
	Upload(ctx context.Context, userID uuid.UUID, req UploadRequest) (*UploadResult, error)
	Delete(ctx context.Context, userID uuid.UUID, rawURL string) error
	Limits() Limits
}

type ServiceParams struct {
	Storage Storage
	Limits  Limits
	Metrics *metrics.UploadMetrics
	Logger  *logger.Logger
}

type service struct {
	storage Storage
	limits  Limits
	metrics *metrics.UploadMetrics
	logg    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Storage == nil {
		return nil, fmt.Errorf("image storage required")
	}
	if params.Limits.MaxImages <= 0 {
		return nil, fmt.Errorf("max images must be positive")
	}
	if params.Limits.MaxFileBytes <= 0 {
		return nil, fmt.Errorf("max file bytes must be positive")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{
		storage: params.Storage,
		limits:  params.Limits,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

func (s *service) NewBatch() *Batch {
	return NewBatch(s.storage, s.limits, s.logg, s.metrics)
}

func (s *service) Limits() Limits {
	return s.limits
}

func (s *service) Upload(ctx context.Context, userID uuid.UUID, req UploadRequest) (*UploadResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required to upload images")
	}
	ctx = s.logg.WithUserID(ctx, userID.String())

	batch := s.NewBatch()
	defer func() {
		if err := batch.Reset(); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "releasing image previews failed")
		}
	}()

	batch.SetExisting(req.Existing)
	_, rejectedErrs, err := batch.AddAll(req.Files)
	if err != nil {
		return nil, err
	}
	rejected := make([]string, 0, len(rejectedErrs))
	for _, rerr := range rejectedErrs {
		rejected = append(rejected, pkgerrors.MessageOf(rerr))
	}
	if len(req.Files) > 0 && len(rejected) == len(req.Files) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no valid images in upload").
			WithDetails(map[string]any{"rejected": rejected})
	}

	urls, err := batch.Upload(ctx, userID, req.Folder)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "images", len(urls)), "images uploaded")
	return &UploadResult{
		URLs:      urls,
		Uploaded:  batch.Uploaded(),
		Rejected:  rejected,
		MaxImages: s.limits.MaxImages,
	}, nil
}

func (s *service) Delete(ctx context.Context, userID uuid.UUID, rawURL string) error {
	batch := s.NewBatch()
	batch.SetExisting([]string{rawURL})
	if err := batch.RemoveUploaded(ctx, userID, rawURL); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "image deleted")
	return nil
}

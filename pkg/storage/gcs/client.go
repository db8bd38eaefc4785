package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/popspot-backend/pkg/config"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

const pingTimeout = 5 * time.Second

var (
	ErrBucketNotFound = errors.New("storage bucket not found")
	ErrForbidden      = errors.New("storage access denied")
	ErrBadRequest     = errors.New("storage rejected the request")
	ErrObjectExists   = errors.New("storage object already exists")
	ErrObjectNotFound = errors.New("storage object not found")

	errClientNotInitialized = errors.New("gcs client not initialized")
)

type Client struct {
	svc           *storage.Service
	bucket        string
	publicBaseURL string
	cacheControl  string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// UploadResult is what callers persist after a write.
type UploadResult struct {
	Path string
	URL  string
	Size int64
}

// NewClient builds a storage client for the configured bucket.
func NewClient(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger, extra ...option.ClientOption) (*Client, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("storage bucket name is required")
	}

	opts := append(clientOptions(cfg), extra...)
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage service: %w", err)
	}

	cacheSec := cfg.CacheControlSec
	if cacheSec <= 0 {
		cacheSec = 3600
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if base == "" {
		base = "https://storage.googleapis.com"
	}

	client := &Client{
		svc:           svc,
		bucket:        bucket,
		publicBaseURL: base,
		cacheControl:  fmt.Sprintf("max-age=%d", cacheSec),
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", bucket), "gcs client initialized")
	}
	return client, nil
}

func clientOptions(cfg config.StorageConfig) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return opts
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// BucketExists reports whether the configured bucket is reachable.
func (c *Client) BucketExists(ctx context.Context) (bool, error) {
	if c == nil || c.svc == nil {
		return false, errClientNotInitialized
	}
	if _, err := c.svc.Buckets.Get(c.bucket).Context(ctx).Do(); err != nil {
		if mapped := classify(err); errors.Is(mapped, ErrBucketNotFound) || errors.Is(mapped, ErrObjectNotFound) {
			return false, nil
		}
		return false, classify(err)
	}
	return true, nil
}

// Ping verifies the bucket is accessible.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	ok, err := c.BucketExists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, c.bucket)
	}
	return nil
}

// Upload writes a new object and refuses to overwrite an existing one.
func (c *Client) Upload(ctx context.Context, object, contentType string, body io.Reader) (UploadResult, error) {
	if c == nil || c.svc == nil {
		return UploadResult{}, errClientNotInitialized
	}
	object = strings.TrimLeft(strings.TrimSpace(object), "/")
	if object == "" {
		return UploadResult{}, errors.New("object name is required")
	}

	obj := &storage.Object{
		Name:         object,
		ContentType:  contentType,
		CacheControl: c.cacheControl,
	}
	stored, err := c.svc.Objects.Insert(c.bucket, obj).
		Media(body, googleapi.ContentType(contentType)).
		IfGenerationMatch(0).
		Context(ctx).
		Do()
	if err != nil {
		return UploadResult{}, classify(err)
	}

	name := object
	var size int64
	if stored != nil {
		if stored.Name != "" {
			name = stored.Name
		}
		size = int64(stored.Size)
	}
	return UploadResult{Path: name, URL: c.PublicURL(name), Size: size}, nil
}

// Delete removes an object; a missing object is not an error.
func (c *Client) Delete(ctx context.Context, object string) error {
	if c == nil || c.svc == nil {
		return errClientNotInitialized
	}
	object = strings.TrimLeft(strings.TrimSpace(object), "/")
	if object == "" {
		return errors.New("object name is required")
	}
	if err := c.svc.Objects.Delete(c.bucket, object).Context(ctx).Do(); err != nil {
		mapped := classify(err)
		if errors.Is(mapped, ErrObjectNotFound) {
			return nil
		}
		return mapped
	}
	return nil
}

// PublicURL is the stable unauthenticated link for an object.
func (c *Client) PublicURL(object string) string {
	segments := strings.Split(strings.TrimLeft(object, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/%s", c.publicBaseURL, c.bucket, strings.Join(segments, "/"))
}

// PathFromURL derives the object path from a public URL: everything after
// "<bucket>/".
func (c *Client) PathFromURL(raw string) (string, bool) {
	return PathFromURL(c.bucket, raw)
}

func PathFromURL(bucket, raw string) (string, bool) {
	marker := bucket + "/"
	idx := strings.Index(raw, marker)
	if idx < 0 {
		return "", false
	}
	rest := raw[idx+len(marker):]
	if q := strings.IndexAny(rest, "?#"); q >= 0 {
		rest = rest[:q]
	}
	if unescaped, err := url.PathUnescape(rest); err == nil {
		rest = unescaped
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}

func classify(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr == nil {
		return err
	}
	switch apiErr.Code {
	case http.StatusNotFound:
		if strings.Contains(strings.ToLower(apiErr.Message), "bucket") {
			return fmt.Errorf("%w: %s", ErrBucketNotFound, apiErr.Message)
		}
		return fmt.Errorf("%w: %s", ErrObjectNotFound, apiErr.Message)
	case http.StatusForbidden, http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, apiErr.Message)
	case http.StatusPreconditionFailed, http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrObjectExists, apiErr.Message)
	default:
		return err
	}
}

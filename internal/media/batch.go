package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/popspot-backend/pkg/logger"
	"github.com/angelmondragon/popspot-backend/pkg/metrics"
	"github.com/angelmondragon/popspot-backend/pkg/storage/gcs"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
)

const uploadConcurrency = 4

// Storage is the object store a batch writes to.
type Storage interface {
	BucketExists(ctx context.Context) (bool, error)
	Upload(ctx context.Context, object, contentType string, body io.Reader) (gcs.UploadResult, error)
	Delete(ctx context.Context, object string) error
	PathFromURL(raw string) (string, bool)
	Bucket() string
}

// Limits bound a single batch.
type Limits struct {
	MaxImages    int
	MaxFileBytes int64
	SpoolDir     string
}

// ImageFile is a staged file that has not been written to storage yet. The
// preview is a spooled temp file owned by the batch.
type ImageFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`

	preview string
}

type UploadedImage struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// FileInput is one file offered to Add.
type FileInput struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Batch walks images from staged to uploaded. It is safe for concurrent use,
// but Upload holds the batch for its whole duration.
type Batch struct {
	mu       sync.Mutex
	storage  Storage
	limits   Limits
	logg     *logger.Logger
	metrics  *metrics.UploadMetrics
	now      func() time.Time
	staged   []ImageFile
	uploaded []UploadedImage
}

func NewBatch(storage Storage, limits Limits, logg *logger.Logger, m *metrics.UploadMetrics) *Batch {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Batch{
		storage: storage,
		limits:  limits,
		logg:    logg,
		metrics: m,
		now:     time.Now,
	}
}

// Add validates and spools a single file.
func (b *Batch) Add(file FileInput) (ImageFile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.staged)+len(b.uploaded) >= b.limits.MaxImages {
		b.metrics.IncRejected()
		return ImageFile{}, b.capacityError()
	}
	img, err := b.spool(file)
	if err != nil {
		b.metrics.IncRejected()
		return ImageFile{}, err
	}
	b.staged = append(b.staged, img)
	return img, nil
}

// AddAll stages a selection. The whole selection is refused when it does not
// fit; otherwise invalid files are skipped and returned as rejections while
// valid ones are staged.
func (b *Batch) AddAll(files []FileInput) ([]ImageFile, []error, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.staged)+len(b.uploaded)+len(files) > b.limits.MaxImages {
		for range files {
			b.metrics.IncRejected()
		}
		return nil, nil, b.capacityError()
	}

	var (
		added    []ImageFile
		rejected []error
	)
	for _, file := range files {
		img, err := b.spool(file)
		if err != nil {
			b.metrics.IncRejected()
			rejected = append(rejected, err)
			continue
		}
		added = append(added, img)
	}
	b.staged = append(b.staged, added...)
	return added, rejected, nil
}

func (b *Batch) capacityError() error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d images can be uploaded", b.limits.MaxImages))
}

func (b *Batch) spool(file FileInput) (ImageFile, error) {
	name := strings.TrimSpace(file.Name)
	if name == "" {
		name = "image"
	}
	if file.Body == nil {
		return ImageFile{}, pkgerrors.New(pkgerrors.CodeValidation, name+": file is empty")
	}

	declared, ok, err := normalizeDeclared(file.ContentType)
	if err != nil || !ok {
		return ImageFile{}, unsupportedType(name)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return ImageFile{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, name+": could not read file")
	}
	head = head[:n]
	if n == 0 {
		return ImageFile{}, pkgerrors.New(pkgerrors.CodeValidation, name+": file is empty")
	}
	sniffed, ok := sniffContentType(head)
	if !ok {
		return ImageFile{}, unsupportedType(name)
	}
	if declared != "" && declared != sniffed {
		return ImageFile{}, pkgerrors.New(pkgerrors.CodeValidation, name+": file content does not match its declared type").
			WithDetails(map[string]any{"declared": declared, "detected": sniffed})
	}

	tmp, err := os.CreateTemp(b.limits.SpoolDir, "popspot-image-*")
	if err != nil {
		return ImageFile{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "spool image")
	}
	body := io.MultiReader(bytes.NewReader(head), file.Body)
	size, err := io.Copy(tmp, io.LimitReader(body, b.limits.MaxFileBytes+1))
	err = multierr.Append(err, tmp.Close())
	if err != nil {
		_ = os.Remove(tmp.Name())
		return ImageFile{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "spool image")
	}
	if size > b.limits.MaxFileBytes {
		_ = os.Remove(tmp.Name())
		return ImageFile{}, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s: file is too large (max %dMB)", name, b.limits.MaxFileBytes/(1024*1024)))
	}

	return ImageFile{
		ID:          b.stagedID(),
		Name:        name,
		ContentType: sniffed,
		Size:        size,
		preview:     tmp.Name(),
	}, nil
}

func unsupportedType(name string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, name+": unsupported file type (JPEG, PNG and WebP only)")
}

func (b *Batch) stagedID() string {
	return strconv.FormatInt(b.now().UnixMilli(), 10) + "-" + strconv.FormatUint(rand.Uint64(), 36)
}

// Remove drops a staged file and releases its preview. Unknown ids are ignored.
func (b *Batch) Remove(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := slices.IndexFunc(b.staged, func(img ImageFile) bool { return img.ID == id })
	if idx < 0 {
		return nil
	}
	img := b.staged[idx]
	b.staged = slices.Delete(b.staged, idx, idx+1)
	return releasePreview(img)
}

// RemoveUploaded deletes an uploaded object on behalf of owner and forgets it.
func (b *Batch) RemoveUploaded(ctx context.Context, owner uuid.UUID, rawURL string) error {
	if owner == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	objectPath, ok := b.storage.PathFromURL(rawURL)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "image url does not belong to the image bucket")
	}
	if !strings.HasPrefix(objectPath, owner.String()+"/") {
		return pkgerrors.New(pkgerrors.CodeForbidden, "image not owned by caller").
			WithHint("only images under your own folder can be deleted")
	}
	if err := b.storage.Delete(ctx, objectPath); err != nil {
		return storageError(err, b.storage.Bucket(), "image delete failed")
	}

	b.mu.Lock()
	b.uploaded = slices.DeleteFunc(b.uploaded, func(img UploadedImage) bool { return img.Path == objectPath })
	b.mu.Unlock()
	return nil
}

// SetExisting replaces the uploaded set with already stored images.
func (b *Batch) SetExisting(urls []string) {
	uploaded := make([]UploadedImage, 0, len(urls))
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		objectPath, ok := b.storage.PathFromURL(raw)
		if !ok {
			objectPath = raw
		}
		uploaded = append(uploaded, UploadedImage{URL: raw, Path: objectPath})
	}

	b.mu.Lock()
	b.uploaded = uploaded
	b.mu.Unlock()
}

// Upload writes every staged file under the caller's folder and returns the
// URLs of all uploaded images, existing ones first.
func (b *Batch) Upload(ctx context.Context, owner uuid.UUID, folder string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.staged) == 0 {
		return b.urlsLocked(), nil
	}
	if owner == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required to upload images")
	}

	exists, err := b.storage.BucketExists(ctx)
	switch {
	case err != nil:
		b.logg.Warn(b.logg.WithField(ctx, "error", err.Error()), "bucket lookup failed; attempting upload")
	case !exists:
		return nil, missingBucket(b.storage.Bucket())
	}

	prefix := objectPrefix(owner, folder)
	results := make([]UploadedImage, len(b.staged))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i, img := range b.staged {
		object := prefix + "/" + b.objectName(img)
		g.Go(func() error {
			res, err := uploadFile(gctx, b.storage, object, img)
			if err != nil {
				b.metrics.IncFailed()
				return err
			}
			b.metrics.IncUploaded(img.Size)
			results[i] = UploadedImage{URL: res.URL, Path: res.Path}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		b.discard(ctx, results)
		return nil, storageError(err, b.storage.Bucket(), "image upload failed")
	}

	if err := b.releaseStagedLocked(); err != nil {
		b.logg.Warn(b.logg.WithField(ctx, "error", err.Error()), "releasing image previews failed")
	}
	b.uploaded = append(b.uploaded, results...)
	return b.urlsLocked(), nil
}

func uploadFile(ctx context.Context, storage Storage, object string, img ImageFile) (gcs.UploadResult, error) {
	f, err := os.Open(img.preview)
	if err != nil {
		return gcs.UploadResult{}, err
	}
	defer f.Close()
	return storage.Upload(ctx, object, img.ContentType, f)
}

// discard removes objects written by a failed upload so the bucket holds no orphans.
func (b *Batch) discard(ctx context.Context, written []UploadedImage) {
	for _, img := range written {
		if img.Path == "" {
			continue
		}
		if err := b.storage.Delete(context.WithoutCancel(ctx), img.Path); err != nil {
			b.logg.Warn(b.logg.WithField(ctx, "object", img.Path), "removing partially uploaded image failed")
		}
	}
}

func (b *Batch) objectName(img ImageFile) string {
	suffix := strconv.FormatInt(rand.Int64N(36*36*36*36*36*36), 36)
	return fmt.Sprintf("%d-%s.%s", b.now().UnixMilli(), suffix, objectExt(img.Name, img.ContentType))
}

// objectPrefix roots every object at the owner's id. Caller supplied folders
// are reduced to safe path segments.
func objectPrefix(owner uuid.UUID, folder string) string {
	parts := []string{owner.String()}
	for _, seg := range strings.Split(folder, "/") {
		seg = cleanSegment(seg)
		if seg == "" || seg == owner.String() {
			continue
		}
		parts = append(parts, seg)
	}
	return strings.Join(parts, "/")
}

func cleanSegment(seg string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(seg)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Reset releases every preview and forgets all images.
func (b *Batch) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.releaseStagedLocked()
	b.uploaded = nil
	return err
}

// URLs lists staged previews followed by uploaded image URLs.
func (b *Batch) URLs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.staged)+len(b.uploaded))
	for _, img := range b.staged {
		out = append(out, "file://"+img.preview)
	}
	return append(out, b.urlsLocked()...)
}

func (b *Batch) Staged() []ImageFile {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.staged)
}

func (b *Batch) Uploaded() []UploadedImage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.uploaded)
}

func (b *Batch) CanAddMore() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.staged)+len(b.uploaded) < b.limits.MaxImages
}

func (b *Batch) urlsLocked() []string {
	out := make([]string, 0, len(b.uploaded))
	for _, img := range b.uploaded {
		out = append(out, img.URL)
	}
	return out
}

func (b *Batch) releaseStagedLocked() error {
	var errs error
	for _, img := range b.staged {
		errs = multierr.Append(errs, releasePreview(img))
	}
	b.staged = nil
	return errs
}

func releasePreview(img ImageFile) error {
	if img.preview == "" {
		return nil
	}
	if err := os.Remove(img.preview); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

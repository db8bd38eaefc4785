package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/multierr"

	"github.com/angelmondragon/popspot-backend/api/responses"
	"github.com/angelmondragon/popspot-backend/internal/media"
	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/logger"
)

const (
	multipartMemory   = 8 << 20
	multipartOverhead = 1 << 20
)

// ImageUpload handles POST /images with multipart fields files, existing
// and folder.
func ImageUpload(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	limits := svc.Limits()
	maxBody := int64(limits.MaxImages)*limits.MaxFileBytes + multipartOverhead
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "upload too large").
					WithDetails(map[string]any{"max_images": limits.MaxImages, "max_file_bytes": limits.MaxFileBytes}))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "removing multipart temp files failed")
			}
		}()

		files, closeFiles, err := openMultipartFiles(r.MultipartForm.File["files"])
		defer func() {
			if cerr := closeFiles(); cerr != nil {
				logg.Warn(logg.WithField(r.Context(), "error", cerr.Error()), "closing uploaded files failed")
			}
		}()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read uploaded file"))
			return
		}

		result, err := svc.Upload(r.Context(), actor, media.UploadRequest{
			Folder:   strings.TrimSpace(r.FormValue("folder")),
			Existing: nonEmpty(r.MultipartForm.Value["existing"]),
			Files:    files,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func openMultipartFiles(headers []*multipart.FileHeader) ([]media.FileInput, func() error, error) {
	opened := make([]multipart.File, 0, len(headers))
	closeAll := func() error {
		var err error
		for _, f := range opened {
			err = multierr.Append(err, f.Close())
		}
		return err
	}
	files := make([]media.FileInput, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		opened = append(opened, f)
		files = append(files, media.FileInput{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		})
	}
	return files, closeAll, nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ImageDelete handles DELETE /images?url=.
func ImageDelete(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
		if rawURL == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "url is required").
				WithDetails(map[string]any{"field": "url"}))
			return
		}
		if err := svc.Delete(r.Context(), actor, rawURL); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

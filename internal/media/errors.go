package media

import (
	"errors"
	"fmt"

	pkgerrors "github.com/angelmondragon/popspot-backend/pkg/errors"
	"github.com/angelmondragon/popspot-backend/pkg/storage/gcs"
)

func storageError(err error, bucket, message string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	switch {
	case errors.Is(err, gcs.ErrForbidden):
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "image upload not permitted").
			WithHint(fmt.Sprintf("check that the service account can write objects in bucket %q", bucket))
	case errors.Is(err, gcs.ErrBadRequest):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "storage rejected the image; check the file type and size")
	case errors.Is(err, gcs.ErrBucketNotFound):
		return missingBucket(bucket)
	case errors.Is(err, gcs.ErrObjectExists):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "image name already taken; retry the upload")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
	}
}

func missingBucket(bucket string) error {
	return pkgerrors.New(pkgerrors.CodeMissingSchema, fmt.Sprintf("storage bucket %q does not exist", bucket)).
		WithDetails(map[string]any{
			"bucket": bucket,
			"steps": []string{
				fmt.Sprintf("create the bucket: gcloud storage buckets create gs://%s", bucket),
				"grant the API service account roles/storage.objectAdmin on the bucket",
				"allow public reads (allUsers: roles/storage.objectViewer) so image URLs resolve",
			},
		})
}

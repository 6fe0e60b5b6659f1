package artifact

import (
	"fmt"

	"github.com/ulta-agent/ulta/cancel"
	"github.com/ulta-agent/ulta/model"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ObjectStore uploads a single local file to object storage. Implemented
// by the transport package's S3 client.
type ObjectStore interface {
	Upload(sourceFile, s3Filename, s3Bucket string) error
}

// S3Uploader publishes a finished job's collected artifacts, optionally
// zipped into a single archive, to an object store bucket.
type S3Uploader struct {
	logger       *zap.SugaredLogger
	store        ObjectStore
	cancellation *cancel.Cancellation
}

func NewS3Uploader(logger *zap.SugaredLogger, store ObjectStore, cancellation *cancel.Cancellation) *S3Uploader {
	return &S3Uploader{logger: logger, store: store, cancellation: cancellation}
}

func (u *S3Uploader) PublishArtifacts(job *model.Job) error {
	if job.UploadArtifactSettings == nil {
		u.logger.Infow("artifact settings not provided, nothing to upload")
		return nil
	}
	if job.ArtifactDirPath == "" {
		u.logger.Infow("job has no artifacts, nothing to upload")
		return nil
	}

	if err := u.cancellation.RaiseOnSet(cancel.Forced); err != nil {
		return err
	}

	files, err := collectArtifacts(u.logger, job.UploadArtifactSettings, job.ArtifactDirPath)
	if err != nil {
		return fmt.Errorf("%w: failed to collect artifacts: %v", ErrArtifactUpload, err)
	}

	return u.uploadArtifacts(files, job.UploadArtifactSettings.OutputBucket)
}

func (u *S3Uploader) uploadArtifacts(files []artifactFile, bucket string) error {
	var combined error
	for _, f := range files {
		if err := u.cancellation.RaiseOnSet(cancel.Forced); err != nil {
			return err
		}
		if err := u.store.Upload(f.LocalPath, f.Key, bucket); err != nil {
			u.logger.Errorw("failed to publish artifact", "file", f.LocalPath, "key", f.Key, "error", err)
			combined = multierr.Append(combined, err)
		}
	}
	if combined != nil {
		return fmt.Errorf("%w: failed to upload one or more artifacts to s3: %v", ErrArtifactUpload, combined)
	}
	return nil
}

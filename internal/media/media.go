// Package media checks that media references on a submission point at objects
// that were actually uploaded.
package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/aawaaz/incident-server/internal/apperr"
	"github.com/aawaaz/incident-server/internal/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// statter is the part of *minio.Client the verifier uses.
type statter interface {
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// MinioVerifier looks every reference up in an S3-compatible bucket.
type MinioVerifier struct {
	client statter
	bucket string
	logger *zap.SugaredLogger
}

// MinioConfig holds the object store connection settings.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinioVerifier connects to the object store in cfg.
func NewMinioVerifier(cfg MinioConfig, logger *zap.SugaredLogger) (*MinioVerifier, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioVerifier{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Verify fails with a validation error when an object is missing or its
// content type contradicts the declared kind.
func (v *MinioVerifier) Verify(ctx context.Context, media []models.Media) error {
	for _, m := range media {
		info, err := v.client.StatObject(ctx, v.bucket, m.Reference, minio.StatObjectOptions{})
		if err != nil {
			resp := minio.ToErrorResponse(err)
			if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == 404 {
				return apperr.New(apperr.ErrValidation, "media %q was not uploaded", m.Reference)
			}
			v.logger.Errorw("Media lookup failed", "reference", m.Reference, "error", err)
			return apperr.Wrap(apperr.ErrStorage, fmt.Errorf("stat media %q: %w", m.Reference, err))
		}

		if info.ContentType != "" && !strings.HasPrefix(info.ContentType, string(m.Kind)+"/") {
			return apperr.New(apperr.ErrValidation, "media %q is %s, not %s", m.Reference, info.ContentType, m.Kind)
		}
	}
	return nil
}

// NopVerifier accepts every reference. Used when no object store is configured.
type NopVerifier struct{}

func (NopVerifier) Verify(ctx context.Context, media []models.Media) error { return nil }

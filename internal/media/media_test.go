package media

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aawaaz/incident-server/internal/apperr"
	"github.com/aawaaz/incident-server/internal/models"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeStatter struct {
	objects map[string]string
	err     error
}

func (f *fakeStatter) StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	if f.err != nil {
		return minio.ObjectInfo{}, f.err
	}
	ct, ok := f.objects[object]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
	}
	return minio.ObjectInfo{Key: object, ContentType: ct}, nil
}

func newVerifier(f *fakeStatter) *MinioVerifier {
	return &MinioVerifier{client: f, bucket: "reports", logger: zap.NewNop().Sugar()}
}

func TestMinioVerifier(t *testing.T) {
	v := newVerifier(&fakeStatter{objects: map[string]string{
		"uploads/a.jpg": "image/jpeg",
		"uploads/b.mp4": "video/mp4",
		"uploads/c.bin": "",
	}})
	ctx := context.Background()

	assert.NoError(t, v.Verify(ctx, []models.Media{
		{Reference: "uploads/a.jpg", Kind: models.MediaImage},
		{Reference: "uploads/b.mp4", Kind: models.MediaVideo},
		{Reference: "uploads/c.bin", Kind: models.MediaImage},
	}))

	err := v.Verify(ctx, []models.Media{{Reference: "uploads/missing.jpg", Kind: models.MediaImage}})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = v.Verify(ctx, []models.Media{{Reference: "uploads/a.jpg", Kind: models.MediaVideo}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestMinioVerifier_BackendError(t *testing.T) {
	v := newVerifier(&fakeStatter{err: errors.New("dial tcp: connection refused")})

	err := v.Verify(context.Background(), []models.Media{{Reference: "x", Kind: models.MediaImage}})
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestNopVerifier(t *testing.T) {
	assert.NoError(t, NopVerifier{}.Verify(context.Background(), []models.Media{{Reference: "x"}}))
}

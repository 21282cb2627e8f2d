package media

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Skotchmaster/vidstream/internal/config"
)

// MinioStore uploads media into a single bucket and serves it back through a
// public base URL.
type MinioStore struct {
	client    *mclient.Client
	bucket    string
	publicURL string
}

// normalizeEndpoint strips an optional scheme from the configured endpoint.
// The minio client wants a bare host:port, while deployments often configure
// a full URL. A bare "minio:9000" must not be fed to url.Parse, which would
// read "minio" as the scheme and leave the host empty.
func normalizeEndpoint(endpoint string) (host string, secure bool) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, false
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint, false
	}
	return u.Host, u.Scheme == "https"
}

func NewMinioStore(ctx context.Context, cfg *config.Config) (*MinioStore, error) {
	endpoint, secure := normalizeEndpoint(cfg.MINIO_ENDPOINT)

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.MINIO_USER, cfg.MINIO_PASSWORD, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("media: cannot create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MINIO_BUCKET)
	if err != nil {
		return nil, fmt.Errorf("media: bucket check failed: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("media: bucket %q does not exist", cfg.MINIO_BUCKET)
	}

	return &MinioStore{
		client:    client,
		bucket:    cfg.MINIO_BUCKET,
		publicURL: strings.TrimRight(cfg.MINIO_PUBLIC_URL, "/"),
	}, nil
}

var _ Store = (*MinioStore)(nil)

func (s *MinioStore) Upload(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	key := path.Join("uploads", uuid.NewString()+path.Ext(filename))

	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, mclient.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("media: upload failed: %w", err)
	}

	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	return s.client.EndpointURL().String() + "/" + s.bucket + "/" + key, nil
}

package modelstore

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig locates the bucket that holds model artifacts.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
}

// MinioStore reads artifacts from any S3-compatible bucket (R2, MinIO, S3).
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewMinioStore constructs the store adapter.
func NewMinioStore(cfg MinioConfig, logger *slog.Logger) (*MinioStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	useSSL := !strings.HasPrefix(strings.ToLower(strings.TrimSpace(cfg.Endpoint)), "http://")
	client, err := minio.New(sanitizeEndpoint(cfg.Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       useSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init model store client: %w", err)
	}
	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger.With("component", "modelstore.minio"),
	}, nil
}

// List returns the object names under the artifact root.
func (s *MinioStore) List(ctx context.Context, ref string) ([]string, error) {
	root := s.key(ref) + "/"
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: root, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(obj.Key, root)
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		names = append(names, name)
	}
	s.logger.Debug("listed remote artifact", "bucket", s.bucket, "prefix", root, "objects", len(names))
	return names, nil
}

// Fetch downloads one artifact file to dest.
func (s *MinioStore) Fetch(ctx context.Context, ref, name, dest string) error {
	return s.client.FGetObject(ctx, s.bucket, s.key(ref, name), dest, minio.GetObjectOptions{})
}

func (s *MinioStore) key(parts ...string) string {
	return path.Join(append([]string{s.prefix}, parts...)...)
}

var _ ObjectStore = (*MinioStore)(nil)

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.Index(raw, "/"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}

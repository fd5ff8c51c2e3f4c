package sources

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds the connection settings for any S3-compatible store.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// objectGetter is the subset of minio.Client used by s3Source.
type objectGetter interface {
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// s3Source reads s3://bucket/key references.
type s3Source struct {
	client objectGetter
	read   func(ctx context.Context, bucket, key string) ([]byte, error)
}

// NewS3Source connects a minio client for cfg.
func NewS3Source(cfg S3Config) (Source, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("s3 source requires an endpoint")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	src := &s3Source{client: client}
	src.read = src.readObject
	return src, nil
}

func (s *s3Source) Scheme() string { return SchemeS3 }

func (s *s3Source) Read(ctx context.Context, ref string) ([]byte, error) {
	bucket, key, err := parseS3Ref(ref)
	if err != nil {
		return nil, err
	}
	return s.read(ctx, bucket, key)
}

func (s *s3Source) readObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, key, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("object %s/%s is empty", bucket, key)
	}
	return data, nil
}

// parseS3Ref splits s3://bucket/key/with/slashes.
func parseS3Ref(ref string) (bucket, key string, err error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", fmt.Errorf("parse s3 reference %q: %w", ref, err)
	}
	if !strings.EqualFold(u.Scheme, SchemeS3) {
		return "", "", fmt.Errorf("s3 source received incompatible reference %q", ref)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 reference %q must be s3://bucket/key", ref)
	}
	return bucket, key, nil
}

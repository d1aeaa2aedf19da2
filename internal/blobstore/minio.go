package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"argus/internal/config"
)

// Minio stores blobs in an S3-compatible bucket.
type Minio struct {
	client *minio.Client
	bucket string
}

// NewMinio connects to the configured MinIO endpoint and ensures the bucket
// exists.
func NewMinio(ctx context.Context, cfg *config.Config) (*Minio, error) {
	st := cfg.Storage
	client, err := minio.New(st.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(st.MinioAccessKey, st.MinioSecretKey, ""),
		Secure: st.MinioUseSSL,
		Region: st.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, st.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", st.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, st.MinioBucket, minio.MakeBucketOptions{Region: st.MinioRegion}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", st.MinioBucket, err)
		}
	}

	return &Minio{client: client, bucket: st.MinioBucket}, nil
}

// Put implements Store.
func (m *Minio) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// Get implements Store.
func (m *Minio) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return data, nil
}

// Remove implements Store.
func (m *Minio) Remove(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
	}
	return false
}

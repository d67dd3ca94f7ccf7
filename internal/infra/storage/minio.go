package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
)

// MinioStore is the object-storage BlobStore. Locators are object keys.
type MinioStore struct {
	client     *minio.Client
	bucketName string
	region     string
}

// NewMinio buat koneksi MinIO dan pastikan bucket ada
func NewMinio(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*MinioStore, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &MinioStore{client: cli, bucketName: bucket, region: region}, nil
}

// Store uploads data under key. The object is readable once PutObject returns.
func (s *MinioStore) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", domain.Errorf(domain.KindStorage, "minio.store", "key is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", domain.E(domain.KindStorage, "minio.store", err)
	}
	return key, nil
}

func (s *MinioStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	// GetObject is lazy; stat first so a missing key fails here, not on Read.
	if _, err := s.client.StatObject(ctx, s.bucketName, locator, minio.StatObjectOptions{}); err != nil {
		return nil, domain.E(domain.KindStorage, "minio.open", err)
	}
	obj, err := s.client.GetObject(ctx, s.bucketName, locator, minio.GetObjectOptions{})
	if err != nil {
		return nil, domain.E(domain.KindStorage, "minio.open", err)
	}
	return obj, nil
}

func (s *MinioStore) Exists(ctx context.Context, locator string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucketName, locator, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, domain.E(domain.KindStorage, "minio.exists", err)
}

// Delete removes the object. S3 semantics make a missing key a no-op.
func (s *MinioStore) Delete(ctx context.Context, locator string) error {
	if err := s.client.RemoveObject(ctx, s.bucketName, locator, minio.RemoveObjectOptions{}); err != nil && !isNotFound(err) {
		return domain.E(domain.KindStorage, "minio.delete", err)
	}
	return nil
}

// Check is the health probe.
func (s *MinioStore) Check(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s missing", s.bucketName)
	}
	return nil
}

// URL publik (jika bucket public), kalau private harus generate presigned URL
func (s *MinioStore) URL(locator string) string {
	return fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucketName, locator)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore is the S3-compatible blob backend, selected with
// STORAGE_BACKEND=minio.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to MinIO and ensures the upload bucket exists.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		log.Printf("Warning: failed to check bucket existence: %v", err)
	} else if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			log.Printf("Warning: failed to create bucket: %v", err)
		} else {
			log.Printf("Created bucket: %s", bucket)
		}
	}

	fmt.Println("✅ Connected to MinIO")
	return &MinioStore{client: client, bucket: bucket}, nil
}

func (s *MinioStore) Save(ctx context.Context, filename string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, filename,
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to upload to storage: %w", err)
	}
	return fmt.Sprintf("http://%s/%s/%s", s.client.EndpointURL().Host, s.bucket, filename), nil
}

package store

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ExportStore keeps feedback exports in a MinIO bucket, one object per user.
type ExportStore struct {
	client *minio.Client
	bucket string
}

func NewExportStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*ExportStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return &ExportStore{client: client, bucket: bucket}, nil
}

// ExportKey is the object key of a user's export.
func ExportKey(username string) string {
	return "exports/" + username + ".json"
}

// Save stores data as the user's export, replacing any previous one.
func (s *ExportStore) Save(ctx context.Context, username string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, ExportKey(username), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("minio put export: %w", err)
	}
	return nil
}

// Load returns the user's export, or ErrNotFound when none was saved.
func (s *ExportStore) Load(ctx context.Context, username string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ExportKey(username), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get export: %w", minioErr(err))
	}
	defer obj.Close()

	// GetObject is lazy; a missing key only surfaces on Stat/Read.
	if _, err := obj.Stat(); err != nil {
		return nil, fmt.Errorf("minio stat export: %w", minioErr(err))
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("minio read export: %w", err)
	}
	return data, nil
}

// Remove deletes the user's export. Removing a missing object is not an error.
func (s *ExportStore) Remove(ctx context.Context, username string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, ExportKey(username), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio remove export: %w", err)
	}
	return nil
}

func minioErr(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return err
}

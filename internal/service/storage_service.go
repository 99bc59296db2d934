package service

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ShashankAtmakur/survey-management-system/internal/config"
)

// AudioStore archives audio answers outside the response records
type AudioStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

// MinioAudioStore stores audio answers in a MinIO bucket
type MinioAudioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioAudioStore connects to MinIO and creates the bucket when missing
func NewMinioAudioStore(ctx context.Context, cfg config.StorageConfig) (*MinioAudioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &MinioAudioStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinioAudioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *MinioAudioStore) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// audioKey names the archived object of one answer.
func audioKey(surveyID, responseID, questionID, contentType string) string {
	ext := ".bin"
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[0]
	} else if sub, ok := strings.CutPrefix(contentType, "audio/"); ok && sub != "" {
		ext = "." + sub
	}
	return fmt.Sprintf("%s/%s/%s%s", surveyID, responseID, questionID, ext)
}

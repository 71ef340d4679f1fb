package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"JamFM/config"
	"JamFM/logger"
)

// AudioStore keeps uploaded audio files in a MinIO bucket and hands out
// playable URLs for them.
type AudioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewAudioStore 初始化 MinIO 客户端 and makes sure the bucket exists.
func NewAudioStore(cfg *config.Config) (*AudioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info("created audio bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &AudioStore{
		client:    client,
		bucket:    cfg.MinioBucket,
		publicURL: cfg.MinioPublicURL,
	}, nil
}

// PutAudio uploads an audio object under audio/<name> and returns its URL.
// size may be -1 when unknown; MinIO then streams the body.
func (s *AudioStore) PutAudio(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	objectName := path.Join("audio", name)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audio object %s: %w", objectName, err)
	}

	logger.Info("uploaded audio object",
		logger.String("bucket", s.bucket),
		logger.String("object", objectName))
	return s.ObjectURL(objectName), nil
}

// ObjectURL builds the externally reachable URL for an object. When no
// public base URL is configured, the MinIO endpoint itself is used.
func (s *AudioStore) ObjectURL(objectName string) string {
	base := s.publicURL
	if base == "" {
		scheme := "http"
		if s.client.EndpointURL().Scheme == "https" {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s", scheme, s.client.EndpointURL().Host)
	}
	u, err := url.JoinPath(base, s.bucket, objectName)
	if err != nil {
		return fmt.Sprintf("%s/%s/%s", base, s.bucket, objectName)
	}
	return u
}

// RemoveAudio deletes an uploaded object.
func (s *AudioStore) RemoveAudio(ctx context.Context, objectName string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove audio object %s: %w", objectName, err)
	}
	return nil
}

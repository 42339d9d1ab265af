// Package storage keeps profile-image assets in S3-compatible object
// storage using MinIO.
//
// Accounts store the storage-relative object path only; no externally
// visible URL prefix ever reaches the database.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	ErrUploadFailed = errors.New("upload failed")
	ErrDeleteFailed = errors.New("delete failed")
	ErrNotFound     = errors.New("object not found")
	ErrInvalidImage = errors.New("invalid image")
)

// Service is the object-storage contract the account handlers depend on.
type Service interface {
	Upload(ctx context.Context, objectPath string, reader io.Reader, contentType string) error
	Remove(ctx context.Context, objectPath string) error
}

type size string

const (
	sizeSmall  size = "small"
	sizeMedium size = "medium"
	sizeLarge  size = "large"
)

var sizeDimensions = map[size]int{
	sizeSmall:  64,
	sizeMedium: 128,
	sizeLarge:  256,
}

type MinioService struct {
	client     *minio.Client
	bucketName string
}

// NewMinioService creates a MinIO-backed Service from environment
// configuration (MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY,
// MINIO_BUCKET, MINIO_USE_SSL).
func NewMinioService() (*MinioService, error) {
	endpoint := getEnv("MINIO_ENDPOINT", "localhost:9000")
	accessKey := getEnv("MINIO_ACCESS_KEY", "minioadmin")
	secretKey := getEnv("MINIO_SECRET_KEY", "minioadmin")
	bucketName := getEnv("MINIO_BUCKET", "links2code")
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	return &MinioService{
		client:     client,
		bucketName: bucketName,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnsureBucket creates the configured bucket if it does not exist yet.
func (s *MinioService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !exists {
		return s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
	}
	return nil
}

// Upload stores the original image under objectPath and derives the size
// variants. A variant that fails to resize is skipped.
func (s *MinioService) Upload(ctx context.Context, objectPath string, reader io.Reader, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	if err := s.put(ctx, objectPath, data, contentType); err != nil {
		return err
	}

	for sz, dim := range sizeDimensions {
		resized, err := resizeImage(data, dim)
		if err != nil {
			continue
		}
		_ = s.put(ctx, variantObjectPath(objectPath, sz), resized, "image/jpeg")
	}
	return nil
}

// Remove deletes the original object and all its size variants.
func (s *MinioService) Remove(ctx context.Context, objectPath string) error {
	if err := s.remove(ctx, objectPath); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	for sz := range sizeDimensions {
		_ = s.remove(ctx, variantObjectPath(objectPath, sz))
	}
	return nil
}

func (s *MinioService) put(ctx context.Context, objectPath string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, objectPath, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return nil
}

func (s *MinioService) remove(ctx context.Context, objectPath string) error {
	if err := s.client.RemoveObject(ctx, s.bucketName, objectPath, minio.RemoveObjectOptions{}); err != nil {
		return mapRemoveError(err)
	}
	return nil
}

// mapRemoveError classifies a RemoveObject failure. A missing object maps
// to ErrNotFound so Remove can treat an already-deleted original as done.
func mapRemoveError(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
}

func variantObjectPath(objectPath string, sz size) string {
	ext := filepath.Ext(objectPath)
	return strings.TrimSuffix(objectPath, ext) + "_" + string(sz) + ext
}

func resizeImage(data []byte, dim int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	resized := imaging.Fit(img, dim, dim, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/therealutkarshpriyadarshi/timeline/internal/config"
	"github.com/therealutkarshpriyadarshi/timeline/internal/metrics"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// ErrObjectNotFound is returned when a media object does not exist
var ErrObjectNotFound = errors.New("object not found")

const defaultPresignExpiry = time.Hour

// Storage provides object storage operations
type Storage struct {
	client        *minio.Client
	bucketName    string
	presignExpiry time.Duration
}

// ObjectInfo is the subset of object metadata the editor cares about
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
	ETag        string
}

// New creates a new storage client
func New(cfg config.StorageConfig) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	// Ensure bucket exists
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}

	return &Storage{
		client:        client,
		bucketName:    cfg.BucketName,
		presignExpiry: expiry,
	}, nil
}

// PresignedURL returns a time-limited, seekable URL for a media object
func (s *Storage) PresignedURL(ctx context.Context, objectKey string) (string, error) {
	start := time.Now()
	url, err := s.client.PresignedGetObject(ctx, s.bucketName, objectKey, s.presignExpiry, nil)
	observe("presign", start, err)
	if err != nil {
		return "", fmt.Errorf("failed to generate URL: %w", err)
	}

	return url.String(), nil
}

// ResolveMediaSources fills in playable URLs for library items that only carry
// an object key
func (s *Storage) ResolveMediaSources(ctx context.Context, sources []models.MediaSource) ([]models.MediaSource, error) {
	return resolveSources(sources, func(key string) (string, error) {
		return s.PresignedURL(ctx, key)
	})
}

func resolveSources(sources []models.MediaSource, presign func(string) (string, error)) ([]models.MediaSource, error) {
	out := make([]models.MediaSource, len(sources))
	for i, src := range sources {
		if src.URL == "" {
			if src.MediaFileID == "" {
				return nil, fmt.Errorf("media source %d has neither url nor media file id", i)
			}
			url, err := presign(src.MediaFileID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve %s: %w", src.MediaFileID, err)
			}
			src.URL = url
		}
		if src.FileName == "" {
			src.FileName = path.Base(src.MediaFileID)
		}
		out[i] = src
	}
	return out, nil
}

// Stat returns object metadata, or ErrObjectNotFound
func (s *Storage) Stat(ctx context.Context, objectKey string) (ObjectInfo, error) {
	start := time.Now()
	info, err := s.client.StatObject(ctx, s.bucketName, objectKey, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			observe("stat", start, nil)
			return ObjectInfo{}, ErrObjectNotFound
		}
		observe("stat", start, err)
		return ObjectInfo{}, fmt.Errorf("failed to stat object: %w", err)
	}
	observe("stat", start, nil)

	return ObjectInfo{
		Key:         info.Key,
		Size:        info.Size,
		ContentType: info.ContentType,
		ETag:        info.ETag,
	}, nil
}

// ListMedia lists the playable media objects under prefix as library items
func (s *Storage) ListMedia(ctx context.Context, prefix string) ([]models.MediaSource, error) {
	var sources []models.MediaSource

	start := time.Now()
	for object := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			observe("list", start, object.Err)
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		if !IsMedia(object.Key) {
			continue
		}
		sources = append(sources, models.MediaSource{
			MediaFileID: object.Key,
			FileName:    path.Base(object.Key),
		})
	}
	observe("list", start, nil)

	return sources, nil
}

// UserMediaPrefix is where a user's library objects live
func UserMediaPrefix(userID string) string {
	return fmt.Sprintf("media/%s/", userID)
}

// IsMedia reports whether the key looks like something a clip can reference
func IsMedia(key string) bool {
	ct := getContentType(key)
	return strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "audio/")
}

func observe(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordStorageOperation(op, status, time.Since(start).Seconds())
}

// getContentType returns the content type based on file extension
func getContentType(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".wav":
		return "audio/wav"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

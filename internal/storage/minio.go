package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/phrazzld/taskboard/internal/platform/logger"
)

// MinioConfig holds the connection settings of an S3 compatible endpoint.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinioBucket stores objects in an S3 compatible bucket.
type MinioBucket struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewMinioBucket connects to the endpoint and creates the bucket when it does not exist.
func NewMinioBucket(ctx context.Context, cfg MinioConfig, log *slog.Logger) (*MinioBucket, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "minio_bucket"), slog.String("bucket", cfg.Bucket))

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Info("bucket created")
	}

	// Task image URLs are handed to clients, so images must be readable anonymously.
	policy, err := publicReadPolicy(cfg.Bucket, ImageDir)
	if err != nil {
		return nil, err
	}
	if err := client.SetBucketPolicy(ctx, cfg.Bucket, policy); err != nil {
		log.Warn("failed to make images publicly readable",
			slog.String("error", err.Error()))
	}

	log.Info("S3 storage initialized",
		slog.String("endpoint", cfg.Endpoint),
		slog.Bool("ssl", cfg.UseSSL))

	return &MinioBucket{client: client, bucket: cfg.Bucket, logger: log}, nil
}

var _ Bucket = (*MinioBucket)(nil)

// Put implements Bucket.
func (b *MinioBucket) Put(ctx context.Context, dir, ext string, r io.Reader, size int64, contentType string) (string, error) {
	key := objectName(dir, ext)
	if size <= 0 {
		size = -1
	}
	_, err := b.client.PutObject(ctx, b.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	logger.FromContextOrDefault(ctx, b.logger).Debug("object stored",
		slog.String("path", key),
		slog.String("content_type", contentType))
	return key, nil
}

// Delete implements Bucket. RemoveObject succeeds for missing keys.
func (b *MinioBucket) Delete(ctx context.Context, p string) error {
	key, err := cleanKey(p)
	if err != nil {
		return err
	}
	if err := b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	logger.FromContextOrDefault(ctx, b.logger).Debug("object deleted", slog.String("path", key))
	return nil
}

// Exists implements Bucket.
func (b *MinioBucket) Exists(ctx context.Context, p string) (bool, error) {
	key, err := cleanKey(p)
	if err != nil {
		return false, err
	}
	if _, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isMissingObject(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}

// Open implements Bucket.
func (b *MinioBucket) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	key, err := cleanKey(p)
	if err != nil {
		return nil, err
	}
	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isMissingObject(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}
	return obj, nil
}

type policyStatement struct {
	Effect    string              `json:"Effect"`
	Principal map[string][]string `json:"Principal"`
	Action    []string            `json:"Action"`
	Resource  []string            `json:"Resource"`
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

// publicReadPolicy grants anonymous s3:GetObject on objects below prefix.
func publicReadPolicy(bucket, prefix string) (string, error) {
	doc := bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string][]string{"AWS": {"*"}},
			Action:    []string{"s3:GetObject"},
			Resource:  []string{fmt.Sprintf("arn:aws:s3:::%s/%s/*", bucket, prefix)},
		}},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode bucket policy: %w", err)
	}
	return string(b), nil
}

func isMissingObject(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
	}
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

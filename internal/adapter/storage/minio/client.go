package minio

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	appconfig "github.com/GoArmGo/VideoTube/internal/config"
	"github.com/GoArmGo/VideoTube/internal/domain"
)

// keyPrefix groups every uploaded user image in the bucket.
const keyPrefix = "images/"

type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type objectDeleter interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Client is the blob store backed by MinIO (or any S3-compatible service).
type Client struct {
	uploader   objectUploader
	deleter    objectDeleter
	bucketName string
	publicURL  string
	logger     *slog.Logger
}

// NewMinioClient connects to the configured endpoint and makes sure the
// bucket exists.
func NewMinioClient(ctx context.Context, cfg *appconfig.Config, logger *slog.Logger) (*Client, error) {
	if cfg.MinioAccessKeyID == "" || cfg.MinioSecretAccessKey == "" || cfg.MinioBucketName == "" || cfg.MinioEndpoint == "" || cfg.MinioRegion == "" {
		return nil, fmt.Errorf("MinIO credentials (MINIO_ACCESS_KEY_ID, MINIO_SECRET_ACCESS_KEY, MINIO_BUCKET_NAME, MINIO_ENDPOINT, MINIO_REGION) must be set")
	}

	scheme := "http"
	if cfg.MinioUseSSL {
		scheme = "https"
	}
	endpoint := fmt.Sprintf("%s://%s", scheme, cfg.MinioEndpoint)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.MinioRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.MinioAccessKeyID, cfg.MinioSecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for MinIO: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	if err := ensureBucket(ctx, s3Client, cfg.MinioBucketName, cfg.MinioRegion, logger); err != nil {
		return nil, err
	}

	return newClient(manager.NewUploader(s3Client), s3Client, cfg.MinioBucketName, cfg.MinioPublicURL, logger), nil
}

func newClient(uploader objectUploader, deleter objectDeleter, bucket, publicURL string, logger *slog.Logger) *Client {
	return &Client{
		uploader:   uploader,
		deleter:    deleter,
		bucketName: bucket,
		publicURL:  strings.TrimRight(publicURL, "/"),
		logger:     logger,
	}
}

func ensureBucket(ctx context.Context, s3Client *s3.Client, bucket, region string, logger *slog.Logger) error {
	headCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s3Client.HeadBucket(headCtx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err == nil {
		logger.Info("bucket already exists", "bucket", bucket)
		return nil
	}

	logger.Warn("bucket not found, creating", "bucket", bucket)
	_, err := s3Client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
		CreateBucketConfiguration: &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket %q: %w", bucket, err)
	}

	waiter := s3.NewBucketExistsWaiter(s3Client)
	if err := waiter.Wait(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}, 30*time.Second); err != nil {
		return fmt.Errorf("failed waiting for bucket %q: %w", bucket, err)
	}

	logger.Info("bucket created", "bucket", bucket)
	return nil
}

// Upload stores the file at localPath and returns its public URL and key.
// An empty path uploads nothing and returns (nil, nil). The local file is
// removed whether or not the upload succeeds.
func (c *Client) Upload(ctx context.Context, localPath string) (*domain.Blob, error) {
	if localPath == "" {
		return nil, nil
	}
	defer c.removeLocal(localPath)

	start := time.Now()

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", localPath, err)
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(localPath))
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := keyPrefix + uuid.NewString() + ext

	_, err = c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		c.logger.Error("failed to upload blob", "key", key, "error", err)
		return nil, fmt.Errorf("upload %s to bucket %s: %w", key, c.bucketName, err)
	}

	c.logger.Info("blob uploaded",
		"key", key,
		"content_type", contentType,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &domain.Blob{
		URL:      fmt.Sprintf("%s/%s/%s", c.publicURL, c.bucketName, key),
		PublicID: key,
	}, nil
}

// Delete removes the object with the given key.
func (c *Client) Delete(ctx context.Context, publicID string) error {
	_, err := c.deleter.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("delete %s from bucket %s: %w", publicID, c.bucketName, err)
	}
	c.logger.Info("blob deleted", "key", publicID)
	return nil
}

func (c *Client) removeLocal(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("failed to remove local upload", "path", path, "error", err)
	}
}

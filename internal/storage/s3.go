// Package storage wraps the S3 client behind a deliberately forgiving
// interface: every operation reports failure as false (or an empty string)
// and never returns an error. Playback must keep working when persistence is
// degraded, so callers treat a failed download as "no prior data".
package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vuongmanhnghia/tacobot/pkg/logger"
)

// S3Client wraps the AWS S3 API for playlist file storage.
type S3Client struct {
	client  *s3.Client
	presign *s3.PresignClient
	logger  *logger.Logger
}

// NewS3Client builds a client from static credentials.
func NewS3Client(ctx context.Context, accessKey, secretKey, region string, log *logger.Logger) (*S3Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg)

	masked := accessKey
	if len(masked) > 4 {
		masked = masked[:4] + strings.Repeat("*", len(masked)-4)
	}
	log.WithField("access_key", masked).Info("S3 client created")

	return &S3Client{
		client:  client,
		presign: s3.NewPresignClient(client),
		logger:  log,
	}, nil
}

// Exists reports whether any object with the given key prefix exists in the
// bucket. Errors count as "does not exist".
func (c *S3Client) Exists(ctx context.Context, bucket, key string) bool {
	out, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(key),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Error("S3 list failed")
		return false
	}
	return len(out.Contents) > 0
}

// Upload stores the file at localPath in the bucket under key.
func (c *S3Client) Upload(ctx context.Context, localPath, bucket, key string) bool {
	file, err := os.Open(localPath)
	if err != nil {
		c.logger.WithError(err).WithField("path", localPath).Error("Upload source missing")
		return false
	}
	defer file.Close()

	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Error("S3 upload failed")
		return false
	}

	c.logger.WithFields(map[string]interface{}{
		"path": localPath, "bucket": bucket, "key": key,
	}).Info("Uploaded file to S3")
	return true
}

// Download fetches the object at key into localPath, creating parent
// directories as needed.
func (c *S3Client) Download(ctx context.Context, key, bucket, localPath string) bool {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("S3 download failed")
		return false
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		c.logger.WithError(err).Error("Could not create download directory")
		return false
	}
	file, err := os.Create(localPath)
	if err != nil {
		c.logger.WithError(err).WithField("path", localPath).Error("Could not create download file")
		return false
	}
	defer file.Close()

	if _, err := io.Copy(file, out.Body); err != nil {
		c.logger.WithError(err).Error("S3 download copy failed")
		return false
	}

	c.logger.WithFields(map[string]interface{}{
		"key": key, "bucket": bucket, "path": localPath,
	}).Info("Downloaded file from S3")
	return true
}

// CreateFolder creates an empty folder marker object under prefix. Returns
// false when the folder already exists or creation failed.
func (c *S3Client) CreateFolder(ctx context.Context, bucket, prefix string) bool {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	if c.Exists(ctx, bucket, prefix) {
		return false
	}

	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(prefix),
		Body:   strings.NewReader(""),
	})
	if err != nil {
		c.logger.WithError(err).WithField("prefix", prefix).Error("S3 folder creation failed")
		return false
	}
	return true
}

// PresignedURL returns a time-limited GET URL for the object, or "" on
// failure.
func (c *S3Client) PresignedURL(ctx context.Context, bucket, key string, ttl time.Duration) string {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Error("S3 presign failed")
		return ""
	}
	return req.URL
}

// Package s3 stages ingestion batches in an S3-compatible object store.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yungbote/marketpulse/internal/platform/envutil"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

func LoadConfig() Config {
	return Config{
		Endpoint:  envutil.String("STAGING_S3_ENDPOINT", "s3.amazonaws.com"),
		Region:    envutil.String("STAGING_S3_REGION", "us-east-1"),
		Bucket:    envutil.String("STAGING_S3_BUCKET", ""),
		Prefix:    strings.Trim(envutil.String("STAGING_PREFIX", ""), "/"),
		AccessKey: envutil.String("AWS_ACCESS_KEY_ID", ""),
		SecretKey: envutil.String("AWS_SECRET_ACCESS_KEY", ""),
		UseSSL:    envutil.Bool("STAGING_S3_USE_SSL", true),
	}
}

// StagingBucket writes staged ingestion batches to one S3 bucket.
type StagingBucket struct {
	log    *logger.Logger
	client *minio.Client
	cfg    Config
}

func NewStagingBucket(ctx context.Context, cfg Config, log *logger.Logger) (*StagingBucket, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("missing env var STAGING_S3_BUCKET")
	}
	creds := credentials.NewIAM("")
	if cfg.AccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("s3 bucket check: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("s3 bucket %q does not exist", cfg.Bucket)
	}
	return &StagingBucket{log: log.With("service", "S3StagingBucket"), client: client, cfg: cfg}, nil
}

func (b *StagingBucket) objectName(key string) string {
	key = strings.TrimLeft(key, "/")
	if b.cfg.Prefix == "" {
		return key
	}
	return b.cfg.Prefix + "/" + key
}

// Put uploads data under key and returns its s3:// URI.
func (b *StagingBucket) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	name := b.objectName(key)
	_, err := b.client.PutObject(ctx, b.cfg.Bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", name, err)
	}
	uri := fmt.Sprintf("s3://%s/%s", b.cfg.Bucket, name)
	b.log.Debug("staged object", "uri", uri, "bytes", len(data))
	return uri, nil
}

// List returns the object names under prefix.
func (b *StagingBucket) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	var out []string
	for obj := range b.client.ListObjects(ctx, b.cfg.Bucket, minio.ListObjectsOptions{Prefix: b.objectName(prefix), Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		out = append(out, obj.Key)
	}
	return out, nil
}

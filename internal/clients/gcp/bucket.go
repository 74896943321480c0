package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yungbote/marketpulse/internal/platform/envutil"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

// StagingBucket writes staged ingestion batches to one GCS bucket.
type StagingBucket struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
	prefix string
}

// NewStagingBucket reads STAGING_GCS_BUCKET and optional STAGING_PREFIX.
func NewStagingBucket(ctx context.Context, log *logger.Logger) (*StagingBucket, error) {
	bucket := envutil.String("STAGING_GCS_BUCKET", "")
	if bucket == "" {
		return nil, fmt.Errorf("missing env var STAGING_GCS_BUCKET")
	}
	opts := append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &StagingBucket{
		log:    log.With("service", "GCSStagingBucket"),
		client: client,
		bucket: bucket,
		prefix: strings.Trim(envutil.String("STAGING_PREFIX", ""), "/"),
	}, nil
}

func (b *StagingBucket) objectName(key string) string {
	key = strings.TrimLeft(key, "/")
	if b.prefix == "" {
		return key
	}
	return b.prefix + "/" + key
}

// Put uploads data under key and returns its gs:// URI.
func (b *StagingBucket) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	name := b.objectName(key)
	w := b.client.Bucket(b.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	uri := fmt.Sprintf("gs://%s/%s", b.bucket, name)
	b.log.Debug("staged object", "uri", uri, "bytes", len(data))
	return uri, nil
}

// List returns the object names under prefix.
func (b *StagingBucket) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	it := b.client.Bucket(b.bucket).Objects(ctx, &storage.Query{Prefix: b.objectName(prefix)})
	var out []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

func (b *StagingBucket) Close() error { return b.client.Close() }

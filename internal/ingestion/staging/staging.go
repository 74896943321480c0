package staging

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yungbote/marketpulse/internal/platform/logger"
)

const ContentType = "application/x-ndjson"

// Bucket is an object store the exporter writes batches to. Put returns the
// object's URI.
type Bucket interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// Exporter writes committed batches as gzipped JSON lines, partitioned by
// ingestion date.
type Exporter struct {
	bucket Bucket
	log    *logger.Logger
	now    func() time.Time
}

func NewExporter(bucket Bucket, baseLog *logger.Logger) *Exporter {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Exporter{bucket: bucket, log: baseLog.With("component", "StagingExporter"), now: time.Now}
}

func (e *Exporter) Enabled() bool { return e != nil && e.bucket != nil }

// Key is the object key for a flow's batch on day:
// {flow}_data/ingestion_date={day}/{flow}[_{category}]_{day}.jsonl.gz
func Key(flow, category string, day time.Time) string {
	d := day.UTC().Format("2006-01-02")
	name := flow
	if category != "" {
		name += "_" + category
	}
	return fmt.Sprintf("%s_data/ingestion_date=%s/%s_%s.jsonl.gz", flow, d, name, d)
}

// Prefix is the key prefix shared by a flow's batches on day.
func Prefix(flow string, day time.Time) string {
	return fmt.Sprintf("%s_data/ingestion_date=%s/", flow, day.UTC().Format("2006-01-02"))
}

// Encode renders records as gzipped JSON lines.
func Encode[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	enc := json.NewEncoder(zw)
	for i, r := range records {
		if err := enc.Encode(r); err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Export stages records and returns the object URI. An empty batch or a
// disabled exporter stages nothing and returns "".
func Export[T any](ctx context.Context, e *Exporter, flow, category string, records []T) (string, error) {
	if !e.Enabled() || len(records) == 0 {
		return "", nil
	}
	data, err := Encode(records)
	if err != nil {
		return "", fmt.Errorf("staging %s: %w", flow, err)
	}
	key := Key(flow, category, e.now())
	uri, err := e.bucket.Put(ctx, key, data, ContentType)
	if err != nil {
		return "", fmt.Errorf("staging %s: %w", key, err)
	}
	e.log.Info("batch staged", "flow", flow, "category", category, "records", len(records), "uri", uri)
	return uri, nil
}

// List returns the staged object keys for flow on day.
func (e *Exporter) List(ctx context.Context, flow string, day time.Time) ([]string, error) {
	if !e.Enabled() {
		return nil, nil
	}
	return e.bucket.List(ctx, Prefix(flow, day))
}

package app

import (
	"context"
	"fmt"

	"github.com/yungbote/marketpulse/internal/clients/gcp"
	"github.com/yungbote/marketpulse/internal/clients/s3"
	"github.com/yungbote/marketpulse/internal/ingestion/staging"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

var (
	newGCSBucket = func(ctx context.Context, log *logger.Logger) (staging.Bucket, error) {
		return gcp.NewStagingBucket(ctx, log)
	}
	newS3Bucket = func(ctx context.Context, cfg s3.Config, log *logger.Logger) (staging.Bucket, error) {
		return s3.NewStagingBucket(ctx, cfg, log)
	}
)

type StagingBootstrapErrorCode string

const (
	StagingBootstrapErrorInvalidProvider StagingBootstrapErrorCode = "invalid_provider"
	StagingBootstrapErrorConnectFailed   StagingBootstrapErrorCode = "connect_failed"
)

type StagingBootstrapError struct {
	Code     StagingBootstrapErrorCode
	Provider string
	Cause    error
}

func (e *StagingBootstrapError) Error() string {
	if e == nil {
		return "staging bootstrap failed"
	}
	return fmt.Sprintf("staging bootstrap failed (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *StagingBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveStagingBucket returns the bucket for STAGING_PROVIDER, or nil for
// "none", in which case flows commit without staging or triggering.
func resolveStagingBucket(ctx context.Context, log *logger.Logger, cfg Config) (staging.Bucket, error) {
	provider := cfg.StagingProvider
	log.Info("Selecting staging provider", "provider", provider)

	var (
		bucket staging.Bucket
		err    error
	)
	switch provider {
	case "", StagingNone:
		log.Warn("Staging disabled; committed batches will not be exported")
		return nil, nil
	case StagingGCS:
		bucket, err = newGCSBucket(ctx, log)
	case StagingS3:
		bucket, err = newS3Bucket(ctx, cfg.S3, log)
	default:
		err := &StagingBootstrapError{
			Code:     StagingBootstrapErrorInvalidProvider,
			Provider: provider,
			Cause:    fmt.Errorf("unsupported staging provider %q", provider),
		}
		log.Error("Staging provider selection failed", "provider", provider, "error_code", err.Code, "error", err)
		return nil, err
	}
	if err != nil {
		classified := &StagingBootstrapError{Code: StagingBootstrapErrorConnectFailed, Provider: provider, Cause: err}
		log.Error("Staging provider bootstrap failed", "provider", provider, "error_code", classified.Code, "error", err)
		return nil, classified
	}
	return bucket, nil
}

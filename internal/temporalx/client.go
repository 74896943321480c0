package temporalx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/marketpulse/internal/platform/logger"
)

// NewClient dials Temporal with cfg.Dial backoff. It returns a nil client
// when no address is configured.
func NewClient(cfg Config, log *logger.Logger) (temporalsdkclient.Client, error) {
	if log == nil {
		log = logger.Nop()
	}
	if !cfg.Enabled() {
		log.Warn("TEMPORAL_ADDRESS not set; Temporal disabled")
		return nil, nil
	}
	opts, err := clientOptions(cfg, cfg.Namespace, log)
	if err != nil {
		return nil, err
	}

	var c temporalsdkclient.Client
	err = Retry(context.Background(), cfg.Dial, func(ctx context.Context, attempt int) (bool, error) {
		var dialErr error
		c, dialErr = temporalsdkclient.DialContext(ctx, opts)
		if dialErr != nil {
			log.Warn("Temporal not reachable", "address", cfg.Address, "namespace", cfg.Namespace, "attempt", attempt, "error", dialErr)
			return true, dialErr
		}
		if attempt > 1 {
			log.Info("Connected to Temporal", "address", cfg.Address, "namespace", cfg.Namespace, "attempts", attempt)
		}
		return false, nil
	})
	if err != nil {
		return nil, fmt.Errorf("temporal dial failed (address=%s namespace=%s): %w", cfg.Address, cfg.Namespace, err)
	}

	if cfg.RegisterNamespace {
		if err := EnsureNamespace(context.Background(), cfg, log); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// EnsureNamespace registers cfg.Namespace when Describe reports it missing.
// Only useful against self-hosted Temporal.
func EnsureNamespace(ctx context.Context, cfg Config, log *logger.Logger) error {
	namespace := strings.TrimSpace(cfg.Namespace)
	if namespace == "" || !cfg.Enabled() {
		return nil
	}
	if log == nil {
		log = logger.Nop()
	}
	// Empty namespace so the client can connect before the namespace exists.
	opts, err := clientOptions(cfg, "", log)
	if err != nil {
		return err
	}
	nsClient, err := temporalsdkclient.NewNamespaceClient(opts)
	if err != nil {
		return fmt.Errorf("temporal namespace ensure: init namespace client: %w", err)
	}
	defer nsClient.Close()

	retention := time.Duration(max(cfg.RetentionDays, 1)) * 24 * time.Hour
	return Retry(ctx, cfg.NamespaceEnsure, func(ctx context.Context, attempt int) (bool, error) {
		_, err := nsClient.Describe(ctx, namespace)
		if err == nil {
			return false, nil
		}
		step := "describe"
		var missing *serviceerror.NamespaceNotFound
		if errors.As(err, &missing) {
			step = "register"
			err = nsClient.Register(ctx, &workflowservice.RegisterNamespaceRequest{
				Namespace:                        namespace,
				Description:                      "marketpulse ingestion namespace",
				WorkflowExecutionRetentionPeriod: durationpb.New(retention),
			})
			var exists *serviceerror.NamespaceAlreadyExists
			if err == nil {
				log.Info("Registered Temporal namespace", "namespace", namespace, "retention", retention)
				return false, nil
			}
			if errors.As(err, &exists) {
				return false, nil
			}
		}
		retry := IsRetryableRPC(err)
		err = fmt.Errorf("temporal namespace ensure: %s %s: %w", step, namespace, err)
		if retry {
			log.Warn("Temporal namespace ensure retrying", "namespace", namespace, "step", step, "attempt", attempt, "error", err)
		}
		return retry, err
	})
}

// Retry calls fn until it returns retry=false, ctx is done or b.MaxWait
// elapses. The last error is returned on give up.
func Retry(ctx context.Context, b Backoff, fn func(ctx context.Context, attempt int) (retry bool, err error)) error {
	deadline := time.Now().Add(b.MaxWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		actx, cancel := ctx, context.CancelFunc(func() {})
		if b.Attempt > 0 {
			actx, cancel = context.WithTimeout(ctx, b.Attempt)
		}
		retry, err := fn(actx, attempt)
		cancel()
		if !retry {
			return err
		}
		if b.MaxWait <= 0 || time.Now().After(deadline) {
			return err
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(ClampBackoff(b.Base, b.Max, attempt)):
		}
	}
}

func clientOptions(cfg Config, namespace string, log *logger.Logger) (temporalsdkclient.Options, error) {
	opts := temporalsdkclient.Options{HostPort: cfg.Address, Namespace: namespace, Logger: log}
	if cfg.mTLS() {
		tlsCfg, err := loadTLSConfig(cfg)
		if err != nil {
			return opts, err
		}
		opts.ConnectionOptions.TLS = tlsCfg
	}
	return opts, nil
}

func loadTLSConfig(cfg Config) (*tls.Config, error) {
	if cfg.ClientCertPath == "" || cfg.ClientKeyPath == "" {
		return nil, fmt.Errorf("temporal tls: TEMPORAL_CLIENT_CERT_PATH and TEMPORAL_CLIENT_KEY_PATH are both required for mTLS")
	}
	cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: load client cert/key: %w", err)
	}
	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	if cfg.ClientCAPath == "" {
		return tlsCfg, nil
	}
	pem, err := os.ReadFile(cfg.ClientCAPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: read CA: %w", err)
	}
	tlsCfg.RootCAs = x509.NewCertPool()
	if !tlsCfg.RootCAs.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("temporal tls: invalid CA pem")
	}
	return tlsCfg, nil
}

// ClampBackoff doubles base per attempt, capped at max.
func ClampBackoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	d := base
	for i := 1; i < attempt && (max <= 0 || d < max); i++ {
		d *= 2
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

// IsRetryableRPC reports gRPC unavailable, deadline and exhaustion errors.
func IsRetryableRPC(err error) bool {
	if err == nil {
		return false
	}
	s, ok := status.FromError(err)
	if !ok {
		return errors.Is(err, context.DeadlineExceeded)
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

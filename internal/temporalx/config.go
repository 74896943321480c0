package temporalx

import (
	"strings"
	"time"

	"github.com/yungbote/marketpulse/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	// DownstreamWorkflow is started after a flow stages its batch.
	DownstreamWorkflow  string
	DownstreamTaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	Dial Backoff
	// RegisterNamespace creates Namespace on connect when it is missing.
	RegisterNamespace bool
	NamespaceEnsure   Backoff
	RetentionDays     int
	WorkerStart       Backoff
}

// Backoff bounds a connect loop: each Attempt gets Attempt timeout, waits
// double from Base up to Max, and the loop gives up after MaxWait.
type Backoff struct {
	Attempt time.Duration
	MaxWait time.Duration
	Base    time.Duration
	Max     time.Duration
}

func LoadConfig() Config {
	taskQueue := envutil.String("TEMPORAL_TASK_QUEUE", "marketpulse-ingest")
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "marketpulse"),
		TaskQueue: taskQueue,

		DownstreamWorkflow:  envutil.String("TEMPORAL_DOWNSTREAM_WORKFLOW", "downstream_load"),
		DownstreamTaskQueue: envutil.String("TEMPORAL_DOWNSTREAM_TASK_QUEUE", taskQueue),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		Dial: Backoff{
			Attempt: envutil.Seconds("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5),
			MaxWait: envutil.Seconds("TEMPORAL_DIAL_MAX_WAIT_SECONDS", 60),
			Base:    envutil.Millis("TEMPORAL_DIAL_BACKOFF_MS", 250),
			Max:     envutil.Millis("TEMPORAL_DIAL_BACKOFF_MAX_MS", 5000),
		},
		RegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		NamespaceEnsure: Backoff{
			MaxWait: envutil.Seconds("TEMPORAL_NAMESPACE_ENSURE_TIMEOUT_SECONDS", 10),
			Base:    envutil.Millis("TEMPORAL_NAMESPACE_ENSURE_BACKOFF_MS", 250),
			Max:     envutil.Millis("TEMPORAL_NAMESPACE_ENSURE_BACKOFF_MAX_MS", 5000),
		},
		RetentionDays: min(max(envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 3), 1), 365),
		WorkerStart: Backoff{
			MaxWait: envutil.Seconds("TEMPORAL_WORKER_START_MAX_WAIT_SECONDS", 60),
			Base:    envutil.Millis("TEMPORAL_WORKER_START_BACKOFF_MS", 250),
			Max:     envutil.Millis("TEMPORAL_WORKER_START_BACKOFF_MAX_MS", 5000),
		},
	}
}

func (c Config) Enabled() bool { return strings.TrimSpace(c.Address) != "" }

func (c Config) mTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}

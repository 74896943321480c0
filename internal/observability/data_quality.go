package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/yungbote/marketpulse/internal/platform/envutil"
	"github.com/yungbote/marketpulse/internal/platform/logger"
)

const maxIssueSamples = 3

// DataQualityReport describes the issues found validating one batch. Issues
// maps an issue name (missing_content, unmapped_ticker, ...) to its count.
type DataQualityReport struct {
	Stage   string         `json:"stage"`
	Issues  map[string]int `json:"issues"`
	Samples []string       `json:"samples,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
	At      time.Time      `json:"timestamp"`
}

func (r DataQualityReport) total() int {
	n := 0
	for _, c := range r.Issues {
		n += c
	}
	return n
}

// dqWebhook posts reports to DATA_QUALITY_ALERT_WEBHOOK_URL, at most once per
// stage per interval.
type dqWebhook struct {
	url      string
	interval time.Duration
	http     *http.Client

	mu     sync.Mutex
	stages map[string]*rate.Sometimes
}

func newDQWebhook(url string, interval time.Duration) *dqWebhook {
	return &dqWebhook{
		url:      url,
		interval: interval,
		http:     &http.Client{Timeout: 5 * time.Second},
		stages:   map[string]*rate.Sometimes{},
	}
}

var (
	dqOnce sync.Once
	dqHook *dqWebhook
)

func currentDQWebhook() *dqWebhook {
	dqOnce.Do(func() {
		url := envutil.String("DATA_QUALITY_ALERT_WEBHOOK_URL", "")
		if !envutil.Bool("DATA_QUALITY_ALERTS_ENABLED", false) || url == "" {
			return
		}
		dqHook = newDQWebhook(url, envutil.Seconds("DATA_QUALITY_ALERT_MIN_INTERVAL_SECONDS", 300))
	})
	return dqHook
}

func (w *dqWebhook) limiter(stage string) *rate.Sometimes {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.stages[stage]
	if !ok {
		s = &rate.Sometimes{Interval: w.interval}
		w.stages[stage] = s
	}
	return s
}

func (w *dqWebhook) notify(ctx context.Context, log *logger.Logger, rep DataQualityReport) {
	w.limiter(rep.Stage).Do(func() {
		if err := w.post(ctx, rep); err != nil {
			log.Warn("data quality alert post failed", "error", err, "stage", rep.Stage)
			return
		}
		log.Info("data quality alert sent", "stage", rep.Stage)
	})
}

func (w *dqWebhook) post(ctx context.Context, rep DataQualityReport) error {
	body, err := json.Marshal(struct {
		Title string `json:"title"`
		DataQualityReport
	}{Title: "Data quality issue", DataQualityReport: rep})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.http.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// ReportDataQuality logs and counts the issues found while validating a batch
// and, when configured, posts a rate-limited webhook alert.
func ReportDataQuality(ctx context.Context, log *logger.Logger, stage string, issues map[string]int, samples []string, meta map[string]any) {
	rep := DataQualityReport{Stage: strings.TrimSpace(stage), Issues: issues, Samples: samples, Meta: meta, At: time.Now().UTC()}
	if rep.total() == 0 {
		return
	}
	if rep.Stage == "" {
		rep.Stage = "unknown"
	}
	if len(rep.Samples) > maxIssueSamples {
		rep.Samples = rep.Samples[:maxIssueSamples]
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		if rep.Meta == nil {
			rep.Meta = map[string]any{}
		}
		rep.Meta["trace_id"] = sc.TraceID().String()
	}
	if log == nil {
		log = logger.Nop()
	}

	if m := Current(); m != nil {
		for issue, n := range rep.Issues {
			m.IncDataQuality(rep.Stage, issue, n)
		}
	}
	log.Warn("data quality issue detected", "stage", rep.Stage, "issues", rep.Issues, "samples", rep.Samples, "meta", rep.Meta)
	if w := currentDQWebhook(); w != nil {
		w.notify(ctx, log, rep)
	}
}

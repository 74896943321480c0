package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungbote/marketpulse/internal/platform/logger"
)

// Requester issues rate-limited GET requests and retries retryable failures
// with exponential backoff honoring Retry-After.
type Requester struct {
	Service    string
	HTTP       *http.Client
	Limiter    *rate.Limiter
	MaxRetries int
	Log        *logger.Logger
	// MaxBody caps how much of a response is read. Zero means 8 MiB.
	MaxBody int64
}

func NewRequester(service string, hc *http.Client, perSecond float64, maxRetries int, log *logger.Logger) *Requester {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logger.Nop()
	}
	var lim *rate.Limiter
	if perSecond > 0 {
		lim = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return &Requester{
		Service:    service,
		HTTP:       hc,
		Limiter:    lim,
		MaxRetries: maxRetries,
		Log:        log.With("client", service),
	}
}

func (r *Requester) getOnce(ctx context.Context, url string, header http.Header) (*http.Response, []byte, error) {
	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return nil, nil, err
	}
	limit := r.MaxBody
	if limit <= 0 {
		limit = 8 << 20
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, limit))
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &StatusError{Service: r.Service, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

// Get returns the response body of a successful GET.
func (r *Requester) Get(ctx context.Context, url string, header http.Header) ([]byte, http.Header, error) {
	backoff := time.Second
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		resp, raw, err := r.getOnce(ctx, url, header)
		if err == nil {
			return raw, resp.Header, nil
		}
		if !IsRetryableError(err) || attempt >= r.MaxRetries || ctx.Err() != nil {
			return nil, nil, err
		}

		sleepFor := jitter(retryDelay(resp, backoff, 10*time.Second))
		r.Log.Warn("request retrying",
			"attempt", attempt+1,
			"max_retries", r.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		t := time.NewTimer(sleepFor)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, nil, ctx.Err()
		case <-t.C:
		}
		backoff *= 2
	}
}

// GetJSON decodes a successful GET response into out.
func (r *Requester) GetJSON(ctx context.Context, url string, header http.Header, out any) error {
	raw, _, err := r.Get(ctx, url, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s decode: %w", r.Service, err)
	}
	return nil
}

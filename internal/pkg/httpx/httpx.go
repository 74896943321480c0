package httpx

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	maxErrorBody = 512
	jitterFrac   = 0.2
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return fmt.Sprintf("%s http %d: %s", e.Service, e.StatusCode, body)
}

// IsRetryableHTTPStatus reports request timeouts, rate limiting and 5xx.
func IsRetryableHTTPStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	default:
		return code >= 500 && code <= 599
	}
}

// IsRetryableError classifies source API failures: timeouts, cancellations,
// network timeouts and retryable HTTP statuses are transient.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return IsRetryableHTTPStatus(se.StatusCode)
	}
	return false
}

// retryDelay prefers a positive Retry-After (seconds) over fallback, capped
// at ceiling.
func retryDelay(resp *http.Response, fallback, ceiling time.Duration) time.Duration {
	d := fallback
	if resp != nil {
		if secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && secs > 0 {
			d = time.Duration(secs) * time.Second
		}
	}
	if ceiling > 0 && d > ceiling {
		d = ceiling
	}
	return d
}

// jitter spreads d uniformly over +/- jitterFrac.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	spread := float64(d) * jitterFrac
	return time.Duration(float64(d) - spread + rand.Float64()*2*spread)
}

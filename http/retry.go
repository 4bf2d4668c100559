package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aifdocs/aifdocs"
)

// DefaultRetryDelays returns the default backoff schedule: 500ms, 1s, 2s.
// Its length sets the attempt count (3); the client sleeps 500ms after the
// first attempt and 1s after the second, and the final 2s entry is not
// slept because no attempt follows it.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{500 * time.Millisecond, 1 * time.Second, 2 * time.Second}
}

// retryableStatus holds the HTTP statuses that warrant another attempt.
// Other 4xx statuses are returned immediately.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true, // 408
	http.StatusTooEarly:            true, // 425
	http.StatusTooManyRequests:     true, // 429
	http.StatusInternalServerError: true, // 500
	http.StatusBadGateway:          true, // 502
	http.StatusServiceUnavailable:  true, // 503
	http.StatusGatewayTimeout:      true, // 504
}

// doWithRetry runs send up to len(delays) attempts, sleeping between
// attempts, and classifies the final outcome. Responses with non-retryable
// statuses return immediately so callers can branch on status codes like
// 404 without burning attempts.
func (c *Client) doWithRetry(ctx context.Context, url string, prepare func(*http.Request)) (*Response, error) {
	maxAttempts := len(c.delays)
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.send(ctx, url, prepare)
		if err == nil {
			if !retryableStatus[resp.StatusCode] || attempt == maxAttempts {
				return resp, nil
			}
			lastErr = ClassifyStatus(url, resp.StatusCode)
		} else {
			if ctx.Err() != nil {
				return nil, aifdocs.Errorf(aifdocs.ENETWORK, "request canceled for %s: %v", url, ctx.Err())
			}
			lastErr = aifdocs.Errorf(aifdocs.ENETWORK, "request failed for %s: %v", url, err)
			if attempt == maxAttempts {
				return nil, lastErr
			}
		}

		if c.OnRetry != nil {
			c.OnRetry(url, attempt, lastErr)
		}

		select {
		case <-ctx.Done():
			return nil, aifdocs.Errorf(aifdocs.ENETWORK, "request canceled for %s: %v", url, ctx.Err())
		case <-time.After(c.delays[attempt-1]):
		}
	}

	return nil, lastErr
}

// ClassifyStatus maps an HTTP status to the application error taxonomy.
func ClassifyStatus(url string, status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return aifdocs.Errorf(aifdocs.EAUTH, "HTTP %d for %s", status, url)
	case status == http.StatusTooManyRequests:
		return aifdocs.Errorf(aifdocs.ERATELIMIT, "HTTP %d for %s", status, url)
	case status == http.StatusNotFound:
		return aifdocs.Errorf(aifdocs.ENOTFOUND, "HTTP %d for %s", status, url)
	case status >= 500:
		return aifdocs.Errorf(aifdocs.ESERVER, "HTTP %d for %s", status, url)
	default:
		return aifdocs.Errorf(aifdocs.EUNKNOWN, "HTTP %d for %s", status, url)
	}
}

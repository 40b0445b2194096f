package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"

	prerrors "prstack.dev/prstack/internal/errors"
)

const (
	// maxAttempts bounds how often a rate-limited call is tried
	maxAttempts = 5
	// maxRateLimitWait caps the wait for a primary rate limit reset
	maxRateLimitWait = 2 * time.Minute
)

// retryPolicy controls rate-limit backoff. Tests shrink the delays.
type retryPolicy struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	now          func() time.Time
}

var defaultRetryPolicy = retryPolicy{
	initialDelay: time.Second,
	maxDelay:     maxRateLimitWait,
	now:          time.Now,
}

// call runs fn, retrying while GitHub reports rate limiting, and converts
// any final failure into a HostAPIError for operation
func (p retryPolicy) call(ctx context.Context, operation string, fn func() (*github.Response, error)) error {
	delay := p.initialDelay
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var resp *github.Response
		resp, err = fn()
		if err == nil {
			return nil
		}

		wait, retryable := p.backoff(err, resp, delay)
		if !retryable || attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return toHostAPIError(operation, err)
}

// backoff decides whether err is a rate limit and how long to wait before retrying
func (p retryPolicy) backoff(err error, resp *github.Response, delay time.Duration) (time.Duration, bool) {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		wait := rateErr.Rate.Reset.Time.Sub(p.now())
		if wait < delay {
			wait = delay
		}
		return p.clamp(wait), true
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		wait := delay
		if abuseErr.RetryAfter != nil && *abuseErr.RetryAfter > wait {
			wait = *abuseErr.RetryAfter
		}
		return p.clamp(wait), true
	}

	// secondary limits sometimes arrive as a bare 403/429 with Retry-After
	if resp != nil && resp.Response != nil {
		if resp.StatusCode == http.StatusTooManyRequests {
			return p.clamp(delay), true
		}
	}
	return 0, false
}

func (p retryPolicy) clamp(d time.Duration) time.Duration {
	if d > p.maxDelay {
		return p.maxDelay
	}
	return d
}

// toHostAPIError wraps a go-github failure with the host's message
func toHostAPIError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		status := 0
		if respErr.Response != nil {
			status = respErr.Response.StatusCode
		}
		msg := respErr.Message
		details := make([]string, 0, len(respErr.Errors))
		for _, e := range respErr.Errors {
			if e.Message != "" {
				details = append(details, e.Message)
			} else if e.Code != "" {
				details = append(details, fmt.Sprintf("%s %s", e.Field, e.Code))
			}
		}
		if len(details) > 0 {
			msg = msg + ": " + strings.Join(details, "; ")
		}
		return prerrors.NewHostAPIError(operation, status, msg, err)
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return prerrors.NewHostAPIError(operation, http.StatusForbidden, rateErr.Message, err)
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return prerrors.NewHostAPIError(operation, http.StatusForbidden, abuseErr.Message, err)
	}

	return prerrors.NewHostAPIError(operation, 0, err.Error(), err)
}

package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/require"

	prerrors "prstack.dev/prstack/internal/errors"
)

func fastPolicy() retryPolicy {
	return retryPolicy{
		initialDelay: time.Millisecond,
		maxDelay:     10 * time.Millisecond,
		now:          time.Now,
	}
}

func TestRetryPolicy(t *testing.T) {
	t.Run("retries rate limit errors until success", func(t *testing.T) {
		calls := 0
		err := fastPolicy().call(context.Background(), "list", func() (*github.Response, error) {
			calls++
			if calls < 3 {
				return nil, &github.RateLimitError{Rate: github.Rate{Reset: github.Timestamp{Time: time.Now()}}, Message: "API rate limit exceeded"}
			}
			return nil, nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("honours abuse retry-after", func(t *testing.T) {
		retryAfter := 2 * time.Millisecond
		calls := 0
		err := fastPolicy().call(context.Background(), "list", func() (*github.Response, error) {
			calls++
			if calls == 1 {
				return nil, &github.AbuseRateLimitError{RetryAfter: &retryAfter, Message: "secondary rate limit"}
			}
			return nil, nil
		})
		require.NoError(t, err)
		require.Equal(t, 2, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := fastPolicy().call(context.Background(), "list", func() (*github.Response, error) {
			calls++
			return nil, &github.RateLimitError{Message: "API rate limit exceeded"}
		})
		require.Equal(t, maxAttempts, calls)
		var hostErr *prerrors.HostAPIError
		require.True(t, errors.As(err, &hostErr))
		require.Equal(t, "list", hostErr.Operation)
		require.Equal(t, "API rate limit exceeded", hostErr.Message)
	})

	t.Run("does not retry other host errors", func(t *testing.T) {
		calls := 0
		resp := &http.Response{StatusCode: http.StatusNotFound, Request: &http.Request{Method: http.MethodGet, URL: &url.URL{}}}
		err := fastPolicy().call(context.Background(), "get", func() (*github.Response, error) {
			calls++
			return &github.Response{Response: resp}, &github.ErrorResponse{Response: resp, Message: "Not Found"}
		})
		require.Equal(t, 1, calls)
		var hostErr *prerrors.HostAPIError
		require.True(t, errors.As(err, &hostErr))
		require.Equal(t, http.StatusNotFound, hostErr.StatusCode)
		require.Equal(t, "Not Found", hostErr.Message)
	})

	t.Run("stops waiting when the context is cancelled", func(t *testing.T) {
		policy := fastPolicy()
		policy.initialDelay = time.Hour
		policy.maxDelay = time.Hour
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := policy.call(ctx, "list", func() (*github.Response, error) {
			return nil, &github.AbuseRateLimitError{Message: "secondary rate limit"}
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestGraphQLURL(t *testing.T) {
	tests := map[string]string{
		"https://api.github.com/":            "https://api.github.com/graphql",
		"https://github.company.com/api/v3/": "https://github.company.com/api/graphql",
		"http://127.0.0.1:8080/":             "http://127.0.0.1:8080/graphql",
	}
	for base, want := range tests {
		u, err := url.Parse(base)
		require.NoError(t, err)
		require.Equal(t, want, graphQLURL(u))
	}
}

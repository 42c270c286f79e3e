// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the upstream clients.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

// MaxRetryDelay caps a single backoff wait.
var MaxRetryDelay = 8 * time.Second

const defaultMaxRetries = 2

// Retryable reports whether a status code is worth retrying: 429 (Too Many
// Requests) and the transient 5xx gateway errors.
func Retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// DoWithRetry executes an HTTP request and retries retryable responses with
// bounded exponential backoff: RetryBaseDelay, then doubling, capped at
// MaxRetryDelay.
//
// When maxRetries is 0 the default (2) is used; a negative value disables
// retries. On each retry the response body is drained and closed before
// sleeping. If the context is cancelled during a backoff wait the function
// returns ctx.Err(). After exhausting retries the last response is returned
// so the caller can inspect it. Transport errors are not retried.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if !Retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(Backoff(attempt)):
		}
	}
}

// Backoff returns the wait before retry number attempt (zero-based).
func Backoff(attempt int) time.Duration {
	d := math.Pow(2, float64(attempt)) * float64(RetryBaseDelay)
	if d > float64(MaxRetryDelay) {
		return MaxRetryDelay
	}
	return time.Duration(d)
}

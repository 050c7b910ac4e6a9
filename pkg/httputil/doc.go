// Package httputil provides retry plumbing for package index clients.
//
// # Retry
//
// [Retry] wraps HTTP requests with automatic retry for transient failures:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// Only errors wrapped with [RetryableError] trigger another attempt, so
// callers decide what counts as transient:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    if err := fetch(); err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    return nil
//	})
//
// [RetryableStatus] classifies response status codes for that decision.
//
// # Configuration
//
// Default settings are suitable for index APIs:
//
//   - Max retries: 3
//   - Base backoff: 1 second (doubling after each failure)
//
// Response caching lives in the cache package; clients combine the two.
package httputil

package httputil

import "net/http"

// RetryableStatus reports whether an HTTP status code indicates a transient
// failure worth retrying. Covers 429 Too Many Requests and all 5xx responses.
func RetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

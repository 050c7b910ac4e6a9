package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkgfoundry/wheelscan/pkg/cache"
	wheelscanerrors "github.com/pkgfoundry/wheelscan/pkg/errors"
	"github.com/pkgfoundry/wheelscan/pkg/httputil"
)

func testCache(t *testing.T) *cache.FileCache {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewClient(t *testing.T) {
	c := testCache(t)

	headers := map[string]string{"Authorization": "Bearer token"}
	client := NewClient(c, "test", time.Hour, headers)

	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.http == nil {
		t.Error("NewClient() http client is nil")
	}
	if client.cache != cache.Cache(c) {
		t.Error("NewClient() cache not set correctly")
	}
	if client.headers["Authorization"] != "Bearer token" {
		t.Error("NewClient() headers not set correctly")
	}
}

func TestNewClientNilBackend(t *testing.T) {
	client := NewClient(nil, "test", time.Hour, nil)
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.cache == nil {
		t.Error("NewClient() should fall back to a null cache")
	}
}

func TestClientGet(t *testing.T) {
	type response struct {
		Message string `json:"message"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(response{Message: "hello"})
	}))
	defer server.Close()

	client := NewClient(testCache(t), "test", time.Hour, nil)
	client.http = server.Client()

	var resp response
	err := client.Get(context.Background(), server.URL, &resp)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if resp.Message != "hello" {
		t.Errorf("Get() message = %q, want %q", resp.Message, "hello")
	}
}

func TestClientGetWithHeaders(t *testing.T) {
	var receivedCustom, receivedDefault string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedCustom = r.Header.Get("X-Custom")
		receivedDefault = r.Header.Get("X-Default")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	client := NewClient(testCache(t), "test", time.Hour, map[string]string{"X-Default": "default"})
	client.http = server.Client()

	var resp map[string]string
	err := client.GetWithHeaders(context.Background(), server.URL, map[string]string{"X-Custom": "custom"}, &resp)
	if err != nil {
		t.Fatalf("GetWithHeaders() error: %v", err)
	}
	if receivedCustom != "custom" {
		t.Errorf("custom header = %q, want %q", receivedCustom, "custom")
	}
	if receivedDefault != "default" {
		t.Errorf("default header = %q, want %q", receivedDefault, "default")
	}
}

func TestClientGetWithHeadersOverridesDefaults(t *testing.T) {
	var receivedHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeader = r.Header.Get("X-Override")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	client := NewClient(testCache(t), "test", time.Hour, map[string]string{"X-Override": "default"})
	client.http = server.Client()

	var resp map[string]string
	err := client.GetWithHeaders(context.Background(), server.URL, map[string]string{"X-Override": "overridden"}, &resp)
	if err != nil {
		t.Fatalf("GetWithHeaders() error: %v", err)
	}
	if receivedHeader != "overridden" {
		t.Errorf("header = %q, want %q", receivedHeader, "overridden")
	}
}

func TestClientGetText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text response"))
	}))
	defer server.Close()

	client := NewClient(testCache(t), "test", time.Hour, nil)
	client.http = server.Client()

	text, err := client.GetText(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetText() error: %v", err)
	}
	if text != "plain text response" {
		t.Errorf("GetText() = %q, want %q", text, "plain text response")
	}
}

func TestClientDownload(t *testing.T) {
	payload := strings.Repeat("wheel bytes ", 1024)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer server.Close()

	client := NewClient(testCache(t), "test", time.Hour, nil)
	client.stream = server.Client()

	var buf bytes.Buffer
	n, err := client.Download(context.Background(), server.URL, &buf)
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("Download() copied %d bytes, want %d", n, len(payload))
	}
	if buf.String() != payload {
		t.Error("Download() payload does not match")
	}
}

func TestClientDownload404(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client := NewClient(testCache(t), "test", time.Hour, nil)
	client.stream = server.Client()

	var buf bytes.Buffer
	if _, err := client.Download(context.Background(), server.URL, &buf); !errors.Is(err, ErrNotFound) {
		t.Errorf("Download() error = %v, want ErrNotFound", err)
	}
}

func TestClientGet404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testCache(t), "test", time.Hour, nil)
	client.http = server.Client()

	var resp map[string]string
	err := client.Get(context.Background(), server.URL, &resp)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestClientGet500(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testCache(t), "test", time.Hour, nil)
	client.http = server.Client()

	var resp map[string]string
	err := client.Get(context.Background(), server.URL, &resp)
	if err == nil {
		t.Error("Get() should return error for 500")
	}
	if !httputil.IsRetryable(err) {
		t.Errorf("Get() error should be retryable, got %T", err)
	}
}

func TestClientCached(t *testing.T) {
	client := NewClient(testCache(t), "test", time.Hour, nil)

	type testData struct {
		Value string `json:"value"`
	}

	fetchCount := 0
	fetch := func(v *testData) func() error {
		return func() error {
			fetchCount++
			*v = testData{Value: "fetched"}
			return nil
		}
	}

	// First call misses and fetches
	var first testData
	if err := client.Cached(context.Background(), "key", false, &first, fetch(&first)); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}
	if fetchCount != 1 {
		t.Fatalf("fetch count = %d, want 1", fetchCount)
	}
	if first.Value != "fetched" {
		t.Errorf("value = %q, want %q", first.Value, "fetched")
	}

	// Second call is served from cache
	var second testData
	if err := client.Cached(context.Background(), "key", false, &second, fetch(&second)); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}
	if fetchCount != 1 {
		t.Errorf("fetch count = %d, want 1 (cache hit)", fetchCount)
	}
	if second.Value != "fetched" {
		t.Errorf("cached value = %q, want %q", second.Value, "fetched")
	}
}

func TestClientCachedRefresh(t *testing.T) {
	client := NewClient(testCache(t), "test", time.Hour, nil)

	fetchCount := 0
	var value string
	fetch := func() error {
		fetchCount++
		value = "fetched"
		return nil
	}

	// With refresh=true, fetch runs even when the key is cached
	for range 2 {
		if err := client.Cached(context.Background(), "key", true, &value, fetch); err != nil {
			t.Fatalf("Cached() error: %v", err)
		}
	}
	if fetchCount != 2 {
		t.Errorf("fetch count = %d, want 2", fetchCount)
	}
}

func TestClientCachedFetchError(t *testing.T) {
	client := NewClient(testCache(t), "test", time.Hour, nil)

	var value string
	fetchCount := 0
	fetch := func() error {
		fetchCount++
		return ErrNotFound // non-retryable
	}

	err := client.Cached(context.Background(), "key", false, &value, fetch)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Cached() error = %v, want ErrNotFound", err)
	}
	if fetchCount != 1 {
		t.Errorf("fetch count = %d, want 1", fetchCount)
	}

	// Failed fetches must not poison the cache
	fetchCount = 0
	_ = client.Cached(context.Background(), "key", false, &value, fetch)
	if fetchCount != 1 {
		t.Errorf("fetch count after error = %d, want 1", fetchCount)
	}
}

func TestClientCachedNamespaces(t *testing.T) {
	backend := testCache(t)
	a := NewClient(backend, "a", time.Hour, nil)
	b := NewClient(backend, "b", time.Hour, nil)

	var stored string
	if err := a.Cached(context.Background(), "key", false, &stored, func() error {
		stored = "from-a"
		return nil
	}); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}

	// Same key under a different namespace misses
	fetched := false
	var other string
	if err := b.Cached(context.Background(), "key", false, &other, func() error {
		fetched = true
		other = "from-b"
		return nil
	}); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}
	if !fetched {
		t.Error("namespaces should not share cache entries")
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		wantErr    bool
		wantType   error
		isRetryErr bool
	}{
		{name: "200 OK", code: 200, wantErr: false},
		{name: "404 Not Found", code: 404, wantErr: true, wantType: ErrNotFound},
		{name: "429 Too Many Requests", code: 429, wantErr: true, wantType: ErrRateLimited, isRetryErr: true},
		{name: "500 Internal Server Error", code: 500, wantErr: true, wantType: ErrNetwork, isRetryErr: true},
		{name: "502 Bad Gateway", code: 502, wantErr: true, wantType: ErrNetwork, isRetryErr: true},
		{name: "503 Service Unavailable", code: 503, wantErr: true, wantType: ErrNetwork, isRetryErr: true},
		{name: "400 Bad Request", code: 400, wantErr: true, wantType: ErrNetwork},
		{name: "403 Forbidden", code: 403, wantErr: true, wantType: ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.code, Header: http.Header{}}
			err := checkStatus(resp)

			if !tt.wantErr {
				if err != nil {
					t.Errorf("checkStatus() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("checkStatus() should return error")
			}
			if tt.wantType != nil && !errors.Is(err, tt.wantType) {
				t.Errorf("checkStatus() error = %v, want %v", err, tt.wantType)
			}
			if tt.isRetryErr != httputil.IsRetryable(err) {
				t.Errorf("checkStatus() retryable = %v, want %v", httputil.IsRetryable(err), tt.isRetryErr)
			}
		})
	}
}

func TestCheckStatusRetryAfter(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
	resp.Header.Set("Retry-After", "42")

	err := checkStatus(resp)
	if err == nil {
		t.Fatal("checkStatus() should return error for 429")
	}

	var rle *wheelscanerrors.RateLimitedError
	if !errors.As(err, &rle) {
		t.Fatalf("checkStatus() error = %v, want RateLimitedError in chain", err)
	}
	if rle.RetryAfter != 42 {
		t.Errorf("RetryAfter = %d, want 42", rle.RetryAfter)
	}

	// An HTTP-date value is ignored rather than failing the request.
	resp.Header.Set("Retry-After", "Wed, 21 Oct 2026 07:28:00 GMT")
	err = checkStatus(resp)
	if !errors.As(err, &rle) {
		t.Fatalf("checkStatus() error = %v, want RateLimitedError in chain", err)
	}
	if rle.RetryAfter != 0 {
		t.Errorf("RetryAfter = %d, want 0 for date form", rle.RetryAfter)
	}
}

func TestNormalizePkgName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "Package", "package"},
		{"underscore to dash", "my_package", "my-package"},
		{"dots to dash", "zope.interface", "zope-interface"},
		{"separator runs collapse", "my__weird..name", "my-weird-name"},
		{"trim spaces", "  package  ", "package"},
		{"combined", "  My_Package  ", "my-package"},
		{"empty", "", ""},
		{"already normalized", "my-package", "my-package"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePkgName(tt.input); got != tt.want {
				t.Errorf("NormalizePkgName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient()
	if client == nil {
		t.Fatal("NewHTTPClient() returned nil")
	}
	if client.Timeout != httpTimeout {
		t.Errorf("Timeout = %v, want %v", client.Timeout, httpTimeout)
	}
}

func TestSetTimeout(t *testing.T) {
	client := NewClient(testCache(t), "test", time.Hour, nil)

	client.SetTimeout(42 * time.Second)
	if client.http.Timeout != 42*time.Second {
		t.Errorf("Timeout = %v, want 42s", client.http.Timeout)
	}

	// Zero and negative are ignored.
	client.SetTimeout(0)
	if client.http.Timeout != 42*time.Second {
		t.Errorf("SetTimeout(0) changed timeout to %v", client.http.Timeout)
	}
	client.SetTimeout(-time.Second)
	if client.http.Timeout != 42*time.Second {
		t.Errorf("SetTimeout(-1s) changed timeout to %v", client.http.Timeout)
	}
}

package server

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
	"github.com/pkgfoundry/wheelscan/pkg/schema"
	"github.com/pkgfoundry/wheelscan/pkg/store"
)

// testWheel builds a small valid wheel archive in memory.
func testWheel(t *testing.T) []byte {
	t.Helper()
	files := []struct{ path, content string }{
		{"demo/__init__.py", "__version__ = \"1.0\"\n"},
		{"demo-1.0.dist-info/METADATA", "Metadata-Version: 2.1\nName: demo\nVersion: 1.0\n"},
		{"demo-1.0.dist-info/WHEEL", "Wheel-Version: 1.0\nGenerator: test\n" +
			"Root-Is-Purelib: true\nTag: py3-none-any\n"},
	}

	var record strings.Builder
	for _, f := range files {
		sum := sha256.Sum256([]byte(f.content))
		fmt.Fprintf(&record, "%s,sha256=%s,%d\n",
			f.path, base64.RawURLEncoding.EncodeToString(sum[:]), len(f.content))
	}
	record.WriteString("demo-1.0.dist-info/RECORD,,\n")
	files = append(files, struct{ path, content string }{
		"demo-1.0.dist-info/RECORD", record.String(),
	})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.path)
		if err != nil {
			t.Fatalf("create archive entry %s: %v", f.path, err)
		}
		if _, err := w.Write([]byte(f.content)); err != nil {
			t.Fatalf("write archive entry %s: %v", f.path, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive writer: %v", err)
	}
	return buf.Bytes()
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	s, err := New(context.Background(), cfg, log.New(io.Discard))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(s.close)
	return s
}

func multipartBody(t *testing.T, field, filename string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// postWheel uploads data as a multipart wheel named name.
func postWheel(t *testing.T, h http.Handler, name string, data []byte, query string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, "wheel", name, data)
	req := httptest.NewRequest(http.MethodPost, "/v1/inspect"+query, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func assertErrorResponse(t *testing.T, rec *httptest.ResponseRecorder, status int, code errors.Code) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not JSON: %v (body %s)", err, rec.Body)
	}
	if resp.Code != string(code) {
		t.Errorf("code = %q, want %q", resp.Code, code)
	}
	if resp.Error == "" {
		t.Error("error message is empty")
	}
}

func TestInspectUpload(t *testing.T) {
	s := newTestServer(t, Config{StoreDir: t.TempDir()})
	h := s.Handler()

	rec := postWheel(t, h, "demo-1.0-py3-none-any.whl", testWheel(t), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("X-Cache"); got != "miss" {
		t.Errorf("X-Cache = %q, want miss", got)
	}
	if rec.Header().Get("X-Report-ID") == "" {
		t.Error("X-Report-ID is empty with a store configured")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	if err := schema.ValidateReport(rec.Body.Bytes(), schema.KindWheel); err != nil {
		t.Errorf("response does not validate as a wheel report: %v", err)
	}
	var rep struct {
		Valid   bool   `json:"valid"`
		Project string `json:"project"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !rep.Valid || rep.Project != "demo" {
		t.Errorf("valid/project = %v/%q, want true/demo", rep.Valid, rep.Project)
	}
}

func TestInspectCacheHit(t *testing.T) {
	s := newTestServer(t, Config{StoreDir: t.TempDir()})
	h := s.Handler()
	wheel := testWheel(t)

	first := postWheel(t, h, "demo-1.0-py3-none-any.whl", wheel, "")
	if first.Code != http.StatusOK {
		t.Fatalf("first upload status = %d, body %s", first.Code, first.Body)
	}
	second := postWheel(t, h, "demo-1.0-py3-none-any.whl", wheel, "")
	if second.Code != http.StatusOK {
		t.Fatalf("second upload status = %d, body %s", second.Code, second.Body)
	}

	if got := second.Header().Get("X-Cache"); got != "hit" {
		t.Errorf("X-Cache = %q, want hit", got)
	}
	if a, b := first.Header().Get("X-Report-ID"), second.Header().Get("X-Report-ID"); a != b {
		t.Errorf("report ID changed across identical uploads: %q vs %q", a, b)
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Error("cached response body differs from the original")
	}
}

func TestInspectOptionsSplitCache(t *testing.T) {
	s := newTestServer(t, Config{StoreDir: t.TempDir()})
	h := s.Handler()
	wheel := testWheel(t)

	if rec := postWheel(t, h, "demo-1.0-py3-none-any.whl", wheel, ""); rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body)
	}
	rec := postWheel(t, h, "demo-1.0-py3-none-any.whl", wheel, "?case_sensitive=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("X-Cache"); got != "miss" {
		t.Errorf("X-Cache = %q for differing options, want miss", got)
	}
}

func TestInspectRawBody(t *testing.T) {
	s := newTestServer(t, Config{})
	h := s.Handler()

	req := httptest.NewRequest(http.MethodPost,
		"/v1/inspect?filename=demo-1.0-py3-none-any.whl", bytes.NewReader(testWheel(t)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Report-ID") != "" {
		t.Error("X-Report-ID set without a store")
	}
}

func TestInspectBadRequests(t *testing.T) {
	s := newTestServer(t, Config{})
	h := s.Handler()
	wheel := testWheel(t)

	t.Run("raw body without filename", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/inspect", bytes.NewReader(wheel))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assertErrorResponse(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)
	})

	t.Run("wrong form field", func(t *testing.T) {
		body, contentType := multipartBody(t, "file", "demo-1.0-py3-none-any.whl", wheel)
		req := httptest.NewRequest(http.MethodPost, "/v1/inspect", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assertErrorResponse(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)
	})

	t.Run("bad wheel name", func(t *testing.T) {
		rec := postWheel(t, h, "notawheel.zip", wheel, "")
		assertErrorResponse(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidFilename)
	})

	t.Run("not a zip", func(t *testing.T) {
		rec := postWheel(t, h, "demo-1.0-py3-none-any.whl", []byte("not an archive"), "")
		assertErrorResponse(t, rec, http.StatusBadRequest, errors.ErrCodeUnreadablePackage)
	})

	t.Run("bad case_sensitive", func(t *testing.T) {
		rec := postWheel(t, h, "demo-1.0-py3-none-any.whl", wheel, "?case_sensitive=maybe")
		assertErrorResponse(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		rec := postWheel(t, h, "demo-1.0-py3-none-any.whl", wheel, "?algorithms=rot13")
		assertErrorResponse(t, rec, http.StatusBadRequest, errors.ErrCodeUnsupportedAlgorithm)
	})
}

func TestInspectUploadLimit(t *testing.T) {
	s := newTestServer(t, Config{MaxUploadBytes: 64})
	h := s.Handler()

	req := httptest.NewRequest(http.MethodPost,
		"/v1/inspect?filename=demo-1.0-py3-none-any.whl", bytes.NewReader(testWheel(t)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413 (body %s)", rec.Code, rec.Body)
	}
}

func TestReportLifecycle(t *testing.T) {
	s := newTestServer(t, Config{StoreDir: t.TempDir()})
	h := s.Handler()

	rec := postWheel(t, h, "demo-1.0-py3-none-any.whl", testWheel(t), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body)
	}
	id := rec.Header().Get("X-Report-ID")
	if id == "" {
		t.Fatal("upload returned no report ID")
	}

	get := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/reports/"+id, nil))
		return w
	}

	got := get()
	if got.Code != http.StatusOK {
		t.Fatalf("get status = %d, body %s", got.Code, got.Body)
	}
	var stored store.StoredReport
	if err := json.Unmarshal(got.Body.Bytes(), &stored); err != nil {
		t.Fatalf("decode stored report: %v", err)
	}
	if stored.ID != id || stored.Filename != "demo-1.0-py3-none-any.whl" {
		t.Errorf("stored envelope = %q/%q", stored.ID, stored.Filename)
	}
	if len(stored.Report) == 0 {
		t.Error("stored envelope has no report document")
	}

	listRec := httptest.NewRecorder()
	h.ServeHTTP(listRec, httptest.NewRequest(http.MethodGet, "/v1/reports", nil))
	if listRec.Code != http.StatusOK {
		t.Fatalf("list status = %d, body %s", listRec.Code, listRec.Body)
	}
	var list struct {
		Reports []map[string]any `json:"reports"`
	}
	if err := json.Unmarshal(listRec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(list.Reports) != 1 {
		t.Fatalf("listing has %d entries, want 1", len(list.Reports))
	}
	if list.Reports[0]["id"] != id {
		t.Errorf("listed id = %v, want %s", list.Reports[0]["id"], id)
	}
	if _, ok := list.Reports[0]["report"]; ok {
		t.Error("listing carries full report documents")
	}

	delRec := httptest.NewRecorder()
	h.ServeHTTP(delRec, httptest.NewRequest(http.MethodDelete, "/v1/reports/"+id, nil))
	if delRec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", delRec.Code)
	}
	if got := get(); got.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", got.Code)
	}

	// Deleting again stays idempotent.
	delRec = httptest.NewRecorder()
	h.ServeHTTP(delRec, httptest.NewRequest(http.MethodDelete, "/v1/reports/"+id, nil))
	if delRec.Code != http.StatusNoContent {
		t.Errorf("second delete status = %d, want 204", delRec.Code)
	}
}

func TestReportsWithoutStore(t *testing.T) {
	s := newTestServer(t, Config{})
	h := s.Handler()

	for _, tt := range []struct{ method, path string }{
		{http.MethodGet, "/v1/reports"},
		{http.MethodGet, "/v1/reports/some-id"},
		{http.MethodDelete, "/v1/reports/some-id"},
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s = %d, want 503", tt.method, tt.path, rec.Code)
		}
	}
}

func TestReportIDSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	wheel := testWheel(t)

	first := newTestServer(t, Config{StoreDir: dir})
	rec := postWheel(t, first.Handler(), "demo-1.0-py3-none-any.whl", wheel, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body)
	}
	id := rec.Header().Get("X-Report-ID")

	// A fresh instance has a cold cache but the same store.
	second := newTestServer(t, Config{StoreDir: dir})
	rec = postWheel(t, second.Handler(), "demo-1.0-py3-none-any.whl", wheel, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("re-upload status = %d, body %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("X-Cache"); got != "miss" {
		t.Errorf("X-Cache = %q on a cold cache, want miss", got)
	}
	if got := rec.Header().Get("X-Report-ID"); got != id {
		t.Errorf("re-upload minted a new ID: %q, want %q", got, id)
	}
}

func TestSchemaEndpoint(t *testing.T) {
	s := newTestServer(t, Config{})
	h := s.Handler()

	for _, tt := range []struct {
		name  string
		query string
		code  int
	}{
		{"default", "", http.StatusOK},
		{"wheel", "?kind=wheel", http.StatusOK},
		{"dist-info", "?kind=dist-info", http.StatusOK},
		{"unknown", "?kind=sdist", http.StatusBadRequest},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/schema"+tt.query, nil))
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.code, rec.Body)
			}
			if tt.code != http.StatusOK {
				return
			}
			var doc map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
				t.Fatalf("schema is not JSON: %v", err)
			}
			if _, ok := doc["$schema"]; !ok {
				t.Error("schema document lacks $schema")
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, Config{StoreDir: t.TempDir()})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Version == "" {
		t.Error("version is empty")
	}
	// No external backends configured, nothing to report on.
	if len(resp.Components) != 0 {
		t.Errorf("components = %v, want none", resp.Components)
	}
}

func TestStatusForCode(t *testing.T) {
	for _, tt := range []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeInvalidFilename, http.StatusBadRequest},
		{errors.ErrCodeUnreadablePackage, http.StatusBadRequest},
		{errors.ErrCodeMissingRecord, http.StatusBadRequest},
		{errors.ErrCodeNotFound, http.StatusNotFound},
		{errors.ErrCodeRateLimited, http.StatusTooManyRequests},
		{errors.ErrCodeTimeout, http.StatusGatewayTimeout},
		{errors.ErrCodeNetwork, http.StatusBadGateway},
		{errors.ErrCodeUnsupported, http.StatusServiceUnavailable},
		{errors.ErrCodeInternal, http.StatusInternalServerError},
		{errors.Code("SOMETHING_NEW"), http.StatusInternalServerError},
	} {
		if got := statusForCode(tt.code); got != tt.want {
			t.Errorf("statusForCode(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestRequestOptions(t *testing.T) {
	newReq := func(query string) *http.Request {
		return httptest.NewRequest(http.MethodPost, "/v1/inspect"+query, nil)
	}

	t.Run("defaults", func(t *testing.T) {
		opts, keyOpts, err := requestOptions(newReq(""))
		if err != nil {
			t.Fatalf("requestOptions returned error: %v", err)
		}
		if opts.CaseSensitive || keyOpts.CaseSensitive {
			t.Error("case sensitivity on by default")
		}
		if keyOpts.Algorithms != nil {
			t.Errorf("Algorithms = %v, want nil", keyOpts.Algorithms)
		}
	})

	t.Run("case sensitive", func(t *testing.T) {
		opts, keyOpts, err := requestOptions(newReq("?case_sensitive=true"))
		if err != nil {
			t.Fatalf("requestOptions returned error: %v", err)
		}
		if !opts.CaseSensitive || !keyOpts.CaseSensitive {
			t.Error("case_sensitive=true not applied")
		}
	})

	t.Run("algorithms sorted", func(t *testing.T) {
		_, keyOpts, err := requestOptions(newReq("?algorithms=sha512,sha256"))
		if err != nil {
			t.Fatalf("requestOptions returned error: %v", err)
		}
		if want := []string{"sha256", "sha512"}; !reflect.DeepEqual(keyOpts.Algorithms, want) {
			t.Errorf("Algorithms = %v, want %v", keyOpts.Algorithms, want)
		}
	})

	t.Run("bad flag", func(t *testing.T) {
		if _, _, err := requestOptions(newReq("?case_sensitive=maybe")); err == nil {
			t.Error("invalid case_sensitive accepted")
		}
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		_, _, err := requestOptions(newReq("?algorithms=rot13"))
		if !errors.Is(err, errors.ErrCodeUnsupportedAlgorithm) {
			t.Errorf("err = %v, want code UNSUPPORTED_ALGORITHM", err)
		}
	})
}

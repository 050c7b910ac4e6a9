package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/pkgfoundry/wheelscan/pkg/buildinfo"
	"github.com/pkgfoundry/wheelscan/pkg/cache"
	"github.com/pkgfoundry/wheelscan/pkg/digest"
	"github.com/pkgfoundry/wheelscan/pkg/errors"
	"github.com/pkgfoundry/wheelscan/pkg/filename"
	"github.com/pkgfoundry/wheelscan/pkg/inspect"
	"github.com/pkgfoundry/wheelscan/pkg/observability"
	"github.com/pkgfoundry/wheelscan/pkg/schema"
	"github.com/pkgfoundry/wheelscan/pkg/store"
)

// cachedReport is the cache entry for an inspection response. The ID
// travels with the report so cache hits can still return X-Report-ID.
type cachedReport struct {
	ID     string          `json:"id,omitempty"`
	Report json.RawMessage `json:"report"`
}

// handleInspect inspects an uploaded wheel. The upload is either a
// multipart form with a "wheel" field or a raw body with ?filename=.
// Responses are cached by content digest and inspection options.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := loggerFromContext(ctx)

	opts, keyOpts, err := requestOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}
	opts.Logger = logger

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	src, name, err := uploadSource(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer src.Close()

	// Reject before spooling: the report's identity comes from the name.
	if _, err := filename.Parse(name); err != nil {
		writeError(w, err)
		return
	}

	path, sum, err := s.spool(src, name)
	if err != nil {
		writeError(w, err)
		return
	}
	defer os.RemoveAll(filepath.Dir(path))

	key := s.keyer.ReportKey(sum, keyOpts)
	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var cached cachedReport
		if json.Unmarshal(data, &cached) == nil {
			observability.Cache().OnCacheHit(ctx, "report")
			if cached.ID != "" {
				w.Header().Set("X-Report-ID", cached.ID)
			}
			w.Header().Set("X-Cache", "hit")
			writeRaw(w, http.StatusOK, cached.Report)
			return
		}
	}
	observability.Cache().OnCacheMiss(ctx, "report")

	rep, err := inspect.New(opts).InspectArchive(ctx, path)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := inspect.MarshalReport(rep)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "encode report"))
		return
	}

	id := s.persist(ctx, logger, name, sum, data)
	if entry, err := json.Marshal(cachedReport{ID: id, Report: data}); err == nil {
		if err := s.cache.Set(ctx, key, entry, s.cfg.CacheTTL); err != nil {
			logger.Warn("report cache set failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "report", len(entry))
		}
	}

	if id != "" {
		w.Header().Set("X-Report-ID", id)
	}
	w.Header().Set("X-Cache", "miss")
	writeRaw(w, http.StatusOK, data)
}

// requestOptions builds per-request inspection options. The same values
// feed the cache key, so two requests differing in options never share a
// cached report.
func requestOptions(r *http.Request) (inspect.Options, cache.ReportKeyOpts, error) {
	q := r.URL.Query()

	caseSensitive := false
	if v := q.Get("case_sensitive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return inspect.Options{}, cache.ReportKeyOpts{},
				errors.New(errors.ErrCodeInvalidInput, "invalid case_sensitive value %q", v)
		}
		caseSensitive = b
	}

	var algorithms []string
	if v := q.Get("algorithms"); v != "" {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				algorithms = append(algorithms, name)
			}
		}
		sort.Strings(algorithms)
	}

	reg := digest.Default()
	if len(algorithms) > 0 {
		var err error
		reg, err = reg.Restrict(algorithms...)
		if err != nil {
			return inspect.Options{}, cache.ReportKeyOpts{}, err
		}
	}

	opts := inspect.Options{Registry: reg, CaseSensitive: caseSensitive}
	keyOpts := cache.ReportKeyOpts{CaseSensitive: caseSensitive, Algorithms: algorithms}
	return opts, keyOpts, nil
}

// uploadSource extracts the wheel bytes and declared filename from an
// upload request.
func uploadSource(r *http.Request) (io.ReadCloser, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("wheel")
		if err != nil {
			return nil, "", errors.Wrap(errors.ErrCodeInvalidInput, err, "multipart upload needs a wheel form field")
		}
		return file, filepath.Base(header.Filename), nil
	}

	name := r.URL.Query().Get("filename")
	if name == "" {
		return nil, "", errors.New(errors.ErrCodeInvalidInput, "raw uploads need a filename query parameter")
	}
	return r.Body, filepath.Base(name), nil
}

// spool writes the upload into a fresh temp directory under the wheel's
// own name, hashing it on the way. The inspector reads identity from the
// basename, so the spool file must keep it.
func (s *Server) spool(src io.Reader, name string) (path, sum string, err error) {
	dir, err := os.MkdirTemp("", "wheelscan-upload-")
	if err != nil {
		return "", "", errors.Wrap(errors.ErrCodeInternal, err, "create upload dir")
	}
	defer func() {
		if err != nil {
			os.RemoveAll(dir)
		}
	}()

	path = filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", "", errors.Wrap(errors.ErrCodeInternal, err, "create upload file")
	}

	h := sha256.New()
	_, err = io.Copy(f, io.TeeReader(src, h))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return "", "", err
		}
		return "", "", errors.Wrap(errors.ErrCodeInvalidInput, err, "read upload")
	}
	return path, hex.EncodeToString(h.Sum(nil)), nil
}

// persist stores the report when a store is configured, reusing the ID of
// a previous upload with the same digest. Store failures degrade to an
// unpersisted response rather than failing the inspection.
func (s *Server) persist(ctx context.Context, logger *log.Logger, name, sum string, report []byte) string {
	if s.store == nil {
		return ""
	}

	prev, err := s.store.GetBySHA256(ctx, sum)
	if err != nil {
		logger.Error("store lookup failed", "err", err)
		return ""
	}
	if prev != nil {
		return prev.ID
	}

	rec := &store.StoredReport{
		ID:        store.NewID(),
		Filename:  name,
		SHA256:    sum,
		CreatedAt: time.Now().UTC(),
		Report:    report,
	}
	if err := s.store.Put(ctx, rec); err != nil {
		logger.Error("store put failed", "err", err)
		return ""
	}
	return rec.ID
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	st, err := s.requireStore()
	if err != nil {
		writeError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	rep, err := st.Get(r.Context(), id)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "load report"))
		return
	}
	if rep == nil {
		writeError(w, errors.New(errors.ErrCodeNotFound, "no report with id %s", id))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	st, err := s.requireStore()
	if err != nil {
		writeError(w, err)
		return
	}

	if err := st.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "delete report"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reportList is the GET /v1/reports response body. Report documents stay
// behind the per-ID endpoint; the listing carries envelope metadata only.
type reportList struct {
	Reports []reportListItem `json:"reports"`
}

type reportListItem struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	st, err := s.requireStore()
	if err != nil {
		writeError(w, err)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
	}

	reports, err := st.List(r.Context(), limit)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "list reports"))
		return
	}

	items := make([]reportListItem, 0, len(reports))
	for _, rep := range reports {
		items = append(items, reportListItem{
			ID:        rep.ID,
			Filename:  rep.Filename,
			SHA256:    rep.SHA256,
			CreatedAt: rep.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, reportList{Reports: items})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	kindParam := r.URL.Query().Get("kind")
	if kindParam == "" {
		kindParam = string(schema.KindWheel)
	}
	kind, err := schema.ParseKind(kindParam)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := schema.Document(kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, doc)
}

// healthResponse is the GET /healthz body.
type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:     "ok",
		Version:    buildinfo.Version,
		Components: map[string]string{},
	}
	status := http.StatusOK

	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			resp.Components["redis"] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		} else {
			resp.Components["redis"] = "ok"
		}
	}
	if s.mongo != nil {
		if err := s.mongo.Ping(ctx); err != nil {
			resp.Components["mongodb"] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		} else {
			resp.Components["mongodb"] = "ok"
		}
	}

	writeJSON(w, status, resp)
}

func (s *Server) requireStore() (store.Store, error) {
	if s.store == nil {
		return nil, errors.New(errors.ErrCodeUnsupported, "no report store configured")
	}
	return s.store, nil
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError maps an error onto a status code and JSON body using its
// error code.
func writeError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
			Error: fmt.Sprintf("upload exceeds the %d byte limit", maxErr.Limit),
			Code:  string(errors.ErrCodeInvalidInput),
		})
		return
	}

	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, statusForCode(code), errorResponse{
		Error: errors.UserMessage(err),
		Code:  string(code),
	})
}

// statusForCode maps error codes onto HTTP statuses. Package problems in
// an upload are the client's fault, hence 400.
func statusForCode(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidPath, errors.ErrCodeInvalidProject,
		errors.ErrCodeInvalidFilename, errors.ErrCodeUnsupportedAlgorithm, errors.ErrCodeWeakAlgorithm,
		errors.ErrCodeUnreadablePackage, errors.ErrCodeMalformedRecord, errors.ErrCodeMissingRecord,
		errors.ErrCodeDistInfoNotFound, errors.ErrCodeDistInfoCollision, errors.ErrCodeDistInfoMismatch,
		errors.ErrCodeNotDirectory, errors.ErrCodeIsDirectory:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeNetwork:
		return http.StatusBadGateway
	case errors.ErrCodeUnsupported:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

package server

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pkgfoundry/wheelscan/pkg/observability"
)

// registerHooks routes observability events into the server log. Events
// fire on every request, so they log at debug level.
func registerHooks(logger *log.Logger) {
	observability.SetInspectHooks(&logInspectHooks{logger: logger})
	observability.SetCacheHooks(&logCacheHooks{logger: logger})
	observability.SetHTTPHooks(&logHTTPHooks{logger: logger})
}

type logInspectHooks struct {
	logger *log.Logger
}

func (h *logInspectHooks) OnInspectStart(ctx context.Context, source string) {
	h.logger.Debug("inspect start", "source", source)
}

func (h *logInspectHooks) OnInspectComplete(ctx context.Context, source string, valid bool, findings int, duration time.Duration, err error) {
	if err != nil {
		h.logger.Debug("inspect failed", "source", source, "duration", duration, "err", err)
		return
	}
	h.logger.Debug("inspect complete", "source", source, "valid", valid, "findings", findings, "duration", duration)
}

type logCacheHooks struct {
	logger *log.Logger
}

func (h *logCacheHooks) OnCacheHit(ctx context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *logCacheHooks) OnCacheMiss(ctx context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *logCacheHooks) OnCacheSet(ctx context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

type logHTTPHooks struct {
	logger *log.Logger
}

func (h *logHTTPHooks) OnRequest(ctx context.Context, method, host, path string) {
	h.logger.Debug("outbound request", "method", method, "host", host, "path", path)
}

func (h *logHTTPHooks) OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration) {
	h.logger.Debug("outbound response", "method", method, "host", host, "path", path, "status", statusCode, "duration", duration)
}

func (h *logHTTPHooks) OnError(ctx context.Context, method, host, path string, err error) {
	h.logger.Debug("outbound error", "method", method, "host", host, "path", path, "err", err)
}

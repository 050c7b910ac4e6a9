package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	logger.Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("log output %q lacks the message", buf.String())
	}
}

func TestNewLoggerLevelFilter(t *testing.T) {
	for _, tt := range []struct {
		name  string
		level log.Level
		emit  func(*log.Logger)
		want  bool
	}{
		{"debug suppressed at info", log.InfoLevel, func(l *log.Logger) { l.Debug("x") }, false},
		{"info passes at info", log.InfoLevel, func(l *log.Logger) { l.Info("x") }, true},
		{"debug passes at debug", log.DebugLevel, func(l *log.Logger) { l.Debug("x") }, true},
		{"info suppressed at warn", log.WarnLevel, func(l *log.Logger) { l.Info("x") }, false},
		{"error passes at warn", log.WarnLevel, func(l *log.Logger) { l.Error("x") }, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.emit(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.want {
				t.Errorf("wrote output = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(newLogger(&buf, log.InfoLevel))
	p.done("resolved demo 1.0")

	out := buf.String()
	if !strings.Contains(out, "resolved demo 1.0") {
		t.Errorf("output %q lacks the message", out)
	}
	if !strings.Contains(out, "s)") {
		t.Errorf("output %q lacks an elapsed duration", out)
	}
}

package gokit

import (
	"bytes"
	"strings"
	"testing"

	gklog "github.com/go-kit/kit/log"
	"github.com/stretchr/testify/require"

	log "github.com/fclairamb/go-log"
)

func newBufferedLogger(buf *bytes.Buffer) log.Logger {
	return NewGKLogger(gklog.NewLogfmtLogger(buf))
}

func TestInfoWritesLevelAndEvent(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newBufferedLogger(buf)

	logger.Info("hello", "key", "value")

	out := buf.String()
	require.Contains(t, out, "level=info")
	require.Contains(t, out, "event=hello")
	require.Contains(t, out, "key=value")
}

func TestErrorWritesErrorLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newBufferedLogger(buf)

	logger.Error("boom", "err", "disk full")

	require.Contains(t, buf.String(), "level=error")
}

func TestWithBindsKeyvalsToSubsequentLines(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newBufferedLogger(buf).With("sessionId", "abc123")

	logger.Debug("started")

	out := buf.String()
	require.Contains(t, out, "sessionId=abc123")
	require.Contains(t, out, "level=debug")
}

func TestNewGKLoggerStdoutDoesNotPanic(t *testing.T) {
	require.NotPanics(t, func() {
		logger := NewGKLoggerStdout()
		logger.Info("smoke test")
	})
}

func TestLogWritesOneLinePerCall(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newBufferedLogger(buf)

	logger.Info("first")
	logger.Warn("second")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
}

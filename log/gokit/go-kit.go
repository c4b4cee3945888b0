// Package gokit adapts a go-kit logger onto the server's Logger interface.
package gokit

import (
	"fmt"
	"os"

	gklog "github.com/go-kit/kit/log"
	gklevel "github.com/go-kit/kit/log/level"

	log "github.com/fclairamb/go-log"
)

func (logger *gKLogger) checkError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging error:", err)
	}
}

func (logger *gKLogger) log(gklogger gklog.Logger, event string, keyvals ...interface{}) {
	keyvals = append(keyvals, "event", event)
	logger.checkError(gklogger.Log(keyvals...))
}

// Debug logs key-values at debug level.
func (logger *gKLogger) Debug(event string, keyvals ...interface{}) {
	logger.log(gklevel.Debug(logger.logger), event, keyvals...)
}

// Info logs key-values at info level.
func (logger *gKLogger) Info(event string, keyvals ...interface{}) {
	logger.log(gklevel.Info(logger.logger), event, keyvals...)
}

// Warn logs key-values at warn level.
func (logger *gKLogger) Warn(event string, keyvals ...interface{}) {
	logger.log(gklevel.Warn(logger.logger), event, keyvals...)
}

// Error logs key-values at error level.
func (logger *gKLogger) Error(event string, keyvals ...interface{}) {
	logger.log(gklevel.Error(logger.logger), event, keyvals...)
}

// With returns a logger with keyvals bound to every subsequent line.
func (logger *gKLogger) With(keyvals ...interface{}) log.Logger {
	return NewGKLogger(gklog.With(logger.logger, keyvals...))
}

// NewGKLogger wraps an existing go-kit logger.
func NewGKLogger(logger gklog.Logger) log.Logger {
	return &gKLogger{logger: logger}
}

// NewGKLoggerStdout builds a logfmt logger writing to stdout, the default
// used by cmd/objectftpd when no other sink is configured.
func NewGKLoggerStdout() log.Logger {
	base := gklog.NewLogfmtLogger(gklog.NewSyncWriter(os.Stdout))
	base = gklog.With(base, "ts", gklog.DefaultTimestampUTC)

	return NewGKLogger(base)
}

type gKLogger struct {
	logger gklog.Logger
}

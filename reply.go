// Package ftpserver provides the control-connection protocol engine, the
// data-channel subsystem and the virtual filesystem contract for an FTP
// server whose storage backend is an object store reachable over HTTP.
package ftpserver

import (
	"bufio"
	"fmt"
	"net"
	"strings"
)

// FTP reply codes used throughout the command handlers. Values follow
// RFC 959, RFC 2228, RFC 2389 and RFC 2428.
const (
	StatusRestartMarker            = 110
	StatusServiceReadySoon         = 120
	StatusDataConnectionAlreadyOpen = 125
	StatusFileStatusOK              = 150
	StatusOK                        = 200
	StatusNotImplemented            = 202
	StatusSystemStatus              = 211
	StatusDirectoryStatus           = 212
	StatusFileStatus                = 213
	StatusHelp                      = 214
	StatusSystemType                = 215
	StatusServiceReady              = 220
	StatusClosingControlConn        = 221
	StatusTransferAborted           = 225
	StatusClosingDataConn           = 226
	StatusEnteringPASV              = 227
	StatusEnteringEPSV              = 229
	StatusUserLoggedIn              = 230
	StatusAuthAccepted              = 234
	StatusFileOK                    = 250
	StatusPathCreated               = 257
	StatusUserOK                    = 331
	StatusFileActionPending         = 350
	StatusServiceNotAvailable       = 421
	StatusCannotOpenDataConnection  = 425
	StatusConnectionClosedAborted   = 426
	StatusActionNotTaken            = 450
	StatusLocalError                = 451
	StatusActionAborted             = 552
	StatusSyntaxErrorNotRecognised  = 500
	StatusSyntaxErrorParameters     = 501
	StatusCommandNotImplemented     = 502
	StatusBadCommandSequence        = 503
	StatusNotImplementedParam       = 504
	StatusNetworkProtocolNotSupported = 522
	StatusNotLoggedIn               = 530
	StatusProtLevelDenied            = 533
	StatusPolicyDenied               = 534
	StatusSecurityCheckFailed        = 535
	StatusProtLevelNotSupported      = 536
	StatusCCNotSupported             = 537
	StatusFileActionNotTaken        = 550
	StatusActionNotTakenNoFile      = 553
)

// defaultMessages fills in a reply's text when a handler doesn't supply one.
var defaultMessages = map[int]string{ //nolint:gochecknoglobals
	StatusServiceReady:             "Service ready",
	StatusClosingControlConn:       "Goodbye",
	StatusOK:                       "Command okay",
	StatusNotLoggedIn:              "Not logged in",
	StatusCommandNotImplemented:    "Command not implemented",
	StatusSyntaxErrorNotRecognised: "Syntax error, command unrecognized",
}

// replyWriter renders FTP replies on a byte stream, following the
// continuation syntax of RFC 959: every line but the last is formatted
// "code-text", the last line "code text".
type replyWriter struct {
	w       *bufio.Writer
	encoding string // "utf8" or "ascii", informational only: replies are always ASCII-safe
}

func newReplyWriter(conn net.Conn) *replyWriter {
	return &replyWriter{w: bufio.NewWriter(conn), encoding: "utf8"}
}

// replyOptions carries the non-default behaviors of writeReply.
type replyOptions struct {
	raw             bool // skip the numeric code prefix entirely
	useEmptyMessage bool // force a blank line rather than a default message
}

// writeReply renders code and lines (CRLF terminated) on w. A missing message
// is filled in from defaultMessages. It returns the number of bytes written
// and the first write error encountered; on any error the caller must close
// the session rather than retry, since a partial reply cannot be safely
// continued.
func (r *replyWriter) writeReply(code int, lines []string, opts replyOptions) (int, error) {
	if len(lines) == 0 && !opts.useEmptyMessage {
		if msg, ok := defaultMessages[code]; ok {
			lines = []string{msg}
		} else {
			lines = []string{""}
		}
	} else if len(lines) == 0 {
		lines = []string{""}
	}

	total := 0

	for idx, line := range lines {
		var rendered string

		switch {
		case opts.raw:
			rendered = line
		case idx < len(lines)-1:
			rendered = fmt.Sprintf("%d-%s", code, line)
		default:
			rendered = fmt.Sprintf("%d %s", code, line)
		}

		n, err := r.w.WriteString(rendered + "\r\n")
		total += n

		if err != nil {
			return total, fmt.Errorf("reply write failed: %w", err)
		}
	}

	if err := r.w.Flush(); err != nil {
		return total, fmt.Errorf("reply flush failed: %w", err)
	}

	return total, nil
}

// writeMessage is the common case: a single- or multi-line message with the
// standard code prefix. The message may itself contain embedded newlines,
// which are split into separate continuation lines.
func (r *replyWriter) writeMessage(code int, message string) error {
	_, err := r.writeReply(code, splitMessageLines(message), replyOptions{})
	return err
}

func splitMessageLines(message string) []string {
	if message == "" {
		return nil
	}

	return strings.Split(strings.TrimRight(message, "\n"), "\n")
}

// resetWriter rebinds the reply writer to a new connection, used after a
// TLS upgrade of the control channel.
func (r *replyWriter) resetWriter(conn net.Conn) {
	r.w = bufio.NewWriter(conn)
}

package ftpserver

import (
	"errors"
	"fmt"
)

// This file implements §7's error taxonomy as a small set of concrete error
// types, each owning an FTP reply code and wrapping its cause. Handlers
// return one of these (or a plain error, mapped to 550/451 by default)
// rather than hand-picking a reply code inline.

// ProtocolError covers malformed commands, bad sequencing and unimplemented
// directives: replies 500/501/502/503/504.
type ProtocolError struct {
	Code int
	Msg  string
	err  error
}

func newProtocolError(code int, msg string) *ProtocolError {
	return &ProtocolError{Code: code, Msg: msg}
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error (%d): %s", e.Code, e.Msg)
}

func (e *ProtocolError) Unwrap() error {
	return e.err
}

// AuthError maps to 530: the session remains unauthenticated.
type AuthError struct {
	Msg string
	err error
}

func newAuthError(msg string, cause error) *AuthError {
	return &AuthError{Msg: msg, err: cause}
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Msg)
}

func (e *AuthError) Unwrap() error {
	return e.err
}

// FileSystemError maps to 550 (not found / denied / listing failed) or 553
// (forbidden name).
type FileSystemError struct {
	Forbidden bool // true -> 553, false -> 550
	Msg       string
	err       error
}

func newFileSystemError(msg string, cause error) *FileSystemError {
	return &FileSystemError{Msg: msg, err: cause}
}

func newForbiddenNameError(msg string) *FileSystemError {
	return &FileSystemError{Forbidden: true, Msg: msg}
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("filesystem error: %s", e.Msg)
}

func (e *FileSystemError) Unwrap() error {
	return e.err
}

// TransferError maps to 425 (can't open data connection), 426 (aborted
// mid-stream) or 451 (local processing error).
type TransferError struct {
	Code int
	Msg  string
	err  error
}

func newTransferError(code int, msg string, cause error) *TransferError {
	return &TransferError{Code: code, Msg: msg, err: cause}
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer error (%d): %s", e.Code, e.Msg)
}

func (e *TransferError) Unwrap() error {
	return e.err
}

// ConnectionError maps to 421: the session is closed after the reply.
type ConnectionError struct {
	Msg string
	err error
}

func newConnectionError(msg string, cause error) *ConnectionError {
	return &ConnectionError{Msg: msg, err: cause}
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %s", e.Msg)
}

func (e *ConnectionError) Unwrap() error {
	return e.err
}

// SecurityError covers TLS/AUTH faults: 533/534/535/536/537.
type SecurityError struct {
	Code int
	Msg  string
	err  error
}

func newSecurityError(code int, msg string) *SecurityError {
	return &SecurityError{Code: code, Msg: msg}
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security error (%d): %s", e.Code, e.Msg)
}

func (e *SecurityError) Unwrap() error {
	return e.err
}

// RateLimitExceeded maps to 421 and closes the session.
type RateLimitExceeded struct {
	Msg string
}

func (e *RateLimitExceeded) Error() string {
	return fmt.Sprintf("rate limit exceeded: %s", e.Msg)
}

// errorToReply turns any error a handler returns into a reply code and a
// message safe to echo to the client. Messages that could leak internals
// (anything not recognized as one of our typed errors) are replaced by a
// generic string; the original error is left for the caller to log.
func errorToReply(err error, defaultCode int) (int, string) {
	var (
		protoErr  *ProtocolError
		authErr   *AuthError
		fsErr     *FileSystemError
		xferErr   *TransferError
		connErr   *ConnectionError
		secErr    *SecurityError
		rateErr   *RateLimitExceeded
	)

	switch {
	case errors.As(err, &protoErr):
		return protoErr.Code, protoErr.Msg
	case errors.As(err, &authErr):
		return StatusNotLoggedIn, authErr.Msg
	case errors.As(err, &fsErr):
		if fsErr.Forbidden {
			return StatusActionNotTakenNoFile, fsErr.Msg
		}

		return StatusFileActionNotTaken, fsErr.Msg
	case errors.As(err, &xferErr):
		return xferErr.Code, xferErr.Msg
	case errors.As(err, &connErr):
		return StatusServiceNotAvailable, connErr.Msg
	case errors.As(err, &secErr):
		return secErr.Code, secErr.Msg
	case errors.As(err, &rateErr):
		return StatusServiceNotAvailable, rateErr.Msg
	default:
		return defaultCode, "Action not taken"
	}
}

// DriverError wraps a failure from the embedding MainDriver/VirtualFileSystem.
type DriverError struct {
	str string
	err error
}

func NewDriverError(str string, err error) DriverError {
	return DriverError{str: str, err: err}
}

func (e DriverError) Error() string {
	return fmt.Sprintf("driver error: %s: %v", e.str, e.err)
}

func (e DriverError) Unwrap() error {
	return e.err
}

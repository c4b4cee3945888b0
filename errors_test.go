package ftpserver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorToReplyMapsTypedErrors(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"protocol", newProtocolError(StatusSyntaxErrorParameters, "bad args"), StatusSyntaxErrorParameters},
		{"auth", newAuthError("nope", nil), StatusNotLoggedIn},
		{"filesystem not found", newFileSystemError("missing", nil), StatusFileActionNotTaken},
		{"filesystem forbidden", newForbiddenNameError("reserved name"), StatusActionNotTakenNoFile},
		{"transfer", newTransferError(StatusCannotOpenDataConnection, "no data conn", nil), StatusCannotOpenDataConnection},
		{"connection", newConnectionError("bye", nil), StatusServiceNotAvailable},
		{"security", newSecurityError(StatusSecurityCheckFailed, "bad cert"), StatusSecurityCheckFailed},
		{"rate limit", &RateLimitExceeded{Msg: "too fast"}, StatusServiceNotAvailable},
		{"unknown", errors.New("boom"), StatusFileActionNotTaken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := errorToReply(tc.err, StatusFileActionNotTaken)
			require.Equal(t, tc.wantCode, code)
		})
	}
}

func TestErrorToReplyHidesUnknownErrorDetails(t *testing.T) {
	_, msg := errorToReply(errors.New("stack trace with secrets"), StatusLocalError)
	require.Equal(t, "Action not taken", msg)
	require.NotContains(t, msg, "secrets")
}

func TestDriverErrorUnwraps(t *testing.T) {
	cause := errors.New("root cause")
	err := NewDriverError("listing failed", cause)

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "listing failed")
}

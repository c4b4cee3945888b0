package ftpserver

import (
	"testing"
)

func TestUserRequiresUsername(t *testing.T) {
	raw := newClientWithRawConn(t)
	sendAndCheck(t, raw, "USER", StatusSyntaxErrorParameters)
}

func TestPassWithoutUserIsBadSequence(t *testing.T) {
	raw := newClientWithRawConn(t)
	sendAndCheck(t, raw, "PASS whatever", StatusBadCommandSequence)
}

func TestPassWithWrongPasswordFailsAuth(t *testing.T) {
	raw := newClientWithRawConn(t)
	sendAndCheck(t, raw, "USER "+authUser, StatusUserOK)
	sendAndCheck(t, raw, "PASS wrong", StatusNotLoggedIn)
}

func TestPassWithCorrectCredentialsLogsIn(t *testing.T) {
	raw := newClientWithRawConn(t)
	sendAndCheck(t, raw, "USER "+authUser, StatusUserOK)
	sendAndCheck(t, raw, "PASS "+authPass, StatusUserLoggedIn)
}

func TestAcctIsNotImplemented(t *testing.T) {
	raw := newClientWithRawConn(t)
	sendAndCheck(t, raw, "USER "+authUser, StatusUserOK)
	sendAndCheck(t, raw, "PASS "+authPass, StatusUserLoggedIn)
	sendAndCheck(t, raw, "ACCT whatever", StatusCommandNotImplemented)
}

func TestQuitClosesSession(t *testing.T) {
	raw := newClientWithRawConn(t)
	sendAndCheck(t, raw, "USER "+authUser, StatusUserOK)
	sendAndCheck(t, raw, "PASS "+authPass, StatusUserLoggedIn)
	sendAndCheck(t, raw, "QUIT", StatusClosingControlConn)
}

func TestAuthRejectsNonTLSMechanism(t *testing.T) {
	raw := newClientWithRawConn(t)
	sendAndCheck(t, raw, "AUTH KERBEROS", StatusPolicyDenied)
}

func TestPbszWithoutTLSHasNoEffect(t *testing.T) {
	raw := newClientWithRawConn(t)
	sendAndCheck(t, raw, "USER "+authUser, StatusUserOK)
	sendAndCheck(t, raw, "PASS "+authPass, StatusUserLoggedIn)
	sendAndCheck(t, raw, "PBSZ 0", StatusNotImplemented)
}

func TestProtRejectsUnsupportedLevel(t *testing.T) {
	raw := newClientWithRawConn(t)
	sendAndCheck(t, raw, "USER "+authUser, StatusUserOK)
	sendAndCheck(t, raw, "PASS "+authPass, StatusUserLoggedIn)
	sendAndCheck(t, raw, "PROT E", StatusProtLevelNotSupported)
}

func TestProtCAndPAreAccepted(t *testing.T) {
	raw := newClientWithRawConn(t)
	sendAndCheck(t, raw, "USER "+authUser, StatusUserOK)
	sendAndCheck(t, raw, "PASS "+authPass, StatusUserLoggedIn)
	sendAndCheck(t, raw, "PROT C", StatusOK)
	sendAndCheck(t, raw, "PROT P", StatusOK)
}

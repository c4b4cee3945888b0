package ftpserver

import (
	"testing"

	"github.com/secsy/goftp"
	"github.com/stretchr/testify/require"
)

func TestLoginAndBasicNavigation(t *testing.T) {
	raw := newClientWithRawConn(t)

	sendAndCheck(t, raw, "PWD", StatusPathCreated)
	sendAndCheck(t, raw, "MKD /dir1", StatusPathCreated)
	sendAndCheck(t, raw, "CWD /dir1", StatusFileOK)
	sendAndCheck(t, raw, "PWD", StatusPathCreated)
	sendAndCheck(t, raw, "CDUP", StatusFileOK)
	sendAndCheck(t, raw, "RMD /dir1", StatusFileOK)
	sendAndCheck(t, raw, "CWD /dir1", StatusFileActionNotTaken)
}

func TestBadLogin(t *testing.T) {
	server := NewTestServer(t, false)

	conf := goftp.Config{User: authUser, Password: authPass + "_wrong"}

	client, err := goftp.DialConfig(conf, server.Addr())
	require.NoError(t, err, "couldn't connect")

	t.Cleanup(func() { require.NoError(t, client.Close()) })

	_, err = client.OpenRawConn()
	require.Error(t, err, "login with a wrong password must fail")
}

func TestFeatAndSyst(t *testing.T) {
	raw := newClientWithRawConn(t)

	sendAndCheck(t, raw, "FEAT", StatusSystemStatus)
	sendAndCheck(t, raw, "SYST", StatusSystemType)
	sendAndCheck(t, raw, "TYPE I", StatusOK)
	sendAndCheck(t, raw, "NOOP", StatusOK)
}

func TestRenameFlow(t *testing.T) {
	raw := newClientWithRawConn(t)

	sendAndCheck(t, raw, "MKD /src", StatusPathCreated)
	sendAndCheck(t, raw, "RNFR /src", StatusFileActionPending)
	sendAndCheck(t, raw, "RNTO /dst", StatusFileOK)
	sendAndCheck(t, raw, "CWD /dst", StatusFileOK)
}

func TestStopClosesListener(t *testing.T) {
	server := NewTestServer(t, false)

	require.NoError(t, server.Stop())
	require.NoError(t, server.Stop(), "Stop must be idempotent")
}

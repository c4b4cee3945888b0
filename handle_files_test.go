package ftpserver

import (
	"bytes"
	"testing"

	"github.com/secsy/goftp"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *goftp.Client {
	t.Helper()

	server := NewTestServer(t, false)
	conf := goftp.Config{User: authUser, Password: authPass}

	client, err := goftp.DialConfig(conf, server.Addr())
	require.NoError(t, err, "couldn't connect")

	t.Cleanup(func() { require.NoError(t, client.Close()) })

	return client
}

func TestStoreThenRetrieveRoundTrips(t *testing.T) {
	client := newTestClient(t)

	data := []byte("hello, object store")

	require.NoError(t, client.Store("greeting.txt", bytes.NewReader(data)))

	buf := &bytes.Buffer{}
	require.NoError(t, client.Retrieve("greeting.txt", buf))
	require.Equal(t, data, buf.Bytes())
}

func TestRetrieveMissingFileFails(t *testing.T) {
	client := newTestClient(t)

	buf := &bytes.Buffer{}
	err := client.Retrieve("does-not-exist.txt", buf)
	require.Error(t, err)
}

func TestRestAcknowledgesOffset(t *testing.T) {
	client := newTestClient(t)

	data := []byte("0123456789")
	require.NoError(t, client.Store("resumable.bin", bytes.NewReader(data)))

	raw := newClientWithRawConn(t)
	sendAndCheck(t, raw, "REST 5", StatusFileActionPending)
}

func TestAborWithNoActiveTransferReportsAborted(t *testing.T) {
	raw := newClientWithRawConn(t)
	sendAndCheck(t, raw, "ABOR", StatusTransferAborted)
}

func TestAlloIsAcceptedAsNoop(t *testing.T) {
	raw := newClientWithRawConn(t)
	sendAndCheck(t, raw, "ALLO 1024", StatusNotImplemented)
}

func TestRestRejectsNonNumericOffset(t *testing.T) {
	raw := newClientWithRawConn(t)
	sendAndCheck(t, raw, "REST abc", StatusActionNotTaken)
}

func TestSizeReportsUploadedFileLength(t *testing.T) {
	client := newTestClient(t)

	data := []byte("twelve bytes")
	require.NoError(t, client.Store("sized.bin", bytes.NewReader(data)))

	raw, err := client.OpenRawConn()
	require.NoError(t, err, "couldn't open raw connection")
	t.Cleanup(func() { require.NoError(t, raw.Close()) })

	code, msg, err := raw.SendCommand("SIZE sized.bin")
	require.NoError(t, err)
	require.Equal(t, StatusFileStatus, code)
	require.Equal(t, "12", msg)
}

func TestSizeOfMissingFileFails(t *testing.T) {
	raw := newClientWithRawConn(t)
	sendAndCheck(t, raw, "SIZE nope.bin", StatusFileActionNotTaken)
}

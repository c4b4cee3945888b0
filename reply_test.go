package ftpserver

import (
	"bufio"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func newPipedReplyWriter(t *testing.T) (*replyWriter, *bufio.Reader) {
	t.Helper()

	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})

	return newReplyWriter(server), bufio.NewReader(client)
}

func TestWriteMessageSingleLine(t *testing.T) {
	w, r := newPipedReplyWriter(t)

	go func() { _ = w.writeMessage(StatusOK, "all good") }()

	line, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "200 all good\r\n", line)
}

func TestWriteMessageMultiLineUsesContinuationSyntax(t *testing.T) {
	w, r := newPipedReplyWriter(t)

	go func() { _ = w.writeMessage(StatusSystemStatus, "first\nsecond\nthird") }()

	first, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "211-first\r\n", first)

	second, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "211-second\r\n", second)

	third, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "211 third\r\n", third)
}

func TestWriteMessageFillsDefaultForEmptyMessage(t *testing.T) {
	w, r := newPipedReplyWriter(t)

	go func() { _ = w.writeMessage(StatusOK, "") }()

	line, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "200 Command okay\r\n", line)
}

func TestWriteReplyRawSkipsCodePrefix(t *testing.T) {
	w, r := newPipedReplyWriter(t)

	go func() { _, _ = w.writeReply(StatusOK, []string{"raw line"}, replyOptions{raw: true}) }()

	line, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "raw line\r\n", line)
}

func TestSplitMessageLines(t *testing.T) {
	require.Nil(t, splitMessageLines(""))
	require.Equal(t, []string{"a", "b"}, splitMessageLines("a\nb\n"))
	require.Equal(t, []string{"solo"}, splitMessageLines("solo"))
}

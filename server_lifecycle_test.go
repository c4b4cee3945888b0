package ftpserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStopWithoutListenReturnsErrNotListening(t *testing.T) {
	server := NewFtpServer(&testMainDriver{settings: &Settings{}})

	err := server.Stop()
	require.ErrorIs(t, err, ErrNotListening)
}

func TestLoadSettingsFillsInDefaults(t *testing.T) {
	server := NewFtpServer(&testMainDriver{settings: &Settings{}})

	require.NoError(t, server.loadSettings())

	require.Equal(t, "0.0.0.0:2121", server.settings.ListenAddr)
	require.Equal(t, 900*time.Second, server.settings.IdleTimeout)
	require.Equal(t, 30*time.Second, server.settings.ConnectionTimeout)
	require.Equal(t, "ls", server.settings.ListFormat)
	require.Equal(t, 30, server.settings.ConnectRateLimit.Limit)
	require.Equal(t, 300, server.settings.CommandRateLimit.Limit)
}

func TestAddrIsEmptyBeforeListen(t *testing.T) {
	server := NewFtpServer(&testMainDriver{settings: &Settings{}})
	require.Equal(t, "", server.Addr())
}

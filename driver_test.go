package ftpserver

import (
	"crypto/tls"
	"io"
	"os"
	"testing"

	gklog "github.com/go-kit/kit/log"
	"github.com/stretchr/testify/require"

	"github.com/bucketftp/ftpserver/log/gokit"
	"github.com/bucketftp/ftpserver/memfs"
)

const (
	authUser = "test"
	authPass = "test"
)

// NewTestServer spins up a server on 127.0.0.1:0, scoped to a fresh temp
// directory served by memfs, authenticating exactly one user/pass pair.
func NewTestServer(t *testing.T, debug bool) *FtpServer {
	t.Helper()

	return NewTestServerWithSettings(t, debug, &Settings{})
}

// NewTestServerWithSettings lets a test override specific Settings fields
// while still getting the default listen address and memfs-backed driver.
func NewTestServerWithSettings(t *testing.T, debug bool, settings *Settings) *FtpServer {
	t.Helper()

	if settings.ListenAddr == "" {
		settings.ListenAddr = "127.0.0.1:0"
	}

	fs, err := memfs.New(t.TempDir())
	require.NoError(t, err, "couldn't create memfs root")

	driver := &testMainDriver{settings: settings, fs: fs}

	s := NewFtpServer(driver)

	if debug {
		s.Logger = gokit.NewGKLogger(gklog.NewLogfmtLogger(gklog.NewSyncWriter(os.Stdout))).With(
			"ts", gklog.DefaultTimestampUTC,
			"caller", gklog.DefaultCaller,
		)
	}

	t.Cleanup(func() { mustStopServer(t, s) })

	require.NoError(t, s.Listen(), "couldn't listen")

	go func() {
		if err := s.Serve(); err != nil && err != io.EOF {
			s.Logger.Error("problem serving", "err", err)
		}
	}()

	return s
}

func mustStopServer(t *testing.T, server *FtpServer) {
	t.Helper()
	require.NoError(t, server.Stop())
}

// testMainDriver is a minimal MainDriver: one hardcoded user, a single
// memfs-backed VirtualFileSystem shared across sessions (tests never need
// per-session isolation), and no TLS config.
type testMainDriver struct {
	settings *Settings
	fs       *memfs.FileSystem
}

func (d *testMainDriver) GetSettings() (*Settings, error) {
	return d.settings, nil
}

func (d *testMainDriver) ClientConnected(_ *Session) (string, error) {
	return "TEST Server", nil
}

func (d *testMainDriver) ClientDisconnected(_ *Session) {}

func (d *testMainDriver) AuthUser(_ *Session, user, pass string) (LoginGrant, error) {
	if user != authUser || pass != authPass {
		return LoginGrant{}, newAuthError("bad username or password", nil)
	}

	return LoginGrant{FS: d.fs, Root: "test", Cwd: "/"}, nil
}

func (d *testMainDriver) GetTLSConfig() (*tls.Config, error) {
	return nil, nil
}

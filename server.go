// Package ftpserver provides the control-connection protocol engine, the
// data-channel subsystem and the virtual filesystem contract for an FTP
// server whose storage backend is an object store reachable over HTTP.
package ftpserver

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/fclairamb/go-log"
	lognoop "github.com/fclairamb/go-log/noop"
)

// ErrNotListening is returned when we are performing an action that is only
// valid while listening.
var ErrNotListening = errors.New("we aren't listening")

// FtpServer is the C11 front-end: it owns the listener, the process-global
// passive-port allocator and connect-rate limiter, and the registry of live
// sessions.
type FtpServer struct {
	Logger   log.Logger
	settings *Settings
	listener net.Listener
	driver   MainDriver

	pasvAllocator *passivePortAllocator
	connectLimit  *connectRateLimiter

	sessionsMu sync.Mutex
	sessions   map[string]*Session
	counter    uint64
}

// NewFtpServer creates a new FtpServer instance around the given driver.
func NewFtpServer(driver MainDriver) *FtpServer {
	return &FtpServer{
		driver:        driver,
		Logger:        lognoop.NewNoOpLogger(),
		pasvAllocator: newPassivePortAllocator(),
		sessions:      make(map[string]*Session),
	}
}

func (server *FtpServer) loadSettings() error {
	settings, err := server.driver.GetSettings()
	if err != nil || settings == nil {
		return NewDriverError("couldn't load settings", err)
	}

	if settings.Listener == nil && settings.ListenAddr == "" {
		settings.ListenAddr = "0.0.0.0:2121"
	}

	if settings.IdleTimeout == 0 {
		settings.IdleTimeout = 900 * time.Second
	}

	if settings.ConnectionTimeout == 0 {
		settings.ConnectionTimeout = 30 * time.Second
	}

	if settings.PassiveIdleTimeout == 0 {
		settings.PassiveIdleTimeout = defaultPassiveIdleTimeout
	}

	if settings.PassiveAttempts == 0 {
		settings.PassiveAttempts = defaultPassiveAttempts
	}

	if settings.Banner == "" {
		settings.Banner = "objectftpd - object store FTP gateway"
	}

	if settings.ListFormat == "" {
		settings.ListFormat = "ls"
	}

	if settings.ConnectRateLimit.Limit == 0 && settings.ConnectRateLimit.Window == 0 {
		settings.ConnectRateLimit = RateLimitConfig{Limit: 30, Window: 60 * time.Second}
	}

	if settings.CommandRateLimit.Limit == 0 && settings.CommandRateLimit.Window == 0 {
		settings.CommandRateLimit = RateLimitConfig{Limit: 300, Window: 60 * time.Second}
	}

	server.settings = settings
	server.connectLimit = newConnectRateLimiter(settings.ConnectRateLimit)

	return nil
}

// Listen starts listening. It is not a blocking call.
func (server *FtpServer) Listen() error {
	if err := server.loadSettings(); err != nil {
		return fmt.Errorf("could not load settings: %w", err)
	}

	if server.settings.Listener != nil {
		server.listener = server.settings.Listener
	} else {
		listener, err := server.createListener()
		if err != nil {
			return fmt.Errorf("could not create listener: %w", err)
		}

		server.listener = listener
	}

	server.Logger.Info("listening", "address", server.listener.Addr())

	return nil
}

func (server *FtpServer) createListener() (net.Listener, error) {
	listener, err := net.Listen("tcp", server.settings.ListenAddr)
	if err != nil {
		return nil, newConnectionError("cannot listen on main port", err)
	}

	if server.settings.TLSRequired == ImplicitEncryption {
		tlsConfig, err := server.driver.GetTLSConfig()
		if err != nil || tlsConfig == nil {
			return nil, NewDriverError("cannot get TLS config", err)
		}

		listener = tls.NewListener(listener, tlsConfig)
	}

	return listener, nil
}

// Serve accepts and dispatches incoming clients until the listener is closed.
func (server *FtpServer) Serve() error {
	var tempDelay time.Duration

	for {
		conn, err := server.listener.Accept()
		if err != nil {
			if stop, finalErr := server.handleAcceptError(err, &tempDelay); stop {
				return finalErr
			}

			continue
		}

		tempDelay = 0

		server.clientArrival(conn)
	}
}

func (server *FtpServer) handleAcceptError(err error, tempDelay *time.Duration) (bool, error) {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Err.Error() == "use of closed network connection" {
		return true, nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		if *tempDelay == 0 {
			*tempDelay = 5 * time.Millisecond
		} else {
			*tempDelay *= 2
		}

		if max := 1 * time.Second; *tempDelay > max {
			*tempDelay = max
		}

		server.Logger.Warn("accept error, retrying", "err", err, "delay", *tempDelay)
		time.Sleep(*tempDelay)

		return false, nil
	}

	server.Logger.Error("listener accept error", "err", err)

	return true, newConnectionError("listener accept error", err)
}

// ListenAndServe chains Listen and Serve.
func (server *FtpServer) ListenAndServe() error {
	if err := server.Listen(); err != nil {
		return err
	}

	server.Logger.Info("starting")

	if server.settings.EndOnProcessSignal {
		go server.waitForSignal()
	}

	return server.Serve()
}

func (server *FtpServer) waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	<-sig

	server.Logger.Info("received stop signal, closing listener")

	if err := server.Stop(); err != nil {
		server.Logger.Warn("error while stopping on signal", "err", err)
	}
}

// Addr reports the listening address.
func (server *FtpServer) Addr() string {
	if server.listener != nil {
		return server.listener.Addr().String()
	}

	return ""
}

// Stop closes the listener and every live session's control connection.
func (server *FtpServer) Stop() error {
	if server.listener == nil {
		return ErrNotListening
	}

	err := server.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		// already stopped: a repeated Stop is a no-op
		err = nil
	}

	server.sessionsMu.Lock()
	sessions := make([]*Session, 0, len(server.sessions))

	for _, s := range server.sessions {
		sessions = append(sessions, s)
	}

	server.sessionsMu.Unlock()

	for _, s := range sessions {
		_ = s.controlConn.Close()
	}

	if err != nil {
		return newConnectionError("could not close listener", err)
	}

	return nil
}

func (server *FtpServer) clientArrival(conn net.Conn) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err == nil && !server.connectLimit.Allow(host) {
		server.Logger.Warn("connect rate limit exceeded", "remote", conn.RemoteAddr())
		_, _ = conn.Write([]byte(fmt.Sprintf("%d Too many connections, try again later\r\n", StatusServiceNotAvailable)))
		_ = conn.Close()

		return
	}

	server.counter++
	id := newSessionID()

	c := newSession(server, conn, id)

	server.sessionsMu.Lock()
	server.sessions[id] = c
	server.sessionsMu.Unlock()

	go c.HandleCommands()

	server.Logger.Debug("client connected", "remote", conn.RemoteAddr(), "sessionId", id)
}

// sessionDeparture removes a session from the registry once its control
// connection is gone.
func (server *FtpServer) sessionDeparture(c *Session) {
	server.sessionsMu.Lock()
	delete(server.sessions, c.id)
	server.sessionsMu.Unlock()

	server.Logger.Debug("client disconnected", "remote", c.controlConn.RemoteAddr(), "sessionId", c.id)
}

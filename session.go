package ftpserver

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	log "github.com/fclairamb/go-log"
	"github.com/google/uuid"
)

// sessionState is the state machine of §4.5.
type sessionState int

const (
	stateGreeting sessionState = iota
	stateUnauthenticated
	stateNeedPass
	stateAuthenticated
	stateTransferPending
	stateClosing
)

// Session owns everything a single control connection needs: C8 of the
// design, it drives C6/C7 (the connector), C9 (the virtual filesystem) and
// is the receiver for every command handler in handle_*.go.
//
//nolint:maligned
type Session struct {
	id          string
	server      *FtpServer
	controlConn net.Conn
	reader      *bufio.Reader
	reply       *replyWriter
	logger      log.Logger

	paramsMutex sync.RWMutex
	state       sessionState
	user        string
	authenticated bool
	cwd         string
	encoding    string // "utf8" or "ascii"
	listFormat  string // "ls", "ep" or "mlsd"
	mlstFacts   map[string]bool
	transferType TransferType
	restOffset  int64
	renameFrom  string
	controlTLS  bool
	transferTLS bool
	protBufSize int
	lastCommand string
	lastFlags   []string
	blacklist   map[string]bool
	whitelist   map[string]bool

	transferMu sync.Mutex
	transfer   connector

	fs VirtualFileSystem

	cmdLimiter *sessionRateLimiter

	ctx    context.Context
	cancel context.CancelFunc
}

// newSession constructs a session around an accepted socket.
func newSession(server *FtpServer, conn net.Conn, id string) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		id:           id,
		server:       server,
		controlConn:  conn,
		ctx:          ctx,
		cancel:       cancel,
		reader:       bufio.NewReader(conn),
		reply:        newReplyWriter(conn),
		logger:       server.Logger.With("sessionId", id),
		state:        stateGreeting,
		cwd:          "/",
		encoding:     "utf8",
		listFormat:   server.settings.ListFormat,
		transferType: server.settings.DefaultTransferType,
		cmdLimiter:   newSessionRateLimiter(server.settings.CommandRateLimit),
	}
}

// HandleCommands is the per-session read-dispatch loop (the accept loop's
// per-connection task).
func (c *Session) HandleCommands() {
	defer c.end()

	banner, err := c.server.driver.ClientConnected(c)
	if err != nil {
		c.writeMessage(StatusSyntaxErrorNotRecognised, banner)

		return
	}

	greeting := c.server.settings.Banner
	if banner != "" {
		greeting = strings.TrimRight(greeting, "\n") + "\n" + banner
	}

	c.writeMessage(StatusServiceReady, greeting)
	c.setState(stateUnauthenticated)

	for {
		if c.server.settings.IdleTimeout > 0 {
			if err := c.controlConn.SetDeadline(time.Now().Add(c.server.settings.IdleTimeout)); err != nil {
				c.logger.Error("could not set idle deadline", "err", err)
			}
		}

		line, err := c.reader.ReadString('\n')
		if err != nil {
			c.handleStreamError(err)

			return
		}

		if c.dispatch(line) {
			return
		}
	}
}

func (c *Session) handleStreamError(err error) {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		c.writeMessage(StatusServiceNotAvailable, fmt.Sprintf("command timeout (%s): closing control connection", c.server.settings.IdleTimeout))

		return
	}

	if errors.Is(err, io.EOF) {
		c.logger.Debug("client disconnected")

		return
	}

	c.logger.Error("read error", "err", err)
}

// dispatch runs one command through C2/C3/C4 and the handler; it returns
// true when the session must terminate (QUIT, rate-limited, fatal error).
func (c *Session) dispatch(line string) bool {
	cmd, err := parseCommand(line)
	if err != nil {
		c.writeMessage(StatusSyntaxErrorNotRecognised, err.Error())

		return false
	}

	if !c.cmdLimiter.Allow() {
		c.writeMessage(StatusServiceNotAvailable, "Too many commands")

		return true
	}

	desc, ok := lookupCommand(cmd.Directive)
	if !ok {
		c.writeMessage(StatusCommandNotImplemented, fmt.Sprintf("Command not allowed: %s", cmd.Directive))
		c.setLastCommand(cmd.Directive)

		return false
	}

	if c.isBlacklisted(cmd.Directive) || c.isNotWhitelisted(cmd.Directive) {
		c.writeMessage(StatusCommandNotImplemented, fmt.Sprintf("Command not allowed: %s", cmd.Directive))
		c.setLastCommand(cmd.Directive)

		return false
	}

	if !desc.NoAuth && !c.isAuthenticated() {
		c.writeMessage(StatusNotLoggedIn, "Please login with USER and PASS")
		c.setLastCommand(cmd.Directive)

		return false
	}

	c.paramsMutex.Lock()
	c.lastFlags = cmd.Flags
	c.paramsMutex.Unlock()

	terminate := c.invokeHandler(desc, cmd)
	c.setLastCommand(cmd.Directive)

	return terminate
}

func (c *Session) invokeHandler(desc *commandDescriptor, cmd Command) (terminate bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panic recovered", "recover", r, "directive", cmd.Directive)
			c.writeMessage(StatusLocalError, "Internal error")
		}
	}()

	if err := desc.Handler(c, cmd.Argument); err != nil {
		code, msg := errorToReply(err, StatusFileActionNotTaken)
		c.logger.Error("handler error", "directive", cmd.Directive, "err", err)
		c.writeMessage(code, msg)

		var connErr *ConnectionError

		var rateErr *RateLimitExceeded

		if errors.As(err, &connErr) || errors.As(err, &rateErr) {
			return true
		}
	}

	return cmd.Directive == "QUIT"
}

func (c *Session) end() {
	c.cancel()
	c.server.driver.ClientDisconnected(c)
	c.server.sessionDeparture(c)

	c.transferMu.Lock()
	defer c.transferMu.Unlock()

	if c.transfer != nil {
		c.transfer.end()
		c.transfer = nil
	}

	_ = c.controlConn.Close()
}

func (c *Session) setConnector(conn connector) {
	c.transferMu.Lock()
	defer c.transferMu.Unlock()

	if c.transfer != nil {
		c.transfer.end()
	}

	c.transfer = conn
}

func (c *Session) endConnector() {
	c.transferMu.Lock()
	defer c.transferMu.Unlock()

	if c.transfer != nil {
		c.transfer.end()
		c.transfer = nil
	}
}

func (c *Session) waitForConnection(timeout time.Duration) (net.Conn, error) {
	c.transferMu.Lock()
	t := c.transfer
	c.transferMu.Unlock()

	if t == nil {
		return nil, newTransferError(StatusCannotOpenDataConnection, "No connection established", nil)
	}

	return t.waitForConnection(timeout)
}

// writeMessage writes a reply, logging (but not retrying) any write failure;
// per §7 policy a failed reply write is never retried: the control
// connection is closed, which ends the session's read loop.
func (c *Session) writeMessage(code int, message string) {
	if err := c.reply.writeMessage(code, message); err != nil {
		c.logger.Error("failed to write reply", "err", err)
		_ = c.controlConn.Close()
	}
}

func (c *Session) writeLines(code int, lines []string) {
	if _, err := c.reply.writeReply(code, lines, replyOptions{}); err != nil {
		c.logger.Error("failed to write reply", "err", err)
		_ = c.controlConn.Close()
	}
}

func (c *Session) upgradeControlTLS() error {
	tlsConfig, err := c.server.driver.GetTLSConfig()
	if err != nil {
		return fmt.Errorf("cannot get TLS config: %w", err)
	}

	tlsConn := tls.Server(c.controlConn, tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		return fmt.Errorf("TLS handshake failed: %w", err)
	}

	c.controlConn = tlsConn
	c.reader = bufio.NewReader(tlsConn)
	c.reply.resetWriter(tlsConn)
	c.setControlTLS(true)

	return nil
}

// --- accessors (kept thread-safe to mirror the teacher's paramsMutex pattern) ---

func (c *Session) setState(s sessionState) {
	c.paramsMutex.Lock()
	c.state = s
	c.paramsMutex.Unlock()
}

func (c *Session) getState() sessionState {
	c.paramsMutex.RLock()
	defer c.paramsMutex.RUnlock()

	return c.state
}

func (c *Session) isAuthenticated() bool {
	c.paramsMutex.RLock()
	defer c.paramsMutex.RUnlock()

	return c.authenticated
}

func (c *Session) setAuthenticated(v bool) {
	c.paramsMutex.Lock()
	c.authenticated = v
	c.paramsMutex.Unlock()
}

func (c *Session) setLastCommand(cmd string) {
	c.paramsMutex.Lock()
	c.lastCommand = cmd
	c.paramsMutex.Unlock()
}

func (c *Session) GetLastCommand() string {
	c.paramsMutex.RLock()
	defer c.paramsMutex.RUnlock()

	return c.lastCommand
}

func (c *Session) Path() string {
	c.paramsMutex.RLock()
	defer c.paramsMutex.RUnlock()

	return c.cwd
}

func (c *Session) setPath(p string) {
	c.paramsMutex.Lock()
	c.cwd = p
	c.paramsMutex.Unlock()
}

func (c *Session) setControlTLS(v bool) {
	c.paramsMutex.Lock()
	c.controlTLS = v
	c.paramsMutex.Unlock()
}

func (c *Session) HasTLSForControl() bool {
	if c.server.settings.TLSRequired == ImplicitEncryption {
		return true
	}

	c.paramsMutex.RLock()
	defer c.paramsMutex.RUnlock()

	return c.controlTLS
}

func (c *Session) setTLSForTransfer(v bool) {
	c.paramsMutex.Lock()
	c.transferTLS = v
	c.paramsMutex.Unlock()
}

func (c *Session) HasTLSForTransfers() bool {
	if c.server.settings.TLSRequired == ImplicitEncryption {
		return true
	}

	c.paramsMutex.RLock()
	defer c.paramsMutex.RUnlock()

	return c.transferTLS
}

func (c *Session) getListFormat() string {
	c.paramsMutex.RLock()
	defer c.paramsMutex.RUnlock()

	return c.listFormat
}

func (c *Session) hasFlag(flag string) bool {
	c.paramsMutex.RLock()
	defer c.paramsMutex.RUnlock()

	for _, f := range c.lastFlags {
		if f == flag {
			return true
		}
	}

	return false
}

func (c *Session) isBlacklisted(directive string) bool {
	c.paramsMutex.RLock()
	defer c.paramsMutex.RUnlock()

	return c.blacklist[directive]
}

func (c *Session) isNotWhitelisted(directive string) bool {
	c.paramsMutex.RLock()
	defer c.paramsMutex.RUnlock()

	if len(c.whitelist) == 0 {
		return false
	}

	return !c.whitelist[directive]
}

// ID returns the session's unique identifier.
func (c *Session) ID() string {
	return c.id
}

// RemoteAddr returns the client's network address.
func (c *Session) RemoteAddr() net.Addr {
	return c.controlConn.RemoteAddr()
}

// LocalAddr returns the server-side network address.
func (c *Session) LocalAddr() net.Addr {
	return c.controlConn.LocalAddr()
}

// newSessionID returns a random 16-hex-character session id (spec §3),
// taken from the low 8 bytes of a fresh UUIDv4 rather than hand-rolled
// crypto/rand hex encoding.
func newSessionID() string {
	id := uuid.New()

	return hex.EncodeToString(id[8:])
}

package ftpserver

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// activeConnector implements C6: the server dials out to a client-supplied
// endpoint.
type activeConnector struct {
	raddr     *net.TCPAddr
	conn      net.Conn
	settings  *Settings
	tlsConfig *tls.Config
	info      string
}

func (a *activeConnector) waitForConnection(timeout time.Duration) (net.Conn, error) {
	if a.conn != nil {
		return a.conn, nil
	}

	dialer := &net.Dialer{Timeout: timeout}

	if !a.settings.ActiveTransferPortNon20 {
		dialer.LocalAddr, _ = net.ResolveTCPAddr("tcp", ":20")
	}

	conn, err := dialer.Dial("tcp", a.raddr.String())
	if err != nil {
		return nil, newTransferError(StatusCannotOpenDataConnection, "No connection established", err)
	}

	if a.tlsConfig != nil {
		conn = tls.Server(conn, a.tlsConfig)
	}

	a.conn = conn

	return conn, nil
}

func (a *activeConnector) end() {
	if a.conn != nil {
		_ = a.conn.Close()
	}
}

func (a *activeConnector) setInfo(info string) { a.info = info }
func (a *activeConnector) getInfo() string     { return a.info }

// ErrRemoteAddrFormat is returned when a PORT/EPRT address cannot be parsed.
var ErrRemoteAddrFormat = errors.New("remote address has a bad format")

var remoteAddrRegex = regexp.MustCompile(`^([0-9]{1,3},){5}[0-9]{1,3}$`)

// parseRemoteAddr parses "h1,h2,h3,h4,p1,p2" per RFC 959.
func parseRemoteAddr(param string) (*net.TCPAddr, error) {
	if !remoteAddrRegex.MatchString(param) {
		return nil, fmt.Errorf("could not parse %q: %w", param, ErrRemoteAddrFormat)
	}

	parts := strings.Split(param, ",")
	ip := strings.Join(parts[0:4], ".")

	p1, err := strconv.Atoi(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w", ErrRemoteAddrFormat)
	}

	p2, err := strconv.Atoi(parts[5])
	if err != nil {
		return nil, fmt.Errorf("%w", ErrRemoteAddrFormat)
	}

	port := p1<<8 + p2

	return net.ResolveTCPAddr("tcp", fmt.Sprintf("%s:%d", ip, port))
}

// parseExtendedAddr parses "|proto|addr|port|" per RFC 2428. proto 1 is
// IPv4, 2 is IPv6; any other value is rejected by the caller with 522.
func parseExtendedAddr(param string) (proto int, addr *net.TCPAddr, err error) {
	fields := strings.Split(strings.Trim(param, "|"), "|")
	if len(fields) != 3 {
		return 0, nil, fmt.Errorf("%w: %q", ErrRemoteAddrFormat, param)
	}

	proto, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, nil, fmt.Errorf("%w", ErrRemoteAddrFormat)
	}

	port, err := strconv.Atoi(fields[2])
	if err != nil {
		return 0, nil, fmt.Errorf("%w", ErrRemoteAddrFormat)
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(fields[1], strconv.Itoa(port)))
	if err != nil {
		return 0, nil, fmt.Errorf("could not resolve %q: %w", param, err)
	}

	return proto, tcpAddr, nil
}

func (c *Session) handlePORT(param string) error {
	if c.server.settings.DisableActiveMode {
		c.writeMessage(StatusServiceNotAvailable, "PORT command is disabled")

		return nil
	}

	raddr, err := parseRemoteAddr(param)
	if err != nil {
		c.writeMessage(StatusSyntaxErrorNotRecognised, fmt.Sprintf("Problem parsing PORT: %v", err))

		return nil
	}

	return c.setupActive(raddr)
}

func (c *Session) handleEPRT(param string) error {
	if c.server.settings.DisableActiveMode {
		c.writeMessage(StatusServiceNotAvailable, "EPRT command is disabled")

		return nil
	}

	proto, raddr, err := parseExtendedAddr(param)
	if err != nil {
		c.writeMessage(StatusSyntaxErrorNotRecognised, fmt.Sprintf("Problem parsing EPRT: %v", err))

		return nil
	}

	if proto != 1 && proto != 2 {
		c.writeMessage(StatusNetworkProtocolNotSupported, fmt.Sprintf("Unknown network protocol %d", proto))

		return nil
	}

	return c.setupActive(raddr)
}

func (c *Session) setupActive(raddr *net.TCPAddr) error {
	if !peerAddressesMatch(c.controlConn.RemoteAddr(), raddr) {
		c.writeMessage(StatusSyntaxErrorNotRecognised, "Active address does not match control connection peer")

		return nil
	}

	var tlsConfig *tls.Config

	if c.secureForTransfers() {
		var err error

		tlsConfig, err = c.server.driver.GetTLSConfig()
		if err != nil {
			c.writeMessage(StatusServiceNotAvailable, fmt.Sprintf("Cannot get a TLS config for active connection: %v", err))

			return nil
		}
	}

	c.writeMessage(StatusOK, "PORT command successful")
	c.setConnector(&activeConnector{raddr: raddr, settings: c.server.settings, tlsConfig: tlsConfig})

	return nil
}

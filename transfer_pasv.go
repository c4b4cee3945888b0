package ftpserver

import (
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"
)

// connector is the tagged-union member for a session's current data channel
// (C6 active / C7 passive), per the Design Notes' "current connector is a
// tagged enum swapped atomically at transition points" guidance.
type connector interface {
	// waitForConnection blocks until the data socket is established or
	// timeout elapses.
	waitForConnection(timeout time.Duration) (net.Conn, error)
	// end tears down the connector: closes any listener and connection.
	end()
	setInfo(string)
	getInfo() string
}

// passiveConnector implements C7: the server listens on one allocated port
// and accepts exactly one inbound connection.
type passiveConnector struct {
	session     *Session
	allocator   *passivePortAllocator
	tcpListener *net.TCPListener
	listener    net.Listener
	port        int
	conn        atomic.Pointer[net.Conn]
	info        string
}

func newPassiveConnector(c *Session) (*passiveConnector, error) {
	settings := c.server.settings

	attempts := settings.PassiveAttempts
	if attempts <= 0 {
		attempts = defaultPassiveAttempts
	}

	tcpListener, port, err := c.server.pasvAllocator.Acquire(settings.PassiveTransferPortRange, attempts)
	if err != nil {
		return nil, fmt.Errorf("could not listen for passive connection: %w", err)
	}

	var listener net.Listener = tcpListener

	if c.secureForTransfers() {
		tlsConfig, errTLS := c.server.driver.GetTLSConfig()
		if errTLS != nil {
			c.server.pasvAllocator.Release(port)
			_ = tcpListener.Close()

			return nil, fmt.Errorf("cannot get a TLS config: %w", errTLS)
		}

		listener = tls.NewListener(tcpListener, tlsConfig)
	}

	p := &passiveConnector{
		session:     c,
		allocator:   c.server.pasvAllocator,
		tcpListener: tcpListener,
		listener:    listener,
		port:        port,
	}

	idleTimeout := settings.PassiveIdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = defaultPassiveIdleTimeout
	}

	go p.acceptOne(idleTimeout)

	return p, nil
}

const defaultPassiveIdleTimeout = 30 * time.Second

func (p *passiveConnector) acceptOne(idleTimeout time.Duration) {
	if err := p.tcpListener.SetDeadline(time.Now().Add(idleTimeout)); err != nil {
		return
	}

	conn, err := p.listener.Accept()
	if err != nil {
		return
	}

	if !p.validatePeer(conn) {
		_ = conn.Close()

		return
	}

	p.conn.Store(&conn)
}

// validatePeer enforces I5: the data-connection peer address, normalized,
// must equal the control-connection peer address, except a loopback control
// connection may legitimately see a non-loopback data connection rejected.
func (p *passiveConnector) validatePeer(conn net.Conn) bool {
	return peerAddressesMatch(p.session.controlConn.RemoteAddr(), conn.RemoteAddr())
}

func (p *passiveConnector) waitForConnection(timeout time.Duration) (net.Conn, error) {
	deadline := time.Now().Add(timeout)

	for {
		if conn := p.conn.Load(); conn != nil {
			return *conn, nil
		}

		if time.Now().After(deadline) {
			return nil, newTransferError(StatusCannotOpenDataConnection, "No connection established", nil)
		}

		time.Sleep(10 * time.Millisecond)
	}
}

func (p *passiveConnector) end() {
	if p.tcpListener != nil {
		_ = p.tcpListener.Close()
	}

	if conn := p.conn.Load(); conn != nil {
		_ = (*conn).Close()
	}

	p.allocator.Release(p.port)
}

func (p *passiveConnector) setInfo(info string) { p.info = info }
func (p *passiveConnector) getInfo() string     { return p.info }

// normalizeAddrHost strips the IPv4-in-IPv6 "::ffff:" prefix and lowercases
// the host part of a net.Addr's string form, per I5.
func normalizeAddrHost(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}

	host = strings.TrimPrefix(host, "::ffff:")

	return strings.ToLower(host)
}

func peerAddressesMatch(control, data net.Addr) bool {
	controlHost := normalizeAddrHost(control)
	dataHost := normalizeAddrHost(data)

	if controlHost == dataHost {
		return true
	}

	controlIP := net.ParseIP(controlHost)
	if controlIP != nil && controlIP.IsLoopback() {
		dataIP := net.ParseIP(dataHost)
		if dataIP == nil || !dataIP.IsLoopback() {
			return false
		}
	}

	return controlHost == dataHost
}

func (c *Session) secureForTransfers() bool {
	return c.transferTLS || c.server.settings.TLSRequired == ImplicitEncryption
}

func (c *Session) currentIPQuads() ([]string, error) {
	ip := c.server.settings.PublicHost

	if ip == "" {
		if c.server.settings.PublicIPResolver != nil {
			var err error

			ip, err = c.server.settings.PublicIPResolver(c)
			if err != nil {
				return nil, fmt.Errorf("couldn't fetch public IP: %w", err)
			}
		} else {
			ip = strings.Split(c.controlConn.LocalAddr().String(), ":")[0]
		}
	}

	return strings.Split(ip, "."), nil
}

func (c *Session) handlePASV(param string) error {
	return c.setupPassive(false)
}

func (c *Session) handleEPSV(param string) error {
	return c.setupPassive(true)
}

func (c *Session) setupPassive(extended bool) error {
	p, err := newPassiveConnector(c)
	if err != nil {
		c.writeMessage(StatusServiceNotAvailable, err.Error())

		return nil
	}

	if extended {
		c.writeMessage(StatusEnteringEPSV, fmt.Sprintf("Entering Extended Passive Mode (|||%d|)", p.port))
	} else {
		quads, errIP := c.currentIPQuads()
		if errIP != nil {
			p.end()
			c.writeMessage(StatusServiceNotAvailable, errIP.Error())

			return nil
		}

		p1 := p.port / 256
		p2 := p.port - p1*256
		c.writeMessage(StatusEnteringPASV,
			fmt.Sprintf("Entering Passive Mode (%s,%s,%s,%s,%d,%d)", quads[0], quads[1], quads[2], quads[3], p1, p2))
	}

	c.setConnector(p)

	return nil
}

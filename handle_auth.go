package ftpserver

import (
	"fmt"
	"strconv"
	"strings"
)

func (c *Session) handleUSER(param string) error {
	if param == "" {
		c.writeMessage(StatusSyntaxErrorParameters, "USER requires a username")

		return nil
	}

	c.paramsMutex.Lock()
	c.user = param
	c.authenticated = false
	c.paramsMutex.Unlock()

	c.setState(stateNeedPass)
	c.writeMessage(StatusUserOK, "OK")

	return nil
}

func (c *Session) handlePASS(param string) error {
	if c.getState() != stateNeedPass {
		c.writeMessage(StatusBadCommandSequence, "USER first")

		return nil
	}

	c.paramsMutex.RLock()
	user := c.user
	c.paramsMutex.RUnlock()

	grant, err := c.server.driver.AuthUser(c, user, param)
	if err != nil {
		c.setState(stateUnauthenticated)
		c.writeMessage(StatusNotLoggedIn, "Authentication failed")

		return nil //nolint:nilerr
	}

	c.paramsMutex.Lock()
	c.authenticated = true
	c.fs = grant.FS
	c.blacklist = toSet(grant.Blacklist)
	c.whitelist = toSet(grant.Whitelist)
	c.paramsMutex.Unlock()

	cwd := grant.Cwd
	if cwd == "" {
		cwd = "/"
	}

	c.setPath(cwd)
	c.setState(stateAuthenticated)
	c.writeMessage(StatusUserLoggedIn, "Logged in")

	return nil
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}

	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[strings.ToUpper(it)] = true
	}

	return set
}

func (c *Session) handleACCT(param string) error {
	c.writeMessage(StatusCommandNotImplemented, "ACCT is not implemented")

	return nil
}

func (c *Session) handleQUIT(param string) error {
	c.setState(stateClosing)
	c.writeMessage(StatusClosingControlConn, "Goodbye")

	return nil
}

func (c *Session) handleAUTH(param string) error {
	if strings.ToUpper(param) != "TLS" {
		return newSecurityError(StatusPolicyDenied, "Only AUTH TLS is supported")
	}

	c.writeMessage(StatusAuthAccepted, "AUTH TLS successful")

	if err := c.upgradeControlTLS(); err != nil {
		return newSecurityError(StatusSecurityCheckFailed, err.Error())
	}

	return nil
}

func (c *Session) handlePBSZ(param string) error {
	if !c.HasTLSForControl() {
		c.writeMessage(StatusNotImplemented, "PBSZ without TLS has no effect")

		return nil
	}

	size, err := strconv.Atoi(param)
	if err != nil {
		size = 0
	}

	c.paramsMutex.Lock()
	c.protBufSize = size
	c.paramsMutex.Unlock()

	c.writeMessage(StatusOK, "PBSZ=0")

	return nil
}

func (c *Session) handlePROT(param string) error {
	switch strings.ToUpper(param) {
	case "C":
		c.setTLSForTransfer(false)
		c.writeMessage(StatusOK, "PROT C successful")
	case "P":
		c.setTLSForTransfer(true)
		c.writeMessage(StatusOK, "PROT P successful")
	default:
		return newSecurityError(StatusProtLevelNotSupported, fmt.Sprintf("Unsupported PROT level %q", param))
	}

	return nil
}

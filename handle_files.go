package ftpserver

import (
	"fmt"
	"io"
	"strconv"
	"time"
)

func (c *Session) handleSTOR(param string) error {
	return c.transferFile(param, false)
}

func (c *Session) handleAPPE(param string) error {
	return c.transferFile(param, true)
}

func (c *Session) handleSTOU(param string) error {
	fs, err := c.requireFS()
	if err != nil {
		return err
	}

	unique := fs.GetUniqueName(param)

	return c.transferFile(unique, false)
}

// transferFile drives STOR/APPE/STOU per §4.7: wait for the data
// connection, pause the control socket implicitly (no other command is read
// until this returns), open the FS write stream, pipe, and always reset
// REST and tear the connector down.
func (c *Session) transferFile(param string, appendMode bool) error {
	fs, err := c.requireFS()
	if err != nil {
		return err
	}

	offset := c.takeRestOffset()

	defer c.endConnector()

	timeout := c.dataConnectionTimeout()

	conn, err := c.waitForConnection(timeout)
	if err != nil {
		return err
	}

	target := resolveVirtualPath(c.Path(), param)

	writer, err := fs.Write(c.ctx, target, WriteOptions{Append: appendMode, Start: offset})
	if err != nil {
		return newFileSystemError(err.Error(), err)
	}

	c.writeMessage(StatusFileStatusOK, "Opening data connection")

	_, copyErr := io.Copy(writer, conn)

	closeErr := writer.Close()

	if copyErr != nil {
		return newTransferError(StatusFileActionNotTaken, "Transfer failed", copyErr)
	}

	if closeErr != nil {
		return newTransferError(StatusFileActionNotTaken, "Transfer failed", closeErr)
	}

	c.writeMessage(StatusClosingDataConn, target)

	return nil
}

func (c *Session) handleRETR(param string) error {
	fs, err := c.requireFS()
	if err != nil {
		return err
	}

	target := resolveVirtualPath(c.Path(), param)

	entry, err := fs.Get(c.ctx, target)
	if err != nil {
		return newFileSystemError(err.Error(), err)
	}

	if entry.IsDir() {
		return newFileSystemError("Cannot retrieve a directory", nil)
	}

	offset := c.takeRestOffset()

	defer c.endConnector()

	timeout := c.dataConnectionTimeout()

	conn, err := c.waitForConnection(timeout)
	if err != nil {
		return err
	}

	reader, err := fs.Read(c.ctx, target, offset)
	if err != nil {
		return newFileSystemError(err.Error(), err)
	}

	defer reader.Close()

	c.writeMessage(StatusFileStatusOK, "Opening data connection")

	if _, err := io.Copy(conn, reader); err != nil {
		return newTransferError(StatusFileActionNotTaken, "Transfer failed", err)
	}

	c.writeMessage(StatusClosingDataConn, target)

	return nil
}

func (c *Session) dataConnectionTimeout() time.Duration {
	timeout := c.server.settings.ConnectionTimeout
	if timeout <= 0 {
		timeout = defaultDataConnectionTimeout
	}

	return timeout
}

func (c *Session) takeRestOffset() int64 {
	c.paramsMutex.Lock()
	defer c.paramsMutex.Unlock()

	offset := c.restOffset
	c.restOffset = 0

	return offset
}

func (c *Session) handleREST(param string) error {
	n, err := strconv.ParseInt(param, 10, 64)
	if err != nil || n < 0 {
		c.writeMessage(StatusActionNotTaken, fmt.Sprintf("Couldn't parse offset: %q", param))

		return nil
	}

	c.paramsMutex.Lock()
	c.restOffset = n
	c.paramsMutex.Unlock()

	c.writeMessage(StatusFileActionPending, fmt.Sprintf("Restarting next transfer at %d", n))

	return nil
}

func (c *Session) handleABOR(param string) error {
	c.transferMu.Lock()
	t := c.transfer
	c.transferMu.Unlock()

	if t == nil {
		c.writeMessage(StatusTransferAborted, "No transfer to abort")
		c.endConnector()

		return nil
	}

	if conn, err := t.waitForConnection(0); err == nil && conn != nil {
		_, _ = conn.Write([]byte(fmt.Sprintf("%d Connection closed; transfer aborted\r\n", StatusConnectionClosedAborted)))
	}

	c.endConnector()
	c.writeMessage(StatusClosingDataConn, "Closing data connection. Requested file action successful (file transfer aborted)")

	return nil
}

func (c *Session) handleALLO(param string) error {
	c.writeMessage(StatusNotImplemented, "ALLO command successful")

	return nil
}

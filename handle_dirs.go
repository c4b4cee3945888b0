package ftpserver

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

func (c *Session) requireFS() (VirtualFileSystem, error) {
	c.paramsMutex.RLock()
	fs := c.fs
	c.paramsMutex.RUnlock()

	if fs == nil {
		return nil, newFileSystemError("no filesystem attached", nil)
	}

	return fs, nil
}

func (c *Session) handleCWD(param string) error {
	fs, err := c.requireFS()
	if err != nil {
		return err
	}

	target := resolveVirtualPath(c.Path(), param)

	resolved, err := fs.Chdir(c.ctx, target)
	if err != nil {
		return newFileSystemError(err.Error(), err)
	}

	c.setPath(resolved)
	c.writeMessage(StatusFileOK, fmt.Sprintf(`"%s" is the current directory`, quotePath(resolved)))

	return nil
}

func (c *Session) handleCDUP(param string) error {
	return c.handleCWD("..")
}

func (c *Session) handlePWD(param string) error {
	c.writeMessage(StatusPathCreated, fmt.Sprintf(`"%s" is the current directory`, quotePath(c.Path())))

	return nil
}

func (c *Session) handleMKD(param string) error {
	fs, err := c.requireFS()
	if err != nil {
		return err
	}

	target := resolveVirtualPath(c.Path(), param)

	if err := fs.Mkdir(c.ctx, target); err != nil {
		return newFileSystemError(err.Error(), err)
	}

	c.writeMessage(StatusPathCreated, fmt.Sprintf(`"%s" created`, quotePath(target)))

	return nil
}

func (c *Session) handleDELE(param string) error {
	fs, err := c.requireFS()
	if err != nil {
		return err
	}

	target := resolveVirtualPath(c.Path(), param)

	if err := fs.Delete(c.ctx, target); err != nil {
		return newFileSystemError(err.Error(), err)
	}

	c.writeMessage(StatusFileOK, fmt.Sprintf("Deleted %s", target))

	return nil
}

func (c *Session) handleRNFR(param string) error {
	fs, err := c.requireFS()
	if err != nil {
		return err
	}

	target := resolveVirtualPath(c.Path(), param)

	if _, err := fs.Get(c.ctx, target); err != nil {
		return newFileSystemError(err.Error(), err)
	}

	c.paramsMutex.Lock()
	c.renameFrom = target
	c.paramsMutex.Unlock()

	c.writeMessage(StatusFileActionPending, "Ready for RNTO")

	return nil
}

func (c *Session) handleRNTO(param string) error {
	c.paramsMutex.Lock()
	from := c.renameFrom
	c.renameFrom = ""
	c.paramsMutex.Unlock()

	if from == "" {
		c.writeMessage(StatusBadCommandSequence, "RNFR required first")

		return nil
	}

	fs, err := c.requireFS()
	if err != nil {
		return err
	}

	to := resolveVirtualPath(c.Path(), param)

	if err := fs.Rename(c.ctx, from, to); err != nil {
		return newFileSystemError(err.Error(), err)
	}

	c.writeMessage(StatusFileOK, fmt.Sprintf("Renamed %s to %s", from, to))

	return nil
}

// listArgPath strips leading ls-style flags (-a, -l, -al, ...) from a LIST
// argument so the remainder, if any, is a target path.
func listArgPath(param string) (path string, showHidden bool) {
	fields := strings.Fields(param)

	rest := make([]string, 0, len(fields))

	for _, f := range fields {
		if strings.HasPrefix(f, "-") {
			if strings.ContainsAny(f, "aA") {
				showHidden = true
			}

			continue
		}

		rest = append(rest, f)
	}

	return strings.Join(rest, " "), showHidden
}

func (c *Session) listEntries(param string) (string, []FileEntry, error) {
	fs, err := c.requireFS()
	if err != nil {
		return "", nil, err
	}

	arg, showHidden := param, false

	if !c.server.settings.DisableLISTArgs {
		arg, showHidden = listArgPath(param)
	}

	target := resolveVirtualPath(c.Path(), arg)

	entries, err := fs.List(c.ctx, target, showHidden)
	if err != nil {
		return "", nil, newFileSystemError(err.Error(), err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	return target, entries, nil
}

func (c *Session) sendOverDataConnection(lines []string) error {
	timeout := c.server.settings.ConnectionTimeout
	if timeout <= 0 {
		timeout = defaultDataConnectionTimeout
	}

	conn, err := c.waitForConnection(timeout)
	if err != nil {
		c.endConnector()

		return err
	}

	c.writeMessage(StatusFileStatusOK, fmt.Sprintf("Accepted data connection, returning %d file(s)", len(lines)))

	for _, line := range lines {
		if _, err := conn.Write([]byte(line + "\r\n")); err != nil {
			c.endConnector()

			return newTransferError(StatusConnectionClosedAborted, "Connection closed; transfer aborted", err)
		}
	}

	c.endConnector()
	c.writeMessage(StatusClosingDataConn, "Closing data connection")

	return nil
}

const defaultDataConnectionTimeout = 5 * time.Second

func (c *Session) handleLIST(param string) error {
	_, entries, err := c.listEntries(param)
	if err != nil {
		return err
	}

	lines := make([]string, len(entries))

	if c.getListFormat() == "ep" {
		for i, e := range entries {
			lines[i] = formatListEPLF(e)
		}
	} else {
		now := time.Now()

		for i, e := range entries {
			lines[i] = formatListLS(e, now)
		}
	}

	return c.sendOverDataConnection(lines)
}

func (c *Session) handleNLST(param string) error {
	_, entries, err := c.listEntries(param)
	if err != nil {
		return err
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Name
	}

	return c.sendOverDataConnection(lines)
}

func (c *Session) handleMLSD(param string) error {
	if c.server.settings.DisableMLSD {
		c.writeMessage(StatusSyntaxErrorNotRecognised, "MLSD has been disabled")

		return nil
	}

	_, entries, err := c.listEntries(param)
	if err != nil {
		return err
	}

	want := c.mlstFactSet()
	lines := make([]string, len(entries))

	for i, e := range entries {
		lines[i] = formatMLSDLine(e, want)
	}

	return c.sendOverDataConnection(lines)
}

func (c *Session) mlstFactSet() map[string]bool {
	c.paramsMutex.RLock()
	defer c.paramsMutex.RUnlock()

	return c.mlstFacts
}

func (c *Session) handleMLST(param string) error {
	if c.server.settings.DisableMLST {
		c.writeMessage(StatusSyntaxErrorNotRecognised, "MLST has been disabled")

		return nil
	}

	fs, err := c.requireFS()
	if err != nil {
		return err
	}

	target := resolveVirtualPath(c.Path(), param)
	if param == "" {
		target = c.Path()
	}

	entry, err := fs.Get(c.ctx, target)
	if err != nil {
		return newFileSystemError(err.Error(), err)
	}

	c.writeLines(StatusFileOK, []string{
		"Listing " + target,
		formatMLSDLine(entry, c.mlstFactSet()),
		"End",
	})

	return nil
}

func (c *Session) handleSIZE(param string) error {
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
		return newFileSystemError("cannot SIZE a directory", nil)
	}

	c.writeMessage(StatusFileStatus, strconv.FormatInt(entry.Size, 10))

	return nil
}

func (c *Session) handleMDTM(param string) error {
	fields := strings.Fields(param)
	if len(fields) == 2 {
		// set-mtime form: acknowledged, no-op (§9 open question).
		c.writeMessage(StatusOK, "MDTM set is not supported")

		return nil
	}

	fs, err := c.requireFS()
	if err != nil {
		return err
	}

	target := resolveVirtualPath(c.Path(), param)

	entry, err := fs.Get(c.ctx, target)
	if err != nil {
		return newFileSystemError(err.Error(), err)
	}

	c.writeMessage(StatusFileStatus, entry.ModTime.UTC().Format("20060102150405.000"))

	return nil
}

func (c *Session) handleSTAT(param string) error {
	if c.server.settings.DisableSTAT {
		c.writeMessage(StatusSyntaxErrorNotRecognised, "STAT has been disabled")

		return nil
	}

	if param == "" {
		c.writeLines(StatusSystemStatus, []string{
			"FTP server status",
			fmt.Sprintf("Logged in as %s", c.user),
			"End of status",
		})

		return nil
	}

	fs, err := c.requireFS()
	if err != nil {
		return err
	}

	target := resolveVirtualPath(c.Path(), param)

	entry, err := fs.Get(c.ctx, target)
	if err != nil {
		return newFileSystemError(err.Error(), err)
	}

	if !entry.IsDir() {
		c.writeMessage(StatusFileStatus, formatListLS(entry, time.Now()))

		return nil
	}

	entries, err := fs.List(c.ctx, target, false)
	if err != nil {
		return newFileSystemError(err.Error(), err)
	}

	lines := make([]string, 0, len(entries)+2)
	lines = append(lines, "Status of "+target+":")

	now := time.Now()
	for _, e := range entries {
		lines = append(lines, formatListLS(e, now))
	}

	lines = append(lines, "End of status")

	c.writeLines(StatusDirectoryStatus, lines)

	return nil
}

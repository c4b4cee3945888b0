package ftpserver

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

func (c *Session) handleSYST(param string) error {
	if c.server.settings.DisableSYST {
		c.writeMessage(StatusCommandNotImplemented, "SYST is disabled")

		return nil
	}

	c.writeMessage(StatusSystemType, "UNIX Type: L8")

	return nil
}

func (c *Session) handleTYPE(param string) error {
	switch {
	case param == "A" || strings.HasPrefix(param, "A "):
		c.paramsMutex.Lock()
		c.transferType = TransferTypeASCII
		c.paramsMutex.Unlock()
		c.writeMessage(StatusOK, "Type set to ASCII")
	case param == "I" || param == "L8" || strings.HasPrefix(param, "L"):
		c.paramsMutex.Lock()
		c.transferType = TransferTypeBinary
		c.paramsMutex.Unlock()
		c.writeMessage(StatusOK, "Type set to binary")
	default:
		c.writeMessage(StatusSyntaxErrorParameters, fmt.Sprintf("Unknown type %q", param))
	}

	return nil
}

func (c *Session) handleMODE(param string) error {
	if strings.EqualFold(param, "S") {
		c.writeMessage(StatusOK, "Mode set to S")

		return nil
	}

	c.writeMessage(StatusNotImplementedParam, fmt.Sprintf("Unsupported MODE %q", param))

	return nil
}

func (c *Session) handleSTRU(param string) error {
	if strings.EqualFold(param, "F") {
		c.writeMessage(StatusOK, "Structure set to F")

		return nil
	}

	c.writeMessage(StatusNotImplementedParam, fmt.Sprintf("Unsupported STRU %q", param))

	return nil
}

func (c *Session) handleNOOP(param string) error {
	c.writeMessage(StatusOK, "OK")

	return nil
}

func (c *Session) handleFEAT(param string) error {
	lines := []string{"Extensions supported:"}

	var feats []string

	for _, canon := range sortedKeys(commandRegistry) {
		if f := commandRegistry[canon].Feat; f != "" {
			feats = append(feats, f)
		}
	}

	feats = append(feats, "UTF8")

	if c.server.settings.Anonymous {
		feats = append(feats, "ANON")
	}

	sort.Strings(feats)
	lines = append(lines, feats...)
	lines = append(lines, "End")

	c.writeLines(StatusSystemStatus, lines)

	return nil
}

func sortedKeys(m map[string]*commandDescriptor) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func (c *Session) handleOPTS(param string) error {
	fields := strings.SplitN(param, " ", 2)
	directive := strings.ToUpper(fields[0])
	rest := ""

	if len(fields) > 1 {
		rest = fields[1]
	}

	switch directive {
	case "UTF8":
		return c.handleOptsUTF8(rest)
	case "MLST":
		return c.handleOptsMLST(rest)
	case "LIST":
		return c.handleOptsLIST(rest)
	default:
		c.writeMessage(StatusSyntaxErrorParameters, fmt.Sprintf("Unknown option %q", directive))

		return nil
	}
}

func (c *Session) handleOptsUTF8(value string) error {
	switch strings.ToUpper(value) {
	case "ON", "":
		c.paramsMutex.Lock()
		c.encoding = "utf8"
		c.paramsMutex.Unlock()
		c.writeMessage(StatusOK, "UTF8 enabled")
	case "OFF":
		c.paramsMutex.Lock()
		c.encoding = "ascii"
		c.paramsMutex.Unlock()
		c.writeMessage(StatusOK, "UTF8 disabled")
	default:
		c.writeMessage(StatusSyntaxErrorParameters, "Expected ON or OFF")
	}

	return nil
}

var knownMLSTFacts = []string{"type", "size", "modify", "perm"}

func (c *Session) handleOptsMLST(value string) error {
	requested := strings.Split(strings.ToLower(value), ";")
	facts := make(map[string]bool)

	for _, want := range requested {
		want = strings.TrimSpace(want)
		for _, known := range knownMLSTFacts {
			if want == known {
				facts[known] = true
			}
		}
	}

	c.paramsMutex.Lock()
	c.mlstFacts = facts
	c.paramsMutex.Unlock()

	c.writeMessage(StatusOK, "MLST OPTS successful")

	return nil
}

func (c *Session) handleOptsLIST(value string) error {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "-E":
		c.paramsMutex.Lock()
		c.listFormat = "ep"
		c.paramsMutex.Unlock()
	case "-L", "":
		c.paramsMutex.Lock()
		c.listFormat = "ls"
		c.paramsMutex.Unlock()
	default:
		c.writeMessage(StatusSyntaxErrorParameters, fmt.Sprintf("Unknown LIST option %q", value))

		return nil
	}

	c.writeMessage(StatusOK, "LIST OPTS successful")

	return nil
}

func (c *Session) handleHELP(param string) error {
	if param == "" {
		keys := sortedKeys(commandRegistry)
		lines := make([]string, 0, len(keys)+1)
		lines = append(lines, "The following commands are recognized")

		const perLine = 8

		for i := 0; i < len(keys); i += perLine {
			end := i + perLine
			if end > len(keys) {
				end = len(keys)
			}

			lines = append(lines, "   "+strings.Join(keys[i:end], " "))
		}

		c.writeLines(StatusSystemStatus, lines)

		return nil
	}

	desc, ok := lookupCommand(param)
	if !ok {
		c.writeMessage(StatusSyntaxErrorParameters, fmt.Sprintf("Unknown command %q", param))

		return nil
	}

	syntax := strings.ReplaceAll(desc.Syntax, "{{cmd}}", strings.ToUpper(param))
	c.writeMessage(StatusHelp, fmt.Sprintf("%s: %s", syntax, desc.Description))

	return nil
}

func (c *Session) handleSITE(param string) error {
	if c.server.settings.DisableSite {
		c.writeMessage(StatusSyntaxErrorNotRecognised, "SITE support is disabled")

		return nil
	}

	fields := strings.SplitN(param, " ", 2)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "CHMOD") {
		c.writeMessage(StatusSyntaxErrorNotRecognised, "Not understood SITE subcommand")

		return nil
	}

	return c.handleSiteChmod(fields[1])
}

func (c *Session) handleSiteChmod(param string) error {
	fields := strings.SplitN(param, " ", 2)
	if len(fields) != 2 {
		c.writeMessage(StatusSyntaxErrorParameters, "Usage: SITE CHMOD <mode> <path>")

		return nil
	}

	mode, err := strconv.ParseUint(fields[0], 8, 32)
	if err != nil {
		c.writeMessage(StatusSyntaxErrorParameters, fmt.Sprintf("Bad mode %q", fields[0]))

		return nil
	}

	fs, err := c.requireFS()
	if err != nil {
		return err
	}

	target := resolveVirtualPath(c.Path(), fields[1])

	if err := fs.Chmod(c.ctx, target, os.FileMode(mode)); err != nil {
		return newFileSystemError(err.Error(), err)
	}

	c.writeMessage(StatusOK, "SITE CHMOD command successful")

	return nil
}

package ftpserver

import (
	"fmt"
	"strings"
	"time"
)

// formatListLS renders one §4.9 "ls" long-listing line.
func formatListLS(e FileEntry, now time.Time) string {
	perm := "-rwxr-xr-x"
	if e.IsDir() {
		perm = "drwxr-xr-x"
	}

	var when string

	if now.Sub(e.ModTime) > 183*24*time.Hour {
		when = e.ModTime.Format("Jan 02  2006")
	} else {
		when = e.ModTime.Format("Jan 02 15:04")
	}

	return fmt.Sprintf("%s 1 1 1 %s %s %s", perm, padLeft(fmt.Sprintf("%d", e.Size), 12), when, e.Name)
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}

	return strings.Repeat(" ", width-len(s)) + s
}

// formatListEPLF renders one §4.9 EPLF ("ep") line.
func formatListEPLF(e FileEntry) string {
	kind := "r"
	if e.IsDir() {
		kind = "/"
	}

	return fmt.Sprintf("+s%d,m%d,up%o,%s\t%s", e.Size, e.ModTime.Unix(), e.Mode&0o7777, kind, e.Name)
}

// mlsdFacts computes the RFC 3659 facts for an entry, optionally narrowed to
// a requested subset (nil/empty means "all").
func mlsdFacts(e FileEntry, want map[string]bool) string {
	perm := mlsdPerm(e)

	facts := []struct {
		key, val string
	}{
		{"Type", mlsdType(e)},
		{"Size", fmt.Sprintf("%d", e.Size)},
		{"Modify", e.ModTime.UTC().Format("20060102150405")},
		{"Perm", perm},
	}

	var b strings.Builder

	for _, f := range facts {
		if len(want) > 0 && !want[strings.ToLower(f.key)] {
			continue
		}

		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(f.val)
		b.WriteByte(';')
	}

	return b.String()
}

func mlsdType(e FileEntry) string {
	if e.IsDir() {
		return "dir"
	}

	return "file"
}

func mlsdPerm(e FileEntry) string {
	var b strings.Builder

	if e.IsDir() {
		b.WriteString("el")

		if e.Mode&0o200 != 0 {
			b.WriteString("cmdfp")
		}
	} else {
		if e.Mode&0o400 != 0 {
			b.WriteString("r")
		}

		if e.Mode&0o200 != 0 {
			b.WriteString("adwf")
		}
	}

	return b.String()
}

// formatMLSDLine renders one MLSD data-connection line: facts, space, name.
func formatMLSDLine(e FileEntry, want map[string]bool) string {
	return mlsdFacts(e, want) + " " + e.Name
}

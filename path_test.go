package ftpserver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveVirtualPathAbsolute(t *testing.T) {
	require.Equal(t, "/a/b", resolveVirtualPath("/ignored", "/a/b"))
}

func TestResolveVirtualPathRelative(t *testing.T) {
	require.Equal(t, "/a/b", resolveVirtualPath("/a", "b"))
}

func TestResolveVirtualPathCollapsesDotDot(t *testing.T) {
	require.Equal(t, "/a", resolveVirtualPath("/a/b", ".."))
	require.Equal(t, "/", resolveVirtualPath("/a", ".."))
	require.Equal(t, "/", resolveVirtualPath("/", ".."))
}

func TestResolveVirtualPathCollapsesDotSegments(t *testing.T) {
	require.Equal(t, "/a/c", resolveVirtualPath("/", "/a/./b/../c"))
}

func TestResolveVirtualPathEmptyArgumentStaysAtCwd(t *testing.T) {
	require.Equal(t, "/a/b", resolveVirtualPath("/a/b", ""))
}

func TestResolveVirtualPathTrimsWhitespace(t *testing.T) {
	require.Equal(t, "/a/b", resolveVirtualPath("/", "  /a/b  "))
}

func TestQuotePathDoublesEmbeddedQuotes(t *testing.T) {
	require.Equal(t, `/a/""b""/c`, quotePath(`/a/"b"/c`))
}

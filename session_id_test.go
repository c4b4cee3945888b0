package ftpserver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSessionIDIsSixteenHexChars(t *testing.T) {
	id := newSessionID()

	require.Len(t, id, 16)
	require.Regexp(t, "^[0-9a-f]{16}$", id)
}

func TestNewSessionIDIsRandom(t *testing.T) {
	require.NotEqual(t, newSessionID(), newSessionID())
}

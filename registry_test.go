package ftpserver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupCommandIsCaseInsensitive(t *testing.T) {
	desc, ok := lookupCommand("user")
	require.True(t, ok)
	require.NotNil(t, desc)

	desc2, ok := lookupCommand("USER")
	require.True(t, ok)
	require.Same(t, desc, desc2)
}

func TestLookupCommandUnknownDirective(t *testing.T) {
	_, ok := lookupCommand("BOGUS")
	require.False(t, ok)
}

func TestLookupCommandResolvesAlias(t *testing.T) {
	for alias, canon := range commandAliases {
		if alias == canon {
			continue
		}

		desc, ok := lookupCommand(alias)
		require.True(t, ok)
		require.Same(t, commandRegistry[canon], desc)

		return
	}

	t.Skip("no aliased command found to exercise")
}

func TestEveryRegisteredHandlerIsNonNil(t *testing.T) {
	for canon, desc := range commandRegistry {
		require.NotNilf(t, desc.Handler, "command %s has no handler", canon)
	}
}

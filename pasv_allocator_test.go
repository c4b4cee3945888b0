package ftpserver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPassivePortAllocatorEphemeralWhenRangeNil(t *testing.T) {
	alloc := newPassivePortAllocator()

	ln, port, err := alloc.Acquire(nil, 0)
	require.NoError(t, err)
	require.NotZero(t, port)

	t.Cleanup(func() { _ = ln.Close() })
}

func TestPassivePortAllocatorUsesRange(t *testing.T) {
	alloc := newPassivePortAllocator()

	first, port, err := alloc.Acquire(&PortRange{Start: 33001, End: 33010}, 10)
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })

	require.GreaterOrEqual(t, port, 33001)
	require.LessOrEqual(t, port, 33010)
}

func TestPassivePortAllocatorNeverDoubleAllocatesHeldPort(t *testing.T) {
	alloc := newPassivePortAllocator()

	rng := &PortRange{Start: 33101, End: 33101}

	first, port1, err := alloc.Acquire(rng, 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })

	_, _, err = alloc.Acquire(rng, 3)
	require.ErrorIs(t, err, ErrNoAvailableListeningPort)

	require.NoError(t, first.Close())
	alloc.Release(port1)

	second, port2, err := alloc.Acquire(rng, 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })
	require.Equal(t, port1, port2)
}

func TestPassivePortAllocatorRejectsEmptyRange(t *testing.T) {
	alloc := newPassivePortAllocator()

	_, _, err := alloc.Acquire(&PortRange{Start: 5, End: 1}, 3)
	require.ErrorIs(t, err, ErrNoAvailableListeningPort)
}

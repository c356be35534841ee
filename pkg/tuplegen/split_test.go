package tuplegen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitClientsSingleCore(t *testing.T) {
	info := YamlInfo{
		ClientStart:       0x10000000,
		ClientEnd:         0x100000ff,
		ServerStart:       0x20000000,
		ServerEnd:         0x200000ff,
		DualInterfaceMask: 0x01000000,
	}

	p, err := SplitClients(0, 1, 0, info)
	require.NoError(t, err)
	require.Equal(t, Portion{0x10000000, 0x100000ff, 0x20000000, 0x200000ff}, p)
}

func TestSplitClientsDualInterface(t *testing.T) {
	info := YamlInfo{
		ClientStart:       0x10000000,
		ClientEnd:         0x100000ff,
		ServerStart:       0x20000000,
		ServerEnd:         0x200000ff,
		DualInterfaceMask: 0x01000000,
	}

	p, err := SplitClients(2, 4, 1, info)
	require.NoError(t, err)
	require.Equal(t, uint32(0x11000080), p.ClientStart)
	require.Equal(t, uint32(0x110000bf), p.ClientEnd)
	require.Equal(t, uint32(0x21000080), p.ServerStart)
	require.Equal(t, uint32(0x210000bf), p.ServerEnd)
	require.Equal(t, "clients [17.0.0.128-17.0.0.191] servers [33.0.0.128-33.0.0.191]", p.String())
}

func TestSplitClientsEightCoresAlternatingSockets(t *testing.T) {
	info := YamlInfo{
		ClientStart:       0x10000000,
		ClientEnd:         0x100001ff,
		ServerStart:       0x20000000,
		ServerEnd:         0x200001ff,
		DualInterfaceMask: 0x01000000,
	}

	for i := 0; i < 8; i++ {
		p, err := SplitClients(i, 8, i&1, info)
		require.NoError(t, err)

		clientBase, serverBase := uint32(0x10000000), uint32(0x20000000)
		if i&1 == 1 {
			clientBase, serverBase = 0x11000000, 0x21000000
		}
		off := uint32(0x40 * i)
		require.Equal(t, clientBase+off, p.ClientStart, "core %d", i)
		require.Equal(t, clientBase+off+0x3f, p.ClientEnd, "core %d", i)
		require.Equal(t, serverBase+off, p.ServerStart, "core %d", i)
		require.Equal(t, serverBase+off+0x3f, p.ServerEnd, "core %d", i)
	}

	portions, err := SplitAll(8, true, info)
	require.NoError(t, err)
	require.Len(t, portions, 8)
	require.Equal(t, uint32(0x11000040), portions[1].ClientStart)
}

func TestSplitClientsErrors(t *testing.T) {
	info := YamlInfo{ClientStart: 0x10000000, ClientEnd: 0x100000fe, ServerStart: 0x20000000, ServerEnd: 0x200000ff}

	_, err := SplitClients(0, 4, 0, info)
	var misaligned *PartitionMisalignmentError
	require.ErrorAs(t, err, &misaligned)
	require.Equal(t, "client", misaligned.Range)
	require.Equal(t, uint64(255), misaligned.Size)

	info.ClientEnd = 0x100000ff
	info.ServerEnd = 0x200000fe
	_, err = SplitClients(0, 4, 0, info)
	require.ErrorAs(t, err, &misaligned)
	require.Equal(t, "server", misaligned.Range)

	tests := []struct {
		name                string
		core, cores, socket int
	}{
		{"zero cores", 0, 0, 0},
		{"negative core", -1, 4, 0},
		{"core too large", 4, 4, 0},
		{"bad socket", 0, 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SplitClients(tt.core, tt.cores, tt.socket, info)
			require.True(t, errors.Is(err, ErrInvalidPartition), "got %v", err)
		})
	}

	overflow := YamlInfo{ClientStart: 0xff000000, ClientEnd: 0xff0000ff, ServerStart: 0x20000000, ServerEnd: 0x200000ff, DualInterfaceMask: 0x01000000}
	_, err = SplitClients(0, 1, 1, overflow)
	require.True(t, errors.Is(err, ErrInvalidPartition))
}

func TestSocketOf(t *testing.T) {
	require.Equal(t, 0, SocketOf(3, false))
	require.Equal(t, 1, SocketOf(3, true))
	require.Equal(t, 0, SocketOf(4, true))
}

func TestSocketClients(t *testing.T) {
	info := YamlInfo{
		ClientStart:       0x10000000,
		ClientEnd:         0x100000ff,
		ServerStart:       0x30000000,
		ServerEnd:         0x3000ffff,
		DualInterfaceMask: 0x01000000,
	}
	listed := []uint32{0x100000c8, 0x10000001, 0x10000001}

	portions, err := SplitAll(2, true, info)
	require.NoError(t, err)

	require.Equal(t, []uint32{0x10000001}, SocketClients(listed, portions[0], 0, info))
	require.Equal(t, []uint32{0x110000c8}, SocketClients(listed, portions[1], 1, info))

	// the same core without the dual interface sees unshifted addresses
	single, err := SplitAll(2, false, info)
	require.NoError(t, err)
	require.Equal(t, []uint32{0x100000c8}, SocketClients(listed, single[1], 0, info))

	require.Empty(t, SocketClients([]uint32{0x10000001}, single[1], 0, info))
}

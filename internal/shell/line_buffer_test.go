package shell

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineBufferBasicOperations(t *testing.T) {
	buf, err := newLineBuffer(2)
	require.NoError(t, err)
	defer buf.Close()

	require.NoError(t, buf.Append('a'))
	require.NoError(t, buf.Append('b'))
	require.Equal(t, "ab", buf.Snapshot())

	buf.TrimLast()
	require.Equal(t, "a", buf.Snapshot())

	drained := buf.Drain()
	require.Equal(t, "a", drained)
	require.Equal(t, "", buf.Snapshot())

	require.NoError(t, buf.Append('c'))
	require.Equal(t, "c", buf.Snapshot())

	buf.Reset()
	require.Equal(t, "", buf.Snapshot())

	buf.TrimLast()
	require.Equal(t, "", buf.Snapshot())
}

func TestLineBufferTrimsWholeCharacters(t *testing.T) {
	buf, err := newLineBuffer(0)
	require.NoError(t, err)
	defer buf.Close()

	for _, r := range "añ日" {
		require.NoError(t, buf.Append(r))
	}
	require.Equal(t, 128, buf.buf.Cap())

	buf.TrimLast()
	require.Equal(t, "añ", buf.Snapshot())
	buf.TrimLast()
	require.Equal(t, "a", buf.Snapshot())
}

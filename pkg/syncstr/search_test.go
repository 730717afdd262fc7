package syncstr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	b := mustString(t, "hello world")

	require.Equal(t, 6, b.FindString("world"))
	require.Equal(t, 2, b.FindBytes([]byte("ll")))
	require.Equal(t, 0, b.FindString(""))
	require.Equal(t, 0, b.Find(b))

	needle := mustString(t, "o w")
	require.Equal(t, 4, b.Find(needle))

	var nilBuf *Buffer
	require.Equal(t, Invalid, b.Find(nilBuf))
	require.Equal(t, Invalid, nilBuf.FindString("x"))
}

func TestFindMissingReturnsInvalid(t *testing.T) {
	needles := []string{"xyz", "hello world!", "World", "\x00", "dl"}
	b := mustString(t, "hello world")

	for _, n := range needles {
		require.Equal(t, Invalid, b.FindString(n), "needle %q", n)

		other := mustString(t, n)
		require.Equal(t, Invalid, b.Find(other), "needle %q", n)

		at, err := b.FindWide([]rune(n))
		require.NoError(t, err)
		require.Equal(t, Invalid, at, "needle %q", n)
	}
}

func TestFindWide(t *testing.T) {
	b, err := FromWide([]rune("grüße"))
	require.NoError(t, err)

	at, err := b.FindWide([]rune("üß"))
	require.NoError(t, err)
	require.Equal(t, 2, at)

	at, err = b.FindWide([]rune("日"))
	require.ErrorIs(t, err, ErrEncoding)
	require.Equal(t, Invalid, at)
}

func TestSubstring(t *testing.T) {
	b := mustString(t, "hello")

	sub, err := b.Substring(1, 3)
	require.NoError(t, err)
	require.Equal(t, "ell", sub.String())
	require.Equal(t, 4, sub.Cap())

	sub, err = b.Substring(1, 100)
	require.NoError(t, err)
	require.Equal(t, "ello", sub.String())

	sub, err = b.Substring(4, 0)
	require.NoError(t, err)
	require.True(t, sub.Empty())

	_, err = b.Substring(5, 1)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = b.Substring(0, -1)
	require.ErrorIs(t, err, ErrInvalidArgument)

	empty, err := New()
	require.NoError(t, err)
	_, err = empty.Substring(0, 0)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestSubstringOfWholeReproducesSource(t *testing.T) {
	for _, s := range []string{"a", "hello", "\x00\xff\x10", "with spaces "} {
		b := mustString(t, s)
		sub, err := b.Substring(0, b.Len())
		require.NoError(t, err)
		require.Equal(t, []byte(s), sub.Bytes())
	}
}

func TestTrim(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		changed bool
	}{
		{in: "  hi \t\n", want: "hi", changed: true},
		{in: "\vboth\f", want: "both", changed: true},
		{in: "hi", want: "hi", changed: false},
		{in: "in side", want: "in side", changed: false},
		{in: "", want: "", changed: false},
		{in: "   ", want: "", changed: true},
	}
	for _, tc := range cases {
		b := mustString(t, tc.in)
		changed, err := b.Trim()
		require.NoError(t, err)
		require.Equal(t, tc.changed, changed, "trim %q", tc.in)
		require.Equal(t, tc.want, b.String(), "trim %q", tc.in)
		require.Zero(t, b.data[b.length])
	}
}

func TestCaseConversionASCII(t *testing.T) {
	b := mustString(t, "MiXeD 123 _")

	require.NoError(t, b.ToLower())
	require.Equal(t, "mixed 123 _", b.String())
	require.NoError(t, b.ToUpper())
	require.Equal(t, "MIXED 123 _", b.String())
}

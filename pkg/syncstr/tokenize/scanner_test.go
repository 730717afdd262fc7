package tokenize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScanner(t *testing.T) {
	src := mustBuffer(t, `set name "John Smith" now`)
	s := NewScanner(src, Config{Delimiters: " ", ZonePairs: `""`, Escapes: `\`})

	var got []string
	for s.Scan() {
		got = append(got, s.Text())
		require.NotNil(t, s.Token())
	}
	require.NoError(t, s.Err())
	require.Equal(t, []string{"set", "name", `"John Smith"`, "now"}, got)
	require.Equal(t, src.Len(), s.Pos())
	require.Nil(t, s.Token())

	s.Reset(4)
	require.True(t, s.Scan())
	require.Equal(t, "name", s.Text())
}

func TestScannerReportsErrors(t *testing.T) {
	src := mustBuffer(t, "a b")
	require.NoError(t, src.Destroy())

	s := NewScanner(src, Config{Delimiters: " "})
	require.False(t, s.Scan())
	require.Error(t, s.Err())
	require.False(t, s.Scan())
}

func TestAll(t *testing.T) {
	got, err := All(mustBuffer(t, "x;y;;z"), Config{Delimiters: ";"})
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y", "z"}, got)

	got, err = All(mustBuffer(t, ";;"), Config{Delimiters: ";"})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestUnquote(t *testing.T) {
	cases := map[string]string{
		`"my world"!`: `my world!`,
		`a\ b`:       `a b`,
		`'it''s'`:    `its`,
		`"a\"b"`:     `a\b`,
		`\\`:         `\`,
		`plain`:      `plain`,
		`"open`:      `open`,
	}
	for in, want := range cases {
		require.Equal(t, want, Unquote(in, `""''`, `\`), "unquote %s", in)
	}
}

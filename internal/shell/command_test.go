package shell

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ledzpl/syncstr/pkg/syncstr"
)

func newTestWorkspace(t *testing.T, opts ...syncstr.Option) *Workspace {
	t.Helper()
	ws := NewWorkspace(
		WithColorPicker(&staticColorPicker{}),
		WithMetrics(NewMetrics(prometheus.NewRegistry())),
		WithBufferOptions(opts...),
	)
	t.Cleanup(ws.Close)
	return ws
}

func exec(t *testing.T, ws *Workspace, line string) string {
	t.Helper()
	out, _, err := ws.Execute(line)
	require.NoError(t, err, line)
	return out
}

func TestParseLine(t *testing.T) {
	args, err := ParseLine(`set greeting "Hello, my world" \"x\"`)
	require.NoError(t, err)
	require.Equal(t, []string{"set", "greeting", "Hello, my world", `"x"`}, args)

	args, err = ParseLine("  \t ")
	require.NoError(t, err)
	require.Empty(t, args)

	args, err = ParseLine(`tokens s ' ' '""'`)
	require.NoError(t, err)
	require.Equal(t, []string{"tokens", "s", " ", `""`}, args)
}

func TestExecuteEditing(t *testing.T) {
	ws := newTestWorkspace(t, syncstr.WithEncoder(syncstr.UTF8()))

	require.Equal(t, `s = "hllo" (len 4, cap 5)`, exec(t, ws, "set s hllo"))
	require.Equal(t, `s = "hello" (len 5, cap 6)`, exec(t, ws, "insert s 1 e"))
	require.Equal(t, `s = "hello world" (len 11, cap 12)`, exec(t, ws, `append s " world"`))
	require.Equal(t, "6", exec(t, ws, "find s world"))
	require.Equal(t, `"ell"`, exec(t, ws, "sub s 1 3"))
	require.Equal(t, `"world" -> w`, exec(t, ws, "sub s 6 99 w"))
	require.Equal(t, `w = "world" (len 5, cap 6)`, exec(t, ws, "show w"))
	require.Equal(t, `s = "HELLO WORLD" (len 11, cap 12)`, exec(t, ws, "upper s"))
	require.Equal(t, `s = "hello world" (len 11, cap 12)`, exec(t, ws, "lower s"))
	require.Equal(t, `s = "hello" (len 5, cap 12)`, exec(t, ws, "erase s 5 100"))
	require.Equal(t, `s = "hello" (len 5, cap 6)`, exec(t, ws, "shrink s"))
	require.Equal(t, `s = "hello" (len 5, cap 16)`, exec(t, ws, "resize s 16"))
	require.Equal(t, `s = "hell" (len 4, cap 16)`, exec(t, ws, "pop s"))
	require.Equal(t, `s = "hellö" (len 6, cap 16)`, exec(t, ws, "push s ö"))
	require.Equal(t, `s = "" (len 0, cap 16)`, exec(t, ws, "clear s"))
}

func TestExecuteTrimSwapTokensDrop(t *testing.T) {
	ws := newTestWorkspace(t)

	exec(t, ws, `set pad "  padded  "`)
	require.Equal(t, `pad = "padded" (len 6, cap 11)`, exec(t, ws, "trim pad"))
	require.Equal(t, `pad = "padded" (len 6, cap 11) unchanged`, exec(t, ws, "trim pad"))

	exec(t, ws, "set a first")
	exec(t, ws, "set b second")
	require.Equal(t, "a = \"second\" (len 6, cap 7)\nb = \"first\" (len 5, cap 6)", exec(t, ws, "swap a b"))

	exec(t, ws, `set q 'Hello, "my world"!'`)
	require.Equal(t, "0: \"Hello,\"\n1: \"\\\"my world\\\"!\"", exec(t, ws, `tokens q " " '""' '\'`))
	require.Equal(t, "0: \"Hello\"\n1: \" \\\"my world\\\"!\"", exec(t, ws, "tokens q ,"))
	require.Equal(t, "no tokens", exec(t, ws, `tokens pad padded`))

	require.Equal(t, "a dropped", exec(t, ws, "drop a"))
	require.Equal(t, "b = \"first\" (len 5, cap 6)\npad = \"padded\" (len 6, cap 11)\nq = \"Hello, \\\"my world\\\"!\" (len 18, cap 19)", exec(t, ws, "list"))
}

func TestExecuteErrors(t *testing.T) {
	ws := newTestWorkspace(t)

	_, _, err := ws.Execute("frobnicate")
	require.ErrorContains(t, err, "unknown command")

	_, _, err = ws.Execute("insert s")
	require.ErrorIs(t, err, errUsage)

	_, _, err = ws.Execute("show nothing")
	require.ErrorIs(t, err, errNoRegister)

	exec(t, ws, "set s abc")
	_, _, err = ws.Execute("insert s 9 x")
	require.ErrorIs(t, err, syncstr.ErrOutOfRange)
	_, _, err = ws.Execute("insert s x y")
	require.ErrorIs(t, err, syncstr.ErrInvalidArgument)
	_, _, err = ws.Execute("resize s 2")
	require.ErrorIs(t, err, syncstr.ErrInvalidArgument)
	_, _, err = ws.Execute("find s zzz")
	require.ErrorIs(t, err, syncstr.ErrNotFound)
	_, _, err = ws.Execute("append s 日本")
	require.ErrorIs(t, err, syncstr.ErrEncoding)
	require.Equal(t, `s = "abc" (len 3, cap 4)`, exec(t, ws, "show s"))
	_, mutated, err := ws.Execute("push s ab日")
	require.ErrorIs(t, err, syncstr.ErrEncoding)
	require.False(t, mutated)
	require.Equal(t, `s = "abc" (len 3, cap 4)`, exec(t, ws, "show s"))
	_, _, err = ws.Execute(`find s "zz top"`)
	require.ErrorIs(t, err, syncstr.ErrNotFound)
	require.ErrorContains(t, err, `"zz top"`)

	_, _, err = ws.Execute("pop empty")
	require.ErrorIs(t, err, errNoRegister)
	exec(t, ws, "set empty")
	_, _, err = ws.Execute("pop empty")
	require.ErrorIs(t, err, syncstr.ErrEmpty)

	require.Equal(t, 1.0, testutil.ToFloat64(ws.metrics.commands.WithLabelValues("unknown", "error")))
	require.Equal(t, 2.0, testutil.ToFloat64(ws.metrics.commands.WithLabelValues("pop", "error")))
}

func TestExecuteReportsMutation(t *testing.T) {
	ws := newTestWorkspace(t)

	_, mutated, err := ws.Execute("set x 1")
	require.NoError(t, err)
	require.True(t, mutated)

	_, mutated, err = ws.Execute("show x")
	require.NoError(t, err)
	require.False(t, mutated)

	out, mutated, err := ws.Execute("")
	require.NoError(t, err)
	require.False(t, mutated)
	require.Empty(t, out)

	out = exec(t, ws, "help")
	require.Contains(t, out, "tokens NAME DELIMS [ZONES [ESCAPES]]")
}

package shell

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ledzpl/syncstr/pkg/syncstr"
)

func TestWorkspaceNotifyDeliversToOtherClients(t *testing.T) {
	ws := NewWorkspace(WithColorPicker(&staticColorPicker{}))

	alice := ws.AddClient("alice")
	drainChannel(alice.Notes())

	bob := ws.AddClient("bob")
	drainChannel(alice.Notes())
	drainChannel(bob.Notes())

	msg := ws.Notify(alice.ID, "set notes hello")
	require.Contains(t, msg, "set notes hello")
	require.Contains(t, msg, "alice")

	select {
	case delivered := <-bob.Notes():
		require.Equal(t, msg, delivered)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for notification")
	}

	select {
	case unexpected := <-alice.Notes():
		t.Fatalf("sender should not receive message, got %q", unexpected)
	default:
	}
}

func TestWorkspaceRemoveClientClosesChannel(t *testing.T) {
	ws := NewWorkspace(WithColorPicker(&staticColorPicker{}))
	client := ws.AddClient("carol")
	drainChannel(client.Notes())
	require.Equal(t, 1, ws.ClientCount())

	ws.RemoveClient(client.ID)
	require.Equal(t, 0, ws.ClientCount())

	select {
	case _, ok := <-client.Notes():
		require.False(t, ok, "channel should be closed")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for channel closure")
	}
}

func TestWorkspaceDefaultUsernames(t *testing.T) {
	ws := NewWorkspace(WithColorPicker(&staticColorPicker{}))

	first := ws.AddClient("")
	second := ws.AddClient("")
	require.Equal(t, "user-001", first.Username)
	require.Equal(t, "user-002", second.Username)
	require.NotEqual(t, first.ID, second.ID)
}

func TestWorkspaceRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	ws := NewWorkspace(WithMetrics(NewMetrics(reg)), WithBufferOptions(syncstr.WithEncoder(syncstr.UTF8())))

	_, err := ws.Lookup("a")
	require.ErrorIs(t, err, errNoRegister)

	_, err = ws.Ensure("bad name")
	require.ErrorIs(t, err, errBadRegister)

	require.NoError(t, ws.Set("a", []rune("first")))
	a, err := ws.Lookup("a")
	require.NoError(t, err)
	require.Equal(t, "first", a.String())

	require.NoError(t, ws.Set("a", []rune("second")))
	again, err := ws.Lookup("a")
	require.NoError(t, err)
	require.Same(t, a, again)
	require.Equal(t, "second", a.String())

	require.NoError(t, ws.Set("b", nil))
	require.Equal(t, []string{"a", "b"}, ws.Names())
	require.Equal(t, 2, ws.RegisterCount())
	require.Equal(t, 2.0, testutil.ToFloat64(ws.metrics.registers))

	require.NoError(t, ws.Drop("a"))
	require.ErrorIs(t, a.AppendString("x"), syncstr.ErrDestroyed)
	require.ErrorIs(t, ws.Drop("a"), errNoRegister)

	b, err := ws.Lookup("b")
	require.NoError(t, err)
	ws.Close()
	require.Equal(t, 0, ws.RegisterCount())
	require.ErrorIs(t, b.PushBack('x'), syncstr.ErrDestroyed)
}

func drainChannel(ch <-chan string) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

type staticColorPicker struct {
	color string
}

func (p *staticColorPicker) Pick(string) string {
	return p.color
}

func TestPaletteIsStablePerUser(t *testing.T) {
	p := paletteByName(userPalette)
	require.Equal(t, p.Pick("alice"), p.Pick("alice"))
	require.Contains(t, userPalette, p.Pick("bob"))
	require.Empty(t, paletteByName(nil).Pick("alice"))
	require.Equal(t, "alice", paint("", "alice"))
	require.Equal(t, "\033[31malice"+ansiReset, paint("\033[31m", "alice"))
}

func TestClientDropsWhenQueueFull(t *testing.T) {
	c := newClient("alice", "")
	for i := 0; i < notifyQueue+3; i++ {
		c.offer("note")
	}
	require.Len(t, c.Notes(), notifyQueue)
	require.Equal(t, uint64(3), c.Dropped())
}

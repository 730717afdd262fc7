package shell

import (
	"sync/atomic"

	"github.com/google/uuid"
)

const notifyQueue = 16

// Client is a connected shell user and its queue of notifications.
type Client struct {
	ID       string
	Username string
	Color    string

	notes   chan string
	dropped atomic.Uint64
}

func newClient(username, color string) *Client {
	return &Client{
		ID:       uuid.NewString(),
		Username: username,
		Color:    color,
		notes:    make(chan string, notifyQueue),
	}
}

// Notes returns the notification stream. It is closed when the client is
// removed from the workspace.
func (c *Client) Notes() <-chan string {
	return c.notes
}

// Dropped reports how many notifications were discarded because the queue
// was full.
func (c *Client) Dropped() uint64 {
	return c.dropped.Load()
}

func (c *Client) offer(msg string) {
	select {
	case c.notes <- msg:
	default:
		c.dropped.Add(1)
	}
}

package shell

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/ledzpl/syncstr/pkg/syncstr"
)

var (
	errNoRegister  = errors.New("no such register")
	errBadRegister = errors.New("register names are 1-32 letters, digits, '_' or '-'")
)

// Workspace holds the named registers shared by all sessions and the set of
// connected clients.
type Workspace struct {
	mu        sync.RWMutex
	clients   map[string]*Client
	registers map[string]*syncstr.Buffer

	sequence atomic.Uint64

	colors  ColorPicker
	bufOpts []syncstr.Option
	logger  log.Logger
	metrics *Metrics
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithColorPicker overrides the client color strategy.
func WithColorPicker(p ColorPicker) Option {
	return func(ws *Workspace) {
		if p != nil {
			ws.colors = p
		}
	}
}

// WithBufferOptions sets the options every new register is created with.
func WithBufferOptions(opts ...syncstr.Option) Option {
	return func(ws *Workspace) {
		ws.bufOpts = append(ws.bufOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(ws *Workspace) {
		if l != nil {
			ws.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(ws *Workspace) {
		if m != nil {
			ws.metrics = m
		}
	}
}

// NewWorkspace constructs an empty workspace.
func NewWorkspace(opts ...Option) *Workspace {
	ws := &Workspace{
		clients:   make(map[string]*Client),
		registers: make(map[string]*syncstr.Buffer),
		colors:    paletteByName(userPalette),
		logger:    log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(ws)
	}
	if ws.metrics == nil {
		ws.metrics = NewMetrics(nil)
	}
	return ws
}

// AddClient registers a new client and returns it. The caller is responsible for
// removing the client when the session ends.
func (ws *Workspace) AddClient(username string) *Client {
	if username == "" {
		username = fmt.Sprintf("user-%03d", ws.sequence.Add(1))
	}
	client := newClient(username, ws.colors.Pick(username))

	ws.mu.Lock()
	ws.clients[client.ID] = client
	ws.mu.Unlock()

	ws.metrics.sessions.Inc()
	level.Info(ws.logger).Log("msg", "client joined", "user", client.Username, "id", client.ID)
	ws.broadcastSystem(fmt.Sprintf("%s joined", client.Username))
	return client
}

// RemoveClient unregisters the client and closes its outbound channel.
func (ws *Workspace) RemoveClient(id string) {
	var client *Client

	ws.mu.Lock()
	if existing, ok := ws.clients[id]; ok {
		client = existing
		delete(ws.clients, id)
	}
	ws.mu.Unlock()

	if client != nil {
		close(client.notes)
		ws.metrics.sessions.Dec()
		level.Info(ws.logger).Log("msg", "client left", "user", client.Username, "id", client.ID, "dropped", client.Dropped())
		ws.broadcastSystem(fmt.Sprintf("%s left", client.Username))
	}
}

// ClientCount returns the number of connected clients.
func (ws *Workspace) ClientCount() int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return len(ws.clients)
}

// Notify tells every client except the sender what the sender changed and
// returns the formatted line.
func (ws *Workspace) Notify(senderID, text string) string {
	ts := time.Now().Format("2006-01-02 15:04:05")

	ws.mu.RLock()
	defer ws.mu.RUnlock()

	name := senderID
	if sender, ok := ws.clients[senderID]; ok {
		name = paint(sender.Color, sender.Username)
	}
	msg := fmt.Sprintf("[%s] %s: %s", ts, name, text)
	for id, client := range ws.clients {
		if id == senderID {
			continue
		}
		client.offer(msg)
	}
	return msg
}

func (ws *Workspace) broadcastSystem(text string) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf("[%s] [system] %s", ts, text)

	ws.mu.RLock()
	for _, client := range ws.clients {
		client.offer(msg)
	}
	ws.mu.RUnlock()
}

func validRegisterName(name string) bool {
	if len(name) == 0 || len(name) > 32 {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// Lookup returns the named register.
func (ws *Workspace) Lookup(name string) (*syncstr.Buffer, error) {
	ws.mu.RLock()
	b, ok := ws.registers[name]
	ws.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", errNoRegister, name)
	}
	return b, nil
}

// Ensure returns the named register, creating it empty if needed.
func (ws *Workspace) Ensure(name string) (*syncstr.Buffer, error) {
	if !validRegisterName(name) {
		return nil, errBadRegister
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()

	if b, ok := ws.registers[name]; ok {
		return b, nil
	}
	b, err := syncstr.New(ws.bufOpts...)
	if err != nil {
		return nil, err
	}
	ws.registers[name] = b
	ws.metrics.registers.Set(float64(len(ws.registers)))
	return b, nil
}

// Set replaces the content of the named register with wide text converted
// through the register encoding. Readers observe either the old or the new
// content, never a mix.
func (ws *Workspace) Set(name string, value []rune) error {
	next, err := syncstr.FromWide(value, ws.bufOpts...)
	if err != nil {
		return err
	}
	return ws.Store(name, next)
}

// Store swaps b's content into the named register, creating the register if
// needed. b is destroyed afterwards and must not be used by the caller.
func (ws *Workspace) Store(name string, b *syncstr.Buffer) error {
	defer func() { _ = b.Destroy() }()

	dst, err := ws.Ensure(name)
	if err != nil {
		return err
	}
	return dst.Swap(b)
}

// Drop destroys and removes the named register.
func (ws *Workspace) Drop(name string) error {
	ws.mu.Lock()
	b, ok := ws.registers[name]
	delete(ws.registers, name)
	ws.metrics.registers.Set(float64(len(ws.registers)))
	ws.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", errNoRegister, name)
	}
	return b.Destroy()
}

// Names returns the register names in order.
func (ws *Workspace) Names() []string {
	ws.mu.RLock()
	names := make([]string, 0, len(ws.registers))
	for name := range ws.registers {
		names = append(names, name)
	}
	ws.mu.RUnlock()

	sort.Strings(names)
	return names
}

// RegisterCount returns the number of registers.
func (ws *Workspace) RegisterCount() int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return len(ws.registers)
}

func (ws *Workspace) sampleCapacity() {
	ws.mu.RLock()
	total := 0
	for _, b := range ws.registers {
		if c := b.Cap(); c > 0 {
			total += c
		}
	}
	ws.mu.RUnlock()
	ws.metrics.bytes.Set(float64(total))
}

// Close destroys every register, wiping its content.
func (ws *Workspace) Close() {
	ws.mu.Lock()
	registers := ws.registers
	ws.registers = make(map[string]*syncstr.Buffer)
	ws.metrics.registers.Set(0)
	ws.mu.Unlock()

	for name, b := range registers {
		if err := b.Destroy(); err != nil {
			level.Warn(ws.logger).Log("msg", "destroy register", "register", name, "err", err)
		}
	}
}

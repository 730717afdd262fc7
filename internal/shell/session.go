package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/crypto/ssh"
)

const (
	keyInterrupt = 0x03
	keyEOT       = 0x04
	keyBackspace = '\b'
	keyDelete    = 0x7f

	lineCapacity = 128
)

// errNoShell means the request stream closed before the client asked for a shell.
var errNoShell = errors.New("channel closed before shell request")

// Requests acknowledged without changing session state.
var ignoredRequests = map[string]bool{
	"pty-req":       true,
	"env":           true,
	"window-change": true,
	"signal":        true,
}

// HandleSession serves one SSH session channel against the workspace.
func HandleSession(ws *Workspace, conn *ssh.ServerConn, channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()

	newSession(ws, conn.User(), channel, requests).serve()
}

type session struct {
	ws     *Workspace
	user   string
	logger log.Logger

	ch   io.ReadWriteCloser
	reqs <-chan *ssh.Request

	client *Client
	line   *lineBuffer
	term   *terminalUI

	wg   sync.WaitGroup
	once sync.Once
}

func newSession(ws *Workspace, user string, ch io.ReadWriteCloser, reqs <-chan *ssh.Request) *session {
	return &session{
		ws:     ws,
		user:   user,
		logger: log.With(ws.logger, "user", user),
		ch:     ch,
		reqs:   reqs,
		term:   newTerminalUI(ch),
	}
}

func (s *session) serve() {
	defer s.close()

	if err := s.open(); err != nil {
		if !errors.Is(err, errNoShell) {
			level.Warn(s.logger).Log("msg", "session setup failed", "err", err)
			s.systemError(err)
		}
		return
	}

	if err := s.edit(); err != nil && !errors.Is(err, io.EOF) {
		level.Warn(s.logger).Log("msg", "read error", "err", err)
		s.systemError(fmt.Errorf("read error: %w", err))
	}
}

// open allocates the line editor, waits for the shell request and joins the
// workspace.
func (s *session) open() error {
	line, err := newLineBuffer(lineCapacity)
	if err != nil {
		return fmt.Errorf("allocate line buffer: %w", err)
	}
	s.line = line

	if err := s.waitForShell(); err != nil {
		return err
	}

	s.client = s.ws.AddClient(s.user)
	if err := s.term.ClearScreen(); err != nil {
		return fmt.Errorf("prepare terminal: %w", err)
	}

	s.spawn(s.relayNotes)

	if err := s.say(fmt.Sprintf("Welcome to the syncstr shell, %s!", s.client.Username)); err != nil {
		return err
	}
	return s.say("Registers are shared with everyone online. Type help for commands, Ctrl+D to exit.")
}

func (s *session) waitForShell() error {
	for req := range s.reqs {
		if reply(req) {
			s.spawn(func() {
				for req := range s.reqs {
					reply(req)
				}
			})
			return nil
		}
	}
	return errNoShell
}

// reply answers req and reports whether it was the shell request.
func reply(req *ssh.Request) bool {
	switch {
	case req.Type == "shell":
		_ = req.Reply(true, nil)
		return true
	case ignoredRequests[req.Type]:
		_ = req.Reply(true, nil)
	default:
		_ = req.Reply(false, nil)
	}
	return false
}

func (s *session) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *session) relayNotes() {
	for note := range s.client.Notes() {
		if err := s.say(note); err != nil {
			return
		}
	}
}

// edit runs the line editor until the client hangs up or sends ^C or ^D.
func (s *session) edit() error {
	in := bufio.NewReader(s.ch)
	afterCR := false

	for {
		r, _, err := in.ReadRune()
		if errors.Is(err, io.EOF) {
			return s.exec(s.line.Drain())
		}
		if err != nil {
			return err
		}

		if r == '\n' && afterCR {
			afterCR = false
			continue
		}
		afterCR = r == '\r'

		stop, err := s.key(r)
		if err != nil || stop {
			return err
		}
	}
}

func (s *session) key(r rune) (stop bool, err error) {
	switch r {
	case '\r', '\n':
		return false, s.exec(s.line.Drain())
	case keyInterrupt:
		return true, s.abandon("^C")
	case keyEOT:
		return true, s.abandon("^D")
	case keyBackspace, keyDelete:
		s.line.TrimLast()
		return false, s.prompt()
	}
	if !unicode.IsPrint(r) {
		return false, nil
	}
	if err := s.line.Append(r); err != nil {
		return false, err
	}
	return false, s.prompt()
}

func (s *session) abandon(label string) error {
	s.line.Reset()
	if err := s.term.DisplayControlAck(label); err != nil {
		return err
	}
	return s.prompt()
}

// exec runs one command line, prints its result and notifies the other
// clients about mutations.
func (s *session) exec(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return s.prompt()
	}
	if err := s.say("$ " + text); err != nil {
		return err
	}

	out, mutated, err := s.ws.Execute(text)
	if err != nil {
		level.Debug(s.logger).Log("msg", "command failed", "line", text, "err", err)
		return s.say("error: " + err.Error())
	}
	level.Debug(s.logger).Log("msg", "command", "line", text, "mutated", mutated)
	if mutated {
		s.ws.Notify(s.client.ID, text)
	}
	if out == "" {
		return nil
	}
	return s.say(out)
}

func (s *session) prompt() error {
	status := fmt.Sprintf("Users online: %d | Registers: %d", s.ws.ClientCount(), s.ws.RegisterCount())
	return s.term.UpdatePrompt(status, s.line.Snapshot())
}

func (s *session) say(msg string) error {
	if err := s.term.DisplayMessage(msg); err != nil {
		return err
	}
	return s.prompt()
}

func (s *session) systemError(err error) {
	_ = s.say(fmt.Sprintf("[system] %v", err))
}

func (s *session) close() {
	s.once.Do(func() {
		if s.client != nil {
			s.ws.RemoveClient(s.client.ID)
		}
		_ = s.ch.Close()
		s.wg.Wait()
		s.line.Close()
	})
}

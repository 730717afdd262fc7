package shell

import (
	"io"
	"strings"
	"sync"
)

const (
	seqSaveCursor    = "\0337\033[s"
	seqRestoreCursor = "\033[u\0338"
	seqCursorHome    = "\033[H"
	seqClearLine     = "\033[2K"
	seqInsertLine    = "\033[1L"
	seqClearScreen   = "\033[2J"
	seqEraseToEOL    = "\033[K"

	promptPrefix = "$ "
)

// terminalUI draws a status line at the top of the screen and an input
// prompt at the bottom. Writes from the read loop and the notification
// relay are serialized.
type terminalUI struct {
	mu sync.Mutex
	w  io.Writer

	statusOnce sync.Once
	statusErr  error
}

func newTerminalUI(w io.Writer) *terminalUI {
	return &terminalUI{w: w}
}

func (ui *terminalUI) write(parts ...string) error {
	ui.mu.Lock()
	defer ui.mu.Unlock()

	_, err := io.WriteString(ui.w, strings.Join(parts, ""))
	return err
}

func (ui *terminalUI) ClearScreen() error {
	return ui.write(seqClearScreen, seqCursorHome)
}

func (ui *terminalUI) DisplayControlAck(label string) error {
	return ui.write("\r", seqEraseToEOL, label, "\r\n")
}

// DisplayMessage prints msg above the prompt. Embedded newlines become
// terminal line breaks.
func (ui *terminalUI) DisplayMessage(msg string) error {
	msg = strings.ReplaceAll(msg, "\n", "\r\n")
	return ui.write("\r", seqEraseToEOL, msg, "\r\n")
}

func (ui *terminalUI) UpdatePrompt(header, line string) error {
	if err := ui.ensureStatusLine(); err != nil {
		return err
	}
	if err := ui.write(seqSaveCursor, seqCursorHome, seqClearLine, header, seqRestoreCursor); err != nil {
		return err
	}
	return ui.write("\r", promptPrefix, line, seqEraseToEOL)
}

func (ui *terminalUI) ensureStatusLine() error {
	ui.statusOnce.Do(func() {
		ui.statusErr = ui.write(seqSaveCursor, seqCursorHome, seqInsertLine, seqRestoreCursor)
	})
	return ui.statusErr
}

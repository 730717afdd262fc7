package shell

import (
	"unicode/utf8"

	"github.com/ledzpl/syncstr/pkg/syncstr"
)

// lineBuffer stores the user's current input line as UTF-8 in a synchronized buffer.
type lineBuffer struct {
	buf *syncstr.Buffer
}

func newLineBuffer(capacity int) (*lineBuffer, error) {
	if capacity <= 0 {
		capacity = 128
	}
	buf, err := syncstr.New(syncstr.WithEncoder(syncstr.UTF8()), syncstr.WithGrowth(syncstr.GrowGeometric))
	if err != nil {
		return nil, err
	}
	if err := buf.Resize(capacity); err != nil {
		return nil, err
	}
	return &lineBuffer{buf: buf}, nil
}

func (b *lineBuffer) Append(r rune) error {
	return b.buf.PushBackRune(r)
}

// TrimLast removes the last character, which may span several bytes. Only
// the session's read loop edits the line, so the erase below cannot race
// with another edit.
func (b *lineBuffer) TrimLast() {
	b.buf.Lock()
	n := b.buf.LenLocked()
	if n <= 0 {
		b.buf.Unlock()
		return
	}
	_, size := utf8.DecodeLastRune(b.buf.BytesLocked())
	b.buf.Unlock()

	_ = b.buf.Erase(n-size, size)
}

func (b *lineBuffer) Reset() {
	_ = b.buf.Clear()
}

func (b *lineBuffer) Drain() string {
	text, _ := b.buf.Drain()
	return text
}

func (b *lineBuffer) Snapshot() string {
	if b == nil {
		return ""
	}
	return b.buf.String()
}

// Close wipes the line.
func (b *lineBuffer) Close() {
	if b == nil {
		return
	}
	_ = b.buf.Destroy()
}

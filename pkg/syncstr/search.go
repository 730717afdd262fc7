package syncstr

import (
	"bytes"
	"fmt"
)

var asciiUpper, asciiLower = asciiTables()

// Find returns the offset of the first occurrence of other's content in b,
// or Invalid. other may be b itself.
func (b *Buffer) Find(other *Buffer) int {
	needle, err := other.snapshot()
	if err != nil {
		return Invalid
	}
	defer wipe(needle)
	return b.FindBytes(needle)
}

// FindString returns the offset of the first occurrence of s, or Invalid.
func (b *Buffer) FindString(s string) int {
	if err := b.lock(); err != nil {
		return Invalid
	}
	defer b.mu.Unlock()
	return bytes.Index(b.data[:b.length], []byte(s))
}

// FindBytes returns the offset of the first occurrence of p, or Invalid.
func (b *Buffer) FindBytes(p []byte) int {
	if err := b.lock(); err != nil {
		return Invalid
	}
	defer b.mu.Unlock()
	return bytes.Index(b.data[:b.length], p)
}

// FindWide converts wide with the buffer's encoder and searches for it.
// A conversion failure is returned as an error; a miss returns Invalid and
// no error.
func (b *Buffer) FindWide(wide []rune) (int, error) {
	if b == nil {
		return Invalid, fmt.Errorf("%w: nil buffer", ErrInvalidArgument)
	}
	needle, err := b.enc.Encode(wide)
	if err != nil {
		return Invalid, err
	}
	defer wipe(needle)
	if err := b.lock(); err != nil {
		return Invalid, err
	}
	defer b.mu.Unlock()
	return bytes.Index(b.data[:b.length], needle), nil
}

// Substring returns a new buffer with up to n bytes starting at start.
// n is clamped to the bytes remaining after start.
func (b *Buffer) Substring(start, n int) (*Buffer, error) {
	if err := b.lock(); err != nil {
		return nil, err
	}
	defer b.mu.Unlock()

	if start < 0 || start >= b.length {
		return nil, fmt.Errorf("%w: substring at %d of %d", ErrOutOfRange, start, b.length)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: substring length %d", ErrInvalidArgument, n)
	}
	n = min(n, b.length-start)
	return b.spawn(b.data[start : start+n])
}

func (b *Buffer) caseTables() (upper, lower *[256]byte) {
	if cf, ok := b.enc.(CaseFolder); ok {
		return cf.CaseTables()
	}
	return &asciiUpper, &asciiLower
}

// ToUpper folds the content to upper case in place, one byte at a time,
// using the encoder's case tables. Characters encoded in more than one byte
// are left alone.
func (b *Buffer) ToUpper() error {
	return b.fold(true)
}

// ToLower is the lower case counterpart of ToUpper.
func (b *Buffer) ToLower() error {
	return b.fold(false)
}

func (b *Buffer) fold(toUpper bool) error {
	if err := b.lock(); err != nil {
		return err
	}
	defer b.mu.Unlock()

	table, lower := b.caseTables()
	if !toUpper {
		table = lower
	}
	for i, c := range b.data[:b.length] {
		b.data[i] = table[c]
	}
	return nil
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// Trim removes leading and trailing whitespace in place and reports whether
// anything was removed.
func (b *Buffer) Trim() (bool, error) {
	if err := b.lock(); err != nil {
		return false, err
	}
	defer b.mu.Unlock()

	start, end := 0, b.length
	for start < end && isSpace(b.data[start]) {
		start++
	}
	for end > start && isSpace(b.data[end-1]) {
		end--
	}
	if start == 0 && end == b.length {
		return false, nil
	}

	n := end - start
	copy(b.data, b.data[start:end])
	clear(b.data[n:b.length])
	b.length = n
	return true, nil
}

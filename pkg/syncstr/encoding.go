package syncstr

import (
	"fmt"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// Encoder converts wide text to the narrow byte form stored in a buffer.
// The same conversion is used for single characters and whole strings.
type Encoder interface {
	Encode(wide []rune) ([]byte, error)
}

// CaseFolder is implemented by encoders that know the byte-wise case
// mapping of their narrow form.
type CaseFolder interface {
	CaseTables() (upper, lower *[256]byte)
}

// DefaultEncoder is used by buffers created without WithEncoder.
var DefaultEncoder Encoder = CodePage(charmap.Windows1252)

// UTF8 returns an encoder producing UTF-8. Surrogate halves and runes past
// U+10FFFF fail with ErrEncoding.
func UTF8() Encoder {
	return utf8Encoder{}
}

type utf8Encoder struct{}

func (utf8Encoder) Encode(wide []rune) ([]byte, error) {
	out := make([]byte, 0, len(wide))
	for i, r := range wide {
		if !utf8.ValidRune(r) {
			return nil, fmt.Errorf("%w: invalid rune %U at %d", ErrEncoding, r, i)
		}
		out = utf8.AppendRune(out, r)
	}
	return out, nil
}

// CodePageOption configures a code page encoder.
type CodePageOption func(*codePage)

// ReplaceUnsupported substitutes runes the code page cannot represent
// instead of failing. This is the best-fit behaviour of legacy converters.
func ReplaceUnsupported() CodePageOption {
	return func(cp *codePage) {
		cp.replace = true
	}
}

type codePage struct {
	enc     encoding.Encoding
	replace bool

	upper, lower [256]byte
}

// CodePage returns an encoder for a golang.org/x/text encoding. Single-byte
// character maps also supply case tables for ToUpper and ToLower.
func CodePage(enc encoding.Encoding, opts ...CodePageOption) Encoder {
	cp := &codePage{enc: enc}
	for _, opt := range opts {
		opt(cp)
	}
	cp.upper, cp.lower = asciiTables()
	if cm, ok := enc.(*charmap.Charmap); ok {
		buildCharmapTables(cm, &cp.upper, &cp.lower)
	}
	return cp
}

// CodePageByName resolves an IANA encoding name such as "windows-1252" or
// "ISO-8859-1".
func CodePageByName(name string, opts ...CodePageOption) (Encoder, error) {
	if name == "utf-8" || name == "UTF-8" || name == "utf8" {
		return UTF8(), nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidArgument, name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("%w: encoding %q is not supported", ErrInvalidArgument, name)
	}
	return CodePage(enc, opts...), nil
}

func (cp *codePage) Encode(wide []rune) ([]byte, error) {
	for i, r := range wide {
		if !utf8.ValidRune(r) {
			return nil, fmt.Errorf("%w: invalid rune %U at %d", ErrEncoding, r, i)
		}
	}
	enc := cp.enc.NewEncoder()
	if cp.replace {
		enc = encoding.ReplaceUnsupported(enc)
	}
	out, err := enc.Bytes([]byte(string(wide)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return out, nil
}

func (cp *codePage) CaseTables() (upper, lower *[256]byte) {
	return &cp.upper, &cp.lower
}

func asciiTables() (upper, lower [256]byte) {
	for i := range 256 {
		upper[i], lower[i] = byte(i), byte(i)
		switch {
		case i >= 'a' && i <= 'z':
			upper[i] = byte(i) - 'a' + 'A'
		case i >= 'A' && i <= 'Z':
			lower[i] = byte(i) - 'A' + 'a'
		}
	}
	return upper, lower
}

// buildCharmapTables folds every byte of a single-byte code page through
// its rune. A mapping is kept only when the folded rune also fits in one byte.
func buildCharmapTables(cm *charmap.Charmap, upper, lower *[256]byte) {
	for i := range 256 {
		r := cm.DecodeByte(byte(i))
		if r == utf8.RuneError {
			continue
		}
		if b, ok := cm.EncodeRune(unicode.ToUpper(r)); ok {
			upper[i] = b
		}
		if b, ok := cm.EncodeRune(unicode.ToLower(r)); ok {
			lower[i] = b
		}
	}
}

// WideFromUTF16 decodes UTF-16 code units, as handed over by platform wide
// string APIs, into runes. A terminating zero unit ends the string.
func WideFromUTF16(units []uint16) []rune {
	for i, u := range units {
		if u == 0 {
			units = units[:i]
			break
		}
	}
	return utf16.Decode(units)
}

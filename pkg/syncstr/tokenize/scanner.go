package tokenize

import (
	"errors"

	"github.com/ledzpl/syncstr/pkg/syncstr"
)

// Config selects the tokenizer mode. With no zone pairs and no escapes the
// plain delimiter mode is used.
type Config struct {
	Delimiters string
	ZonePairs  string
	Escapes    string
}

func (c Config) zoned() bool {
	return c.ZonePairs != "" || c.Escapes != ""
}

// Scanner walks the tokens of a buffer with its own cursor.
//
//	s := tokenize.NewScanner(buf, tokenize.Config{Delimiters: " "})
//	for s.Scan() {
//		fmt.Println(s.Text())
//	}
//	if err := s.Err(); err != nil {
//		...
//	}
type Scanner struct {
	src *syncstr.Buffer
	cfg Config
	pos int

	token *syncstr.Buffer
	err   error
}

// NewScanner returns a scanner positioned at the start of src.
func NewScanner(src *syncstr.Buffer, cfg Config) *Scanner {
	return &Scanner{src: src, cfg: cfg}
}

// Scan advances to the next token. It returns false at the end of the
// buffer or on error.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	var (
		tok *syncstr.Buffer
		err error
	)
	if s.cfg.zoned() {
		tok, err = NextZoned(s.src, s.cfg.Delimiters, s.cfg.ZonePairs, s.cfg.Escapes, &s.pos)
	} else {
		tok, err = Next(s.src, s.cfg.Delimiters, &s.pos)
	}
	if err != nil {
		s.token = nil
		if !errors.Is(err, ErrNoToken) {
			s.err = err
		}
		return false
	}
	s.token = tok
	return true
}

// Token returns the buffer produced by the last successful Scan. The
// caller owns it.
func (s *Scanner) Token() *syncstr.Buffer {
	return s.token
}

// Text returns the last token as a string.
func (s *Scanner) Text() string {
	return s.token.String()
}

// Pos returns the cursor.
func (s *Scanner) Pos() int {
	return s.pos
}

// Reset moves the cursor back to pos and clears any error.
func (s *Scanner) Reset(pos int) {
	s.pos, s.token, s.err = pos, nil, nil
}

// Err returns the first error other than running out of tokens.
func (s *Scanner) Err() error {
	return s.err
}

// All drains src into strings. Each intermediate token buffer is destroyed
// once copied out.
func All(src *syncstr.Buffer, cfg Config) ([]string, error) {
	var out []string
	s := NewScanner(src, cfg)
	for s.Scan() {
		tok := s.Token()
		out = append(out, tok.String())
		_ = tok.Destroy()
	}
	return out, s.Err()
}

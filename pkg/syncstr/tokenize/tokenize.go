// Package tokenize splits the content of a syncstr.Buffer into tokens.
//
// Each call takes a caller-owned cursor, emits at most one token as a new
// buffer and advances the cursor past the token's terminating delimiter.
// Runs of delimiters are skipped, so empty tokens are never produced.
package tokenize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ledzpl/syncstr/pkg/syncstr"
)

// ErrNoToken reports that no token remains at or after the cursor.
var ErrNoToken = errors.New("tokenize: no token")

// Next extracts the next token of src delimited by any byte of delims,
// starting at *pos.
func Next(src *syncstr.Buffer, delims string, pos *int) (*syncstr.Buffer, error) {
	return next(src, pos, delims, func(data []byte, at int) int {
		for at < len(data) && !isDelim(delims, data[at]) {
			at++
		}
		return at
	})
}

// NextZoned is Next with zones and escapes. zonePairs lists open/close
// bytes pairwise, e.g. `""''`; a trailing unpaired byte is ignored.
// Inside a zone only its closing byte is significant; an escape byte makes
// the following byte literal. A token running into the end of src inside a
// zone or after an escape ends there without error.
func NextZoned(src *syncstr.Buffer, delims, zonePairs, escapes string, pos *int) (*syncstr.Buffer, error) {
	return next(src, pos, delims, func(data []byte, at int) int {
		return scanZoned(data, at, delims, zonePairs, escapes)
	})
}

// next runs the shared skip/scan/emit steps under src's lock. scan returns
// the exclusive end of the token body starting at its second argument.
func next(src *syncstr.Buffer, pos *int, delims string, scan func(data []byte, at int) int) (*syncstr.Buffer, error) {
	if src == nil || pos == nil {
		return nil, fmt.Errorf("%w: nil buffer or cursor", syncstr.ErrInvalidArgument)
	}
	if *pos < 0 {
		return nil, fmt.Errorf("%w: cursor %d", syncstr.ErrOutOfRange, *pos)
	}

	src.Lock()
	defer src.Unlock()

	n := src.LenLocked()
	if n == syncstr.Invalid {
		return nil, syncstr.ErrDestroyed
	}
	if *pos >= n {
		*pos = n
		return nil, ErrNoToken
	}

	data := src.BytesLocked()
	at := *pos
	for at < n && isDelim(delims, data[at]) {
		at++
	}
	if at >= n {
		*pos = n
		return nil, ErrNoToken
	}

	end := scan(data, at)
	tok, err := src.SliceLocked(at, end)
	if err != nil {
		return nil, err
	}
	if end < n {
		*pos = end + 1
	} else {
		*pos = n
	}
	return tok, nil
}

func isDelim(delims string, c byte) bool {
	return strings.IndexByte(delims, c) >= 0
}

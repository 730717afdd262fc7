package tokenize

import "strings"

// scanZoned returns the exclusive end of the token body starting at at.
// Per byte, in order: a pending escape consumes it; inside a zone only the
// closing byte matters; otherwise a delimiter ends the token, a zone opener
// enters a zone, and an escape byte escapes the next byte.
func scanZoned(data []byte, at int, delims, zonePairs, escapes string) int {
	var (
		escaped bool
		inZone  bool
		closing byte
	)
	for ; at < len(data); at++ {
		c := data[at]
		switch {
		case escaped:
			escaped = false
		case inZone:
			if c == closing {
				inZone = false
			}
		case isDelim(delims, c):
			return at
		default:
			if end, ok := zoneCloser(zonePairs, c); ok {
				inZone, closing = true, end
			} else if strings.IndexByte(escapes, c) >= 0 {
				escaped = true
			}
		}
	}
	return at
}

// zoneCloser returns the closing byte of the zone opened by c.
func zoneCloser(zonePairs string, c byte) (byte, bool) {
	for i := 0; i+1 < len(zonePairs); i += 2 {
		if zonePairs[i] == c {
			return zonePairs[i+1], true
		}
	}
	return 0, false
}

// Unquote removes zone bytes and escape bytes from token, keeping escaped
// bytes and zone contents literally.
func Unquote(token, zonePairs, escapes string) string {
	var (
		b       strings.Builder
		escaped bool
		inZone  bool
		closing byte
	)
	b.Grow(len(token))
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case escaped:
			escaped = false
			b.WriteByte(c)
		case inZone:
			if c == closing {
				inZone = false
				continue
			}
			b.WriteByte(c)
		default:
			if end, ok := zoneCloser(zonePairs, c); ok {
				inZone, closing = true, end
			} else if strings.IndexByte(escapes, c) >= 0 {
				escaped = true
			} else {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

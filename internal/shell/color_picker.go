package shell

import "github.com/cespare/xxhash/v2"

// ColorPicker chooses the display color for a username.
type ColorPicker interface {
	Pick(username string) string
}

const ansiReset = "\033[0m"

var userPalette = []string{
	"\033[31m",
	"\033[32m",
	"\033[33m",
	"\033[34m",
	"\033[35m",
	"\033[36m",
}

// paletteByName hashes the username into the palette, so a user keeps the
// same color across sessions.
type paletteByName []string

func (p paletteByName) Pick(username string) string {
	if len(p) == 0 {
		return ""
	}
	return p[xxhash.Sum64String(username)%uint64(len(p))]
}

func paint(color, name string) string {
	if color == "" {
		return name
	}
	return color + name + ansiReset
}

package export

import (
	"strings"
	"time"
	"unicode"
)

// Sanitize strips characters that are unsafe in filenames, keeping
// letters in any alphabet, digits, spaces, hyphen, underscore and dot.
// Sanitizing an already-sanitized name returns it unchanged.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) ||
			r == ' ' || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// BaseName returns the filename without its final extension.
func BaseName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i != -1 {
		return name[:i]
	}
	return name
}

// TimestampedName derives an export filename from the original name:
// <base>_<yyyymmddhhmmss>.<ext>.
func TimestampedName(originalName, ext string, now time.Time) string {
	return Sanitize(BaseName(originalName) + "_" + now.Format("20060102150405") + "." + ext)
}

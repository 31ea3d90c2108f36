// Package textenc converts bank export bytes of unknown encoding to UTF-8.
package textenc

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// latin1Decl matches an OFX header (or XML prolog) declaring ISO-8859-1.
var latin1Decl = regexp.MustCompile(`(?i)(?:CHARSET:\s*|encoding=["'])(?:ISO-?)?8859-1\b`)

// Normalize returns data as valid UTF-8. Input that is already UTF-8 is
// returned unchanged even when a header claims otherwise. Otherwise the
// charset is taken from an OFX CHARSET declaration, falling back to
// Windows-1252. Undecodable bytes are dropped.
func Normalize(data []byte) string {
	if len(data) == 0 || utf8.Valid(data) {
		return string(data)
	}
	return decode(data, DetectCharset(data))
}

// NormalizeLegacy is Normalize for formats with no charset declaration
// (QIF): non-UTF-8 input is always read as Windows-1252.
func NormalizeLegacy(data []byte) string {
	if len(data) == 0 || utf8.Valid(data) {
		return string(data)
	}
	return decode(data, charmap.Windows1252)
}

// DetectCharset returns the single-byte charset declared in data.
func DetectCharset(data []byte) *charmap.Charmap {
	if latin1Decl.Match(data) {
		return charmap.ISO8859_1
	}
	return charmap.Windows1252
}

func decode(data []byte, cm *charmap.Charmap) string {
	out, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		// Charmap decoders substitute rather than fail; keep the valid prefix.
		return strings.ToValidUTF8(string(out), "")
	}
	return strings.ToValidUTF8(strings.ReplaceAll(string(out), string(utf8.RuneError), ""), "")
}

package ofx

import "strings"

// cursor finds tags in OFX text without caring whether leaf elements are
// closed (XML) or not (SGML). Tag names match case-insensitively; fold is
// an ASCII-lowercased copy of src so byte offsets line up.
type cursor struct {
	src  string
	fold string
	pos  int
}

func newCursor(src string) *cursor {
	return &cursor{src: src, fold: asciiLower(src)}
}

// open advances past the next <name ...> tag and returns the offsets of
// its '<' and of the byte after its '>'.
func (c *cursor) open(name string) (start, end int, ok bool) {
	return c.seek("<" + asciiLower(name))
}

// close advances past the next </name> tag.
func (c *cursor) close(name string) (start, end int, ok bool) {
	return c.seek("</" + asciiLower(name))
}

func (c *cursor) seek(prefix string) (int, int, bool) {
	for c.pos < len(c.fold) {
		i := strings.Index(c.fold[c.pos:], prefix)
		if i < 0 {
			c.pos = len(c.fold)
			return 0, 0, false
		}
		start := c.pos + i
		after := start + len(prefix)
		c.pos = after
		if after < len(c.fold) && !isTagBoundary(c.fold[after]) {
			// <NAME matched the front of <NAMEX>.
			continue
		}
		gt := strings.IndexByte(c.fold[after:], '>')
		if gt < 0 {
			c.pos = len(c.fold)
			return 0, 0, false
		}
		c.pos = after + gt + 1
		return start, c.pos, true
	}
	return 0, 0, false
}

// value returns the text after the tag ending at end, up to the next tag
// or line break.
func (c *cursor) value(end int) string {
	rest := c.src[end:]
	if i := strings.IndexAny(rest, "<\n"); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}

func isTagBoundary(b byte) bool {
	return b == '>' || b == ' ' || b == '\t' || b == '\n' || b == '/'
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, ch := range b {
		if 'A' <= ch && ch <= 'Z' {
			b[i] = ch + ('a' - 'A')
		}
	}
	return string(b)
}

package buffer

import "strings"

// Option is a functional option for configuring a Buffer.
type Option func(*Buffer)

// WithTabWidth sets the buffer's tab width.
func WithTabWidth(width int) Option {
	return func(b *Buffer) {
		if width > 0 {
			b.tabWidth = width
		}
	}
}

// WithListener registers a change listener at construction time.
func WithListener(fn Listener) Option {
	return func(b *Buffer) {
		if fn != nil {
			b.addListener(fn)
		}
	}
}

// DetectLineEnding returns the terminator of the first line of s: "\r\n",
// "\r" or "\n". Text without a terminator reports "\n".
func DetectLineEnding(s string) string {
	i := strings.IndexAny(s, "\r\n")
	switch {
	case i < 0 || s[i] == '\n':
		return "\n"
	case i+1 < len(s) && s[i+1] == '\n':
		return "\r\n"
	default:
		return "\r"
	}
}

// NormalizeLineEndings converts CRLF and CR line endings to LF.
func NormalizeLineEndings(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// MeasureIndent returns the display width of the leading spaces and tabs
// of line and the number of bytes they occupy. A tab advances to the next
// multiple of tabWidth.
func MeasureIndent(line string, tabWidth int) (width, n int) {
	if tabWidth < 1 {
		tabWidth = 1
	}
	for n < len(line) {
		switch line[n] {
		case ' ':
			width++
		case '\t':
			width += tabWidth - width%tabWidth
		default:
			return width, n
		}
		n++
	}
	return width, n
}

// TrimIndent removes leading spaces and tabs from line up to width
// columns. A tab that would cross width is kept.
func TrimIndent(line string, width, tabWidth int) string {
	if tabWidth < 1 {
		tabWidth = 1
	}
	col, n := 0, 0
	for n < len(line) && col < width {
		switch line[n] {
		case ' ':
			col++
		case '\t':
			next := col + tabWidth - col%tabWidth
			if next > width {
				return line[n:]
			}
			col = next
		default:
			return line[n:]
		}
		n++
	}
	return line[n:]
}

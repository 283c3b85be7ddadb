package buffer

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestNewBuffer(t *testing.T) {
	b := NewBuffer()

	if !b.IsEmpty() {
		t.Error("new buffer should be empty")
	}

	if b.LineCount() != 1 {
		t.Errorf("expected 1 line, got %d", b.LineCount())
	}
}

func TestNewBufferFromStringMultiline(t *testing.T) {
	b := NewBufferFromString("line1\nline2\nline3")

	if b.LineCount() != 3 {
		t.Fatalf("expected 3 lines, got %d", b.LineCount())
	}

	for i, want := range []string{"line1", "line2", "line3"} {
		if got := b.Line(i); got != want {
			t.Errorf("line %d: expected %q, got %q", i, want, got)
		}
	}
}

func TestNewBufferNormalizesLineEndings(t *testing.T) {
	b := NewBufferFromString("a\r\nb\rc")

	if b.Text() != "a\nb\nc" {
		t.Errorf("expected normalized text, got %q", b.Text())
	}
}

func TestDetectLineEnding(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "\n"},
		{"no terminator", "abc", "\n"},
		{"lf", "a\nb", "\n"},
		{"crlf", "a\r\nb", "\r\n"},
		{"cr", "a\rb", "\r"},
		{"trailing cr", "a\r", "\r"},
		{"first line wins", "a\nb\r\nc", "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLineEnding(tt.in); got != tt.want {
				t.Errorf("DetectLineEnding(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if got := NewBufferFromString(tt.in).LineEnding(); got != tt.want {
				t.Errorf("LineEnding() = %q, want %q", got, tt.want)
			}
		})
	}
	if got := NewBuffer().LineEnding(); got != "\n" {
		t.Errorf("empty buffer LineEnding() = %q", got)
	}
}

func TestNewBufferFromReader(t *testing.T) {
	b, err := NewBufferFromReader(strings.NewReader("x\r\ny"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Text() != "x\ny" {
		t.Errorf("expected %q, got %q", "x\ny", b.Text())
	}
}

func TestBufferInsert(t *testing.T) {
	tests := []struct {
		name string
		text string
		at   Point
		ins  string
		want string
	}{
		{"middle of line", "Hello World", Point{0, 5}, ",", "Hello, World"},
		{"start", "World", Point{0, 0}, "Hello ", "Hello World"},
		{"end", "Hello", Point{0, 5}, " World", "Hello World"},
		{"newline splits line", "AB", Point{0, 1}, "\n", "A\nB"},
		{"multi-line", "A\nB", Point{1, 0}, "X\nY\n", "A\nX\nY\nB"},
		{"crlf normalized", "A", Point{0, 1}, "\r\nB", "A\nB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBufferFromString(tt.text)
			if err := b.Insert(tt.at, tt.ins); err != nil {
				t.Fatalf("insert failed: %v", err)
			}
			if b.Text() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, b.Text())
			}
		})
	}
}

func TestBufferInsertOutOfRange(t *testing.T) {
	b := NewBufferFromString("Hello")

	for _, p := range []Point{{0, 6}, {1, 0}, {-1, 0}, {0, -1}} {
		if err := b.Insert(p, "X"); !errors.Is(err, ErrPointOutOfRange) {
			t.Errorf("Insert(%s): expected ErrPointOutOfRange, got %v", p, err)
		}
	}

	if b.Text() != "Hello" {
		t.Errorf("buffer should be unchanged, got %q", b.Text())
	}
}

func TestBufferInsertSplitRune(t *testing.T) {
	b := NewBufferFromString("héllo")

	// 'é' occupies bytes 1-2
	if err := b.Insert(Point{0, 2}, "X"); !errors.Is(err, ErrPointOutOfRange) {
		t.Errorf("expected ErrPointOutOfRange, got %v", err)
	}
}

func TestBufferRemove(t *testing.T) {
	tests := []struct {
		name string
		text string
		r    PointRange
		want string
	}{
		{"within line", "Hello, World!", NewPointRange(Point{0, 5}, Point{0, 7}), "HelloWorld!"},
		{"join lines", "A\nB", NewPointRange(Point{0, 1}, Point{1, 0}), "AB"},
		{"across rows", "foo\nbar\nbaz", NewPointRange(Point{0, 2}, Point{2, 1}), "foaz"},
		{"whole buffer", "x\ny", NewPointRange(Point{0, 0}, Point{1, 1}), ""},
		{"empty range", "abc", NewPointRange(Point{0, 1}, Point{0, 1}), "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBufferFromString(tt.text)
			if err := b.Remove(tt.r); err != nil {
				t.Fatalf("remove failed: %v", err)
			}
			if b.Text() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, b.Text())
			}
		})
	}
}

func TestBufferRemoveInvalidRange(t *testing.T) {
	b := NewBufferFromString("Hello")

	err := b.Remove(NewPointRange(Point{0, 3}, Point{0, 2}))
	if !errors.Is(err, ErrRangeInvalid) {
		t.Errorf("expected ErrRangeInvalid, got %v", err)
	}

	err = b.Remove(NewPointRange(Point{0, 0}, Point{4, 0}))
	if !errors.Is(err, ErrPointOutOfRange) {
		t.Errorf("expected ErrPointOutOfRange, got %v", err)
	}
}

func TestBufferTextRange(t *testing.T) {
	b := NewBufferFromString("foo\nbar\nbaz")

	got, err := b.TextRange(NewPointRange(Point{0, 1}, Point{2, 2}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "oo\nbar\nba" {
		t.Errorf("expected %q, got %q", "oo\nbar\nba", got)
	}

	got, err = b.TextRange(NewPointRange(Point{1, 0}, Point{1, 3}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "bar" {
		t.Errorf("expected %q, got %q", "bar", got)
	}
}

func TestBufferRevision(t *testing.T) {
	b := NewBufferFromString("abc")
	r0 := b.Revision()

	if err := b.Insert(Point{0, 0}, "x"); err != nil {
		t.Fatal(err)
	}
	r1 := b.Revision()
	if r1 == r0 {
		t.Error("insert should produce a new revision")
	}

	// No-op writes keep the revision.
	_ = b.Insert(Point{0, 0}, "")
	_ = b.Remove(NewPointRange(Point{0, 1}, Point{0, 1}))
	if b.Revision() != r1 {
		t.Error("no-op writes should not change the revision")
	}
}

func TestBufferSubscribe(t *testing.T) {
	b := NewBufferFromString("A\nB")

	var changes []Change
	unsubscribe := b.Subscribe(func(c Change) {
		changes = append(changes, c)
	})

	_ = b.Insert(Point{1, 0}, "X\n")
	_ = b.Remove(NewPointRange(Point{1, 0}, Point{2, 0}))
	unsubscribe()
	unsubscribe()
	_ = b.Insert(Point{0, 0}, "ignored")

	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}

	ins := changes[0]
	if ins.Type != ChangeInsert || ins.Text != "X\n" {
		t.Errorf("unexpected insert change: %s", ins)
	}
	if ins.Range.End != (Point{2, 0}) {
		t.Errorf("insert end: expected (2:0), got %s", ins.Range.End)
	}

	rem := changes[1]
	if rem.Type != ChangeRemove || rem.Text != "X\n" {
		t.Errorf("unexpected remove change: %s", rem)
	}
	if rem.Revision <= ins.Revision {
		t.Errorf("revisions should increase: insert %d, remove %d", ins.Revision, rem.Revision)
	}
}

func TestBufferSnapshotIsolation(t *testing.T) {
	b := NewBufferFromString("one\ntwo")
	snap := b.Snapshot()

	_ = b.Insert(Point{0, 0}, "zero\n")

	if snap.Text() != "one\ntwo" {
		t.Errorf("snapshot changed: %q", snap.Text())
	}
	if snap.LineCount() != 2 || b.LineCount() != 3 {
		t.Errorf("unexpected line counts: snapshot %d, buffer %d", snap.LineCount(), b.LineCount())
	}
	if snap.Revision() == b.Revision() {
		t.Error("snapshot revision should differ after write")
	}
}

func TestPointAdvance(t *testing.T) {
	tests := []struct {
		from Point
		text string
		want Point
	}{
		{Point{2, 3}, "", Point{2, 3}},
		{Point{2, 3}, "abc", Point{2, 6}},
		{Point{2, 3}, "foo\n", Point{3, 0}},
		{Point{2, 3}, "a\nbc\ndef", Point{4, 3}},
	}

	for _, tt := range tests {
		if got := tt.from.Advance(tt.text); got != tt.want {
			t.Errorf("%s.Advance(%q) = %s, want %s", tt.from, tt.text, got, tt.want)
		}
	}
}

func TestBufferConcurrentAccess(t *testing.T) {
	b := NewBufferFromString("")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = b.Insert(Point{0, 0}, "x")
				_ = b.Text()
			}
		}()
	}
	wg.Wait()

	if got := len(b.Line(0)); got != 1000 {
		t.Errorf("expected 1000 bytes, got %d", got)
	}
}

func TestMeasureIndent(t *testing.T) {
	tests := []struct {
		line      string
		tabWidth  int
		wantWidth int
		wantBytes int
	}{
		{"abc", 4, 0, 0},
		{"  abc", 4, 2, 2},
		{"\tabc", 4, 4, 1},
		{"\tabc", 8, 8, 1},
		{"  \tabc", 4, 4, 3},
		{"\t  abc", 2, 4, 3},
		{"   ", 4, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			w, n := MeasureIndent(tt.line, tt.tabWidth)
			if w != tt.wantWidth || n != tt.wantBytes {
				t.Errorf("MeasureIndent(%q, %d) = %d, %d, want %d, %d",
					tt.line, tt.tabWidth, w, n, tt.wantWidth, tt.wantBytes)
			}
		})
	}
}

func TestTrimIndent(t *testing.T) {
	tests := []struct {
		line     string
		width    int
		tabWidth int
		want     string
	}{
		{"    a", 2, 4, "  a"},
		{"\ta", 4, 4, "a"},
		{"\t\ta", 4, 4, "\ta"},
		{"\ta", 2, 4, "\ta"},
		{"  \ta", 4, 4, "a"},
		{" a", 4, 4, "a"},
		{"", 4, 4, ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := TrimIndent(tt.line, tt.width, tt.tabWidth); got != tt.want {
				t.Errorf("TrimIndent(%q, %d, %d) = %q, want %q", tt.line, tt.width, tt.tabWidth, got, tt.want)
			}
		})
	}
}

package position

import (
	"errors"
	"testing"

	"github.com/dshills/appwiki/internal/engine/buffer"
)

func span(start, end int) NodeSpan {
	return NodeSpan{Start: Point{Line: start}, End: Point{Line: end}}
}

func TestToRange(t *testing.T) {
	buf := buffer.NewBufferFromString("intro\n```kpt\nfoo\nbarbaz\n```\ntail")

	got := ToRange(span(2, 5), buf.LineLen)
	if got.Empty {
		t.Fatal("span with body reported empty")
	}
	if got.Anchor != (buffer.Point{Line: 1}) {
		t.Errorf("anchor = %s, want (1:0)", got.Anchor)
	}
	want := buffer.NewPointRange(buffer.Point{Line: 2}, buffer.Point{Line: 3, Column: 6})
	if got.Content != want {
		t.Errorf("content = %s, want %s", got.Content, want)
	}

	text, err := buf.TextRange(got.Content)
	if err != nil {
		t.Fatal(err)
	}
	if text != "foo\nbarbaz" {
		t.Errorf("content text = %q", text)
	}
}

func TestToRangeEmptyBody(t *testing.T) {
	buf := buffer.NewBufferFromString("A\nB")

	got := ToRange(span(1, 2), buf.LineLen)
	if !got.Empty {
		t.Fatal("adjacent delimiters should denote an empty body")
	}
	if got.Anchor != (buffer.Point{}) {
		t.Errorf("anchor = %s, want (0:0)", got.Anchor)
	}
	if !got.Content.IsEmpty() {
		t.Errorf("empty body should have no content range, got %s", got.Content)
	}
}

func TestResolveStale(t *testing.T) {
	buf := buffer.NewBufferFromString("0\n1\n2\n3\n4\n5\n6\n7\n8\n9")

	tests := []struct {
		name string
		span NodeSpan
	}{
		{"start beyond buffer", span(51, 53)},
		{"end beyond buffer", span(8, 52)},
		{"empty body beyond buffer", span(11, 12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.span, buf)
			if !errors.Is(err, ErrStaleSpan) {
				t.Errorf("expected ErrStaleSpan, got %v", err)
			}
		})
	}
}

func TestResolveInvalid(t *testing.T) {
	buf := buffer.NewBufferFromString("a\nb\nc")

	for _, s := range []NodeSpan{span(0, 2), span(2, 2), span(3, 1), {Start: Point{Line: 1}, End: Point{Line: 3}, Indent: -1}} {
		if _, err := Resolve(s, buf); !errors.Is(err, ErrInvalidSpan) {
			t.Errorf("Resolve(%s): expected ErrInvalidSpan, got %v", s, err)
		}
	}
}

func TestResolveWithoutClosingDelimiter(t *testing.T) {
	// The closing delimiter row may be missing at end of buffer; only
	// content rows must exist.
	buf := buffer.NewBufferFromString("```kpt\nfoo")

	got, err := Resolve(span(1, 3), buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Content.End != (buffer.Point{Line: 1, Column: 3}) {
		t.Errorf("content end = %s", got.Content.End)
	}
}

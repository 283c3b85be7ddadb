package document

import (
	"strings"
	"testing"

	"github.com/dshills/appwiki/internal/engine/position"
)

func span(start, end, indent int) position.NodeSpan {
	return position.NodeSpan{
		Start:  position.Point{Line: start},
		End:    position.Point{Line: end},
		Indent: indent,
	}
}

func TestScan(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		tabWidth int
		want     []Block
	}{
		{
			name: "no blocks",
			doc:  "# Title\n\nplain text",
		},
		{
			name: "single block",
			doc:  "# Retro\n```kpt\nkeeps: []\n```\nafter",
			want: []Block{
				{App: "kpt", Span: span(2, 4, 0), Data: "keeps: []\n", Closed: true},
			},
		},
		{
			name: "empty body",
			doc:  "```kpt\n```",
			want: []Block{
				{App: "kpt", Span: span(1, 2, 0), Closed: true},
			},
		},
		{
			name: "indented",
			doc:  "- list\n  ```kpt\n  a: 1\n    b: 2\n  ```",
			want: []Block{
				{App: "kpt", Span: span(2, 5, 2), Data: "a: 1\n  b: 2\n", Closed: true},
			},
		},
		{
			name: "tab indented",
			doc:  "- list\n\t```kpt\n\ta: 1\n\t\tb: 2\n\t```",
			want: []Block{
				{App: "kpt", Span: span(2, 5, 4), Data: "a: 1\n\tb: 2\n", Closed: true},
			},
		},
		{
			name:     "tab width",
			doc:      "\t```kpt\n\ta: 1\n        b: 2\n\t```",
			tabWidth: 8,
			want: []Block{
				{App: "kpt", Span: span(1, 4, 8), Data: "a: 1\nb: 2\n", Closed: true},
			},
		},
		{
			name: "spaces under tab fence",
			doc:  "\t```kpt\n    a: 1\n\t```",
			want: []Block{
				{App: "kpt", Span: span(1, 3, 4), Data: "a: 1\n", Closed: true},
			},
		},
		{
			name: "anonymous fence skipped",
			doc:  "```\n```kpt\n```\n```kpt\nx\n```",
			want: []Block{
				{App: "kpt", Span: span(4, 6, 0), Data: "x\n", Closed: true},
			},
		},
		{
			name: "info string with attributes",
			doc:  "```kpt title=retro\n```",
			want: []Block{
				{App: "kpt", Span: span(1, 2, 0), Closed: true},
			},
		},
		{
			name: "unterminated",
			doc:  "```kpt\na\nb",
			want: []Block{
				{App: "kpt", Span: span(1, 4, 0), Data: "a\nb\n"},
			},
		},
		{
			name: "two blocks",
			doc:  "```a\n1\n```\n\n```b\n```",
			want: []Block{
				{Index: 0, App: "a", Span: span(1, 3, 0), Data: "1\n", Closed: true},
				{Index: 1, App: "b", Span: span(5, 6, 0), Closed: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tabWidth := tt.tabWidth
			if tabWidth == 0 {
				tabWidth = 4
			}
			got := Scan(strings.Split(tt.doc, "\n"), tabWidth)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d blocks, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("block %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

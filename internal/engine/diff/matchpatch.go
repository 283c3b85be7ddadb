package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// MatchPatch computes scripts with the diff-match-patch algorithm.
type MatchPatch struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewMatchPatch creates a diff-match-patch engine. The diff deadline is
// disabled so the result never depends on elapsed time.
func NewMatchPatch() *MatchPatch {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	return &MatchPatch{dmp: dmp}
}

// Name returns "dmp".
func (m *MatchPatch) Name() string {
	return EngineMatchPatch
}

// Compute returns the edit script turning oldText into newText.
func (m *MatchPatch) Compute(oldText, newText string) Script {
	return lineFirst(m, oldText, newText)
}

func (m *MatchPatch) lines(a, b []string) Script {
	enc := newLineEncoder()
	ra, okA := enc.encode(a)
	rb, okB := enc.encode(b)
	if !okA || !okB {
		return replaceMiddle(a, b, func(s []string) string { return strings.Join(s, "") })
	}

	diffs := m.dmp.DiffMainRunes(ra, rb, false)
	script := make(Script, 0, len(diffs))
	for _, d := range diffs {
		script = append(script, Op{Kind: kindOf(d.Type), Text: enc.decode(d.Text)})
	}
	return script
}

func (m *MatchPatch) chars(a, b string) Script {
	diffs := m.dmp.DiffMain(a, b, false)
	script := make(Script, 0, len(diffs))
	for _, d := range diffs {
		script = append(script, Op{Kind: kindOf(d.Type), Text: d.Text})
	}
	return script
}

func kindOf(op diffmatchpatch.Operation) OpKind {
	switch op {
	case diffmatchpatch.DiffInsert:
		return OpInsert
	case diffmatchpatch.DiffDelete:
		return OpRemove
	default:
		return OpKeep
	}
}

// Line tokens are encoded as runes starting in the private use area, which
// keeps clear of the surrogate range so the encoding survives the string
// conversions inside diffmatchpatch.
const (
	lineRuneBase = 0xE000
	lineRuneMax  = 0x10FFFF
)

// lineEncoder maps each distinct line to a single rune.
type lineEncoder struct {
	index map[string]rune
	lines []string
}

func newLineEncoder() *lineEncoder {
	return &lineEncoder{index: make(map[string]rune)}
}

// encode returns the rune sequence for lines, or false when there are more
// distinct lines than runes to encode them.
func (e *lineEncoder) encode(lines []string) ([]rune, bool) {
	out := make([]rune, len(lines))
	for i, line := range lines {
		r, ok := e.index[line]
		if !ok {
			r = rune(lineRuneBase + len(e.lines))
			if r > lineRuneMax {
				return nil, false
			}
			e.index[line] = r
			e.lines = append(e.lines, line)
		}
		out[i] = r
	}
	return out, true
}

func (e *lineEncoder) decode(s string) string {
	var sb strings.Builder
	for _, r := range s {
		sb.WriteString(e.lines[r-lineRuneBase])
	}
	return sb.String()
}

package diff

// DefaultMaxTraceBytes bounds the memory the Myers trace may use before the
// engine falls back to a prefix/suffix replacement.
const DefaultMaxTraceBytes = 64 << 20

// Myers computes scripts with the Myers shortest-edit-script algorithm.
type Myers struct {
	// MaxTraceBytes limits memory for the backtracking trace.
	// Zero selects DefaultMaxTraceBytes.
	MaxTraceBytes int
}

// NewMyers creates a Myers engine with default limits.
func NewMyers() *Myers {
	return &Myers{MaxTraceBytes: DefaultMaxTraceBytes}
}

// Name returns "myers".
func (m *Myers) Name() string {
	return EngineMyers
}

// Compute returns the edit script turning oldText into newText.
func (m *Myers) Compute(oldText, newText string) Script {
	return lineFirst(m, oldText, newText)
}

func (m *Myers) lines(a, b []string) Script {
	return shortestEdit(a, b, m.maxTraceBytes(), func(s []string) string {
		n := 0
		for _, line := range s {
			n += len(line)
		}
		buf := make([]byte, 0, n)
		for _, line := range s {
			buf = append(buf, line...)
		}
		return string(buf)
	})
}

func (m *Myers) chars(a, b string) Script {
	return shortestEdit([]rune(a), []rune(b), m.maxTraceBytes(), func(s []rune) string {
		return string(s)
	})
}

func (m *Myers) maxTraceBytes() int {
	if m.MaxTraceBytes <= 0 {
		return DefaultMaxTraceBytes
	}
	return m.MaxTraceBytes
}

// editOp represents a single edit operation in the diff.
type editOp struct {
	op       OpKind
	oldIndex int
	newIndex int
}

// shortestEdit diffs two token sequences and joins runs of equal kind with
// join. When the trace would exceed maxBytes it returns a prefix/suffix
// replacement instead, which is still a valid script.
func shortestEdit[T comparable](a, b []T, maxBytes int, join func([]T) string) Script {
	ops, ok := myersDiff(a, b, maxBytes)
	if !ok {
		return replaceMiddle(a, b, join)
	}

	var script Script
	for i := 0; i < len(ops); {
		j := i
		for j < len(ops) && ops[j].op == ops[i].op {
			j++
		}
		switch ops[i].op {
		case OpRemove:
			script = append(script, Op{Kind: OpRemove, Text: join(a[ops[i].oldIndex : ops[j-1].oldIndex+1])})
		case OpInsert:
			script = append(script, Op{Kind: OpInsert, Text: join(b[ops[i].newIndex : ops[j-1].newIndex+1])})
		default:
			script = append(script, Op{Kind: OpKeep, Text: join(a[ops[i].oldIndex : ops[j-1].oldIndex+1])})
		}
		i = j
	}
	return script
}

// replaceMiddle keeps the common prefix and suffix and replaces the rest.
func replaceMiddle[T comparable](a, b []T, join func([]T) string) Script {
	p := 0
	for p < len(a) && p < len(b) && a[p] == b[p] {
		p++
	}
	s := 0
	for s < len(a)-p && s < len(b)-p && a[len(a)-1-s] == b[len(b)-1-s] {
		s++
	}

	return Script{
		{Kind: OpKeep, Text: join(a[:p])},
		{Kind: OpRemove, Text: join(a[p : len(a)-s])},
		{Kind: OpInsert, Text: join(b[p : len(b)-s])},
		{Kind: OpKeep, Text: join(a[len(a)-s:])},
	}.normalize()
}

// myersDiff implements the Myers diff algorithm.
// Returns a sequence of edit operations, or false if the trace budget
// was exhausted.
func myersDiff[T comparable](a, b []T, maxBytes int) ([]editOp, bool) {
	n := len(a)
	m := len(b)

	// Handle trivial cases
	if n == 0 && m == 0 {
		return nil, true
	}
	if n == 0 {
		ops := make([]editOp, m)
		for i := 0; i < m; i++ {
			ops[i] = editOp{op: OpInsert, newIndex: i}
		}
		return ops, true
	}
	if m == 0 {
		ops := make([]editOp, n)
		for i := 0; i < n; i++ {
			ops[i] = editOp{op: OpRemove, oldIndex: i}
		}
		return ops, true
	}

	// V[-max..max] maps to slice[0..2*max]
	maxD := n + m
	offset := maxD
	v := make([]int, 2*maxD+1)
	rowBytes := (2*maxD + 1) * 8

	var trace [][]int

	// Forward pass to find shortest edit path
outer:
	for d := 0; d <= maxD; d++ {
		if (len(trace)+2)*rowBytes > maxBytes {
			return nil, false
		}

		// Save trace before processing this d; backtracking needs the
		// state from the previous iteration.
		vCopy := make([]int, len(v))
		copy(vCopy, v)
		trace = append(trace, vCopy)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}

			y := x - k

			// Extend diagonal (equal elements)
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}

			v[offset+k] = x

			if x >= n && y >= m {
				vFinal := make([]int, len(v))
				copy(vFinal, v)
				trace = append(trace, vFinal)
				break outer
			}
		}
	}

	return backtrack(trace, n, m, offset), true
}

// backtrack reconstructs the edit script from the trace.
func backtrack(trace [][]int, n, m, offset int) []editOp {
	if len(trace) == 0 {
		return nil
	}

	x := n
	y := m
	var ops []editOp

	// trace has d+1 entries for edit distance d plus the final state.
	for d := len(trace) - 2; d >= 0; d-- {
		v := trace[d]
		k := x - y

		var prevK int
		if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}

		prevX := v[offset+prevK]
		prevY := prevX - prevK

		// Walk back diagonals (equal elements)
		for x > prevX && y > prevY {
			x--
			y--
			ops = append(ops, editOp{op: OpKeep, oldIndex: x, newIndex: y})
		}

		if d > 0 {
			if x > prevX {
				x--
				ops = append(ops, editOp{op: OpRemove, oldIndex: x, newIndex: y})
			} else if y > prevY {
				y--
				ops = append(ops, editOp{op: OpInsert, oldIndex: x, newIndex: y})
			}
		}
	}

	// Reverse the ops (we built them backwards)
	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}

	return ops
}

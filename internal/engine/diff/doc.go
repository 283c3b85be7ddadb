// Package diff computes character-level edit scripts between an old and a
// new text fragment.
//
// An edit script is an ordered list of keep, insert and remove operations.
// Concatenating the keep and insert texts reproduces the new fragment;
// concatenating the keep and remove texts reproduces the old one.
//
// Both engines work line first: they align whole lines, then refine each
// changed block with a character diff when the removed and inserted text
// span the same number of lines. A block whose line count changes stays a
// whole-line replacement, so
//
//	Compute("foo\nbar", "foo\nbaz\nqux")
//
// yields keep "foo\n", remove "bar", insert "baz\nqux".
//
// Two engines are available:
//
//   - "dmp": github.com/sergi/go-diff with the diff deadline disabled
//   - "myers": a rune-level Myers shortest edit script
//
// Both are deterministic: identical inputs always produce identical scripts.
package diff

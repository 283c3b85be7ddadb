package diff

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Engine computes edit scripts.
type Engine interface {
	// Name returns the configuration name of the engine.
	Name() string

	// Compute returns the edit script turning oldText into newText.
	Compute(oldText, newText string) Script
}

// Engine names accepted by New.
const (
	EngineMatchPatch = "dmp"
	EngineMyers      = "myers"
)

// DefaultEngine is the engine used when none is configured.
const DefaultEngine = EngineMatchPatch

// ErrUnknownEngine indicates an unsupported engine name.
var ErrUnknownEngine = errors.New("unknown diff engine")

var engines = map[string]func() Engine{
	EngineMatchPatch: func() Engine { return NewMatchPatch() },
	EngineMyers:      func() Engine { return NewMyers() },
}

// New returns the engine registered under name. An empty name selects
// DefaultEngine.
func New(name string) (Engine, error) {
	if name == "" {
		name = DefaultEngine
	}
	ctor, ok := engines[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownEngine, name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

// Names returns the registered engine names in sorted order.
func Names() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// tokenDiffer is the primitive each engine supplies to the shared
// line-first driver.
type tokenDiffer interface {
	// lines diffs two sequences of newline-terminated lines.
	lines(a, b []string) Script

	// chars diffs two strings rune by rune.
	chars(a, b string) Script
}

// lineFirst aligns lines, then refines changed blocks of equal line count
// with a character diff.
//
// Both inputs get a sentinel newline so every line token is terminated;
// the sentinel is stripped from the script before it is returned.
func lineFirst(d tokenDiffer, oldText, newText string) Script {
	switch {
	case oldText == newText:
		if oldText == "" {
			return nil
		}
		return Script{{Kind: OpKeep, Text: oldText}}
	case oldText == "":
		return Script{{Kind: OpInsert, Text: newText}}
	case newText == "":
		return Script{{Kind: OpRemove, Text: oldText}}
	}

	coarse := d.lines(splitLines(oldText+"\n"), splitLines(newText+"\n")).normalize()

	out := make(Script, 0, len(coarse))
	for i := 0; i < len(coarse); i++ {
		op := coarse[i]
		if op.Kind == OpRemove && i+1 < len(coarse) && coarse[i+1].Kind == OpInsert {
			ins := coarse[i+1].Text
			if refinable(op.Text, ins) {
				out = append(out, d.chars(op.Text, ins)...)
				i++
				continue
			}
		}
		out = append(out, op)
	}

	return trimSentinel(out.normalize())
}

// refinable reports whether a removed/inserted pair can be diffed by
// character. Character diffs work on runes, so text that is not valid
// UTF-8 keeps the whole-line replacement.
func refinable(old, ins string) bool {
	return strings.Count(old, "\n") == strings.Count(ins, "\n") &&
		utf8.ValidString(old) && utf8.ValidString(ins)
}

// trimSentinel removes the trailing newline lineFirst appended to both
// texts. s must be normalized and both of its sides must end in "\n".
func trimSentinel(s Script) Script {
	out := append(Script(nil), s...)
	n := len(out)

	lastKeep := -1
	for i := n - 1; i >= 0; i-- {
		if out[i].Kind == OpKeep {
			lastKeep = i
			break
		}
	}

	var hasRem, hasIns bool
	for _, op := range out[lastKeep+1:] {
		hasRem = hasRem || op.Kind == OpRemove
		hasIns = hasIns || op.Kind == OpInsert
	}

	switch {
	case lastKeep == n-1:
		out[n-1].Text = chop(out[n-1].Text)
	case hasRem && hasIns:
		for i := lastKeep + 1; i < n; i++ {
			out[i].Text = chop(out[i].Text)
		}
	default:
		// Only one side continues past the last keep, so the other side's
		// sentinel is the keep's final newline. Rotate it into the tail:
		// K+"\n", T+"\n"  ==  K, "\n"+T, "\n".
		out[lastKeep].Text = chop(out[lastKeep].Text)
		for i := lastKeep + 1; i < n; i++ {
			out[i].Text = "\n" + chop(out[i].Text)
		}
	}

	return out.normalize()
}

func chop(s string) string {
	if s == "" {
		return s
	}
	return s[:len(s)-1]
}

// splitLines splits s after every newline, keeping the terminators.
// s must end in a newline.
func splitLines(s string) []string {
	parts := strings.SplitAfter(s, "\n")
	return parts[:len(parts)-1]
}

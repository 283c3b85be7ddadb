// Package kpt implements the Keep/Problem/Try retrospective board, an
// embedded application whose state lives as YAML inside its block.
package kpt

import (
	"bytes"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Model is the board state.
type Model struct {
	Keeps    []string `yaml:"keeps"`
	Problems []string `yaml:"problems"`
	Tries    []string `yaml:"tries"`
}

// NewModel returns an empty board.
func NewModel() *Model {
	return &Model{
		Keeps:    []string{},
		Problems: []string{},
		Tries:    []string{},
	}
}

// AddKeep appends a keep.
func (m *Model) AddKeep(s string) { m.Keeps = append(m.Keeps, s) }

// AddProblem appends a problem.
func (m *Model) AddProblem(s string) { m.Problems = append(m.Problems, s) }

// AddTry appends a try.
func (m *Model) AddTry(s string) { m.Tries = append(m.Tries, s) }

// Equal reports whether both boards hold the same items in the same order.
func (m *Model) Equal(other *Model) bool {
	if m == nil || other == nil {
		return m == other
	}
	return slices.Equal(m.Keeps, other.Keeps) &&
		slices.Equal(m.Problems, other.Problems) &&
		slices.Equal(m.Tries, other.Tries)
}

// Clone returns a deep copy.
func (m *Model) Clone() *Model {
	return &Model{
		Keeps:    append([]string{}, m.Keeps...),
		Problems: append([]string{}, m.Problems...),
		Tries:    append([]string{}, m.Tries...),
	}
}

// Serialize renders the board as YAML. Empty lists are written as [] so
// every key is always present.
func (m *Model) Serialize() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m.orEmpty()); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (m *Model) orEmpty() *Model {
	out := m.Clone()
	if out.Keeps == nil {
		out.Keeps = []string{}
	}
	if out.Problems == nil {
		out.Problems = []string{}
	}
	if out.Tries == nil {
		out.Tries = []string{}
	}
	return out
}

// Deserialize parses a board. Malformed input yields an empty board rather
// than an error: a half-typed block must still render.
func Deserialize(data string) *Model {
	m := NewModel()
	if strings.TrimSpace(data) == "" {
		return m
	}

	var raw struct {
		Keeps    []string `yaml:"keeps"`
		Problems []string `yaml:"problems"`
		Tries    []string `yaml:"tries"`
	}
	if err := yaml.Unmarshal([]byte(data), &raw); err != nil {
		return m
	}
	if raw.Keeps != nil {
		m.Keeps = raw.Keeps
	}
	if raw.Problems != nil {
		m.Problems = raw.Problems
	}
	if raw.Tries != nil {
		m.Tries = raw.Tries
	}
	return m
}

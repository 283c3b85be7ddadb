package kpt

import (
	"errors"
	"testing"

	"github.com/dshills/appwiki/internal/apps"
	"github.com/dshills/appwiki/internal/document"
	"github.com/dshills/appwiki/internal/engine/router"
)

func TestSerialize(t *testing.T) {
	tests := []struct {
		name  string
		model *Model
		want  string
	}{
		{
			name:  "empty",
			model: NewModel(),
			want:  "keeps: []\nproblems: []\ntries: []\n",
		},
		{
			name:  "nil lists",
			model: &Model{},
			want:  "keeps: []\nproblems: []\ntries: []\n",
		},
		{
			name:  "items",
			model: &Model{Keeps: []string{"pairing"}, Tries: []string{"smaller PRs", "demos"}},
			want:  "keeps:\n  - pairing\nproblems: []\ntries:\n  - smaller PRs\n  - demos\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.model.Serialize()
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			if got != tt.want {
				t.Errorf("Serialize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeserialize(t *testing.T) {
	tests := []struct {
		name string
		data string
		want *Model
	}{
		{"empty", "", NewModel()},
		{"partial", "keeps: [a]\n", &Model{Keeps: []string{"a"}, Problems: []string{}, Tries: []string{}}},
		{"block style", "problems:\n  - slow CI\n", &Model{Keeps: []string{}, Problems: []string{"slow CI"}, Tries: []string{}}},
		{"malformed", "keeps: [a\n", NewModel()},
		{"wrong shape", "keeps: {a: 1}\n", NewModel()},
		{"scalar document", "hello", NewModel()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Deserialize(tt.data); !got.Equal(tt.want) {
				t.Errorf("Deserialize(%q) = %+v, want %+v", tt.data, got, tt.want)
			}
		})
	}
}

func TestModelEqual(t *testing.T) {
	a := NewModel()
	a.AddKeep("x")
	b := a.Clone()
	if !a.Equal(b) {
		t.Error("clone not equal")
	}
	b.AddTry("y")
	if a.Equal(b) {
		t.Error("models with different tries are equal")
	}
	if a.Equal(nil) {
		t.Error("model equal to nil")
	}
}

func TestAppAddEmitsEdit(t *testing.T) {
	var edits []string
	props := apps.Props{
		Data:    "keeps: [a]\n",
		Context: router.AppContext{App: Name},
		OnEdit: func(text string, ctx router.AppContext) error {
			if ctx.App != Name {
				t.Errorf("context app = %q", ctx.App)
			}
			edits = append(edits, text)
			return nil
		},
	}
	app := New(props)

	if err := app.AddKeep(""); err != nil {
		t.Fatalf("AddKeep empty: %v", err)
	}
	if len(edits) != 0 {
		t.Fatal("empty input emitted an edit")
	}

	if err := app.AddProblem("flaky tests"); err != nil {
		t.Fatalf("AddProblem: %v", err)
	}
	if err := app.AddTry("quarantine"); err != nil {
		t.Fatalf("AddTry: %v", err)
	}

	if len(edits) != 2 {
		t.Fatalf("got %d edits, want 2", len(edits))
	}
	want := "keeps:\n  - a\nproblems:\n  - flaky tests\ntries:\n  - quarantine\n"
	if edits[1] != want {
		t.Errorf("last edit = %q, want %q", edits[1], want)
	}
}

func TestAppAddPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	app := New(apps.Props{OnEdit: func(string, router.AppContext) error { return boom }})

	if err := app.AddKeep("x"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestAppUpdate(t *testing.T) {
	app := New(apps.Props{Data: "keeps: [a]"})

	app.Update(apps.Props{Data: "keeps: [a]", Context: router.AppContext{Version: 9}})
	if got := app.Model().Keeps; len(got) != 1 {
		t.Errorf("keeps = %v", got)
	}

	app.Update(apps.Props{Data: "keeps: [a, b]"})
	if got := app.Model().Keeps; len(got) != 2 {
		t.Errorf("keeps after data change = %v", got)
	}
}

func TestAppInDocument(t *testing.T) {
	d := document.New("# Retro\n\n```kpt\n```\n\nnotes")
	reg := apps.NewRegistry()
	reg.Register(Name, Factory)

	props, err := d.Props(0)
	if err != nil {
		t.Fatalf("Props: %v", err)
	}
	a, err := reg.New(props.Context.App, props)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	board := a.(*App)

	if err := board.AddKeep("retro notes in the wiki"); err != nil {
		t.Fatalf("AddKeep: %v", err)
	}
	props, _ = d.Props(0)
	board.Update(props)
	if err := board.AddTry("rotate facilitator"); err != nil {
		t.Fatalf("AddTry: %v", err)
	}

	want := "# Retro\n\n```kpt\n" +
		"keeps:\n  - retro notes in the wiki\nproblems: []\ntries:\n  - rotate facilitator\n" +
		"```\n\nnotes"
	if d.Text() != want {
		t.Errorf("text = %q, want %q", d.Text(), want)
	}
}

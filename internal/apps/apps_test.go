package apps

import (
	"errors"
	"testing"

	"github.com/dshills/appwiki/internal/engine/router"
)

type echoApp struct {
	props Props
}

func (a *echoApp) Name() string       { return "echo" }
func (a *echoApp) Update(props Props) { a.props = props }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", func(p Props) App { return &echoApp{props: p} })

	if !r.Has("echo") {
		t.Fatal("echo not registered")
	}
	if got := r.Names(); len(got) != 1 || got[0] != "echo" {
		t.Errorf("Names() = %v", got)
	}

	app, err := r.New("echo", Props{Data: "x"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if app.(*echoApp).props.Data != "x" {
		t.Error("factory did not receive props")
	}

	if _, err := r.New("missing", Props{}); !errors.Is(err, ErrUnknownApp) {
		t.Errorf("err = %v, want ErrUnknownApp", err)
	}
}

func TestPropsEdit(t *testing.T) {
	var gotText string
	var gotCtx router.AppContext
	p := Props{
		Context: router.AppContext{App: "echo", Version: 7},
		OnEdit: func(text string, ctx router.AppContext) error {
			gotText, gotCtx = text, ctx
			return nil
		},
	}

	if err := p.Edit("hello"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if gotText != "hello" || gotCtx != p.Context {
		t.Errorf("OnEdit got (%q, %+v)", gotText, gotCtx)
	}

	if err := (Props{}).Edit("ignored"); err != nil {
		t.Errorf("Edit without OnEdit: %v", err)
	}
}

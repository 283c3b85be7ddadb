package kpt

import (
	"fmt"
	"sync"

	"github.com/dshills/appwiki/internal/apps"
)

// Name is the fence info string of KPT blocks.
const Name = "kpt"

// App is a KPT board bound to one block.
type App struct {
	mu    sync.Mutex
	props apps.Props
	model *Model
}

// New creates a board from its block props.
func New(props apps.Props) *App {
	return &App{
		props: props,
		model: Deserialize(props.Data),
	}
}

// Factory adapts New for an apps.Registry.
func Factory(props apps.Props) apps.App {
	return New(props)
}

// Name implements apps.App.
func (a *App) Name() string { return Name }

// Model returns a copy of the current board.
func (a *App) Model() *Model {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model.Clone()
}

// Update implements apps.App. The board is re-read only when the block
// text changed; a new context alone just replaces the props.
func (a *App) Update(props apps.Props) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if props.Data != a.props.Data {
		a.model = Deserialize(props.Data)
	}
	a.props = props
}

// AddKeep adds a keep and writes the board back. Empty input is ignored.
func (a *App) AddKeep(s string) error {
	return a.add(s, (*Model).AddKeep)
}

// AddProblem adds a problem and writes the board back. Empty input is ignored.
func (a *App) AddProblem(s string) error {
	return a.add(s, (*Model).AddProblem)
}

// AddTry adds a try and writes the board back. Empty input is ignored.
func (a *App) AddTry(s string) error {
	return a.add(s, (*Model).AddTry)
}

func (a *App) add(s string, fn func(*Model, string)) error {
	if s == "" {
		return nil
	}

	a.mu.Lock()
	fn(a.model, s)
	text, err := a.model.Serialize()
	props := a.props
	a.mu.Unlock()

	if err != nil {
		return fmt.Errorf("serialize board: %w", err)
	}
	return props.Edit(text)
}

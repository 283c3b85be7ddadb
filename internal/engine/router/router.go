// Package router reconciles edits emitted by embedded applications with the
// document buffer.
//
// An embedded application renders from a fragment of the document and,
// when its state changes, hands the Router the complete new fragment along
// with the context it was rendered from. The Router resolves that context
// to a buffer region, diffs the region against the new fragment and replays
// the diff, so only the characters that actually changed are written.
package router

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dshills/appwiki/internal/engine/buffer"
	"github.com/dshills/appwiki/internal/engine/diff"
	"github.com/dshills/appwiki/internal/engine/patch"
	"github.com/dshills/appwiki/internal/engine/position"
	"github.com/dshills/appwiki/internal/logging"
)

// ErrStaleVersion indicates an edit was computed against a document
// revision that is no longer current.
var ErrStaleVersion = errors.New("stale document version")

// AppContext identifies the block an embedded application was rendered from.
type AppContext struct {
	// Position is the span of the owning block, delimiters included.
	Position position.NodeSpan `json:"position"`

	// Version is the buffer revision Position was computed against.
	// Zero disables the version check.
	Version buffer.RevisionID `json:"version"`

	// App names the embedded application, for logging.
	App string `json:"app,omitempty"`
}

// EditFunc is the callback embedded applications invoke with the complete
// new text of their fragment.
type EditFunc func(newText string, ctx AppContext) error

// Source is the read access the Router needs beyond the applier's Tx.
type Source interface {
	Revision() buffer.RevisionID
	TabWidth() int
}

// Router is the onEdit entry point.
type Router struct {
	applier *patch.Applier
	source  Source
	logger  *logging.Logger

	mu     sync.RWMutex
	engine diff.Engine
}

// Option configures a Router.
type Option func(*Router)

// WithEngine selects the diff engine. The default is diff.DefaultEngine.
func WithEngine(e diff.Engine) Option {
	return func(r *Router) {
		r.engine = e
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// New creates a Router writing through applier. source reports the current
// buffer revision and is usually the same buffer the applier wraps.
func New(applier *patch.Applier, source Source, opts ...Option) *Router {
	r := &Router{
		applier: applier,
		source:  source,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.engine == nil {
		r.engine = diff.NewMatchPatch()
	}
	r.logger = logging.OrNull(r.logger).WithComponent("router")
	return r
}

// Engine returns the diff engine in use.
func (r *Router) Engine() diff.Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engine
}

// SetEngine swaps the diff engine. Edits already in flight finish with the
// previous engine.
func (r *Router) SetEngine(e diff.Engine) {
	if e == nil {
		return
	}
	r.mu.Lock()
	r.engine = e
	r.mu.Unlock()
	r.logger.Info("diff engine set to %s", e.Name())
}

// Func returns OnEdit as an EditFunc.
func (r *Router) Func() EditFunc {
	return r.OnEdit
}

// OnEdit reconciles newText into the block identified by ctx.
//
// The edit is rejected without touching the buffer when ctx.Version is set
// and no longer current, or when the span no longer fits the buffer. A
// block with no body is filled directly; otherwise the body is diffed
// against the normalized text and the script is replayed at the body start.
// Resolution, diff and replay run under the applier's lock.
func (r *Router) OnEdit(newText string, ctx AppContext) error {
	log := r.logger.WithFields(map[string]any{
		"app":  ctx.App,
		"span": ctx.Position.String(),
	})
	engine := r.Engine()

	err := r.applier.Do(func(tx *patch.Tx) error {
		if ctx.Version != 0 {
			if current := r.source.Revision(); current != ctx.Version {
				return fmt.Errorf("%w: edit against revision %d, buffer at %d", ErrStaleVersion, ctx.Version, current)
			}
		}

		buf := tx.Buffer()
		resolved, err := position.Resolve(ctx.Position, lineSource{buf})
		if err != nil {
			return err
		}
		text := NormalizePad(newText, r.pad(buf, ctx.Position))

		if resolved.Empty {
			res, err := tx.InsertEmptyBody(resolved.Anchor.Line, text)
			if err != nil {
				return err
			}
			log.Debug("filled empty block: +%d", res.Inserted)
			return nil
		}

		oldText, err := buf.TextRange(resolved.Content)
		if err != nil {
			return fmt.Errorf("%w: %v", position.ErrStaleSpan, err)
		}

		script := engine.Compute(oldText, text)
		if script.IsNoop() {
			log.Debug("no change")
			return nil
		}

		if _, err := tx.Apply(resolved.Content.Start, script); err != nil {
			return err
		}
		log.Debug("applied %v with %s", script, engine.Name())
		return nil
	})
	if err != nil {
		log.Warn("edit rejected: %v", err)
		return err
	}
	return nil
}

// pad returns the indentation written before each body line: the opening
// fence's own leading whitespace when it measures span.Indent columns,
// otherwise span.Indent spaces.
func (r *Router) pad(buf patch.Buffer, span position.NodeSpan) string {
	if span.Indent <= 0 {
		return ""
	}
	if row := span.AnchorRow(); row >= 0 && row < buf.LineCount() {
		line := buf.Line(row)
		if width, n := buffer.MeasureIndent(line, r.source.TabWidth()); width == span.Indent {
			return line[:n]
		}
	}
	return strings.Repeat(" ", span.Indent)
}

// Normalize prepares a fragment for writing into a block indented by
// indent spaces. Carriage returns are dropped, a single trailing newline
// is stripped and every non-empty line is prefixed with the indentation.
func Normalize(text string, indent int) string {
	if indent <= 0 {
		return NormalizePad(text, "")
	}
	return NormalizePad(text, strings.Repeat(" ", indent))
}

// NormalizePad is Normalize with an explicit indentation prefix.
func NormalizePad(text, pad string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.TrimSuffix(text, "\n")
	if pad == "" {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}

// lineSource adapts patch.Buffer to position.LineSource.
type lineSource struct {
	buf patch.Buffer
}

func (s lineSource) LineCount() int {
	return s.buf.LineCount()
}

func (s lineSource) LineLen(row int) int {
	if row < 0 || row >= s.buf.LineCount() {
		return -1
	}
	return len(s.buf.Line(row))
}

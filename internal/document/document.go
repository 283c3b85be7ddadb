// Package document ties a text buffer to the embedded application blocks
// it contains.
//
// A Document owns the buffer, the single Applier writing to it and the
// Router applications send edits through. Its block list is recomputed
// whenever the buffer revision moves, and every AppContext it hands out
// carries the revision its span was computed from.
package document

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dshills/appwiki/internal/apps"
	"github.com/dshills/appwiki/internal/engine/buffer"
	"github.com/dshills/appwiki/internal/engine/diff"
	"github.com/dshills/appwiki/internal/engine/patch"
	"github.com/dshills/appwiki/internal/engine/router"
	"github.com/dshills/appwiki/internal/logging"
)

// ErrNoBlock indicates a block index outside the document.
var ErrNoBlock = errors.New("no such block")

// Document is a buffer plus its block index.
type Document struct {
	buf     *buffer.Buffer
	applier *patch.Applier
	router  *router.Router
	logger  *logging.Logger

	mu      sync.Mutex
	blocks  []Block
	version buffer.RevisionID
}

// Option configures a Document.
type Option func(*options)

type options struct {
	engine   diff.Engine
	logger   *logging.Logger
	tabWidth int
}

func collect(opts []Option) options {
	o := options{engine: diff.NewMatchPatch()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) bufferOptions() []buffer.Option {
	if o.tabWidth > 0 {
		return []buffer.Option{buffer.WithTabWidth(o.tabWidth)}
	}
	return nil
}

// WithEngine selects the diff engine used for application edits.
func WithEngine(e diff.Engine) Option {
	return func(o *options) {
		o.engine = e
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTabWidth sets the buffer's tab width.
func WithTabWidth(n int) Option {
	return func(o *options) {
		o.tabWidth = n
	}
}

// New creates a document holding text.
func New(text string, opts ...Option) *Document {
	o := collect(opts)
	return newDocument(buffer.NewBufferFromString(text, o.bufferOptions()...), o)
}

// Load creates a document from r.
func Load(r io.Reader, opts ...Option) (*Document, error) {
	o := collect(opts)
	buf, err := buffer.NewBufferFromReader(r, o.bufferOptions()...)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return newDocument(buf, o), nil
}

func newDocument(buf *buffer.Buffer, o options) *Document {
	logger := logging.OrNull(o.logger)

	applier := patch.NewApplier(buf, patch.WithLogger(logger))
	return &Document{
		buf:     buf,
		applier: applier,
		router:  router.New(applier, buf, router.WithEngine(o.engine), router.WithLogger(logger)),
		logger:  logger.WithComponent("document"),
	}
}

// Buffer returns the underlying buffer.
func (d *Document) Buffer() *buffer.Buffer { return d.buf }

// Applier returns the document's single write entry point.
func (d *Document) Applier() *patch.Applier { return d.applier }

// Router returns the edit router.
func (d *Document) Router() *router.Router { return d.router }

// Text returns the full document text.
func (d *Document) Text() string { return d.buf.Text() }

// WriteTo writes the document text to w, terminating lines the way the
// loaded text did. A file with mixed endings is written with the style of
// its first line.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	text := d.buf.Text()
	if eol := d.buf.LineEnding(); eol != "\n" {
		text = strings.ReplaceAll(text, "\n", eol)
	}
	n, err := io.WriteString(w, text)
	return int64(n), err
}

// Version returns the revision the current block index was computed from.
func (d *Document) Version() buffer.RevisionID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refresh()
	return d.version
}

// Blocks returns the application blocks of the current revision.
func (d *Document) Blocks() []Block {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refresh()
	out := make([]Block, len(d.blocks))
	copy(out, d.blocks)
	return out
}

// Block returns block i of the current revision.
func (d *Document) Block(i int) (Block, error) {
	b, _, err := d.block(i)
	return b, err
}

func (d *Document) block(i int) (Block, buffer.RevisionID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refresh()
	if i < 0 || i >= len(d.blocks) {
		return Block{}, 0, fmt.Errorf("%w: %d of %d", ErrNoBlock, i, len(d.blocks))
	}
	return d.blocks[i], d.version, nil
}

// refresh rescans the buffer if it moved past the indexed revision.
// Callers hold d.mu.
func (d *Document) refresh() {
	if d.buf.Revision() == d.version {
		return
	}
	snap := d.buf.Snapshot()
	d.blocks = Scan(snap.Lines(), d.buf.TabWidth())
	d.version = snap.Revision()
	d.logger.Debug("rescanned revision %d: %d blocks", d.version, len(d.blocks))
}

// Context returns the AppContext for block i.
func (d *Document) Context(i int) (router.AppContext, error) {
	b, version, err := d.block(i)
	if err != nil {
		return router.AppContext{}, err
	}
	return router.AppContext{Position: b.Span, Version: version, App: b.App}, nil
}

// Props returns the props a renderer hands the application in block i.
func (d *Document) Props(i int) (apps.Props, error) {
	b, version, err := d.block(i)
	if err != nil {
		return apps.Props{}, err
	}
	return apps.Props{
		Data:    b.Data,
		Context: router.AppContext{Position: b.Span, Version: version, App: b.App},
		OnEdit:  d.router.OnEdit,
	}, nil
}

// OnEdit routes an application edit into the buffer.
func (d *Document) OnEdit(newText string, ctx router.AppContext) error {
	return d.router.OnEdit(newText, ctx)
}

// Type inserts text at p as if typed by the local user.
func (d *Document) Type(p buffer.Point, text string) error {
	return d.applier.Insert(p, text)
}

// Delete removes the text in r as if deleted by the local user.
func (d *Document) Delete(r buffer.PointRange) error {
	return d.applier.Remove(r)
}

// ReplaceBlock writes text as the new body of block i through the router.
func (d *Document) ReplaceBlock(i int, text string) error {
	ctx, err := d.Context(i)
	if err != nil {
		return err
	}
	return d.router.OnEdit(text, ctx)
}

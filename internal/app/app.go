// Package app wires configuration, logging, documents, embedded
// applications and collaboration into one application value shared by the
// command line tools.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/appwiki/internal/apps"
	"github.com/dshills/appwiki/internal/apps/kpt"
	"github.com/dshills/appwiki/internal/collab"
	"github.com/dshills/appwiki/internal/collab/relay"
	"github.com/dshills/appwiki/internal/config"
	"github.com/dshills/appwiki/internal/config/loader"
	"github.com/dshills/appwiki/internal/config/watcher"
	"github.com/dshills/appwiki/internal/document"
	"github.com/dshills/appwiki/internal/engine/buffer"
	"github.com/dshills/appwiki/internal/engine/router"
	"github.com/dshills/appwiki/internal/logging"
)

// Application is the central coordinator for appwiki components.
type Application struct {
	mu sync.RWMutex

	cfg       *config.Config
	logger    *logging.Logger
	registry  *apps.Registry
	transport collab.Transport
	watcher   *watcher.Watcher
	metrics   *Metrics

	documents *DocumentManager

	// ctx bounds every replication binding.
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	opts Options
}

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file.
	ConfigPath string

	// LogLevel overrides logging.level.
	LogLevel string

	// Room overrides collab.room and enables collaboration.
	Room string

	// RelayAddr overrides relay.addr.
	RelayAddr string

	// Root overrides collab.root.
	Root string

	// Output receives log output. Defaults to os.Stderr.
	Output io.Writer

	// FS reads the configuration file. Nil means the OS file system.
	FS loader.FileSystem

	// Env supplies environment overrides. Nil means the process
	// environment.
	Env loader.Loader

	// Transport replaces the websocket transport built from collab.url.
	Transport collab.Transport
}

// New creates a new Application with the given options.
func New(opts Options) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &Application{
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		documents: NewDocumentManager(),
		metrics:   NewMetrics(),
	}

	if err := app.bootstrap(); err != nil {
		cancel()
		return nil, err
	}
	return app, nil
}

// bootstrap initializes components in dependency order.
func (app *Application) bootstrap() error {
	// 1. Configuration
	cfg, err := app.loadConfig()
	if err != nil {
		return NewOperationError("load", app.configPath(), err)
	}
	app.cfg = cfg

	// 2. Logging
	app.logger = logging.New(logging.Config{
		Level:  cfg.LogLevel(),
		Output: app.opts.Output,
		Prefix: "appwiki",
	})

	// 3. Embedded applications
	app.registry = apps.NewRegistry()
	app.registry.Register(kpt.Name, kpt.Factory)

	// 4. Collaboration transport
	app.transport = app.opts.Transport
	if app.transport == nil && cfg.Collab.Enabled {
		t, err := collab.NewWebsocketTransport(cfg.Collab.URL)
		if err != nil {
			return NewOperationError("connect", cfg.Collab.URL, err)
		}
		app.transport = t
	}

	app.logger.Debug("bootstrapped: engine=%s collab=%t", cfg.Diff.Engine, cfg.Collab.Enabled)
	return nil
}

func (app *Application) configPath() string {
	if app.opts.ConfigPath != "" {
		return app.opts.ConfigPath
	}
	return config.DefaultPath
}

// loadConfig reads the configuration with the command line layer on top.
func (app *Application) loadConfig() (*config.Config, error) {
	overrides := make(map[string]any)
	if app.opts.LogLevel != "" {
		overrides["logging.level"] = app.opts.LogLevel
	}
	if app.opts.Room != "" {
		overrides["collab.room"] = app.opts.Room
		overrides["collab.enabled"] = true
	}
	if app.opts.RelayAddr != "" {
		overrides["relay.addr"] = app.opts.RelayAddr
	}
	if app.opts.Root != "" {
		overrides["collab.root"] = app.opts.Root
	}
	return config.Load(config.Options{
		Path:      app.configPath(),
		FS:        app.opts.FS,
		Env:       app.opts.Env,
		Overrides: overrides,
	})
}

// Config returns the current configuration.
func (app *Application) Config() *config.Config {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.cfg
}

// Logger returns the root logger.
func (app *Application) Logger() *logging.Logger {
	return app.logger
}

// Registry returns the embedded application registry.
func (app *Application) Registry() *apps.Registry {
	return app.registry
}

// Documents returns the document manager.
func (app *Application) Documents() *DocumentManager {
	return app.documents
}

// Metrics returns the edit metrics.
func (app *Application) Metrics() *Metrics {
	return app.metrics
}

// OpenFile opens the file at path. An already open file is returned as is.
func (app *Application) OpenFile(path string) (*Document, error) {
	if app.closed.Load() {
		return nil, ErrShutdown
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, NewOperationError("open", path, err)
	}
	if doc, ok := app.documents.Get(absPath); ok {
		return doc, nil
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, NewOperationError("open", absPath, err)
	}
	defer f.Close()

	return app.open(absPath, f)
}

// OpenText opens a scratch document holding text.
func (app *Application) OpenText(text string) (*Document, error) {
	if app.closed.Load() {
		return nil, ErrShutdown
	}
	return app.open("", strings.NewReader(text))
}

func (app *Application) open(path string, r io.Reader) (*Document, error) {
	cfg := app.Config()
	inner, err := document.Load(r,
		document.WithEngine(cfg.DiffEngine()),
		document.WithLogger(app.logger),
		document.WithTabWidth(cfg.Editor.TabWidth),
	)
	if err != nil {
		return nil, NewOperationError("open", path, err)
	}

	doc, added := app.documents.Add(NewDocument(path, inner))
	if !added {
		return doc, nil
	}
	doc.unsubscribe = doc.Buffer().Subscribe(func(buffer.Change) {
		doc.SetModified(true)
		app.metrics.RecordChange()
	})

	if cfg.Collab.Enabled && app.transport != nil {
		app.share(doc, cfg)
	}
	app.logger.Info("opened %s (%d blocks)", doc.Name, len(doc.Blocks()))
	return doc, nil
}

// share binds doc to its room. A failed binding leaves the document
// local.
func (app *Application) share(doc *Document, cfg *config.Config) {
	opts := []collab.Option{collab.WithLogger(app.logger)}
	if cfg.Collab.Reconnect {
		opts = append(opts, collab.WithReconnect(cfg.Collab.ReconnectDelay.Std()))
	}
	adapter := collab.NewAdapter(doc.Applier(), doc.Buffer(), app.transport, opts...)

	root, err := filepath.Abs(cfg.Collab.Root)
	if err != nil {
		app.logger.Warn("sharing %s: root %q: %v", doc.Name, cfg.Collab.Root, err)
		return
	}
	room := RoomFor(cfg.Collab.Room, root, doc)
	if err := adapter.Bind(app.ctx, room); err != nil {
		app.logger.Warn("sharing %s in %s failed: %v", doc.Name, room, err)
		return
	}
	doc.adapter = adapter
}

// RoomFor returns the replication room of doc under base. A file is named
// by its slash separated path relative to root, or by its absolute path
// when it lies outside root. A scratch document is named by its display
// name.
func RoomFor(base, root string, doc *Document) string {
	if doc.IsScratch() {
		return base + "/" + doc.Name
	}
	name := doc.Path
	if rel, err := filepath.Rel(root, doc.Path); err == nil && filepath.IsLocal(rel) {
		name = rel
	}
	return base + "/" + strings.TrimPrefix(filepath.ToSlash(name), "/")
}

// Props returns the props for block i of doc. Edits made through the
// returned OnEdit are counted in the application metrics.
func (app *Application) Props(doc *Document, i int) (apps.Props, error) {
	props, err := doc.Props(i)
	if err != nil {
		return apps.Props{}, err
	}
	props.OnEdit = app.measure(props.OnEdit)
	return props, nil
}

// App instantiates the embedded application rendered in block i of doc.
func (app *Application) App(doc *Document, i int) (apps.App, error) {
	props, err := app.Props(doc, i)
	if err != nil {
		return nil, err
	}
	return app.registry.New(props.Context.App, props)
}

// ReplaceBlock writes text as the body of block i of doc.
func (app *Application) ReplaceBlock(doc *Document, i int, text string) error {
	props, err := app.Props(doc, i)
	if err != nil {
		return err
	}
	return props.Edit(text)
}

func (app *Application) measure(next router.EditFunc) router.EditFunc {
	return func(newText string, ctx router.AppContext) error {
		start := time.Now()
		err := next(newText, ctx)
		switch {
		case err == nil:
			app.metrics.RecordEdit(time.Since(start))
		case IsRejected(err):
			app.metrics.RecordRejected()
			app.logger.Debug("%s edit rejected, block must be re-read: %v", ctx.App, err)
		}
		return err
	}
}

// SaveDocument writes doc back to its file. The file is replaced
// atomically.
func (app *Application) SaveDocument(doc *Document) error {
	if doc == nil {
		return ErrDocumentNotFound
	}
	if doc.IsScratch() {
		return ErrNoFilePath
	}

	if err := writeFileAtomic(doc.Path, doc); err != nil {
		return NewOperationError("save", doc.Path, err)
	}
	doc.SetModified(false)
	app.logger.Info("saved %s", doc.Path)
	return nil
}

func writeFileAtomic(path string, w io.WriterTo) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := w.WriteTo(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// CloseDocument closes doc. It returns ErrUnsavedChanges if doc has
// unsaved changes and force is false.
func (app *Application) CloseDocument(doc *Document, force bool) error {
	if doc == nil {
		return ErrDocumentNotFound
	}
	if doc.IsModified() && !force {
		return ErrUnsavedChanges
	}
	if err := app.documents.Remove(doc); err != nil {
		return err
	}
	return app.release(doc)
}

// release stops replication and change tracking for doc.
func (app *Application) release(doc *Document) error {
	var err error
	if doc.adapter != nil {
		err = doc.adapter.Unbind()
		doc.adapter = nil
	}
	if doc.unsubscribe != nil {
		doc.unsubscribe()
		doc.unsubscribe = nil
	}
	if err != nil {
		return NewOperationError("unbind", doc.Name, err)
	}
	return nil
}

// Reload re-reads the configuration and applies the settings that can
// change at run time: the log level and the diff engine. Collaboration
// settings take effect for documents opened afterwards.
func (app *Application) Reload() error {
	cfg, err := app.loadConfig()
	if err != nil {
		app.logger.Warn("config reload failed, keeping current settings: %v", err)
		return NewOperationError("reload", app.configPath(), err)
	}

	app.mu.Lock()
	app.cfg = cfg
	app.mu.Unlock()

	app.logger.SetLevel(cfg.LogLevel())
	for _, doc := range app.documents.All() {
		doc.Router().SetEngine(cfg.DiffEngine())
	}
	app.logger.Info("config reloaded: level=%s engine=%s", cfg.Logging.Level, cfg.Diff.Engine)
	return nil
}

// StartWatching reloads the configuration whenever its file changes.
func (app *Application) StartWatching(opts ...watcher.Option) error {
	if app.closed.Load() {
		return ErrShutdown
	}
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.watcher != nil {
		return nil
	}

	w, err := watcher.New(opts...)
	if err != nil {
		return NewOperationError("watch", app.configPath(), err)
	}
	w.OnChange(func(ev watcher.Event) {
		app.logger.Debug("config %s: %s", ev.Op, ev.Path)
		_ = app.Reload()
	})
	if err := w.Watch(app.configPath()); err != nil {
		w.Close()
		return NewOperationError("watch", app.configPath(), err)
	}
	go func() {
		for err := range w.Errors() {
			app.logger.Warn("config watcher: %v", err)
		}
	}()
	app.watcher = w
	return nil
}

// RunRelay serves the collaboration relay until ctx is cancelled.
func (app *Application) RunRelay(ctx context.Context) error {
	addr := app.Config().Relay.Addr
	srv := relay.New(relay.WithLogger(app.logger))
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return NewOperationError("serve", addr, err)
	}
	return nil
}

// Shutdown stops the watcher and unbinds every shared document. Open
// documents stay readable. Calling Shutdown again is a no-op.
func (app *Application) Shutdown() error {
	if !app.closed.CompareAndSwap(false, true) {
		return nil
	}
	errs := NewErrorList()

	app.mu.Lock()
	w := app.watcher
	app.watcher = nil
	app.mu.Unlock()
	if w != nil {
		errs.Add(w.Close())
	}

	for _, doc := range app.documents.All() {
		errs.Add(app.release(doc))
	}
	app.cancel()

	if dirty := app.documents.DirtyDocuments(); len(dirty) > 0 {
		app.logger.Warn("shutting down with %d unsaved documents", len(dirty))
	}
	if errs.HasErrors() {
		return fmt.Errorf("shutdown: %w", errs)
	}
	return nil
}

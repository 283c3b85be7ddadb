package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/appwiki/internal/config/loader"
	"github.com/dshills/appwiki/internal/engine/diff"
	"github.com/dshills/appwiki/internal/logging"
)

const (
	// DefaultPath is the config file read when none is given.
	DefaultPath = "appwiki.toml"

	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "APPWIKI_"
)

// Config is the complete appwiki configuration.
type Config struct {
	Logging LoggingConfig `toml:"logging"`
	Diff    DiffConfig    `toml:"diff"`
	Editor  EditorConfig  `toml:"editor"`
	Collab  CollabConfig  `toml:"collab"`
	Relay   RelayConfig   `toml:"relay"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Diff:    DiffConfig{Engine: diff.DefaultEngine},
		Editor:  EditorConfig{TabWidth: 4},
		Collab: CollabConfig{
			URL:            "ws://localhost:1234",
			Reconnect:      true,
			ReconnectDelay: Duration(2 * time.Second),
		},
		Relay: RelayConfig{Addr: ":1234"},
	}
}

// Options selects the sources Load reads.
type Options struct {
	// Path is the TOML file. Empty means DefaultPath; a missing file
	// is skipped.
	Path string

	// FS reads the file. Nil means the OS file system.
	FS loader.FileSystem

	// Env supplies environment overrides. Nil means the process
	// environment; use NoEnv to skip the layer.
	Env loader.Loader

	// Overrides is the command line layer, keyed by dotted path.
	Overrides map[string]any
}

type noEnv struct{}

func (noEnv) Load() (map[string]any, error) { return nil, nil }

// NoEnv is an environment layer with no settings.
var NoEnv loader.Loader = noEnv{}

// Load builds a validated configuration from defaults and the layers in
// opts.
func Load(opts Options) (*Config, error) {
	path := opts.Path
	if path == "" {
		path = DefaultPath
	}
	fsys := opts.FS
	if fsys == nil {
		fsys = loader.DefaultFS()
	}
	env := opts.Env
	if env == nil {
		env = loader.NewEnvLoader(EnvPrefix)
	}

	merged := make(map[string]any)
	for _, l := range []loader.Loader{loader.NewTOMLLoaderWithFS(fsys, path), env} {
		m, err := l.Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, m)
	}
	for p, v := range opts.Overrides {
		loader.SetPath(merged, p, v)
	}

	cfg := Default()
	if err := cfg.apply(merged); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// apply decodes a merged settings map over c. Only keys present in m
// change c.
func (c *Config) apply(m map[string]any) error {
	if len(m) == 0 {
		return nil
	}
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding merged config: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return &loader.ParseError{Path: "<merged>", Message: err.Error(), Err: err}
	}
	return nil
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(path, msg string, v any) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: v})
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level", "unknown level", c.Logging.Level)
	}
	if _, err := diff.New(c.Diff.Engine); err != nil {
		add("diff.engine", fmt.Sprintf("must be one of %v", diff.Names()), c.Diff.Engine)
	}
	if c.Editor.TabWidth < 1 {
		add("editor.tabWidth", "must be positive", c.Editor.TabWidth)
	}
	if c.Collab.Enabled {
		if c.Collab.Room == "" {
			add("collab.room", "required when collab is enabled", c.Collab.Room)
		}
		if u, err := url.Parse(c.Collab.URL); err != nil || u.Host == "" {
			add("collab.url", "must be an absolute relay URL", c.Collab.URL)
		}
	}
	if c.Collab.ReconnectDelay < 0 {
		add("collab.reconnectDelay", "must not be negative", c.Collab.ReconnectDelay)
	}
	if c.Relay.Addr == "" {
		add("relay.addr", "required", c.Relay.Addr)
	}

	return errors.Join(errs...)
}

// LogLevel returns the parsed logging level.
func (c *Config) LogLevel() logging.Level {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.LevelInfo
	}
	return level
}

// DiffEngine returns a new instance of the configured diff engine.
func (c *Config) DiffEngine() diff.Engine {
	e, err := diff.New(c.Diff.Engine)
	if err != nil {
		return diff.NewMatchPatch()
	}
	return e
}

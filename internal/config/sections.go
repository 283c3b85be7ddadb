package config

import (
	"fmt"
	"time"
)

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
}

// DiffConfig configures fragment reconciliation.
type DiffConfig struct {
	// Engine names the diff engine: dmp or myers.
	Engine string `toml:"engine"`
}

// EditorConfig configures document buffers.
type EditorConfig struct {
	// TabWidth is the column width of a tab when measuring block fence
	// indentation.
	TabWidth int `toml:"tabWidth"`
}

// CollabConfig configures replication.
type CollabConfig struct {
	// Enabled binds opened documents to Room.
	Enabled bool `toml:"enabled"`

	// URL is the relay address.
	URL string `toml:"url"`

	// Room is the shared room name.
	Room string `toml:"room"`

	// Root is the directory file rooms are named relative to. Empty
	// means the working directory.
	Root string `toml:"root"`

	// Reconnect redials after the relay connection drops.
	Reconnect bool `toml:"reconnect"`

	// ReconnectDelay is the pause between redial attempts.
	ReconnectDelay Duration `toml:"reconnectDelay"`
}

// RelayConfig configures the relay server.
type RelayConfig struct {
	// Addr is the listen address.
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a string such as "1.5s".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q", text)
	}
	*d = Duration(v)
	return nil
}

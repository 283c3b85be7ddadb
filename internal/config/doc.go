// Package config loads appwiki settings.
//
// Settings come from four layers, later layers overriding earlier ones:
//
//	defaults < config file (TOML) < APPWIKI_* environment < command line
//
// A file looks like:
//
//	[logging]
//	level = "debug"
//
//	[diff]
//	engine = "myers"
//
//	[collab]
//	enabled = true
//	url = "ws://localhost:1234"
//	room = "retro"
//	reconnectDelay = "2s"
//
//	[relay]
//	addr = ":1234"
//
// Sub-packages:
//
//   - loader: TOML and environment sources, map merging
//   - watcher: fsnotify-based file watching for live reload
package config

// Package config loads and holds the eachfmt configuration.
//
// The formatter core never reads configuration on its own: callers take a
// Settings snapshot from a Live holder at the start of every run and pass it
// down. Live can be reloaded at any time (e.g. by a file watcher) without
// affecting runs that already took their snapshot.
package config

import (
	"sync/atomic"

	"eachfmt/internal/logging"
)

// Live is a hot-swappable configuration holder.
type Live struct {
	path    string
	adjust  func(*Config)
	current atomic.Pointer[Config]
}

// NewLive loads path and returns a holder for it. adjust, if non-nil, is
// applied after every load (command-line flag overrides).
func NewLive(path string, adjust func(*Config)) (*Live, error) {
	l := &Live{path: path, adjust: adjust}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the config file path.
func (l *Live) Path() string {
	return l.path
}

// Reload re-reads the config file. On error the previous configuration stays
// in place.
func (l *Live) Reload() error {
	cfg, err := Load(l.path)
	if err != nil {
		logging.Get(logging.CategoryConfig).Warn("config reload failed, keeping previous: %v", err)
		return err
	}
	if l.adjust != nil {
		l.adjust(cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	l.current.Store(cfg)
	logging.ConfigDebug("config loaded from %s: characterWidth=%v formatOnSave=%v",
		l.path, cfg.CharacterWidth, cfg.FormatOnSave)
	return nil
}

// Store replaces the current configuration.
func (l *Live) Store(cfg *Config) {
	l.current.Store(cfg)
}

// Config returns the current configuration. Callers must not mutate it.
func (l *Live) Config() *Config {
	return l.current.Load()
}

// Snapshot returns the current formatter settings.
func (l *Live) Snapshot() Settings {
	return l.current.Load().Settings()
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a profile's config file whenever it changes on disk.
type Watcher struct {
	profile string
	path    string
	fs      *fsnotify.Watcher
	changes chan *Config
	errs    chan error
	done    chan struct{}
}

// Watch starts watching the config directory for profile. The directory
// is watched rather than the file so editors that replace the file are
// picked up.
func Watch(profile string) (*Watcher, error) {
	path, err := Path(profile)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		profile: profile,
		path:    path,
		fs:      fw,
		changes: make(chan *Config, 1),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Changes delivers the reloaded config after each change. Only the latest
// pending reload is kept.
func (w *Watcher) Changes() <-chan *Config { return w.changes }

func (w *Watcher) Errors() <-chan error { return w.errs }

func (w *Watcher) Close() error {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	return w.fs.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(w.profile)
			if err != nil {
				w.send(w.errs, err)
				continue
			}
			w.sendConfig(cfg)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.send(w.errs, err)
		}
	}
}

func (w *Watcher) sendConfig(cfg *Config) {
	// drop a stale pending config in favour of the newest
	select {
	case <-w.changes:
	default:
	}
	select {
	case w.changes <- cfg:
	default:
	}
}

func (w *Watcher) send(ch chan error, err error) {
	select {
	case ch <- err:
	default:
	}
}

package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"starbridge.xyz/starbridge/internal/log"
)

// Watcher reloads the config file when it changes on disk and hands the
// freshly parsed result to the callback. Only the callback decides which
// fields are hot-reloadable.
type Watcher struct {
	path     string
	onChange func(*Config)
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher starts watching path. Editors replace files rather than
// rewrite them, so the parent directory is watched and events are matched
// by name.
func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		path:     path,
		onChange: onChange,
		watcher:  fw,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	logger := log.GetLogger().WithField("component", "config-watcher")

	// Editors fire several events per save; coalesce with a short timer.
	var pending *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(200*time.Millisecond, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			cfg, err := Load(w.path)
			if err != nil {
				logger.WithError(err).Warn("config changed but failed to load, keeping previous")
				continue
			}
			logger.Info("config file changed, applying")
			w.onChange(cfg)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.WithError(err).Warn("config watch error")

		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() {
	close(w.done)
	w.watcher.Close()
}

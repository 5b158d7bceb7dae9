package heapconf

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a configuration file on change using OS-native
// notifications. Documents that fail to parse are reported through the
// error callback and the previous configuration stays in effect.
type Watcher struct {
	w    *fsnotify.Watcher
	path string
}

// WatchFile watches path and invokes onChange with each successfully
// reloaded configuration. The containing directory is watched so
// editor rename-into-place saves are seen.
func WatchFile(path string, onChange func(*Config), onError func(error)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	cw := &Watcher{w: w, path: filepath.Clean(path)}
	if err := w.Add(filepath.Dir(cw.path)); err != nil {
		w.Close()
		return nil, err
	}
	go cw.loop(onChange, onError)
	return cw, nil
}

func (cw *Watcher) loop(onChange func(*Config), onError func(error)) {
	for {
		select {
		case ev, ok := <-cw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != cw.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := Load(cw.path)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			onChange(cfg)
		case err, ok := <-cw.w.Errors:
			if !ok {
				return
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}

// Close stops the watcher.
func (cw *Watcher) Close() error { return cw.w.Close() }

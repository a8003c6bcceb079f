package capability

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the modules directory for <name>.keep flag files appearing
// mid-run and forwards them to the registry as useful signals. Without a
// watcher the flags are still honored at reconcile time; the watcher only
// makes them visible earlier.
type Watcher struct {
	registry *Registry
	fw       *fsnotify.Watcher
	done     chan struct{}
}

// WatchFlags starts watching the registry's modules directory. Call Close to
// stop.
func WatchFlags(r *Registry) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(r.Dir()); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		registry: r,
		fw:       fw,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// loop consumes filesystem events until Close is called.
func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			base := filepath.Base(event.Name)
			if !strings.HasSuffix(base, ".keep") {
				continue
			}
			w.registry.MarkUseful(strings.TrimSuffix(base, ".keep"))
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.registry.debugLog("[capability] flag watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}

package credential

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	log "github.com/talkcody/modelgate/internal/logging"
)

const watchDebounce = 500 * time.Millisecond

// Watcher monitors the auth directory and the custom model document and fires
// a debounced callback when either changes, so the store can refresh its
// snapshot without polling.
type Watcher struct {
	paths    []string
	onChange func()

	mu      sync.Mutex
	timer   *time.Timer
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher watches the given files or directories. Missing paths are
// skipped with a warning; at least one must resolve for Start to succeed.
func NewWatcher(onChange func(), paths ...string) *Watcher {
	return &Watcher{paths: paths, onChange: onChange}
}

// Start begins watching. It spawns one goroutine that lives until Stop.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	added := 0
	for _, p := range w.paths {
		if p == "" {
			continue
		}
		// Watch the parent directory for plain files so replace-by-rename
		// writes are observed.
		target := p
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			target = filepath.Dir(p)
		}
		if err := fw.Add(target); err != nil {
			log.WithError(err).Warnf("watcher: cannot watch %s", target)
			continue
		}
		added++
	}
	if added == 0 {
		_ = fw.Close()
		return fmt.Errorf("watcher: no watchable paths")
	}

	w.watcher = fw
	w.done = make(chan struct{})
	go w.loop()
	return nil
}

// Stop ends watching and releases the fsnotify handle.
func (w *Watcher) Stop() {
	if w.watcher == nil {
		return
	}
	close(w.done)
	_ = w.watcher.Close()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
}

func (w *Watcher) loop() {
	relevant := fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&relevant == 0 {
				continue
			}
			log.Debugf("watcher: change detected at %s", ev.Name)
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("watcher: filesystem event error")
		}
	}
}

// schedule coalesces bursts of events into one callback.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, w.onChange)
}

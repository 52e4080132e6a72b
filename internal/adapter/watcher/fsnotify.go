// Package watcher reports dataset file changes so they can be re-ingested.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type Operation int

const (
	FileChanged Operation = iota // created or written
	FileRemoved
)

// Event is a settled change to one dataset file.
type Event struct {
	Path      string
	Operation Operation
}

// Watcher monitors a directory tree with fsnotify. Bursts of writes to the
// same file are coalesced into one event after the debounce window.
type Watcher struct {
	watcher  *fsnotify.Watcher
	match    func(relPath string) bool
	debounce time.Duration
	logger   *zap.Logger
}

// New creates a watcher. match receives slash-separated paths relative to the
// watched root; nil matches everything.
func New(match func(relPath string) bool, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if match == nil {
		match = func(string) bool { return true }
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		watcher:  w,
		match:    match,
		debounce: debounce,
		logger:   logger,
	}, nil
}

// Watch starts monitoring root and its subdirectories. The returned channel
// is closed when ctx is done or the watcher is stopped.
func (w *Watcher) Watch(ctx context.Context, root string) (<-chan Event, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := w.addTree(root); err != nil {
		return nil, err
	}

	events := make(chan Event, 100)
	var mu sync.Mutex
	pending := make(map[string]*time.Timer)
	var wg sync.WaitGroup
	done := make(chan struct{})

	emit := func(ev Event) {
		defer wg.Done()
		mu.Lock()
		delete(pending, ev.Path)
		mu.Unlock()
		select {
		case events <- ev:
		case <-ctx.Done():
		case <-done:
		}
	}

	go func() {
		defer func() {
			mu.Lock()
			for _, t := range pending {
				if t.Stop() {
					wg.Done()
				}
			}
			mu.Unlock()
			close(done)
			wg.Wait()
			close(events)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}

				if event.Op&fsnotify.Create == fsnotify.Create {
					if isDir(event.Name) {
						if err := w.addTree(event.Name); err != nil {
							w.logger.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
						}
						continue
					}
				}

				rel, err := filepath.Rel(root, event.Name)
				if err != nil || !w.match(filepath.ToSlash(rel)) {
					continue
				}

				var op Operation
				switch {
				case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
					op = FileChanged
				case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
					op = FileRemoved
				default:
					continue
				}

				ev := Event{Path: event.Name, Operation: op}
				mu.Lock()
				if t, ok := pending[ev.Path]; ok && t.Stop() {
					wg.Done()
				}
				wg.Add(1)
				pending[ev.Path] = time.AfterFunc(w.debounce, func() { emit(ev) })
				mu.Unlock()
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("file watcher error", zap.Error(err))
			}
		}
	}()

	return events, nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
